package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/discordforstudywif/poof/poof/overlay"
	"github.com/discordforstudywif/poof/shared"
)

// AutoUpperDir derives the persistent upper directory name from the command:
// <cwd>/<basename(program)>, with a timestamp appended when that path is
// already taken.
func AutoUpperDir(cwd string, program string, now time.Time) string {
	base := filepath.Join(cwd, filepath.Base(program))
	if !shared.PathExists(base) {
		return base
	}

	return base + "." + now.Format("20060102150405")
}

// newPlan allocates the overlay directories for the run and records them in
// the supervisor cleanup state. The slots are recorded here, before the
// child is spawned, so the supervisor can always clean up no matter where
// the child dies.
func (s *Supervisor) newPlan() (*overlay.Plan, error) {
	cfg := s.cfg

	if cfg.Mode == Persistent {
		if cfg.UpperDir == "" {
			return nil, fmt.Errorf("Persistent mode requires an upper directory")
		}

		plan := &overlay.Plan{
			Upper:  cfg.UpperDir,
			Work:   cfg.UpperDir + ".work",
			Merged: cfg.UpperDir + ".merged",
		}

		// The work and merged siblings are scratch space; the upper itself
		// is the product and is never cleaned up.
		s.cleanup.workDir = plan.Work
		s.cleanup.mergedDir = plan.Merged

		return plan, nil
	}

	name, err := shared.RandomHexString(8)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(os.TempDir(), "poof-"+name)
	err = os.MkdirAll(base, 0700)
	if err != nil {
		return nil, fmt.Errorf("Failed to create temp directory %q: %w", base, err)
	}

	plan := &overlay.Plan{
		Upper:  filepath.Join(base, "upper"),
		Work:   filepath.Join(base, "work"),
		Merged: filepath.Join(base, "merged"),
	}

	// Ephemeral runs put a tmpfs over the base so nothing ever reaches
	// disk; interactive runs keep the upper on disk for the review.
	if cfg.Mode == Ephemeral {
		plan.TmpfsBase = base
	}

	s.cleanup.tempBase = base

	return plan, nil
}
