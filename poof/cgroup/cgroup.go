// Package cgroup manages the transient cgroups v2 scope used to apply
// resource limits to a sandbox run.
package cgroup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/discordforstudywif/poof/shared"
	"github.com/discordforstudywif/poof/shared/logger"
)

const cgRoot = "/sys/fs/cgroup"

// Limits holds the resource limits to apply to a sandbox scope.
type Limits struct {
	// MemoryBytes is the value for memory.max (0 means unlimited).
	MemoryBytes int64

	// MaxPids is the value for pids.max (0 means unlimited).
	MaxPids int64
}

// Any returns true if at least one limit is set.
func (l Limits) Any() bool {
	return l.MemoryBytes > 0 || l.MaxPids > 0
}

// HasV2 returns true if the unified cgroup hierarchy is mounted.
func HasV2() bool {
	return shared.PathExists(filepath.Join(cgRoot, "cgroup.controllers"))
}

// Scope is a transient cgroup created for a single sandbox run. The
// supervisor joins the scope before spawning the child so that the
// child inherits membership.
type Scope struct {
	path          string
	originalProcs string
	released      bool
}

// NewScope creates a randomly named poof-<hex> cgroup under the unified
// hierarchy, applies the given limits and moves pid into it. Individual
// limit writes that fail are logged and skipped.
func NewScope(limits Limits, pid int) (*Scope, error) {
	if !HasV2() {
		return nil, ErrUnavailable
	}

	originalProcs, err := currentProcsFile()
	if err != nil {
		return nil, fmt.Errorf("Failed to resolve current cgroup: %w", err)
	}

	name, err := shared.RandomHexString(8)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(cgRoot, "poof-"+name)
	err = os.Mkdir(path, 0755)
	if err != nil {
		return nil, fmt.Errorf("Failed to create cgroup %q: %w", path, err)
	}

	s := &Scope{path: path, originalProcs: originalProcs}

	if limits.MemoryBytes > 0 {
		err = s.set("memory.max", strconv.FormatInt(limits.MemoryBytes, 10))
		if err != nil {
			logger.Warn("Failed to apply memory limit", logger.Ctx{"cgroup": path, "err": err})
		}
	}

	if limits.MaxPids > 0 {
		err = s.set("pids.max", strconv.FormatInt(limits.MaxPids, 10))
		if err != nil {
			logger.Warn("Failed to apply pids limit", logger.Ctx{"cgroup": path, "err": err})
		}
	}

	err = s.set("cgroup.procs", strconv.Itoa(pid))
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("Failed to join cgroup %q: %w", path, err)
	}

	return s, nil
}

// Path returns the absolute path of the scope.
func (s *Scope) Path() string {
	return s.path
}

// Release moves pid back into the original cgroup and removes the
// scope. It is idempotent and safe to call from a signal path.
func (s *Scope) Release(pid int) {
	if s == nil || s.released {
		return
	}

	s.released = true

	err := os.WriteFile(s.originalProcs, []byte(strconv.Itoa(pid)), 0644)
	if err != nil {
		logger.Debug("Failed to leave cgroup scope", logger.Ctx{"cgroup": s.path, "err": err})
	}

	err = os.Remove(s.path)
	if err != nil {
		logger.Debug("Failed to remove cgroup scope", logger.Ctx{"cgroup": s.path, "err": err})
	}
}

func (s *Scope) set(file string, value string) error {
	return os.WriteFile(filepath.Join(s.path, file), []byte(value), 0644)
}

// currentProcsFile parses /proc/self/cgroup and returns the
// cgroup.procs path of the cgroup the process currently belongs to.
func currentProcsFile() (string, error) {
	f, err := os.Open("/proc/self/cgroup")
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.SplitN(line, ":", 3)
		if len(fields) != 3 {
			continue
		}

		// Only the v2 entry has an empty controller list.
		if fields[0] != "0" || fields[1] != "" {
			continue
		}

		return filepath.Join(cgRoot, fields[2], "cgroup.procs"), nil
	}

	err = scanner.Err()
	if err != nil {
		return "", err
	}

	return "", fmt.Errorf("No cgroups v2 entry in /proc/self/cgroup")
}
