package review

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/mattn/go-colorable"
	"golang.org/x/term"

	"github.com/discordforstudywif/poof/shared"
	cli "github.com/discordforstudywif/poof/shared/cmd"
	"github.com/discordforstudywif/poof/shared/logger"
)

// Decision is the outcome of an interactive review.
type Decision int

const (
	// Discarded means the changes were rejected; the upper layer is kept
	// on disk for later inspection.
	Discarded Decision = iota

	// Applied means the changes were copied over the target.
	Applied

	// NoChanges means the sandbox didn't touch the target subtree.
	NoChanges
)

// Reviewer presents the sandbox changes for a target subtree and drives the
// apply/discard/diff prompt.
type Reviewer struct {
	// Upper is the overlay upper layer to scan.
	Upper string

	// Target is the host directory the changes shadow.
	Target string

	// Command is the sandboxed command line, echoed in the header.
	Command []string

	asker  cli.Asker
	stdout io.Writer
	color  bool
}

// NewReviewer creates a Reviewer reading the prompt from stdin.
func NewReviewer(upper string, target string, command []string) *Reviewer {
	_, noColor := os.LookupEnv("NO_COLOR")

	return &Reviewer{
		Upper:   upper,
		Target:  target,
		Command: command,
		asker:   cli.NewAsker(bufio.NewReader(os.Stdin), logger.Log),
		stdout:  colorable.NewColorableStdout(),
		color:   !noColor && term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Run scans the upper layer and asks the user what to do with the result.
func (r *Reviewer) Run() (Decision, error) {
	changes, total, err := Scan(r.Upper, r.Target)
	if err != nil {
		return Discarded, err
	}

	if len(changes) == 0 {
		fmt.Fprintf(r.stdout, "No changes in %s\n", r.Target)
		return NoChanges, nil
	}

	fmt.Fprintf(r.stdout, "Changes in %s (%s):\n", r.Target, shellquote.Join(r.Command...))
	render(r.stdout, changes, total, r.Target, r.color)
	fmt.Fprintln(r.stdout)

	answer, err := r.asker.AskString("Apply changes? (y/N/d): ", "no", nil)
	if err != nil {
		// No usable stdin (EOF); the safe default is to discard.
		return Discarded, nil
	}

	// Anything that isn't an explicit yes or diff means discard.
	switch strings.ToLower(answer) {
	case "d", "diff":
		r.showDiff()

		answer, err = r.asker.AskString("Apply changes? (y/N): ", "no", nil)
		if err != nil || !isYes(answer) {
			return Discarded, nil
		}

		return Applied, r.apply()
	default:
		if !isYes(answer) {
			return Discarded, nil
		}

		return Applied, r.apply()
	}
}

func isYes(answer string) bool {
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// shadow is the subtree of the upper layer that maps onto the target.
func (r *Reviewer) shadow() string {
	return filepath.Join(r.Upper, r.Target)
}

// showDiff shells out to git for a unified diff between the target and the
// shadow subtree. git diff --no-index exits non-zero whenever the trees
// differ, so the exit code is ignored.
func (r *Reviewer) showDiff() {
	err := shared.RunCommandPassthrough("git", "--no-pager", "diff", "--no-index", r.Target, r.shadow())
	if err != nil {
		logger.Debug("Diff tool exited non-zero", logger.Ctx{"err": err})
	}
}

// apply copies the shadow subtree over the target, overwriting existing
// files. Whiteouts are reported at review time but not translated into
// deletions on the target.
func (r *Reviewer) apply() error {
	err := copyTree(r.shadow(), r.Target)
	if err != nil {
		return fmt.Errorf("Failed to apply changes to %q: %w", r.Target, err)
	}

	fmt.Fprintf(r.stdout, "Changes applied to %s\n", r.Target)

	return nil
}
