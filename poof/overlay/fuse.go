package overlay

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"golang.org/x/sys/unix"

	"github.com/discordforstudywif/poof/shared"
	"github.com/discordforstudywif/poof/shared/logger"
)

// fuseOverlayfsPath is where distributions install the userspace overlay.
const fuseOverlayfsPath = "/usr/bin/fuse-overlayfs"

// mountFuse launches fuse-overlayfs in foreground mode so the helper stays
// alive for the lifetime of the sandbox, then waits for the merged mount to
// materialize. The returned command holds the helper PID for cleanup and
// error messages.
func mountFuse(plan *Plan) (*exec.Cmd, error) {
	opts := fmt.Sprintf("%s,squash_to_root", plan.Options())

	cmd := exec.Command(fuseOverlayfsPath, "-f", "-o", opts, plan.Merged)
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFuseNotInstalled
		}

		return nil, fmt.Errorf("%w: %v", ErrFuseStartupFailed, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	// Give the helper a moment to either die or bring up the mount.
	time.Sleep(100 * time.Millisecond)

	select {
	case <-waitCh:
		if cmd.ProcessState.ExitCode() == 127 {
			return nil, ErrFuseNotInstalled
		}

		return nil, fmt.Errorf("%w: exited with status %d", ErrFuseStartupFailed, cmd.ProcessState.ExitCode())
	default:
	}

	// An empty merged directory means the FUSE mount never appeared.
	err = retry.Retry(func(attempt uint) error {
		empty, err := shared.IsDirEmpty(plan.Merged)
		if err != nil {
			return err
		}

		if empty {
			return ErrFuseVerifyFailed
		}

		return nil
	}, strategy.Limit(10), strategy.Wait(100*time.Millisecond))
	if err != nil {
		logger.Warn("fuse-overlayfs mount did not materialize", logger.Ctx{"pid": cmd.Process.Pid, "merged": plan.Merged})
		_ = cmd.Process.Kill()

		return nil, ErrFuseVerifyFailed
	}

	// The helper's lifetime bounds the validity of the merged mount, so an
	// early death is worth a loud diagnostic: the sandboxed command would
	// otherwise only see puzzling I/O errors.
	go func() {
		err := <-waitCh
		logger.Error("fuse-overlayfs helper exited, the sandbox filesystem is gone", logger.Ctx{"pid": cmd.Process.Pid, "err": err})
	}()

	return cmd, nil
}

// HelperAlive reports whether the FUSE helper backing the merged mount is
// still running. A nil helper (kernel overlay path) has nothing to check.
func HelperAlive(helper *exec.Cmd) bool {
	if helper == nil || helper.Process == nil {
		return false
	}

	return unix.Kill(helper.Process.Pid, 0) == nil
}
