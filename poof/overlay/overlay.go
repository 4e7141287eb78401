// Package overlay brings up the copy-on-write view of the host root inside
// the sandbox mount namespace: overlay mount (kernel or FUSE), minimal /dev,
// root transition and the /proc and /tmp remounts.
package overlay

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/discordforstudywif/poof/shared/logger"
)

// Backend selects the overlay implementation. Each backend is bound to its
// own root transition strategy: the kernel mount allows pivot_root, while
// the FUSE mount is held open by a helper process in the old root view and
// only supports chroot.
type Backend int

const (
	// KernelOverlay uses the in-kernel overlayfs and pivot_root.
	KernelOverlay Backend = iota

	// FuseOverlay uses fuse-overlayfs and chroot.
	FuseOverlay
)

// Plan holds the directories used for one overlay instance.
type Plan struct {
	// Upper is the writable layer.
	Upper string

	// Work is the overlay work directory (same filesystem as Upper).
	Work string

	// Merged is the mount point of the combined view.
	Merged string

	// TmpfsBase, when set, is mounted as a fresh tmpfs before the three
	// directories above are created under it (ephemeral mode).
	TmpfsBase string
}

// Options renders the lowerdir/upperdir/workdir mount option string.
func (p *Plan) Options() string {
	return fmt.Sprintf("lowerdir=/,upperdir=%s,workdir=%s", p.Upper, p.Work)
}

// Setup brings up the sandbox filesystem. It must run inside the new mount
// and PID namespaces, before the target program is executed. On return the
// process root is the merged overlay view with cwd set to cwd (or / if that
// path doesn't exist in the sandbox).
//
// The returned process is the fuse-overlayfs helper on the FUSE path, nil
// otherwise.
func Setup(plan *Plan, backend Backend, cwd string, hostOverlay bool) (*exec.Cmd, error) {
	// Stop mount events from propagating back to the host. This has to
	// happen before any mount, including the ephemeral tmpfs: on hosts
	// with shared root propagation the tmpfs would otherwise leak out.
	err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, "")
	if err != nil {
		return nil, fmt.Errorf("Failed to make mount tree private: %w", err)
	}

	// Ephemeral runs get their own tmpfs so the upper layer vanishes with
	// the mount namespace.
	if plan.TmpfsBase != "" {
		err := unix.Mount("tmpfs", plan.TmpfsBase, "tmpfs", 0, "")
		if err != nil {
			return nil, fmt.Errorf("Failed to mount tmpfs on %q: %w", plan.TmpfsBase, err)
		}
	}

	for _, dir := range []string{plan.Upper, plan.Work, plan.Merged} {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("Failed to create %q: %w", dir, err)
		}
	}

	var helper *exec.Cmd
	if backend == KernelOverlay {
		err = unix.Mount("overlay", plan.Merged, "overlay", 0, plan.Options())
		if err != nil {
			if errors.Is(err, unix.EINVAL) && hostOverlay {
				return nil, ErrStackingLimit
			}

			if errors.Is(err, unix.EPERM) {
				return nil, ErrMountDenied
			}

			return nil, fmt.Errorf("Failed to mount overlay on %q: %w", plan.Merged, err)
		}
	} else {
		helper, err = mountFuse(plan)
		if err != nil {
			return nil, err
		}
	}

	// Device nodes can't come from the overlay itself, so the minimal /dev
	// has to be built before the root transition.
	setupDev(plan.Merged)

	err = transitionRoot(plan.Merged, backend, cwd)
	if err != nil {
		return nil, err
	}

	// The new PID namespace needs its own procfs so the command only sees
	// its own process tree.
	err = unix.Mount("proc", "/proc", "proc", unix.MS_NOSUID|unix.MS_NODEV|unix.MS_NOEXEC, "")
	if err != nil {
		return nil, fmt.Errorf("Failed to mount /proc: %w", err)
	}

	// A fresh /tmp guarantees writability regardless of the host setup.
	err = unix.Mount("tmpfs", "/tmp", "tmpfs", unix.MS_NOSUID|unix.MS_NODEV, "")
	if err != nil {
		return nil, fmt.Errorf("Failed to mount /tmp: %w", err)
	}

	if backend == FuseOverlay {
		setupDevSymlinks()
	}

	return helper, nil
}

// transitionRoot swaps the process root for the merged overlay view.
func transitionRoot(merged string, backend Backend, cwd string) error {
	if backend == KernelOverlay {
		oldRoot := filepath.Join(merged, ".oldroot")
		err := os.MkdirAll(oldRoot, 0755)
		if err != nil {
			return fmt.Errorf("Failed to create %q: %w", oldRoot, err)
		}

		err = unix.PivotRoot(merged, oldRoot)
		if err != nil {
			return fmt.Errorf("Failed to pivot_root into %q: %w", merged, err)
		}

		chdirWithFallback(cwd)

		err = unix.Unmount("/.oldroot", unix.MNT_DETACH)
		if err != nil {
			return fmt.Errorf("Failed to detach old root: %w", err)
		}

		err = os.Remove("/.oldroot")
		if err != nil {
			logger.Debug("Failed to remove old root mount point", logger.Ctx{"err": err})
		}

		return nil
	}

	// pivot_root can't be used here: the FUSE daemon keeps the merged mount
	// alive from the old root view.
	err := unix.Chroot(merged)
	if err != nil {
		return fmt.Errorf("Failed to chroot into %q: %w", merged, err)
	}

	chdirWithFallback(cwd)

	return nil
}

// chdirWithFallback enters cwd inside the new root, falling back to / when
// the directory doesn't exist in the sandbox view.
func chdirWithFallback(cwd string) {
	err := os.Chdir(cwd)
	if err != nil {
		logger.Debug("Failed to enter working directory, falling back to /", logger.Ctx{"cwd": cwd, "err": err})
		_ = os.Chdir("/")
	}
}
