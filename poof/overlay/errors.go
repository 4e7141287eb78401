package overlay

import (
	"errors"
)

// ErrMountDenied indicates the kernel refused the overlay mount (no CAP_SYS_ADMIN).
var ErrMountDenied = errors.New("Kernel overlay mount denied")

// ErrStackingLimit indicates the overlay couldn't be mounted because the host
// root is itself an overlay and the kernel only allows two stacked levels.
var ErrStackingLimit = errors.New("Overlayfs stacking limit reached")

// ErrFuseNotInstalled indicates that the fuse-overlayfs binary couldn't be found.
var ErrFuseNotInstalled = errors.New("fuse-overlayfs is not installed")

// ErrFuseStartupFailed indicates that fuse-overlayfs exited during startup.
var ErrFuseStartupFailed = errors.New("fuse-overlayfs failed to start")

// ErrFuseVerifyFailed indicates that the fuse-overlayfs mount never materialized.
var ErrFuseVerifyFailed = errors.New("fuse-overlayfs mount verification failed")
