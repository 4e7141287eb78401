package cgroup

import (
	"errors"
)

// ErrUnavailable indicates that the unified cgroup hierarchy isn't mounted on this system.
var ErrUnavailable = errors.New("Cgroups v2 unified hierarchy is not available")
