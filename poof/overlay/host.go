package overlay

import (
	"github.com/moby/sys/mountinfo"
)

// HostRootIsOverlay reports whether the host root filesystem is itself an
// overlay mount (typical for container hosts). The kernel only supports two
// stacked overlay levels, so this changes both the error reporting and which
// modes are allowed.
func HostRootIsOverlay() (bool, error) {
	entries, err := mountinfo.GetMounts(mountinfo.SingleEntryFilter("/"))
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		if entry.FSType == "overlay" {
			return true, nil
		}
	}

	return false, nil
}
