package overlay

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/discordforstudywif/poof/shared/logger"
)

// bindDevices are the host device nodes bind-mounted into the sandbox.
// Disk and memory devices (sd*, nvme*, mem, kmem) are deliberately absent.
var bindDevices = []string{"null", "zero", "full", "random", "urandom", "tty"}

// setupDev builds a minimal /dev inside the merged root. Individual device
// failures are logged and skipped: the sandbox proceeds with whatever could
// be created.
func setupDev(merged string) {
	dev := filepath.Join(merged, "dev")

	err := os.MkdirAll(dev, 0755)
	if err != nil {
		logger.Warn("Failed to create /dev", logger.Ctx{"err": err})
		return
	}

	err = unix.Mount("tmpfs", dev, "tmpfs", 0, "mode=755,size=64k")
	if err != nil {
		logger.Warn("Failed to mount tmpfs on /dev", logger.Ctx{"err": err})
		return
	}

	for _, sub := range []string{"pts", "shm"} {
		err = os.Mkdir(filepath.Join(dev, sub), 0755)
		if err != nil {
			logger.Debug("Failed to create /dev subdirectory", logger.Ctx{"dir": sub, "err": err})
		}
	}

	for _, name := range bindDevices {
		hostPath := filepath.Join("/dev", name)
		target := filepath.Join(dev, name)

		// Overlayfs can't synthesize character devices, so each node is an
		// empty file with the host device bind-mounted over it.
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logger.Debug("Failed to create device placeholder", logger.Ctx{"device": name, "err": err})
			continue
		}

		_ = f.Close()

		err = unix.Mount(hostPath, target, "", unix.MS_BIND, "")
		if err != nil {
			logger.Debug("Failed to bind device", logger.Ctx{"device": name, "err": err})
		}
	}

	err = unix.Mount("devpts", filepath.Join(dev, "pts"), "devpts", 0, "newinstance,ptmxmode=0666")
	if err != nil {
		logger.Debug("Failed to mount devpts", logger.Ctx{"err": err})
	}

	err = os.Symlink("pts/ptmx", filepath.Join(dev, "ptmx"))
	if err != nil {
		logger.Debug("Failed to create ptmx symlink", logger.Ctx{"err": err})
	}
}

// setupDevSymlinks creates the /dev/fd family of symlinks. The kernel
// normally provides these through devtmpfs; on the FUSE path they have to
// be created by hand after the chroot.
func setupDevSymlinks() {
	links := map[string]string{
		"/dev/fd":     "/proc/self/fd",
		"/dev/stdin":  "/proc/self/fd/0",
		"/dev/stdout": "/proc/self/fd/1",
		"/dev/stderr": "/proc/self/fd/2",
	}

	for link, target := range links {
		err := os.Symlink(target, link)
		if err != nil && !os.IsExist(err) {
			logger.Debug("Failed to create device symlink", logger.Ctx{"link": link, "err": err})
		}
	}
}
