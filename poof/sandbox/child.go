package sandbox

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/discordforstudywif/poof/poof/overlay"
	"github.com/discordforstudywif/poof/shared/logger"
)

// ErrExecFailed indicates the target program couldn't be executed; the
// child exits 127 in that case.
var ErrExecFailed = errors.New("Failed to execute command")

// ChildSpec is the contract between the supervisor and the re-executed
// child. It is serialized to JSON and passed as the forksandbox argument:
// the child never shares the supervisor's state and re-derives everything
// it needs from this.
type ChildSpec struct {
	Plan          overlay.Plan `json:"plan"`
	KernelOverlay bool         `json:"kernel_overlay"`
	HostOverlay   bool         `json:"host_overlay"`
	Cwd           string       `json:"cwd"`
	Command       []string     `json:"command"`
	ShellFallback bool         `json:"shell_fallback"`
	Verbose       bool         `json:"verbose"`
	Debug         bool         `json:"debug"`
}

// RunChild runs inside the freshly created namespaces: it brings up the
// overlay filesystem and execs the target program. It only returns on
// failure. The process is PID 1 of the new PID namespace, so the kernel
// tears down the namespace (and with it any FUSE helper) when the target
// exits.
func RunChild(spec *ChildSpec) error {
	logger.InitLogger(spec.Verbose, spec.Debug)

	backend := overlay.FuseOverlay
	if spec.KernelOverlay {
		backend = overlay.KernelOverlay
	}

	helper, err := overlay.Setup(&spec.Plan, backend, spec.Cwd, spec.HostOverlay)
	if err != nil {
		return err
	}

	if helper != nil {
		logger.Debug("Retaining fuse-overlayfs helper", logger.Ctx{"pid": helper.Process.Pid})
	}

	env := append(os.Environ(), "IS_SANDBOX=1")

	// The lookup happens inside the sandbox view on purpose: the program
	// has to exist there, not on the host.
	path, err := exec.LookPath(spec.Command[0])
	if err != nil && spec.ShellFallback && spec.Command[0] != "/bin/sh" {
		logger.Debug("Shell not found in sandbox, falling back to /bin/sh", logger.Ctx{"shell": spec.Command[0]})
		spec.Command = []string{"/bin/sh"}
		path, err = exec.LookPath("/bin/sh")
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecFailed, err)
	}

	// Last chance to notice a dead helper: once exec replaces this process
	// nothing is left to watch it, and the command would only see I/O
	// errors from the vanished mount.
	if helper != nil && !overlay.HelperAlive(helper) {
		return fmt.Errorf("fuse-overlayfs helper (pid %d) exited before the command started", helper.Process.Pid)
	}

	err = unix.Exec(path, spec.Command, env)

	return fmt.Errorf("%w: %v", ErrExecFailed, err)
}
