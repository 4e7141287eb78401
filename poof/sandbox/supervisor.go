package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/discordforstudywif/poof/poof/cgroup"
	"github.com/discordforstudywif/poof/poof/overlay"
	"github.com/discordforstudywif/poof/poof/review"
	"github.com/discordforstudywif/poof/shared/logger"
)

// ErrInvalidMode indicates that persistent mode was requested on a host
// whose root filesystem is itself an overlay.
var ErrInvalidMode = errors.New("Persistent mode isn't supported when the host root is an overlay")

// cleanupState tracks everything the supervisor has to tear down. All slots
// are written before the child is spawned (the child re-derives its paths
// from the serialized ChildSpec) so every exit path converges on the same
// cleanup.
type cleanupState struct {
	tempBase  string
	workDir   string
	mergedDir string
	scope     *cgroup.Scope
}

// run removes the overlay scratch directories. Failures are best-effort:
// a leaked poof-<hex> directory is recoverable out-of-band.
func (c *cleanupState) run() {
	for _, dir := range []string{c.tempBase, c.workDir, c.mergedDir} {
		if dir == "" {
			continue
		}

		err := os.RemoveAll(dir)
		if err != nil {
			logger.Debug("Failed to remove sandbox directory", logger.Ctx{"dir": dir, "err": err})
		}
	}
}

// preserveUpper nulls the directory slots so the upper layer survives the
// cleanup pass.
func (c *cleanupState) preserveUpper() {
	c.tempBase = ""
	c.workDir = ""
	c.mergedDir = ""
}

// Supervisor owns a sandbox run from setup to cleanup.
type Supervisor struct {
	cfg         *Config
	cleanup     cleanupState
	hostOverlay bool
	usingUserNS bool
}

// New creates a Supervisor for the given config.
func New(cfg *Config) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Run executes the sandbox and returns the exit code to report. An error is
// only returned for setup failures that happened before the child ran.
func (s *Supervisor) Run() (int, error) {
	hostOverlay, err := overlay.HostRootIsOverlay()
	if err != nil {
		logger.Debug("Failed to inspect host mounts", logger.Ctx{"err": err})
	}

	s.hostOverlay = hostOverlay
	if hostOverlay && s.cfg.Mode == Persistent {
		return 0, ErrInvalidMode
	}

	// The cgroup scope is created and joined before the spawn so the child
	// inherits membership.
	if s.cfg.Limits.Any() {
		scope, err := cgroup.NewScope(s.cfg.Limits, os.Getpid())
		if err != nil {
			return 0, fmt.Errorf("Failed to set up resource limits: %w", err)
		}

		s.cleanup.scope = scope
	}

	plan, err := s.newPlan()
	if err != nil {
		s.releaseScope()
		return 0, err
	}

	// Forwarding is installed before the spawn so no signal window exists
	// in which the child runs unsupervised.
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)

	cmd, err := s.spawn(plan)
	if err != nil {
		signal.Stop(sigCh)
		s.releaseScope()
		s.cleanup.run()

		return 0, err
	}

	go func() {
		for sig := range sigCh {
			_ = cmd.Process.Signal(sig)
		}
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var code int
	if s.cfg.Timeout > 0 {
		select {
		case <-time.After(s.cfg.Timeout):
			logger.Warn("Sandbox timed out, killing", logger.Ctx{"timeout": s.cfg.Timeout})
			_ = cmd.Process.Kill()
			<-waitCh
			code = 124
		case <-waitCh:
			code = exitCode(cmd)
		}
	} else {
		<-waitCh
		code = exitCode(cmd)
	}

	signal.Stop(sigCh)
	close(sigCh)

	// Post-wait order: cgroup teardown, then the review (which may decide
	// to preserve the upper), then directory cleanup.
	s.releaseScope()

	if s.cfg.InteractiveTarget != "" {
		s.review(plan)
	}

	s.cleanup.run()

	return code, nil
}

func (s *Supervisor) releaseScope() {
	s.cleanup.scope.Release(os.Getpid())
}

// spawn starts the sandbox child, negotiating the privilege path: a caller
// with CAP_SYS_ADMIN gets the kernel overlay, everyone else (including root
// in a container that denies unshare) falls back to a user namespace and
// fuse-overlayfs. The decision is made once; the child derives its overlay
// backend from the same bit.
func (s *Supervisor) spawn(plan *overlay.Plan) (*exec.Cmd, error) {
	s.usingUserNS = !haveSysAdmin()

	cmd, err := s.startChild(plan, s.usingUserNS)
	if err != nil && !s.usingUserNS && errors.Is(err, unix.EPERM) {
		logger.Debug("Namespace creation denied, retrying with a user namespace")
		s.usingUserNS = true
		cmd, err = s.startChild(plan, true)
	}

	if err != nil {
		if errors.Is(err, unix.EPERM) {
			return nil, fmt.Errorf("Failed to create namespaces: %w (inside Docker, try --security-opt seccomp=unconfined; on older kernels, enable kernel.unprivileged_userns_clone)", err)
		}

		return nil, fmt.Errorf("Failed to start sandbox child: %w", err)
	}

	logger.Debug("Sandbox child started", logger.Ctx{"pid": cmd.Process.Pid, "userns": s.usingUserNS})

	return cmd, nil
}

// startChild re-executes poof as the hidden forksandbox subcommand inside
// the new namespaces. The clone flags make the child PID 1 of a fresh PID
// namespace; for the user namespace path the Go runtime writes the uid/gid
// maps (denying setgroups first).
func (s *Supervisor) startChild(plan *overlay.Plan, userNS bool) (*exec.Cmd, error) {
	spec := ChildSpec{
		Plan:          *plan,
		KernelOverlay: !userNS,
		HostOverlay:   s.hostOverlay,
		Cwd:           s.cfg.Cwd,
		Command:       s.cfg.Command,
		ShellFallback: s.cfg.ShellFallback,
		Verbose:       s.cfg.Verbose,
		Debug:         s.cfg.Debug,
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("/proc/self/exe", "forksandbox", string(data))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	attr := &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS | syscall.CLONE_NEWIPC,
		Pdeathsig:  syscall.SIGKILL,
	}

	if userNS {
		attr.Cloneflags |= syscall.CLONE_NEWUSER
		attr.UidMappings = []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getuid(), Size: 1}}
		attr.GidMappings = []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getgid(), Size: 1}}
		attr.GidMappingsEnableSetgroups = false
	}

	// Interactive commands (shells in particular) get the terminal as a
	// foreground process group of their own.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		attr.Foreground = true
		attr.Ctty = int(os.Stdin.Fd())
	}

	cmd.SysProcAttr = attr

	err = cmd.Start()
	if err != nil {
		return nil, err
	}

	return cmd, nil
}

// review reclaims the terminal and drives the interactive change review.
// A discard decision (or a review failure) preserves the upper layer.
func (s *Supervisor) review(plan *overlay.Plan) {
	reclaimTerminal()

	r := review.NewReviewer(plan.Upper, s.cfg.InteractiveTarget, s.cfg.Command)
	decision, err := r.Run()
	if err != nil {
		logger.Errorf("Review failed: %v", err)
		s.cleanup.preserveUpper()
		fmt.Printf("Changes kept in %s\n", plan.Upper)

		return
	}

	if decision == review.Discarded {
		s.cleanup.preserveUpper()
		fmt.Printf("Changes kept in %s\n", plan.Upper)
	}
}

// reclaimTerminal takes the controlling terminal back from the child's
// process group so the review prompt can read stdin. SIGTTOU/SIGTTIN are
// ignored around the tcsetpgrp, which would otherwise stop us.
func reclaimTerminal() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}

	signal.Ignore(unix.SIGTTOU, unix.SIGTTIN)
	defer signal.Reset(unix.SIGTTOU, unix.SIGTTIN)

	err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, unix.Getpgrp())
	if err != nil {
		logger.Debug("Failed to reclaim terminal", logger.Ctx{"err": err})
	}
}

// exitCode translates the child wait status: normal exits propagate the
// code, signal deaths map to 128+signal, anything else is 1.
func exitCode(cmd *exec.Cmd) int {
	state := cmd.ProcessState
	if state == nil {
		return 1
	}

	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return 1
	}

	if ws.Exited() {
		return ws.ExitStatus()
	}

	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}

	return 1
}

// haveSysAdmin reports whether the process holds CAP_SYS_ADMIN, which is
// what actually gates mount and unshare rather than uid 0.
func haveSysAdmin() bool {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return os.Geteuid() == 0
	}

	err = caps.Load()
	if err != nil {
		return os.Geteuid() == 0
	}

	return caps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN)
}
