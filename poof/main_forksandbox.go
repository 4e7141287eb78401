package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/discordforstudywif/poof/poof/overlay"
	"github.com/discordforstudywif/poof/poof/sandbox"
)

type cmdForksandbox struct {
	global *cmdGlobal
}

func (c *cmdForksandbox) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "forksandbox <spec>"
	cmd.Short = "Sandbox child entry point"
	cmd.Hidden = true
	cmd.Args = cobra.ExactArgs(1)
	cmd.RunE = c.run

	return cmd
}

// run executes inside the namespaces the supervisor created. Failures past
// the root transition can only reach the supervisor through the exit
// status, so everything is reported to stderr here and translated into the
// exit code.
func (c *cmdForksandbox) run(cmd *cobra.Command, args []string) error {
	spec := &sandbox.ChildSpec{}
	err := json.Unmarshal([]byte(args[0]), spec)
	if err != nil {
		return fmt.Errorf("Invalid sandbox spec: %w", err)
	}

	err = sandbox.RunChild(spec)

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	hint := remediationHint(err)
	if hint != "" {
		fmt.Fprintf(os.Stderr, "%s\n", hint)
	}

	if errors.Is(err, sandbox.ErrExecFailed) {
		os.Exit(127)
	}

	os.Exit(1)

	return nil
}

// remediationHint maps known bring-up failures to an actionable message.
func remediationHint(err error) string {
	switch {
	case errors.Is(err, overlay.ErrMountDenied):
		return "Hint: the kernel overlay needs CAP_SYS_ADMIN; install fuse-overlayfs to use poof unprivileged"
	case errors.Is(err, overlay.ErrFuseNotInstalled):
		return "Hint: install the fuse-overlayfs package"
	case errors.Is(err, overlay.ErrStackingLimit):
		return "Hint: the host root is already an overlay and the kernel only stacks two levels; run poof from a non-overlay root"
	}

	return ""
}
