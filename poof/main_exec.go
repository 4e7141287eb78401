package main

import (
	"github.com/spf13/cobra"

	"github.com/discordforstudywif/poof/poof/sandbox"
)

type cmdExec struct {
	global *cmdGlobal

	resourceFlags
}

func (c *cmdExec) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "exec [flags] [--] <command> [args...]"
	cmd.Short = "Run a command and discard all filesystem writes"
	cmd.Long = `Description:
  Run a command and discard all filesystem writes

  The command sees a writable copy-on-write view of the host root. Its
  writes accumulate on a tmpfs that vanishes together with the sandbox.`
	cmd.Example = `  poof exec sh -c 'rm -rf /etc && echo gone'`
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.RunE = c.run

	// Everything after the command belongs to the command.
	cmd.Flags().SetInterspersed(false)
	c.register(cmd)

	return cmd
}

func (c *cmdExec) run(cmd *cobra.Command, args []string) error {
	cfg, err := c.global.buildConfig(sandbox.Ephemeral, args, &c.resourceFlags)
	if err != nil {
		return err
	}

	code, err := sandbox.New(cfg).Run()
	if err != nil {
		return err
	}

	c.global.ret = code

	return nil
}
