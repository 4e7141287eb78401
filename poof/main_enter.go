package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/discordforstudywif/poof/poof/sandbox"
)

type cmdEnter struct {
	global *cmdGlobal

	resourceFlags
}

func (c *cmdEnter) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "enter [flags]"
	cmd.Short = "Start a sandboxed shell and review the changes on exit"
	cmd.Long = `Description:
  Start a sandboxed shell and review the changes on exit

  The user shell runs against a copy-on-write view of the host root.
  When it exits, changes to the current directory are listed and can be
  applied, inspected as a diff, or discarded.`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.run

	c.register(cmd)

	return cmd
}

func (c *cmdEnter) run(cmd *cobra.Command, args []string) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	cfg, err := c.global.buildConfig(sandbox.Interactive, []string{shell}, &c.resourceFlags)
	if err != nil {
		return err
	}

	cfg.InteractiveTarget = cfg.Cwd
	cfg.ShellFallback = true

	code, err := sandbox.New(cfg).Run()
	if err != nil {
		return err
	}

	c.global.ret = code

	return nil
}
