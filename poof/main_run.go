package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/discordforstudywif/poof/poof/sandbox"
	"github.com/discordforstudywif/poof/shared/logger"
)

type cmdRun struct {
	global *cmdGlobal

	resourceFlags
	flagUpper string
}

func (c *cmdRun) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "run [flags] [--] <command> [args...]"
	cmd.Short = "Run a command and keep its filesystem writes"
	cmd.Long = `Description:
  Run a command and keep its filesystem writes

  The command's writes accumulate in the upper directory instead of
  touching the host. Without --upper the directory is derived from the
  command name; on a terminal the changes are reviewed interactively
  instead.`
	cmd.Example = `  poof run --upper=./changes make install`
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.RunE = c.run

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&c.flagUpper, "upper", "", "Directory to collect the writes in"+"``")
	c.register(cmd)

	return cmd
}

func (c *cmdRun) run(cmd *cobra.Command, args []string) error {
	mode := sandbox.Persistent

	cfg, err := c.global.buildConfig(mode, args, &c.resourceFlags)
	if err != nil {
		return err
	}

	if c.flagUpper != "" {
		upper, err := filepath.Abs(c.flagUpper)
		if err != nil {
			return err
		}

		cfg.UpperDir = upper
	} else if term.IsTerminal(int(os.Stdin.Fd())) {
		// No explicit upper on a terminal: review the changes instead of
		// leaving a directory behind.
		cfg.Mode = sandbox.Interactive
		cfg.InteractiveTarget = cfg.Cwd
	} else {
		cfg.UpperDir = sandbox.AutoUpperDir(cfg.Cwd, args[0], time.Now())
	}

	code, err := sandbox.New(cfg).Run()
	if err != nil {
		return err
	}

	if cfg.Mode == sandbox.Persistent {
		logger.Info("Sandbox writes kept", logger.Ctx{"upper": cfg.UpperDir})
	}

	c.global.ret = code

	return nil
}
