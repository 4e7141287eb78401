package main

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/discordforstudywif/poof/poof/cgroup"
	"github.com/discordforstudywif/poof/poof/sandbox"
	"github.com/discordforstudywif/poof/shared/logger"
	"github.com/discordforstudywif/poof/shared/units"
	"github.com/discordforstudywif/poof/shared/version"
)

type cmdGlobal struct {
	cmd *cobra.Command
	ret int

	flagHelp    bool
	flagVersion bool
	flagVerbose bool
	flagDebug   bool
}

// shellNames are the programs the bare invocation treats as "run me a
// sandboxed shell" without requiring a subcommand.
var shellNames = []string{"bash", "zsh", "fish", "sh"}

// defaultSubcommand implements the convenience dispatch: a known shell name
// as the first non-option argument implies exec, and an invocation without
// any non-option arguments implies enter.
func defaultSubcommand(args []string, known []string) []string {
	// Find the first non-option argument.
	i := 0
	for i < len(args) {
		if args[i] == "--" {
			i++
			break
		}

		if len(args[i]) > 0 && args[i][0] == '-' {
			i++
			continue
		}

		break
	}

	if i >= len(args) {
		return append(args, "enter")
	}

	if slices.Contains(known, args[i]) || !slices.Contains(shellNames, args[i]) {
		return args
	}

	// Insert the implied exec, keeping it in front of a "--" marker.
	at := i
	if at > 0 && args[at-1] == "--" {
		at--
	}

	out := append([]string{}, args[:at]...)
	out = append(out, "exec")

	return append(out, args[at:]...)
}

func main() {
	// Setup the parser
	app := &cobra.Command{}
	app.Use = "poof"
	app.Short = "Ephemeral filesystem sandbox"
	app.Long = `Description:
  Ephemeral filesystem sandbox

  poof runs any command against a copy-on-write view of the host root.
  Writes are discarded on exit, persisted to a directory, or reviewed
  interactively and applied to the host.`
	app.SilenceUsage = true
	app.SilenceErrors = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	// Global flags
	globalCmd := cmdGlobal{cmd: app}
	app.PersistentFlags().BoolVarP(&globalCmd.flagHelp, "help", "h", false, "Print help")
	app.PersistentFlags().BoolVarP(&globalCmd.flagVersion, "version", "V", false, "Print version number")
	app.PersistentFlags().BoolVarP(&globalCmd.flagVerbose, "verbose", "v", false, "Show all information messages")
	app.PersistentFlags().BoolVar(&globalCmd.flagDebug, "debug", false, "Show all debug messages")

	// Wrappers
	app.PersistentPreRunE = globalCmd.preRun

	// Version handling
	app.SetVersionTemplate("{{.Version}}\n")
	app.Version = version.Version

	// exec sub-command
	execCmd := cmdExec{global: &globalCmd}
	app.AddCommand(execCmd.command())

	// run sub-command
	runCmd := cmdRun{global: &globalCmd}
	app.AddCommand(runCmd.command())

	// enter sub-command
	enterCmd := cmdEnter{global: &globalCmd}
	app.AddCommand(enterCmd.command())

	// forksandbox sub-command (hidden child entry point)
	forksandboxCmd := cmdForksandbox{global: &globalCmd}
	app.AddCommand(forksandboxCmd.command())

	known := []string{"help", "completion"}
	for _, sub := range app.Commands() {
		known = append(known, sub.Name())
	}

	app.SetArgs(defaultSubcommand(os.Args[1:], known))

	err := app.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if globalCmd.ret != 0 {
		os.Exit(globalCmd.ret)
	}
}

func (g *cmdGlobal) preRun(cmd *cobra.Command, args []string) error {
	if g.flagVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	logger.InitLogger(g.flagVerbose, g.flagDebug)

	return nil
}

// resourceFlags is the shared --timeout/--memory/--pids flag set.
type resourceFlags struct {
	flagTimeout int
	flagMemory  string
	flagPids    int64
}

func (f *resourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.flagTimeout, "timeout", 0, "Kill the sandbox after this many seconds"+"``")
	cmd.Flags().StringVar(&f.flagMemory, "memory", "", "Memory limit (e.g. 512M)"+"``")
	cmd.Flags().Int64Var(&f.flagPids, "pids", 0, "Maximum number of processes"+"``")
}

// buildConfig assembles the sandbox config shared by all subcommands. All
// option validation happens here, before anything is forked.
func (g *cmdGlobal) buildConfig(mode sandbox.Mode, command []string, flags *resourceFlags) (*sandbox.Config, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("Missing command to run")
	}

	// Early host-side existence check. The authoritative lookup happens
	// inside the sandbox; this one only turns a typo into a clear message
	// before any namespace machinery is set up.
	_, err := exec.LookPath(command[0])
	if err != nil {
		logger.Warn("Command not found on the host PATH", logger.Ctx{"command": command[0], "err": err})
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("Failed to get working directory: %w", err)
	}

	cfg := &sandbox.Config{
		Mode:    mode,
		Command: command,
		Cwd:     cwd,
		Verbose: g.flagVerbose,
		Debug:   g.flagDebug,
	}

	if flags.flagTimeout < 0 {
		return nil, fmt.Errorf("Invalid timeout value: %d", flags.flagTimeout)
	}

	cfg.Timeout = time.Duration(flags.flagTimeout) * time.Second

	if flags.flagMemory != "" {
		bytes, err := units.ParseByteSizeString(flags.flagMemory)
		if err != nil {
			return nil, fmt.Errorf("Invalid memory limit: %w", err)
		}

		cfg.Limits.MemoryBytes = bytes
	}

	if flags.flagPids < 0 {
		return nil, fmt.Errorf("Invalid pids limit: %d", flags.flagPids)
	}

	cfg.Limits.MaxPids = flags.flagPids

	if cfg.Limits.Any() && !cgroup.HasV2() {
		return nil, fmt.Errorf("Resource limits requested but %w", cgroup.ErrUnavailable)
	}

	return cfg, nil
}
