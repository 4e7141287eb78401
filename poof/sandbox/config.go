// Package sandbox orchestrates a sandbox run: path planning, cgroup scope,
// child spawn with namespace negotiation, supervision and cleanup.
package sandbox

import (
	"time"

	"github.com/discordforstudywif/poof/poof/cgroup"
)

// Mode determines what happens to the overlay upper layer.
type Mode int

const (
	// Ephemeral keeps the upper layer on a tmpfs that vanishes with the
	// mount namespace.
	Ephemeral Mode = iota

	// Persistent writes the upper layer to a real directory that survives
	// the run.
	Persistent

	// Interactive stashes the upper layer in a temp directory and reviews
	// the changes on exit.
	Interactive
)

// Config describes a sandbox run. It is immutable once the command line has
// been parsed.
type Config struct {
	// Mode selects the upper layer lifecycle.
	Mode Mode

	// Command is the program and its arguments.
	Command []string

	// UpperDir is the explicit upper directory (persistent mode only).
	UpperDir string

	// Limits are the optional cgroup limits.
	Limits cgroup.Limits

	// Timeout kills the sandbox after the given duration (0 means none).
	Timeout time.Duration

	// Cwd is the working directory inside the sandbox.
	Cwd string

	// InteractiveTarget, when set, is the host directory whose changes are
	// reviewed after exit.
	InteractiveTarget string

	// ShellFallback makes the child fall back to /bin/sh when the command
	// doesn't exist inside the sandbox (used for $SHELL).
	ShellFallback bool

	// Verbose and Debug carry the logging level into the child.
	Verbose bool
	Debug   bool
}
