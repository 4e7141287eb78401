package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discordforstudywif/poof/poof/sandbox"
)

var knownCommands = []string{"exec", "run", "enter", "forksandbox", "help", "completion"}

func TestDefaultSubcommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "bare invocation implies enter",
			args: []string{},
			want: []string{"enter"},
		},
		{
			name: "flags only imply enter",
			args: []string{"-v"},
			want: []string{"-v", "enter"},
		},
		{
			name: "shell name implies exec",
			args: []string{"bash"},
			want: []string{"exec", "bash"},
		},
		{
			name: "shell name with arguments",
			args: []string{"zsh", "-c", "true"},
			want: []string{"exec", "zsh", "-c", "true"},
		},
		{
			name: "shell after global flag",
			args: []string{"-v", "sh"},
			want: []string{"-v", "exec", "sh"},
		},
		{
			name: "shell after marker",
			args: []string{"--", "bash"},
			want: []string{"exec", "--", "bash"},
		},
		{
			name: "explicit command passes through",
			args: []string{"exec", "ls"},
			want: []string{"exec", "ls"},
		},
		{
			name: "run passes through",
			args: []string{"run", "--upper=/tmp/u", "ls"},
			want: []string{"run", "--upper=/tmp/u", "ls"},
		},
		{
			name: "unknown command passes through",
			args: []string{"frobnicate"},
			want: []string{"frobnicate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultSubcommand(tt.args, knownCommands))
		})
	}
}

func TestBuildConfigValidation(t *testing.T) {
	global := &cmdGlobal{}

	// No command.
	_, err := global.buildConfig(sandbox.Ephemeral, nil, &resourceFlags{})
	assert.Error(t, err)

	// Bad memory value.
	_, err = global.buildConfig(sandbox.Ephemeral, []string{"true"}, &resourceFlags{flagMemory: "invalid"})
	assert.Error(t, err)

	// Negative values.
	_, err = global.buildConfig(sandbox.Ephemeral, []string{"true"}, &resourceFlags{flagTimeout: -1})
	assert.Error(t, err)
	_, err = global.buildConfig(sandbox.Ephemeral, []string{"true"}, &resourceFlags{flagPids: -1})
	assert.Error(t, err)
}

func TestBuildConfig(t *testing.T) {
	global := &cmdGlobal{flagVerbose: true}

	cfg, err := global.buildConfig(sandbox.Ephemeral, []string{"sleep", "1"}, &resourceFlags{flagTimeout: 5})
	require.NoError(t, err)

	assert.Equal(t, sandbox.Ephemeral, cfg.Mode)
	assert.Equal(t, []string{"sleep", "1"}, cfg.Command)
	assert.Equal(t, int64(0), cfg.Limits.MemoryBytes)
	assert.EqualValues(t, 5e9, cfg.Timeout)
	assert.True(t, cfg.Verbose)
	assert.NotEmpty(t, cfg.Cwd)
}
