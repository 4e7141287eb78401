package overlay

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperAlive(t *testing.T) {
	// No helper at all (kernel overlay path).
	assert.False(t, HelperAlive(nil))

	// Created but never started.
	assert.False(t, HelperAlive(exec.Command("sleep", "30")))

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	assert.True(t, HelperAlive(cmd))

	// Once the helper is dead and reaped it must read as gone.
	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()
	assert.False(t, HelperAlive(cmd))
}
