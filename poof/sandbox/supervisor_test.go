package sandbox

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	// The wait error is reflected in the process state.
	_ = cmd.Wait()
	require.NotNil(t, cmd.ProcessState)
}

func TestExitCodeNormal(t *testing.T) {
	tests := []struct {
		script string
		want   int
	}{
		{"exit 0", 0},
		{"exit 1", 1},
		{"exit 42", 42},
		{"exit 255", 255},
	}

	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			cmd := exec.Command("sh", "-c", tt.script)
			require.NoError(t, cmd.Start())
			waitFor(t, cmd)

			assert.Equal(t, tt.want, exitCode(cmd))
		})
	}
}

func TestExitCodeSignaled(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	// Give the process a moment to be up, then terminate it.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))
	waitFor(t, cmd)

	assert.Equal(t, 128+int(syscall.SIGTERM), exitCode(cmd))
}

func TestExitCodeNoState(t *testing.T) {
	cmd := exec.Command("true")

	// Never started: no process state to translate.
	assert.Equal(t, 1, exitCode(cmd))
}
