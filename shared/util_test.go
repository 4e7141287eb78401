package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathExists(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, PathExists(dir))
	assert.False(t, PathExists(filepath.Join(dir, "missing")))

	// A dangling symlink still exists.
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), link))
	assert.True(t, PathExists(link))
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	assert.True(t, IsDir(dir))
	assert.False(t, IsDir(file))
	assert.False(t, IsDir(filepath.Join(dir, "missing")))
}

func TestIsDirEmpty(t *testing.T) {
	dir := t.TempDir()

	empty, err := IsDirEmpty(dir)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0600))

	empty, err = IsDirEmpty(dir)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestRandomHexString(t *testing.T) {
	s1, err := RandomHexString(8)
	require.NoError(t, err)
	assert.Len(t, s1, 16)

	s2, err := RandomHexString(8)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}

func TestRunCommand(t *testing.T) {
	out, err := RunCommand("true")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = RunCommand("false")
	assert.Error(t, err)
}
