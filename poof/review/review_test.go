package review

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpper builds an upper layer shadowing target inside dir and returns
// the upper path.
func fakeUpper(t *testing.T, target string) string {
	t.Helper()

	upper := filepath.Join(t.TempDir(), "upper")
	require.NoError(t, os.MkdirAll(filepath.Join(upper, target), 0755))

	return upper
}

func writeShadow(t *testing.T, upper string, target string, rel string, content string) {
	t.Helper()

	path := filepath.Join(upper, target, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScanEmptyUpper(t *testing.T) {
	target := t.TempDir()
	upper := filepath.Join(t.TempDir(), "upper")

	// The shadow subtree doesn't even exist: no changes.
	changes, total, err := Scan(upper, target)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Zero(t, total)
}

func TestScanClassification(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "existing.txt"), []byte("old"), 0644))

	upper := fakeUpper(t, target)
	writeShadow(t, upper, target, "existing.txt", "new")
	writeShadow(t, upper, target, "brand-new.txt", "hello")
	writeShadow(t, upper, target, "sub/nested.txt", "deep")
	require.NoError(t, os.MkdirAll(filepath.Join(upper, target, "empty-dir"), 0755))

	changes, total, err := Scan(upper, target)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	byPath := map[string]Kind{}
	for _, c := range changes {
		rel, err := filepath.Rel(target, c.Path)
		require.NoError(t, err)
		byPath[rel] = c.Kind
	}

	assert.Equal(t, Edited, byPath["existing.txt"])
	assert.Equal(t, Added, byPath["brand-new.txt"])
	assert.Equal(t, Added, byPath["sub/nested.txt"])
	assert.Equal(t, AddedDir, byPath["empty-dir"])
}

func TestScanNestedEditedFile(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(target, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "sub", "file.txt"), []byte("old"), 0644))

	upper := fakeUpper(t, target)
	writeShadow(t, upper, target, "sub/file.txt", "new")

	changes, _, err := Scan(upper, target)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Edited, changes[0].Kind)
}

func TestScanSorted(t *testing.T) {
	target := t.TempDir()
	upper := fakeUpper(t, target)
	writeShadow(t, upper, target, "zzz.txt", "z")
	writeShadow(t, upper, target, "aaa.txt", "a")
	writeShadow(t, upper, target, "mmm.txt", "m")

	changes, _, err := Scan(upper, target)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.True(t, changes[0].Path < changes[1].Path)
	assert.True(t, changes[1].Path < changes[2].Path)
}

func TestRender(t *testing.T) {
	target := "/T"
	changes := []Change{
		{Path: "/T/D", Kind: AddedDir},
		{Path: "/T/gone.txt", Kind: Deleted},
		{Path: "/T/new.txt", Kind: Added},
		{Path: "/T/changed.txt", Kind: Edited},
	}

	buf := new(bytes.Buffer)
	render(buf, changes, len(changes), target, false)

	out := buf.String()
	assert.Contains(t, out, "+ D/\n")
	assert.Contains(t, out, "- gone.txt\n")
	assert.Contains(t, out, "+ new.txt\n")
	assert.Contains(t, out, "~ changed.txt\n")
	assert.Contains(t, out, "2 added, 1 modified, 1 deleted")
	assert.Contains(t, out, "aren't applied")
}

func TestRenderTruncated(t *testing.T) {
	buf := new(bytes.Buffer)
	render(buf, []Change{{Path: "/T/a", Kind: Added}}, 1234, "/T", false)

	assert.Contains(t, buf.String(), "Showing the first 1 of 1234 changes")
}

func TestCopyTree(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "existing.txt"), []byte("old"), 0644))

	upper := fakeUpper(t, target)
	writeShadow(t, upper, target, "existing.txt", "new")
	writeShadow(t, upper, target, "sub/nested.txt", "deep")
	require.NoError(t, os.Symlink("nested.txt", filepath.Join(upper, target, "sub", "link")))

	require.NoError(t, copyTree(filepath.Join(upper, target), target))

	content, err := os.ReadFile(filepath.Join(target, "existing.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	content, err = os.ReadFile(filepath.Join(target, "sub", "nested.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(content))

	link, err := os.Readlink(filepath.Join(target, "sub", "link"))
	require.NoError(t, err)
	assert.Equal(t, "nested.txt", link)
}

func TestCopyTreeIdempotent(t *testing.T) {
	target := t.TempDir()
	upper := fakeUpper(t, target)
	writeShadow(t, upper, target, "file.txt", "content")

	require.NoError(t, copyTree(filepath.Join(upper, target), target))
	require.NoError(t, copyTree(filepath.Join(upper, target), target))

	content, err := os.ReadFile(filepath.Join(target, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}
