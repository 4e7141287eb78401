package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoUpperDir(t *testing.T) {
	cwd := t.TempDir()
	now := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

	// Fresh name: no timestamp.
	assert.Equal(t, filepath.Join(cwd, "make"), AutoUpperDir(cwd, "/usr/bin/make", now))

	// Taken name: timestamp suffix.
	require.NoError(t, os.Mkdir(filepath.Join(cwd, "make"), 0755))
	assert.Equal(t, filepath.Join(cwd, "make.20240517103000"), AutoUpperDir(cwd, "/usr/bin/make", now))
}

func TestNewPlanPersistent(t *testing.T) {
	upper := filepath.Join(t.TempDir(), "changes")

	s := New(&Config{Mode: Persistent, UpperDir: upper})
	plan, err := s.newPlan()
	require.NoError(t, err)

	assert.Equal(t, upper, plan.Upper)
	assert.Equal(t, upper+".work", plan.Work)
	assert.Equal(t, upper+".merged", plan.Merged)
	assert.Empty(t, plan.TmpfsBase)

	// Work and merged are scratch space, the upper isn't.
	assert.Equal(t, plan.Work, s.cleanup.workDir)
	assert.Equal(t, plan.Merged, s.cleanup.mergedDir)
	assert.Empty(t, s.cleanup.tempBase)
}

func TestNewPlanPersistentMissingUpper(t *testing.T) {
	s := New(&Config{Mode: Persistent})
	_, err := s.newPlan()
	assert.Error(t, err)
}

func TestNewPlanEphemeral(t *testing.T) {
	s := New(&Config{Mode: Ephemeral})
	plan, err := s.newPlan()
	require.NoError(t, err)

	defer func() { _ = os.RemoveAll(s.cleanup.tempBase) }()

	assert.True(t, strings.HasPrefix(filepath.Base(s.cleanup.tempBase), "poof-"))
	assert.DirExists(t, s.cleanup.tempBase)
	assert.Equal(t, s.cleanup.tempBase, plan.TmpfsBase)
	assert.Equal(t, filepath.Join(s.cleanup.tempBase, "upper"), plan.Upper)
	assert.Equal(t, filepath.Join(s.cleanup.tempBase, "work"), plan.Work)
	assert.Equal(t, filepath.Join(s.cleanup.tempBase, "merged"), plan.Merged)
}

func TestNewPlanInteractive(t *testing.T) {
	s := New(&Config{Mode: Interactive})
	plan, err := s.newPlan()
	require.NoError(t, err)

	defer func() { _ = os.RemoveAll(s.cleanup.tempBase) }()

	// Interactive uppers live on disk so they can survive the run.
	assert.Empty(t, plan.TmpfsBase)
	assert.Equal(t, s.cleanup.tempBase, filepath.Dir(plan.Upper))
}

func TestCleanupPreserveUpper(t *testing.T) {
	base := t.TempDir()
	c := cleanupState{tempBase: base, workDir: base + ".work", mergedDir: base + ".merged"}

	c.preserveUpper()
	c.run()

	assert.DirExists(t, base)
}

func TestCleanupRun(t *testing.T) {
	base := t.TempDir()
	sub := filepath.Join(base, "scratch")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "upper"), 0755))

	c := cleanupState{tempBase: sub}
	c.run()

	assert.NoDirExists(t, sub)

	// A second pass on the already removed tree is fine.
	c.run()
}
