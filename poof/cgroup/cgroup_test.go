package cgroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsAny(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		want   bool
	}{
		{
			name:   "empty",
			limits: Limits{},
			want:   false,
		},
		{
			name:   "memory only",
			limits: Limits{MemoryBytes: 64 * 1024 * 1024},
			want:   true,
		},
		{
			name:   "pids only",
			limits: Limits{MaxPids: 100},
			want:   true,
		},
		{
			name:   "both",
			limits: Limits{MemoryBytes: 1024, MaxPids: 1},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.limits.Any())
		})
	}
}

func TestScopeReleaseNil(t *testing.T) {
	// Release on a nil scope must be a no-op.
	var s *Scope
	s.Release(1234)
}

func TestScopeReleaseIdempotent(t *testing.T) {
	s := &Scope{path: "/nonexistent/poof-test", originalProcs: "/nonexistent/cgroup.procs"}

	// Both calls are best-effort and must not panic even when the
	// paths are gone already.
	s.Release(1234)
	assert.True(t, s.released)
	s.Release(1234)
}
