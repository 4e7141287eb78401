package cmd

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskBool(t *testing.T) {
	cases := []struct {
		question      string
		defaultAnswer string
		input         string
		result        bool
	}{
		{"Apply? ", "no", "\n", false},
		{"Apply? ", "no", "yes\n", true},
		{"Apply? ", "no", "y\n", true},
		{"Apply? ", "no", "no\n", false},
		{"Apply? ", "no", "n\n", false},
		{"Apply? ", "no", "N\n", false},
		{"Apply? ", "yes", "\n", true},
		{"Apply? ", "no", "foo\nyes\n", true},
	}

	for _, c := range cases {
		asker := NewAsker(bufio.NewReader(strings.NewReader(c.input)), nil)
		result, err := asker.AskBool(c.question, c.defaultAnswer)
		require.NoError(t, err)
		assert.Equal(t, c.result, result, "input %q", c.input)
	}
}

func TestAskString(t *testing.T) {
	cases := []struct {
		defaultAnswer string
		input         string
		result        string
	}{
		{"no", "\n", "no"},
		{"no", "anything\n", "anything"},
		{"no", "  spaced  \n", "spaced"},
	}

	for _, c := range cases {
		asker := NewAsker(bufio.NewReader(strings.NewReader(c.input)), nil)
		result, err := asker.AskString("Apply? ", c.defaultAnswer, nil)
		require.NoError(t, err)
		assert.Equal(t, c.result, result, "input %q", c.input)
	}
}

func TestAskChoice(t *testing.T) {
	choices := []string{"yes", "no", "diff"}

	cases := []struct {
		defaultAnswer string
		input         string
		result        string
	}{
		{"no", "\n", "no"},
		{"no", "diff\n", "diff"},
		{"no", "yes\n", "yes"},
		{"no", "bogus\nno\n", "no"},
	}

	for _, c := range cases {
		asker := NewAsker(bufio.NewReader(strings.NewReader(c.input)), nil)
		result, err := asker.AskChoice("Apply? ", choices, c.defaultAnswer)
		require.NoError(t, err)
		assert.Equal(t, c.result, result, "input %q", c.input)
	}
}
