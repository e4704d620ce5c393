package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, exit, err := Parse(nil, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, ".", cfg.Dir)
		assert.False(t, cfg.Verbose)
		assert.False(t, cfg.DryRun)
		assert.False(t, cfg.Clean)
		assert.Empty(t, cfg.Targets)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("short flags and targets", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-v", "-c", "out.pdf", "docs"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.True(t, cfg.Verbose)
		assert.True(t, cfg.Clean)
		assert.Equal(t, []string{"out.pdf", "docs"}, cfg.Targets)
	})

	t.Run("long flags", func(t *testing.T) {
		cfg, _, err := Parse([]string{"--verbose", "--rebuild", "--config-file", "Other.hcl"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.True(t, cfg.Verbose)
		assert.True(t, cfg.Rebuild)
		assert.Equal(t, "Other.hcl", cfg.ConfigFile)
	})

	t.Run("dry-run implies verbose", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-n"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.True(t, cfg.DryRun)
		assert.True(t, cfg.Verbose)
	})

	t.Run("clean and rebuild exclusive", func(t *testing.T) {
		_, _, err := Parse([]string{"-c", "-r"}, &bytes.Buffer{})
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, exit, err := Parse([]string{"-h"}, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("unknown flag is an exit error", func(t *testing.T) {
		_, _, err := Parse([]string{"--bogus"}, &bytes.Buffer{})
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})
}
