package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHelp(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRunBuildsProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ReMakeFile.hcl"), []byte(`
builder "cp" {
  action = "cp $< $@"
}
rule {
  targets = "a"
  deps    = "b"
  builder = "cp"
}
target {
  files = "a"
}
`), 0o644))

	out := &bytes.Buffer{}
	err := run(out, []string{"-C", dir, "--log-level", "error"})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "a"))
	assert.NoError(t, statErr)
}

func TestRunUnresolvedTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ReMakeFile.hcl"), []byte(`
target {
  files = "ghost"
}
`), 0o644))

	err := run(&bytes.Buffer{}, []string{"-C", dir, "--log-level", "error"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rule to make")
}
