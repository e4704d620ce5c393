package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleRendersEvents(t *testing.T) {
	color.NoColor = true
	out := &bytes.Buffer{}
	c := New(out, true)

	c.Begin("Executing ReMakeFile.hcl for folder /work", 2)
	c.Event(Event{Index: 1, Total: 2, Tag: TagSkip, Label: "Dependency b already exists"})
	c.Event(Event{Index: 2, Total: 2, Label: "cp b a", Action: "cp b a"})
	c.End()

	got := out.String()
	assert.Contains(t, got, "[+] Executing ReMakeFile.hcl for folder /work")
	assert.Contains(t, got, "[1/2] [SKIP] Dependency b already exists")
	assert.Contains(t, got, "[2/2] cp b a")
	// Verbose mode prints the expanded action line.
	assert.Contains(t, got, "    cp b a")
}

func TestConsoleQuietOmitsActions(t *testing.T) {
	color.NoColor = true
	out := &bytes.Buffer{}
	c := New(out, false)

	c.Begin("t", 1)
	c.Event(Event{Index: 1, Total: 1, Label: "cc -o x x.c", Action: "cc -o x x.c"})
	c.End()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	for _, l := range lines {
		assert.NotContains(t, l, "    cc")
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(nil)
	r.Begin("title", 3)
	r.Event(Event{Index: 1, Total: 3, Tag: TagClean, Label: "x"})
	r.End()

	require.Len(t, r.Events, 1)
	assert.Equal(t, TagClean, r.Events[0].Tag)
	assert.Equal(t, []string{"title"}, r.Titles)
	require.NotNil(t, r.Out())
}
