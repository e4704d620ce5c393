package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		target      bool
		wantKind    Kind
		wantName    string
		wantVirtual bool
	}{
		{
			name:     "relative file target",
			input:    "a.txt",
			target:   true,
			wantKind: FileTarget,
			wantName: "/work/a.txt",
		},
		{
			name:     "relative file dep",
			input:    "sub/b.txt",
			target:   false,
			wantKind: FileDep,
			wantName: "/work/sub/b.txt",
		},
		{
			name:     "absolute path kept",
			input:    "/elsewhere/c.txt",
			target:   true,
			wantKind: FileTarget,
			wantName: "/elsewhere/c.txt",
		},
		{
			name:     "trailing separator stripped",
			input:    "dir/",
			target:   false,
			wantKind: FileDep,
			wantName: "/work/dir",
		},
		{
			name:        "virtual target",
			input:       "virtual:init",
			target:      true,
			wantKind:    VirtualTarget,
			wantName:    "init",
			wantVirtual: true,
		},
		{
			name:        "virtual dep",
			input:       "virtual:zsh",
			target:      false,
			wantKind:    VirtualDep,
			wantName:    "zsh",
			wantVirtual: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := Coerce(tc.input, tc.target, "/work")
			assert.Equal(t, tc.wantKind, a.Kind())
			assert.Equal(t, tc.wantName, a.Name())
			assert.Equal(t, tc.wantVirtual, a.IsVirtual())
		})
	}
}

func TestKeyFoldsSlots(t *testing.T) {
	target := NewFile(FileTarget, "a.txt", "/work")
	dep := NewFile(FileDep, "a.txt", "/work")
	require.Equal(t, target.Key(), dep.Key())

	vt := NewVirtual(VirtualTarget, "init")
	vd := NewVirtual(VirtualDep, "init")
	require.Equal(t, vt.Key(), vd.Key())

	// A file and a virtual artifact sharing a name never collide.
	file := NewFile(FileTarget, "init", "/")
	assert.NotEqual(t, vt.Key(), file.Key())
}

func TestAsDepAsTarget(t *testing.T) {
	a := NewFile(FileTarget, "x", "/work")
	assert.Equal(t, FileDep, a.AsDep().Kind())
	assert.Equal(t, FileTarget, a.AsDep().AsTarget().Kind())

	v := NewVirtual(VirtualDep, "v")
	assert.Equal(t, VirtualTarget, v.AsTarget().Kind())
}

func TestDisplay(t *testing.T) {
	a := NewFile(FileTarget, "sub/a.txt", "/work")
	assert.Equal(t, filepath.Join("sub", "a.txt"), a.Display("/work"))
	assert.Equal(t, "/work/sub/a.txt", a.Display("/other"))
	assert.Equal(t, "init", NewVirtual(VirtualTarget, "init").Display("/work"))
}

func TestJoinDisplay(t *testing.T) {
	arts := []Artifact{
		NewFile(FileDep, "a", "/work"),
		NewFile(FileDep, "b", "/work"),
		NewVirtual(VirtualDep, "v"),
	}
	assert.Equal(t, "a b v", JoinDisplay(arts, "/work"))
	assert.Equal(t, "/work/a /work/b v", Join(arts))
}
