// Package artifact defines the values that rules produce and consume: file
// paths on disk and virtual names with no filesystem representation.
package artifact

import (
	"path/filepath"
	"strings"
)

// Kind discriminates the four artifact variants.
type Kind int

const (
	// FileTarget is a file path produced by a rule.
	FileTarget Kind = iota
	// FileDep is a file path consumed by a rule.
	FileDep
	// VirtualTarget is an opaque name produced by a rule. It is never
	// touched on disk and has no modification time.
	VirtualTarget
	// VirtualDep is an opaque name consumed by a rule.
	VirtualDep
)

// VirtualPrefix marks a name as virtual when it appears in a string slot
// of a build file, e.g. deps = ["virtual:zsh"].
const VirtualPrefix = "virtual:"

// Artifact is a tagged value denoting a build target or dependency.
// File artifacts carry an absolute, cleaned path; virtual artifacts carry
// an opaque name. Artifacts are value types and compare by Key.
type Artifact struct {
	kind Kind
	name string
}

// NewFile constructs a file artifact of the given kind, normalizing the
// path to absolute form against dir. Trailing separators are stripped by
// the normalization; symlinks are not resolved.
func NewFile(kind Kind, path, dir string) Artifact {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return Artifact{kind: kind, name: filepath.Clean(path)}
}

// NewVirtual constructs a virtual artifact of the given kind.
func NewVirtual(kind Kind, name string) Artifact {
	return Artifact{kind: kind, name: name}
}

// Coerce converts a user-supplied string into an artifact for the given
// slot. Strings carrying the "virtual:" prefix become virtual artifacts;
// anything else becomes a file artifact resolved against dir. The target
// parameter selects between target and dependency kinds.
func Coerce(s string, target bool, dir string) Artifact {
	if name, ok := strings.CutPrefix(s, VirtualPrefix); ok {
		if target {
			return NewVirtual(VirtualTarget, name)
		}
		return NewVirtual(VirtualDep, name)
	}
	if target {
		return NewFile(FileTarget, s, dir)
	}
	return NewFile(FileDep, s, dir)
}

// Kind returns the artifact's variant.
func (a Artifact) Kind() Kind { return a.kind }

// Name returns the normalized path for file artifacts or the opaque name
// for virtual ones.
func (a Artifact) Name() string { return a.name }

// IsVirtual reports whether the artifact has no filesystem representation.
func (a Artifact) IsVirtual() bool {
	return a.kind == VirtualTarget || a.kind == VirtualDep
}

// IsTarget reports whether the artifact sits in a target slot.
func (a Artifact) IsTarget() bool {
	return a.kind == FileTarget || a.kind == VirtualTarget
}

// Key identifies the artifact independently of its slot: a FileTarget and
// a FileDep naming the same path share a key, as do a VirtualTarget and a
// VirtualDep sharing a name. Resolution joins rules to dependents by key.
func (a Artifact) Key() string {
	if a.IsVirtual() {
		return "virtual\x00" + a.name
	}
	return "file\x00" + a.name
}

// AsDep returns the artifact converted to its dependency kind.
func (a Artifact) AsDep() Artifact {
	if a.IsVirtual() {
		return Artifact{kind: VirtualDep, name: a.name}
	}
	return Artifact{kind: FileDep, name: a.name}
}

// AsTarget returns the artifact converted to its target kind.
func (a Artifact) AsTarget() Artifact {
	if a.IsVirtual() {
		return Artifact{kind: VirtualTarget, name: a.name}
	}
	return Artifact{kind: FileTarget, name: a.name}
}

// String implements fmt.Stringer. File artifacts print their path, virtual
// ones their name.
func (a Artifact) String() string { return a.name }

// Join renders a list of artifacts as a space-separated string, the form
// used by action template expansion.
func Join(arts []Artifact) string {
	names := make([]string, len(arts))
	for i, a := range arts {
		names[i] = a.name
	}
	return strings.Join(names, " ")
}

// Display renders a file artifact relative to dir when it sits below it,
// so expanded commands stay readable and runnable from the build
// directory. Virtual artifacts and paths outside dir render unchanged.
func (a Artifact) Display(dir string) string {
	if a.IsVirtual() || dir == "" {
		return a.name
	}
	rel, err := filepath.Rel(dir, a.name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return a.name
	}
	return rel
}

// JoinDisplay is Join using Display names.
func JoinDisplay(arts []Artifact, dir string) string {
	names := make([]string, len(arts))
	for i, a := range arts {
		names[i] = a.Display(dir)
	}
	return strings.Join(names, " ")
}
