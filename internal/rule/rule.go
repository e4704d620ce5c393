// Package rule defines the bound build rule and its pattern-templated
// counterpart.
package rule

import (
	"errors"
	"fmt"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/builder"
)

// ErrNoTargets reports a rule declared without any target.
var ErrNoTargets = errors.New("rule has no targets")

// Rule binds an ordered set of targets and dependencies to a builder.
// Rules are pure data; execution lives in the executor.
type Rule struct {
	Targets []artifact.Artifact
	Deps    []artifact.Artifact
	Builder *builder.Builder
	// Kwargs are forwarded to callable builders on top of the builder's
	// own defaults.
	Kwargs map[string]string
	// Name is an optional human label.
	Name string
}

// New validates and constructs a rule. Targets must be non-empty and
// unique within the rule; dependency slots must hold dep-kind artifacts.
func New(targets, deps []artifact.Artifact, b *builder.Builder, name string, kwargs map[string]string) (*Rule, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if !t.IsTarget() {
			return nil, fmt.Errorf("artifact %q is not a target", t)
		}
		if seen[t.Key()] {
			return nil, fmt.Errorf("duplicate target %q in rule", t)
		}
		seen[t.Key()] = true
	}
	for i, d := range deps {
		if d.IsTarget() {
			deps[i] = d.AsDep()
		}
	}
	return &Rule{Targets: targets, Deps: deps, Builder: b, Kwargs: kwargs, Name: name}, nil
}

// Produces reports whether the rule produces the given artifact, compared
// by key so a FileDep request matches a FileTarget declaration.
func (r *Rule) Produces(a artifact.Artifact) bool {
	key := a.Key()
	for _, t := range r.Targets {
		if t.Key() == key {
			return true
		}
	}
	return false
}

// Label returns the rule's display name: its explicit name when set,
// otherwise its first target.
func (r *Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Targets[0].Name()
}

// Describe renders the rule's action against its own deps and targets,
// with file paths relative to dir.
func (r *Rule) Describe(dir string) string {
	return r.Builder.Describe(r.Deps, r.Targets, dir)
}
