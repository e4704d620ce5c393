// Package registry holds the per-build-file scope: registered builders,
// rules, pattern rules and requested targets, anchored at a working
// directory. Child registries back sub-builds and inherit nothing from
// their parent except directory anchoring.
package registry

import (
	"context"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/builder"
	"github.com/remake-build/remake/internal/ctxlog"
	"github.com/remake-build/remake/internal/rule"
)

// Registry is the declaration scope of a single build file. Its lifetime
// spans one evaluation; children live only while the parent resolves
// their requested targets.
type Registry struct {
	cwd    string
	parent *Registry

	builders []*builder.Builder
	rules    []*rule.Rule
	patterns []*rule.Pattern

	targets    []artifact.Artifact
	targetKeys map[string]bool
}

// New creates a root registry anchored at dir.
func New(dir string) *Registry {
	return &Registry{cwd: dir, targetKeys: make(map[string]bool)}
}

// NewChild creates a registry for a sub-build anchored at the given
// subdirectory. The parent reference is used only for directory
// resolution, never for rule lookup: rules declared in the parent are
// invisible in the child and vice versa.
func (r *Registry) NewChild(subdir string) *Registry {
	child := New(artifact.NewFile(artifact.FileDep, subdir, r.cwd).Name())
	child.parent = r
	return child
}

// Dir returns the directory this registry is anchored at.
func (r *Registry) Dir() string { return r.cwd }

// Parent returns the enclosing registry, or nil for the root.
func (r *Registry) Parent() *Registry { return r.parent }

// RegisterBuilder records a named builder. Ephemeral builders are skipped:
// they leave no registry trace.
func (r *Registry) RegisterBuilder(b *builder.Builder) {
	if b.Ephemeral {
		return
	}
	r.builders = append(r.builders, b)
}

// LookupBuilder finds a registered builder by name.
func (r *Registry) LookupBuilder(name string) (*builder.Builder, bool) {
	for _, b := range r.builders {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// RegisterRule appends a rule. When a file target of the new rule is
// already produced by an earlier rule, the later registration wins: the
// earlier rule loses that target, and loses its registration entirely if
// no target remains. A warning is logged, since overlapping rules are
// usually a build-file mistake.
func (r *Registry) RegisterRule(ctx context.Context, nr *rule.Rule) {
	claimed := make(map[string]bool, len(nr.Targets))
	for _, t := range nr.Targets {
		claimed[t.Key()] = true
	}

	kept := r.rules[:0]
	for _, old := range r.rules {
		remaining := old.Targets[:0]
		for _, t := range old.Targets {
			if claimed[t.Key()] {
				ctxlog.FromContext(ctx).Warn("target redeclared, later rule wins",
					"target", t.Name(), "rule", old.Label())
				continue
			}
			remaining = append(remaining, t)
		}
		old.Targets = remaining
		if len(old.Targets) > 0 {
			kept = append(kept, old)
		}
	}
	r.rules = append(kept, nr)
}

// RegisterPattern appends a pattern rule. Patterns are searched after
// named rules, in registration order.
func (r *Registry) RegisterPattern(p *rule.Pattern) {
	r.patterns = append(r.patterns, p)
}

// Rules returns the registered named rules in registration order.
func (r *Registry) Rules() []*rule.Rule { return r.rules }

// Patterns returns the registered pattern rules in registration order.
func (r *Registry) Patterns() []*rule.Pattern { return r.patterns }

// AddTarget marks an artifact as explicitly requested. Duplicate requests
// are dropped; order of first request is preserved.
func (r *Registry) AddTarget(a artifact.Artifact) {
	if r.targetKeys[a.Key()] {
		return
	}
	r.targetKeys[a.Key()] = true
	r.targets = append(r.targets, a)
}

// AddVirtualTarget marks a virtual name as requested.
func (r *Registry) AddVirtualTarget(name string) {
	r.AddTarget(artifact.NewVirtual(artifact.VirtualTarget, name))
}

// Targets returns the requested targets in request order.
func (r *Registry) Targets() []artifact.Artifact { return r.targets }

// ClearTargets drops the requested target set.
func (r *Registry) ClearTargets() {
	r.targets = nil
	r.targetKeys = make(map[string]bool)
}
