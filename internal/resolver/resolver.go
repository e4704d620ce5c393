// Package resolver turns requested targets into a dependency DAG. For
// each target it searches the owning registry's named rules first, then
// its pattern rules, and falls back to leaf source nodes for artifacts
// that exist on disk.
package resolver

import (
	"context"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/ctxlog"
	"github.com/remake-build/remake/internal/fsutil"
	"github.com/remake-build/remake/internal/registry"
	"github.com/remake-build/remake/internal/rule"
)

// Node is one vertex of the dependency DAG. Nodes are immutable once
// resolution completes. A nil Rule marks a leaf source: an artifact
// nothing builds, which must already exist (or be virtual).
type Node struct {
	Artifact artifact.Artifact
	Rule     *rule.Rule
	Deps     []*Node
	Registry *registry.Registry
}

// Leaf reports whether the node has no producing rule.
func (n *Node) Leaf() bool { return n.Rule == nil }

type nodeKey struct {
	art string
	reg *registry.Registry
}

// Resolver memoizes nodes by (artifact key, registry) so shared subgraphs
// resolve once, and tracks every artifact produced by a resolved rule so
// a later root may depend on it by file path before it exists on disk —
// the cross-sub-build ordering guarantee.
type Resolver struct {
	memo     map[nodeKey]*Node
	produced map[string]bool
	stack    []nodeKey
	inStack  map[nodeKey]bool
}

// New creates a resolver for a single build invocation.
func New() *Resolver {
	return &Resolver{
		memo:     make(map[nodeKey]*Node),
		produced: make(map[string]bool),
		inStack:  make(map[nodeKey]bool),
	}
}

// Resolve returns the DAG node producing the requested artifact within
// the given registry, recursively resolving its dependencies.
func (rv *Resolver) Resolve(ctx context.Context, reg *registry.Registry, a artifact.Artifact) (*Node, error) {
	key := nodeKey{art: a.Key(), reg: reg}
	if n, ok := rv.memo[key]; ok {
		return n, nil
	}
	if rv.inStack[key] {
		return nil, rv.cycleError(key)
	}
	rv.inStack[key] = true
	rv.stack = append(rv.stack, key)
	defer func() {
		rv.stack = rv.stack[:len(rv.stack)-1]
		delete(rv.inStack, key)
	}()

	n, err := rv.resolve(ctx, reg, a)
	if err != nil {
		return nil, err
	}
	rv.memo[key] = n
	return n, nil
}

func (rv *Resolver) resolve(ctx context.Context, reg *registry.Registry, a artifact.Artifact) (*Node, error) {
	// Named rules first, in registration order. Later duplicate target
	// registrations already shadowed earlier ones at registry time, so the
	// first producer found is the effective one.
	for _, r := range reg.Rules() {
		if r.Produces(a) {
			return rv.ruleNode(ctx, reg, a, r)
		}
	}

	// Pattern rules second, in registration order; the first match wins.
	for _, p := range reg.Patterns() {
		stem, ok := p.Match(a, reg.Dir())
		if !ok {
			continue
		}
		synth, err := p.Instantiate(a, stem, reg.Dir())
		if err != nil {
			return nil, err
		}
		return rv.ruleNode(ctx, reg, a, synth)
	}

	// Nothing produces the artifact. Virtual leaves are always
	// acceptable; file leaves must exist on disk, or be produced by a
	// rule already resolved in this invocation (a sub-build target the
	// execution pass will bring up to date first).
	if a.IsVirtual() || fsutil.Exists(a.Name()) || rv.produced[a.Key()] {
		ctxlog.FromContext(ctx).Debug("leaf source", "artifact", a.Name())
		return &Node{Artifact: a, Registry: reg}, nil
	}
	return nil, &UnresolvedTargetError{Artifact: a}
}

func (rv *Resolver) ruleNode(ctx context.Context, reg *registry.Registry, a artifact.Artifact, r *rule.Rule) (*Node, error) {
	for _, t := range r.Targets {
		rv.produced[t.Key()] = true
	}
	n := &Node{Artifact: a, Rule: r, Registry: reg}
	for _, d := range r.Deps {
		dn, err := rv.Resolve(ctx, reg, d)
		if err != nil {
			return nil, err
		}
		n.Deps = append(n.Deps, dn)
	}
	return n, nil
}

func (rv *Resolver) cycleError(key nodeKey) error {
	var chain []string
	seen := false
	for _, k := range rv.stack {
		if k == key {
			seen = true
		}
		if seen {
			chain = append(chain, trimKey(k.art))
		}
	}
	chain = append(chain, trimKey(key.art))
	return &DependencyCycleError{Chain: chain}
}

// PostOrder flattens the roots into a deduplicated execution sequence:
// dependencies strictly before their dependents, a rule's dependencies in
// declaration order, roots in request order.
func PostOrder(roots []*Node) []*Node {
	var out []*Node
	visited := make(map[*Node]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, d := range n.Deps {
			walk(d)
		}
		out = append(out, n)
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
