package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/builder"
	"github.com/remake-build/remake/internal/registry"
	"github.com/remake-build/remake/internal/rule"
)

func addRule(t *testing.T, reg *registry.Registry, targets []string, deps []string) *rule.Rule {
	t.Helper()
	b := builder.NewTemplate("b", "touch $@")
	var ta, da []artifact.Artifact
	for _, s := range targets {
		ta = append(ta, artifact.Coerce(s, true, reg.Dir()))
	}
	for _, s := range deps {
		da = append(da, artifact.Coerce(s, false, reg.Dir()))
	}
	r, err := rule.New(ta, da, b, "", nil)
	require.NoError(t, err)
	reg.RegisterRule(context.Background(), r)
	return r
}

func addPattern(t *testing.T, reg *registry.Registry, target string, deps []string) *rule.Pattern {
	t.Helper()
	b := builder.NewTemplate("b", "touch $@")
	p, err := rule.NewPattern("pat", target, deps, b, nil, nil, reg.Dir())
	require.NoError(t, err)
	reg.RegisterPattern(p)
	return p
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestResolveChain(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "src")
	reg := registry.New(dir)
	addRule(t, reg, []string{"mid"}, []string{"src"})
	addRule(t, reg, []string{"out"}, []string{"mid"})

	rv := New()
	root, err := rv.Resolve(context.Background(), reg, artifact.Coerce("out", true, dir))
	require.NoError(t, err)

	require.Len(t, root.Deps, 1)
	mid := root.Deps[0]
	require.Len(t, mid.Deps, 1)
	leaf := mid.Deps[0]
	assert.True(t, leaf.Leaf())
	assert.Equal(t, filepath.Join(dir, "src"), leaf.Artifact.Name())
	assert.False(t, root.Leaf())
}

func TestResolveSharedSubgraph(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "src")
	reg := registry.New(dir)
	addRule(t, reg, []string{"common"}, []string{"src"})
	addRule(t, reg, []string{"left"}, []string{"common"})
	addRule(t, reg, []string{"right"}, []string{"common"})

	rv := New()
	ctx := context.Background()
	left, err := rv.Resolve(ctx, reg, artifact.Coerce("left", true, dir))
	require.NoError(t, err)
	right, err := rv.Resolve(ctx, reg, artifact.Coerce("right", true, dir))
	require.NoError(t, err)

	// Memoization shares the common subgraph.
	assert.Same(t, left.Deps[0], right.Deps[0])

	var names []string
	for _, n := range PostOrder([]*Node{left, right}) {
		names = append(names, filepath.Base(n.Artifact.Name()))
	}
	want := []string{"src", "common", "left", "right"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("post-order mismatch (-want +got):\n%s", diff)
	}
}

func TestNamedRulesSearchedBeforePatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.foo")
	touch(t, dir, "x.special")
	reg := registry.New(dir)
	addPattern(t, reg, "*.bar", []string{"*.foo"})
	named := addRule(t, reg, []string{"x.bar"}, []string{"x.special"})

	rv := New()
	root, err := rv.Resolve(context.Background(), reg, artifact.Coerce("x.bar", true, dir))
	require.NoError(t, err)
	assert.Same(t, named, root.Rule)
}

func TestPatternSynthesis(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.foo")
	reg := registry.New(dir)
	addPattern(t, reg, "*.bar", []string{"*.foo"})

	rv := New()
	root, err := rv.Resolve(context.Background(), reg, artifact.Coerce("x.bar", true, dir))
	require.NoError(t, err)

	require.NotNil(t, root.Rule)
	assert.True(t, root.Rule.Builder.Ephemeral)
	require.Len(t, root.Deps, 1)
	assert.Equal(t, filepath.Join(dir, "x.foo"), root.Deps[0].Artifact.Name())
	// The synthesized rule is a resolution product, not a registration.
	assert.Empty(t, reg.Rules())
}

func TestFirstPatternWins(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.foo")
	touch(t, dir, "x.baz")
	reg := registry.New(dir)
	first := addPattern(t, reg, "*.bar", []string{"*.foo"})
	addPattern(t, reg, "*.bar", []string{"*.baz"})

	rv := New()
	root, err := rv.Resolve(context.Background(), reg, artifact.Coerce("x.bar", true, dir))
	require.NoError(t, err)
	assert.Equal(t, first.Name, root.Rule.Name)
	assert.Equal(t, filepath.Join(dir, "x.foo"), root.Deps[0].Artifact.Name())
}

func TestVirtualLeafAccepted(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New(dir)
	b := builder.NewTemplate("b", "echo $<")
	r, err := rule.New(
		[]artifact.Artifact{artifact.NewVirtual(artifact.VirtualTarget, "init")},
		[]artifact.Artifact{artifact.NewVirtual(artifact.VirtualDep, "zsh")},
		b, "", nil)
	require.NoError(t, err)
	reg.RegisterRule(context.Background(), r)

	rv := New()
	root, err := rv.Resolve(context.Background(), reg, artifact.NewVirtual(artifact.VirtualTarget, "init"))
	require.NoError(t, err)
	require.Len(t, root.Deps, 1)
	assert.True(t, root.Deps[0].Leaf())
	assert.True(t, root.Deps[0].Artifact.IsVirtual())
}

func TestUnresolvedTarget(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New(dir)

	rv := New()
	_, err := rv.Resolve(context.Background(), reg, artifact.Coerce("ghost", true, dir))
	var ue *UnresolvedTargetError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, filepath.Join(dir, "ghost"), ue.Artifact.Name())
}

func TestMissingDepProducedByEarlierRoot(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "src")

	// A child-registry rule produces "gen"; the parent depends on it by
	// path without any rule of its own.
	parent := registry.New(dir)
	child := parent.NewChild("sub")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	b := builder.NewTemplate("b", "touch $@")
	gen, err := rule.New(
		[]artifact.Artifact{artifact.Coerce("gen", true, child.Dir())},
		[]artifact.Artifact{artifact.Coerce(filepath.Join(dir, "src"), false, child.Dir())},
		b, "", nil)
	require.NoError(t, err)
	child.RegisterRule(context.Background(), gen)
	addRule(t, parent, []string{"out"}, []string{"sub/gen"})

	rv := New()
	ctx := context.Background()
	_, err = rv.Resolve(ctx, child, artifact.Coerce("gen", true, child.Dir()))
	require.NoError(t, err)
	// "sub/gen" does not exist on disk, but an earlier root produces it.
	root, err := rv.Resolve(ctx, parent, artifact.Coerce("out", true, dir))
	require.NoError(t, err)
	assert.True(t, root.Deps[0].Leaf())
}

func TestDependencyCycle(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New(dir)
	addRule(t, reg, []string{"a"}, []string{"b"})
	addRule(t, reg, []string{"b"}, []string{"a"})

	rv := New()
	_, err := rv.Resolve(context.Background(), reg, artifact.Coerce("a", true, dir))
	var ce *DependencyCycleError
	require.ErrorAs(t, err, &ce)
	assert.GreaterOrEqual(t, len(ce.Chain), 2)
}

func TestRegistryIsolationInResolution(t *testing.T) {
	dir := t.TempDir()
	parent := registry.New(dir)
	child := parent.NewChild("sub")
	addRule(t, child, []string{"only-in-child"}, nil)

	rv := New()
	_, err := rv.Resolve(context.Background(), parent, artifact.Coerce("only-in-child", true, child.Dir()))
	var ue *UnresolvedTargetError
	require.ErrorAs(t, err, &ue)
}
