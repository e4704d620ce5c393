package rule

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/builder"
)

// PatternError reports a malformed pattern string: zero or more than one
// wildcard.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q must contain exactly one wildcard", e.Pattern)
}

// Pattern is a templated rule whose target and dependency slots carry a
// single wildcard each. Concrete rules are synthesized on demand during
// resolution and never registered.
type Pattern struct {
	Name    string
	Target  string
	Deps    []string
	Builder *builder.Builder
	Exclude map[string]bool // artifact keys removed from matching
	Kwargs  map[string]string
}

// normalizePattern treats '%' and '*' as the same wildcard and validates
// that exactly one occurs.
func normalizePattern(p string) (string, error) {
	p = strings.ReplaceAll(p, "%", "*")
	if strings.Count(p, "*") != 1 {
		return "", &PatternError{Pattern: p}
	}
	return p, nil
}

// NewPattern validates wildcard counts and constructs a pattern rule.
// The exclude list is coerced into target artifacts against dir.
func NewPattern(name, target string, deps []string, b *builder.Builder, exclude []string, kwargs map[string]string, dir string) (*Pattern, error) {
	target, err := normalizePattern(target)
	if err != nil {
		return nil, err
	}
	if len(deps) == 0 {
		return nil, fmt.Errorf("pattern %q has no dependency patterns", target)
	}
	normDeps := make([]string, len(deps))
	for i, d := range deps {
		nd, err := normalizePattern(d)
		if err != nil {
			return nil, err
		}
		normDeps[i] = nd
	}
	excl := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excl[artifact.Coerce(e, true, dir).Key()] = true
	}
	return &Pattern{
		Name:    name,
		Target:  target,
		Deps:    normDeps,
		Builder: b,
		Exclude: excl,
		Kwargs:  kwargs,
	}, nil
}

// splitPattern resolves a pattern against dir (file patterns only) and
// returns the literal prefix and suffix around the wildcard.
func splitPattern(pattern, dir string, virtual bool) (prefix, suffix string) {
	if !virtual && !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	i := strings.IndexByte(pattern, '*')
	return pattern[:i], pattern[i+1:]
}

// ProducesVirtual reports whether the target pattern names virtual
// artifacts (a "virtual:" prefix on the pattern).
func (p *Pattern) ProducesVirtual() bool {
	return strings.HasPrefix(p.Target, artifact.VirtualPrefix)
}

// Match reports whether the artifact's path (file) or name (virtual)
// matches the target pattern with a non-empty stem, and that the artifact
// is not excluded. The captured stem is returned for dependency
// substitution. Stems never span directories. File patterns only match
// file artifacts, virtual patterns only virtual ones.
func (p *Pattern) Match(a artifact.Artifact, dir string) (string, bool) {
	if p.Exclude[a.Key()] {
		return "", false
	}
	if p.ProducesVirtual() != a.IsVirtual() {
		return "", false
	}
	target := strings.TrimPrefix(p.Target, artifact.VirtualPrefix)
	prefix, suffix := splitPattern(target, dir, a.IsVirtual())
	name := a.Name()
	if len(name) <= len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	stem := name[len(prefix) : len(name)-len(suffix)]
	if strings.ContainsRune(stem, filepath.Separator) {
		return "", false
	}
	return stem, true
}

// Instantiate synthesizes the concrete rule for a matched target. The
// synthesized rule carries an ephemeral copy of the pattern's builder and
// is not registered anywhere.
func (p *Pattern) Instantiate(a artifact.Artifact, stem string, dir string) (*Rule, error) {
	deps := make([]artifact.Artifact, len(p.Deps))
	for i, dp := range p.Deps {
		deps[i] = artifact.Coerce(strings.Replace(dp, "*", stem, 1), false, dir)
	}
	eb := *p.Builder
	eb.Ephemeral = true
	return New([]artifact.Artifact{a.AsTarget()}, deps, &eb, p.Name, p.Kwargs)
}

// AllTargets enumerates the concrete targets this pattern can currently
// produce: the first dependency pattern is globbed against the
// filesystem, each matched stem is substituted into the target pattern,
// and excluded artifacts are dropped. The result is sorted for
// deterministic builds. Virtual dependency patterns are not supported
// here.
func (p *Pattern) AllTargets(dir string) ([]artifact.Artifact, error) {
	depPat := p.Deps[0]
	if !filepath.IsAbs(depPat) {
		depPat = filepath.Join(dir, depPat)
	}
	matches, err := filepath.Glob(depPat)
	if err != nil {
		return nil, fmt.Errorf("globbing %q: %w", depPat, err)
	}
	prefix, suffix := splitPattern(p.Deps[0], dir, false)

	var targets []artifact.Artifact
	for _, m := range matches {
		if len(m) <= len(prefix)+len(suffix) {
			continue
		}
		stem := m[len(prefix) : len(m)-len(suffix)]
		t := artifact.Coerce(strings.Replace(p.Target, "*", stem, 1), true, dir)
		if p.Exclude[t.Key()] {
			continue
		}
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name() < targets[j].Name() })
	return targets, nil
}
