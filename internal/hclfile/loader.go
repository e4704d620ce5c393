// Package hclfile evaluates ReMakeFile.hcl build files into registries.
// Evaluation walks the file's blocks in source order, so a pattern's
// enumerated targets are visible to every block declared after it, and
// sub-builds run at the point of their subdir block. Build-file
// evaluation is not a pure operation: pattern enumeration globs the
// filesystem at evaluation time.
package hclfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/builder"
	"github.com/remake-build/remake/internal/ctxlog"
	"github.com/remake-build/remake/internal/registry"
	"github.com/remake-build/remake/internal/rule"
)

// DefaultFileName is the build file looked up in each directory.
const DefaultFileName = "ReMakeFile.hcl"

// Root is one requested target paired with the registry that owns it.
// Roots accumulate across the parent build file and its sub-builds in
// request order; the executor processes them as a single pass.
type Root struct {
	Registry *registry.Registry
	Artifact artifact.Artifact
}

// Loader evaluates a tree of build files.
type Loader struct {
	filename string
	roots    []Root
}

// NewLoader creates a loader for build files with the given name; an
// empty name selects DefaultFileName.
func NewLoader(filename string) *Loader {
	if filename == "" {
		filename = DefaultFileName
	}
	return &Loader{filename: filename}
}

// Evaluate loads the build file in dir into a fresh root registry and
// returns it along with every requested root, sub-builds included.
func (l *Loader) Evaluate(ctx context.Context, dir string) (*registry.Registry, []Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(abs)
	if err := l.evaluateFile(ctx, reg); err != nil {
		return nil, nil, err
	}
	return reg, l.roots, nil
}

func (l *Loader) evaluateFile(ctx context.Context, reg *registry.Registry) error {
	path := filepath.Join(reg.Dir(), l.filename)
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading build file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return fmt.Errorf("parsing %s: %s", path, diags.Error())
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return fmt.Errorf("decoding %s: %s", path, diags.Error())
	}

	ctx = registry.WithContext(ctx, reg)
	ctxlog.FromContext(ctx).Debug("evaluating build file", "path", path)

	ev := &evaluation{
		loader:   l,
		reg:      reg,
		patterns: make(map[string]cty.Value),
	}
	for _, block := range content.Blocks {
		if err := ev.evalBlock(ctx, block); err != nil {
			return fmt.Errorf("%s: %w", block.DefRange.String(), err)
		}
	}
	return nil
}

// evaluation carries per-file state: the registry under construction and
// the cty scope exposing pattern enumerations to later blocks.
type evaluation struct {
	loader   *Loader
	reg      *registry.Registry
	patterns map[string]cty.Value
}

// evalContext builds the expression scope: pattern.<name>.all_targets.
func (ev *evaluation) evalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	if len(ev.patterns) > 0 {
		vars["pattern"] = cty.ObjectVal(ev.patterns)
	}
	return &hcl.EvalContext{Variables: vars}
}

func (ev *evaluation) evalBlock(ctx context.Context, block *hcl.Block) error {
	switch block.Type {
	case "builder":
		return ev.evalBuilder(block)
	case "rule":
		return ev.evalRule(ctx, block)
	case "pattern":
		return ev.evalPattern(ctx, block)
	case "target":
		return ev.evalTarget(block)
	case "virtual_target":
		return ev.evalVirtualTarget(block)
	case "subdir":
		return ev.evalSubdir(ctx, block)
	}
	return fmt.Errorf("unsupported block type %q", block.Type)
}

func (ev *evaluation) evalBuilder(block *hcl.Block) error {
	attrs, err := blockAttrs(block, builderSchema)
	if err != nil {
		return err
	}
	ec := ev.evalContext()
	name := block.Labels[0]
	action, hasAction, err := attrString(attrs, "action", ec)
	if err != nil {
		return err
	}
	command, hasCommand, err := attrString(attrs, "command", ec)
	if err != nil {
		return err
	}
	if hasAction == hasCommand {
		return fmt.Errorf("builder %q needs exactly one of action or command", name)
	}

	var b *builder.Builder
	if hasAction {
		b = builder.NewTemplate(name, action)
	} else {
		b = builder.NewCallable(name, command)
	}
	if b.Destructive, _, err = attrBool(attrs, "destructive", ec); err != nil {
		return err
	}
	if b.Kwargs, err = attrStringMap(attrs, "kwargs", ec); err != nil {
		return err
	}
	ev.reg.RegisterBuilder(b)
	return nil
}

func (ev *evaluation) evalRule(ctx context.Context, block *hcl.Block) error {
	attrs, err := blockAttrs(block, ruleSchema)
	if err != nil {
		return err
	}
	ec := ev.evalContext()
	targets, err := attrStrings(attrs, "targets", ec)
	if err != nil {
		return err
	}
	deps, err := attrStrings(attrs, "deps", ec)
	if err != nil {
		return err
	}
	builderName, _, err := attrString(attrs, "builder", ec)
	if err != nil {
		return err
	}
	name, _, err := attrString(attrs, "name", ec)
	if err != nil {
		return err
	}
	kwargs, err := attrStringMap(attrs, "kwargs", ec)
	if err != nil {
		return err
	}

	b, ok := ev.reg.LookupBuilder(builderName)
	if !ok {
		return fmt.Errorf("rule references unknown builder %q", builderName)
	}
	r, err := rule.New(coerceAll(targets, true, ev.reg.Dir()), coerceAll(deps, false, ev.reg.Dir()), b, name, kwargs)
	if err != nil {
		return err
	}
	ev.reg.RegisterRule(ctx, r)
	return nil
}

func (ev *evaluation) evalPattern(ctx context.Context, block *hcl.Block) error {
	attrs, err := blockAttrs(block, patternSchema)
	if err != nil {
		return err
	}
	ec := ev.evalContext()
	name := block.Labels[0]
	target, _, err := attrString(attrs, "target", ec)
	if err != nil {
		return err
	}
	deps, err := attrStrings(attrs, "deps", ec)
	if err != nil {
		return err
	}
	builderName, _, err := attrString(attrs, "builder", ec)
	if err != nil {
		return err
	}
	exclude, err := attrStrings(attrs, "exclude", ec)
	if err != nil {
		return err
	}
	kwargs, err := attrStringMap(attrs, "kwargs", ec)
	if err != nil {
		return err
	}

	b, ok := ev.reg.LookupBuilder(builderName)
	if !ok {
		return fmt.Errorf("pattern references unknown builder %q", builderName)
	}
	p, err := rule.NewPattern(name, target, deps, b, exclude, kwargs, ev.reg.Dir())
	if err != nil {
		return err
	}
	ev.reg.RegisterPattern(p)

	// Enumerate now so later blocks can reference
	// pattern.<name>.all_targets. This touches the filesystem.
	all, err := p.AllTargets(ev.reg.Dir())
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("pattern enumerated", "pattern", name, "targets", len(all))
	vals := make([]cty.Value, len(all))
	for i, a := range all {
		vals[i] = cty.StringVal(a.Name())
	}
	list := cty.ListValEmpty(cty.String)
	if len(vals) > 0 {
		list = cty.ListVal(vals)
	}
	ev.patterns[name] = cty.ObjectVal(map[string]cty.Value{
		"all_targets": list,
	})
	return nil
}

func (ev *evaluation) evalTarget(block *hcl.Block) error {
	attrs, err := blockAttrs(block, targetSchema)
	if err != nil {
		return err
	}
	files, err := attrStrings(attrs, "files", ev.evalContext())
	if err != nil {
		return err
	}
	for _, f := range files {
		a := artifact.Coerce(f, true, ev.reg.Dir())
		ev.reg.AddTarget(a)
		ev.loader.roots = append(ev.loader.roots, Root{Registry: ev.reg, Artifact: a})
	}
	return nil
}

func (ev *evaluation) evalVirtualTarget(block *hcl.Block) error {
	attrs, err := blockAttrs(block, virtualTargetSchema)
	if err != nil {
		return err
	}
	name, _, err := attrString(attrs, "name", ev.evalContext())
	if err != nil {
		return err
	}
	a := artifact.NewVirtual(artifact.VirtualTarget, name)
	ev.reg.AddTarget(a)
	ev.loader.roots = append(ev.loader.roots, Root{Registry: ev.reg, Artifact: a})
	return nil
}

// evalSubdir pauses the parent evaluation and evaluates the subdirectory's
// build file in a child registry. The child inherits nothing: its rules
// and builders are invisible to the parent and vice versa. Only its
// requested targets join the overall execution set.
func (ev *evaluation) evalSubdir(ctx context.Context, block *hcl.Block) error {
	attrs, err := blockAttrs(block, subdirSchema)
	if err != nil {
		return err
	}
	path, _, err := attrString(attrs, "path", ev.evalContext())
	if err != nil {
		return err
	}
	child := ev.reg.NewChild(path)
	if err := ev.loader.evaluateFile(ctx, child); err != nil {
		return &SubBuildError{Dir: path, Err: err}
	}
	return nil
}

func coerceAll(names []string, target bool, dir string) []artifact.Artifact {
	arts := make([]artifact.Artifact, len(names))
	for i, n := range names {
		arts[i] = artifact.Coerce(n, target, dir)
	}
	return arts
}
