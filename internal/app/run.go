package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/remake-build/remake/internal/artifact"
	"github.com/remake-build/remake/internal/ctxlog"
	"github.com/remake-build/remake/internal/executor"
	"github.com/remake-build/remake/internal/hclfile"
	"github.com/remake-build/remake/internal/registry"
	"github.com/remake-build/remake/internal/resolver"
	"github.com/remake-build/remake/internal/watch"
)

// Run evaluates the build file tree, resolves the requested targets into
// a DAG and executes it in the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if a.cfg.Watch {
		return a.runWatch(ctx)
	}
	return a.runOnce(ctx)
}

func (a *App) runOnce(ctx context.Context) error {
	roots, err := a.resolve(ctx)
	if err != nil {
		return err
	}
	return a.execute(ctx, roots)
}

// resolve evaluates build files and resolves every requested root into
// the union DAG, in request order.
func (a *App) resolve(ctx context.Context) ([]*resolver.Node, error) {
	loader := hclfile.NewLoader(a.cfg.ConfigFile)
	reg, requested, err := loader.Evaluate(ctx, a.cfg.Dir)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("build files evaluated",
		"rules", len(reg.Rules()), "patterns", len(reg.Patterns()), "requested", len(requested))

	if len(a.cfg.Targets) > 0 {
		requested = requested[:0]
		for _, t := range a.cfg.Targets {
			requested = append(requested, hclfile.Root{
				Registry: reg,
				Artifact: cliTarget(reg, t),
			})
		}
	}
	if len(requested) == 0 {
		a.logger.Warn("no targets requested, nothing to do")
		return nil, nil
	}

	rv := resolver.New()
	var roots []*resolver.Node
	for _, req := range requested {
		n, err := rv.Resolve(ctx, req.Registry, req.Artifact)
		if err != nil {
			return nil, err
		}
		roots = append(roots, n)
	}
	return roots, nil
}

func (a *App) execute(ctx context.Context, roots []*resolver.Node) error {
	if len(roots) == 0 {
		return nil
	}
	title := fmt.Sprintf("Executing %s for folder %s",
		buildFileName(a.cfg.ConfigFile), mustAbs(a.cfg.Dir))

	switch {
	case a.cfg.Rebuild:
		if err := a.pass(ctx, executor.Clean, roots, title); err != nil {
			return err
		}
		return a.pass(ctx, executor.Build, roots, title)
	case a.cfg.Clean:
		return a.pass(ctx, executor.Clean, roots, title)
	case a.cfg.DryRun:
		return a.pass(ctx, executor.DryRun, roots, title)
	default:
		return a.pass(ctx, executor.Build, roots, title)
	}
}

func (a *App) pass(ctx context.Context, mode executor.Mode, roots []*resolver.Node, title string) error {
	exec := executor.New(mode, a.runner, a.handlers, a.reporter, a.cfg.Verbose)
	return exec.Run(ctx, roots, title)
}

// runWatch performs an initial run, then re-runs the whole pipeline
// whenever a watched source changes. Build files are re-evaluated each
// round, so pattern enumerations pick up created and deleted files.
func (a *App) runWatch(ctx context.Context) error {
	round := func(ctx context.Context) error {
		roots, err := a.resolve(ctx)
		if err != nil {
			return err
		}
		a.watchDirs = collectDirs(roots)
		return a.execute(ctx, roots)
	}
	if err := round(ctx); err != nil {
		// A failing round keeps the watch alive; the next change may fix
		// the build.
		a.logger.Error("build failed", "error", err)
	}
	w := watch.New(a.logger)
	return w.Loop(ctx, func() []string { return a.watchDirs }, round)
}

// collectDirs gathers the directories containing any file artifact of
// the DAG, the watch set for rebuild-on-change.
func collectDirs(roots []*resolver.Node) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, n := range resolver.PostOrder(roots) {
		arts := []artifact.Artifact{n.Artifact}
		if n.Rule != nil {
			arts = append(arts, n.Rule.Deps...)
			arts = append(arts, n.Rule.Targets...)
		}
		for _, a := range arts {
			if a.IsVirtual() {
				continue
			}
			d := filepath.Dir(a.Name())
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}
	return dirs
}

// cliTarget maps a positional CLI argument to an artifact: a virtual
// name when some declaration in the root registry produces it, a file
// path otherwise.
func cliTarget(reg *registry.Registry, arg string) artifact.Artifact {
	v := artifact.NewVirtual(artifact.VirtualTarget, arg)
	for _, r := range reg.Rules() {
		if r.Produces(v) {
			return v
		}
	}
	for _, p := range reg.Patterns() {
		if _, ok := p.Match(v, reg.Dir()); ok {
			return v
		}
	}
	return artifact.Coerce(arg, true, reg.Dir())
}

func buildFileName(name string) string {
	if name == "" {
		return hclfile.DefaultFileName
	}
	return name
}

func mustAbs(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
