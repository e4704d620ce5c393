// Package executor walks the resolved DAG in post-order and brings stale
// nodes up to date. Execution is single-threaded and synchronous: a
// dependency's action always finishes before its dependent's starts, and
// two runs over an unchanged tree produce the same action sequence.
package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/remake-build/remake/internal/builder"
	"github.com/remake-build/remake/internal/console"
	"github.com/remake-build/remake/internal/ctxlog"
	"github.com/remake-build/remake/internal/fsutil"
	"github.com/remake-build/remake/internal/resolver"
)

// Mode selects what a traversal does at each node.
type Mode int

const (
	// Build executes stale actions for real.
	Build Mode = iota
	// DryRun reports what Build would execute without running anything.
	DryRun
	// Clean deletes existing file targets instead of building.
	Clean
)

// Executor drives one traversal over the DAG.
type Executor struct {
	mode     Mode
	runner   CommandRunner
	handlers *builder.Table
	reporter console.Reporter
	verbose  bool
}

// New constructs an executor. The runner and reporter are injected; the
// handler table resolves callable builder actions.
func New(mode Mode, runner CommandRunner, handlers *builder.Table, reporter console.Reporter, verbose bool) *Executor {
	return &Executor{mode: mode, runner: runner, handlers: handlers, reporter: reporter, verbose: verbose}
}

// Run processes the roots in request order as a single flattened
// post-order pass. On the first action failure it stops scheduling and
// returns the failure; completed actions are not rolled back.
func (e *Executor) Run(ctx context.Context, roots []*resolver.Node, title string) error {
	order := resolver.PostOrder(roots)
	e.reporter.Begin(title, len(order))
	defer e.reporter.End()

	ran := make(map[*resolver.Node]bool)
	for i, n := range order {
		ev := console.Event{Index: i + 1, Total: len(order)}
		var err error
		switch e.mode {
		case Clean:
			err = e.cleanNode(ctx, n, ev)
		default:
			err = e.visitNode(ctx, n, ev, ran)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) visitNode(ctx context.Context, n *resolver.Node, ev console.Event, ran map[*resolver.Node]bool) error {
	dir := n.Registry.Dir()

	if n.Leaf() {
		switch {
		case n.Artifact.IsVirtual():
			ev.Tag = console.TagSkip
			ev.Label = "Virtual dependency: " + n.Artifact.Name()
		case e.mode == DryRun:
			ev.Tag = console.TagDryRun
			ev.Label = "Dependency: " + n.Artifact.Display(dir)
		case fsutil.Exists(n.Artifact.Name()):
			ev.Tag = console.TagSkip
			ev.Label = fmt.Sprintf("Dependency %s already exists", n.Artifact.Display(dir))
		default:
			ev.Tag = console.TagFailed
			ev.Label = "Missing dependency: " + n.Artifact.Display(dir)
			e.reporter.Event(ev)
			return &BuilderFailureError{
				Label: n.Artifact.Name(),
				Err:   fmt.Errorf("source %s does not exist", n.Artifact.Name()),
			}
		}
		e.reporter.Event(ev)
		return nil
	}

	if !stale(n, ran) {
		ev.Tag = console.TagSkip
		ev.Label = n.Rule.Describe(dir)
		e.reporter.Event(ev)
		return nil
	}

	ev.Label = n.Rule.Describe(dir)
	ev.Action = ev.Label
	if e.mode == DryRun {
		ev.Tag = console.TagDryRun
		e.reporter.Event(ev)
		ran[n] = true
		return nil
	}

	// Dependencies must exist before the action runs; a rule whose dep is
	// still missing at this point cannot succeed.
	for _, d := range n.Rule.Deps {
		if !d.IsVirtual() && !fsutil.Exists(d.Name()) {
			e.fail(ev, d.Name())
			return &BuilderFailureError{
				Label: n.Rule.Label(),
				Err:   fmt.Errorf("dependency %s does not exist to make %s", d.Name(), n.Artifact.Name()),
			}
		}
	}

	e.reporter.Event(ev)
	if err := e.apply(ctx, n); err != nil {
		e.fail(console.Event{Index: ev.Index, Total: ev.Total}, n.Rule.Label())
		return &BuilderFailureError{Label: n.Rule.Label(), Err: err}
	}
	if err := e.verifyTargets(n); err != nil {
		return &BuilderFailureError{Label: n.Rule.Label(), Err: err}
	}
	ran[n] = true
	return nil
}

// apply dispatches the rule's action once per invocation, on the variant
// decided at construction time.
func (e *Executor) apply(ctx context.Context, n *resolver.Node) error {
	r := n.Rule
	dir := n.Registry.Dir()
	switch r.Builder.Kind {
	case builder.Template:
		cmd := builder.Expand(r.Builder.Action, r.Deps, r.Targets, dir)
		var out io.Writer = io.Discard
		if e.verbose {
			out = e.reporter.Out()
		}
		return e.runner.Run(ctx, dir, cmd, out)
	case builder.Callable:
		h, ok := e.handlers.Lookup(r.Builder.Action)
		if !ok {
			return fmt.Errorf("no handler registered for builder %q", r.Builder.Action)
		}
		return h(ctx, &builder.Call{
			Deps:    r.Deps,
			Targets: r.Targets,
			Out:     e.reporter.Out(),
			Kwargs:  r.Builder.MergeKwargs(r.Kwargs),
		})
	}
	return fmt.Errorf("unknown action kind %d", r.Builder.Kind)
}

// verifyTargets checks the post-run state of file targets: a creative
// builder must have produced them, a destructive one must have removed
// them. Virtual targets are exempt.
func (e *Executor) verifyTargets(n *resolver.Node) error {
	for _, t := range n.Rule.Targets {
		if t.IsVirtual() {
			continue
		}
		exists := fsutil.Exists(t.Name())
		if n.Rule.Builder.Destructive && exists {
			return fmt.Errorf("target %s not destroyed by rule %s", t.Name(), n.Rule.Label())
		}
		if !n.Rule.Builder.Destructive && !exists {
			return fmt.Errorf("target %s not created by rule %s", t.Name(), n.Rule.Label())
		}
	}
	return nil
}

// cleanNode deletes the node's existing file targets. Ground dependencies
// and virtual targets are left alone, and deletion failures are logged
// without aborting the rest of the pass.
func (e *Executor) cleanNode(ctx context.Context, n *resolver.Node, ev console.Event) error {
	if n.Leaf() {
		e.reporter.Event(ev)
		return nil
	}
	dir := n.Registry.Dir()
	for _, t := range n.Rule.Targets {
		if t.IsVirtual() || !fsutil.Exists(t.Name()) {
			continue
		}
		ev.Tag = console.TagClean
		ev.Label = fmt.Sprintf("Cleaning dependency %s", t.Display(dir))
		if err := fsutil.Remove(t.Name()); err != nil {
			ctxlog.FromContext(ctx).Warn("failed to clean target", "target", t.Name(), "error", err)
		}
	}
	e.reporter.Event(ev)
	return nil
}

func (e *Executor) fail(ev console.Event, label string) {
	ev.Tag = console.TagFailed
	ev.Label = label
	e.reporter.Event(ev)
}
