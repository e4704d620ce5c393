// Package builder models the action attached to a rule: either a shell
// command template with automatic variables, or a reference to a callable
// registered in Go.
package builder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/remake-build/remake/internal/artifact"
)

// Call carries the concrete inputs of a single callable invocation.
type Call struct {
	Deps    []artifact.Artifact
	Targets []artifact.Artifact
	// Out is the console handle for builder output.
	Out io.Writer
	// Kwargs merges the builder's defaults with the rule's overrides.
	Kwargs map[string]string
}

// Handler is a callable build action. A non-nil error marks the node as
// failed and aborts the build.
type Handler func(ctx context.Context, call *Call) error

// ActionKind discriminates the two action variants.
type ActionKind int

const (
	// Template is a shell command string with $@, $^ and $< variables.
	Template ActionKind = iota
	// Callable names a handler registered in the handler table.
	Callable
)

// Builder wraps an action plus default keyword arguments. A builder is
// reusable across rules; pattern instantiation synthesizes ephemeral
// builders that leave no registry trace.
type Builder struct {
	Name string
	Kind ActionKind

	// Action holds the command template (Kind == Template) or the
	// registered handler name (Kind == Callable).
	Action string

	// Ephemeral builders are products of pattern instantiation and are
	// never registered.
	Ephemeral bool

	// Destructive builders remove their targets instead of creating them;
	// post-run verification checks the inverse condition.
	Destructive bool

	Kwargs map[string]string
}

// NewTemplate constructs a template builder.
func NewTemplate(name, action string) *Builder {
	return &Builder{Name: name, Kind: Template, Action: action}
}

// NewCallable constructs a builder referencing a registered handler.
func NewCallable(name, handler string) *Builder {
	return &Builder{Name: name, Kind: Callable, Action: handler}
}

// Expand substitutes the automatic variables of a template action against
// a concrete (deps, targets) pair:
//
//	$@  all targets, space-joined
//	$^  all deps, space-joined
//	$<  first dep only
//
// Substitution is literal. With no deps, $^ and $< expand to the empty
// string. File paths render relative to dir, the directory the expanded
// command runs from.
func Expand(action string, deps, targets []artifact.Artifact, dir string) string {
	first := ""
	if len(deps) > 0 {
		first = deps[0].Display(dir)
	}
	r := strings.NewReplacer(
		"$@", artifact.JoinDisplay(targets, dir),
		"$^", artifact.JoinDisplay(deps, dir),
		"$<", first,
	)
	return r.Replace(action)
}

// Describe renders the action as the human-readable line shown on the
// console and in dry runs.
func (b *Builder) Describe(deps, targets []artifact.Artifact, dir string) string {
	if b.Kind == Template {
		return Expand(b.Action, deps, targets, dir)
	}
	return fmt.Sprintf("%s([%s], [%s])", b.Action, artifact.JoinDisplay(deps, dir), artifact.JoinDisplay(targets, dir))
}

// MergeKwargs overlays rule-level kwargs on top of the builder defaults.
func (b *Builder) MergeKwargs(overrides map[string]string) map[string]string {
	if len(b.Kwargs) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(map[string]string, len(b.Kwargs)+len(overrides))
	for k, v := range b.Kwargs {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
