package builder

import "fmt"

// Module is the interface a Go package implements to contribute callable
// handlers to a handler table.
type Module interface {
	Register(t *Table)
}

// Table maps handler names to callable actions. Unlike the per-build-file
// registry, one table serves every build file of an invocation: handlers
// are compiled in, not declared in build files.
type Table struct {
	handlers map[string]Handler
}

// NewTable creates an empty handler table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given name. Registering the same name
// twice is a programmer error and panics.
func (t *Table) Register(name string, h Handler) {
	if _, ok := t.handlers[name]; ok {
		panic(fmt.Sprintf("builder: handler %q registered twice", name))
	}
	t.handlers[name] = h
}

// Lookup returns the handler registered under name.
func (t *Table) Lookup(name string) (Handler, bool) {
	h, ok := t.handlers[name]
	return h, ok
}
