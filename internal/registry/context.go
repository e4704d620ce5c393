package registry

import "context"

// key is an unexported type to prevent collisions with context keys from
// other packages.
type key struct{}

var registryKey = key{}

// WithContext returns a new context with the given registry as the
// current declaration scope. Build-file evaluation enters a scoped
// context instead of mutating process-wide state.
func WithContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey, r)
}

// FromContext extracts the current registry from a context.
func FromContext(ctx context.Context) *Registry {
	if r, ok := ctx.Value(registryKey).(*Registry); ok {
		return r
	}
	panic("registry: no registry in context")
}
