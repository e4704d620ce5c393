package app

import (
	"github.com/remake-build/remake/builders/copyfile"
	"github.com/remake-build/remake/builders/touchfile"
	"github.com/remake-build/remake/internal/builder"
)

// coreModules returns the callable builders compiled into the default
// binary. Build files reference them by name through a builder block's
// command attribute.
func coreModules() []builder.Module {
	return []builder.Module{
		copyfile.Module{},
		touchfile.Module{},
	}
}
