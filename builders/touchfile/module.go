// Package touchfile provides the "touch" callable builder: it creates
// its targets empty, or refreshes their modification time when they
// already exist.
package touchfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/remake-build/remake/internal/builder"
)

// Module registers the touch handler.
type Module struct{}

// Register implements builder.Module.
func (Module) Register(t *builder.Table) {
	t.Register("touch", run)
}

func run(ctx context.Context, call *builder.Call) error {
	now := time.Now()
	for _, t := range call.Targets {
		if t.IsVirtual() {
			continue
		}
		f, err := os.OpenFile(t.Name(), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("touch: %w", err)
		}
		f.Close()
		if err := os.Chtimes(t.Name(), now, now); err != nil {
			return fmt.Errorf("touch: %w", err)
		}
	}
	return nil
}
