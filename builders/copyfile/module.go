// Package copyfile provides the "copy" callable builder: it copies the
// first dependency to every target.
package copyfile

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/remake-build/remake/internal/builder"
)

// Module registers the copy handler.
type Module struct{}

// Register implements builder.Module.
func (Module) Register(t *builder.Table) {
	t.Register("copy", run)
}

func run(ctx context.Context, call *builder.Call) error {
	if len(call.Deps) == 0 {
		return fmt.Errorf("copy: no source dependency")
	}
	src := call.Deps[0]
	if src.IsVirtual() {
		return fmt.Errorf("copy: source %s is virtual", src.Name())
	}
	mode := os.FileMode(0o644)
	if m, ok := call.Kwargs["mode"]; ok {
		if _, err := fmt.Sscanf(m, "%o", &mode); err != nil {
			return fmt.Errorf("copy: bad mode %q: %w", m, err)
		}
	}
	for _, t := range call.Targets {
		if t.IsVirtual() {
			continue
		}
		if err := copyOne(src.Name(), t.Name(), mode); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		fmt.Fprintf(call.Out, "copied %s -> %s\n", src.Name(), t.Name())
	}
	return nil
}

func copyOne(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
