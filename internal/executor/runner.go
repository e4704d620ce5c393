package executor

import (
	"context"
	"io"
	"os/exec"
)

// CommandRunner executes an expanded template action. The engine owns no
// process-spawning policy beyond this interface; wall-clock limits, if
// any, belong to the implementation.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string, out io.Writer) error
}

// ShellRunner runs commands through the shell, from the registry's
// directory. Builder output goes to out; a nil out discards it.
type ShellRunner struct{}

// Run implements CommandRunner.
func (ShellRunner) Run(ctx context.Context, dir, command string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}
