// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/remake-build/remake/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating the program should exit cleanly (help), or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("remake", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `remake - a declarative incremental build tool.

Usage:
  remake [options] [TARGET...]

Arguments:
  TARGET
    A file path or virtual target name. Without targets, the build
    file's own requested targets are built.

Options:
`)
		flagSet.PrintDefaults()
	}

	cfg := &app.Config{Dir: "."}
	flagSet.BoolVar(&cfg.Verbose, "v", false, "Verbose event emission.")
	flagSet.BoolVar(&cfg.Verbose, "verbose", false, "Verbose event emission (long form).")
	flagSet.BoolVar(&cfg.DryRun, "n", false, "Announce actions without executing them.")
	flagSet.BoolVar(&cfg.DryRun, "dry-run", false, "Announce actions without executing them (long form).")
	flagSet.BoolVar(&cfg.Clean, "c", false, "Clean specified targets.")
	flagSet.BoolVar(&cfg.Clean, "clean", false, "Clean specified targets (long form).")
	flagSet.BoolVar(&cfg.Rebuild, "r", false, "Perform a full rebuild (clean and build).")
	flagSet.BoolVar(&cfg.Rebuild, "rebuild", false, "Perform a full rebuild (long form).")
	flagSet.StringVar(&cfg.ConfigFile, "f", "", "Build file name (default ReMakeFile.hcl).")
	flagSet.StringVar(&cfg.ConfigFile, "config-file", "", "Build file name (long form).")
	flagSet.StringVar(&cfg.Dir, "C", ".", "Directory to build in.")
	flagSet.BoolVar(&cfg.Watch, "watch", false, "Rebuild whenever a watched source changes.")
	flagSet.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format: 'text' or 'json'.")
	flagSet.StringVar(&cfg.LogLevel, "log-level", "warn", "Log level: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if cfg.Clean && cfg.Rebuild {
		return nil, false, &ExitError{Code: 2, Message: "-c and -r are mutually exclusive"}
	}
	if cfg.DryRun {
		// Dry runs exist to show what would happen; quiet ones are useless.
		cfg.Verbose = true
	}
	cfg.Targets = flagSet.Args()
	return cfg, false, nil
}
