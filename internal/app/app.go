// Package app wires the loader, resolver and executor into one engine
// invocation and owns the build/dry-run/clean/rebuild mode selection.
package app

import (
	"io"
	"log/slog"

	"github.com/remake-build/remake/internal/builder"
	"github.com/remake-build/remake/internal/console"
	"github.com/remake-build/remake/internal/executor"
)

// App encapsulates the engine's dependencies and configuration.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	handlers *builder.Table
	runner   executor.CommandRunner
	reporter console.Reporter

	// watchDirs is refreshed each watch round from the resolved DAG.
	watchDirs []string
}

// New constructs an App with its own isolated logger and handler table.
// The given modules contribute callable builders; with none, the core
// modules are registered.
func New(outW io.Writer, cfg *Config, modules ...builder.Module) *App {
	table := builder.NewTable()
	if len(modules) == 0 {
		modules = coreModules()
	}
	for _, m := range modules {
		m.Register(table)
	}
	return &App{
		outW:     outW,
		logger:   newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		cfg:      cfg,
		handlers: table,
		runner:   executor.ShellRunner{},
		reporter: console.New(outW, cfg.Verbose),
	}
}

// SetRunner replaces the command runner. Tests inject a recording runner
// here.
func (a *App) SetRunner(r executor.CommandRunner) { a.runner = r }

// SetReporter replaces the progress reporter.
func (a *App) SetReporter(r console.Reporter) { a.reporter = r }

// Logger returns the app's logger, primarily for tests.
func (a *App) Logger() *slog.Logger { return a.logger }
