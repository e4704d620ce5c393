// Package watch re-runs the build pipeline when watched source
// directories change.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce batches the event bursts editors and build actions produce
// into a single rebuild.
const debounce = 200 * time.Millisecond

// Watcher drives the rebuild-on-change loop.
type Watcher struct {
	logger *slog.Logger
}

// New creates a watcher logging through the given logger.
func New(logger *slog.Logger) *Watcher {
	return &Watcher{logger: logger}
}

// Loop watches the directories returned by dirs and invokes round after
// each settled burst of filesystem events. The dir set is refreshed
// after every round, since a build may create new directories worth
// watching. Loop returns when ctx is cancelled.
func (w *Watcher) Loop(ctx context.Context, dirs func() []string, round func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watchAll := func() {
		for _, d := range dirs() {
			if err := fsw.Add(d); err != nil {
				w.logger.Warn("cannot watch directory", "dir", d, "error", err)
			}
		}
	}
	watchAll()
	w.logger.Info("watching for changes")

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			w.logger.Info("change detected, rebuilding")
			if err := round(ctx); err != nil {
				w.logger.Error("build failed", "error", err)
			}
			watchAll()
		}
	}
}
