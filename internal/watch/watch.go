// Package watch observes a drop directory and reports entries once they have
// settled. Large disc images arrive over seconds or minutes; the settle delay
// keeps half-copied files out of the queue.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedonezero/mkvq/internal/logging"
)

// Handler receives the path of a settled drop-directory entry.
type Handler func(path string)

// Watcher wraps an fsnotify watch on one directory with per-path settle
// tracking. Every write to a path resets its settle clock.
type Watcher struct {
	dir     string
	settle  time.Duration
	logger  *slog.Logger
	handler Handler

	mu      sync.Mutex
	pending map[string]time.Time
}

// New builds a watcher for dir. Settle durations below 100ms are raised to
// that floor; a shorter window mistakes a slow copy for a finished one.
func New(dir string, settle time.Duration, logger *slog.Logger, handler Handler) *Watcher {
	if settle < 100*time.Millisecond {
		settle = 100 * time.Millisecond
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		logger:  logging.WithComponent(logger, "watch"),
		handler: handler,
		pending: make(map[string]time.Time),
	}
}

// Run watches until the context is cancelled. Watch errors are logged and
// survived; only a failure to establish the watch is returned.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching drop directory",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle),
	)

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.touch(event.Name)
			}
		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(watchErr))
		case now := <-ticker.C:
			for _, path := range w.takeSettled(now) {
				w.logger.Info("drop entry settled", logging.String("path", path))
				w.handler(path)
			}
		}
	}
}

func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

func (w *Watcher) takeSettled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var settled []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	return settled
}
