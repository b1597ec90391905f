package rates

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a rates file for changes and reloads the table.
// It debounces filesystem events to prevent reload storms when editors
// write a file in multiple operations.
type Watcher struct {
	table    *Table
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *debouncer

	// State
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// WatcherConfig contains configuration for the rates file watcher.
type WatcherConfig struct {
	// Path is the rates file to watch.
	Path string

	// DebounceInterval is the time to wait before reloading after a
	// change is detected (default: 100ms).
	DebounceInterval time.Duration
}

// NewWatcher creates a new rates file watcher.
func NewWatcher(table *Table, cfg WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("rates file path cannot be empty")
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default().With("component", "rates.watcher")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		table:    table,
		path:     cfg.Path,
		watcher:  fsw,
		logger:   logger,
		debounce: newDebouncer(cfg.DebounceInterval),
		stopCh:   make(chan struct{}),
	}, nil
}

// Watch starts watching the rates file and reloads the table on change.
// Blocks until the context is cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	// Watch the containing directory: editors replace files on save, which
	// would otherwise drop the watch on the inode.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("rates file watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rates file watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("rates file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.debounce.trigger(func() {
				if err := w.table.LoadFile(w.path); err != nil {
					w.logger.Error("rates reload failed",
						"path", w.path,
						"error", err,
					)
					return
				}
				w.logger.Info("rates reloaded", "path", w.path)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("rates watcher error", "error", err)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		close(w.stopCh)
	}
	return w.watcher.Close()
}

// debouncer delays a callback until events stop arriving for an interval.
type debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

// trigger schedules the callback after the debounce interval, replacing any
// pending callback.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}
