package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/logging"
)

const defaultDebounce = 100 * time.Millisecond

// CrosswalkWatcher reloads a crosswalk file when it changes and hands the
// new table to onLoad. A file that fails to parse is reported and the
// previous table stays active.
type CrosswalkWatcher struct {
	path     string
	debounce time.Duration
	onLoad   func(engine.Crosswalk, string)
	onReload func(error)
	log      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// WatcherOption customises a CrosswalkWatcher
type WatcherOption func(*CrosswalkWatcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *CrosswalkWatcher) { w.debounce = d }
}

// WithReloadHook is called after every reload attempt with its result
func WithReloadHook(fn func(error)) WatcherOption {
	return func(w *CrosswalkWatcher) { w.onReload = fn }
}

func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *CrosswalkWatcher) { w.log = l }
}

func NewCrosswalkWatcher(path string, onLoad func(engine.Crosswalk, string), opts ...WatcherOption) *CrosswalkWatcher {
	w := &CrosswalkWatcher{
		path:     path,
		debounce: defaultDebounce,
		onLoad:   onLoad,
		onReload: func(error) {},
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("component", "crosswalk-watcher", "path", path)
	return w
}

// Source is the label reported for tables loaded from this file
func (w *CrosswalkWatcher) Source() string {
	return "file:" + w.path
}

// Load reads the file once and publishes it
func (w *CrosswalkWatcher) Load() error {
	cw, err := engine.LoadCrosswalkFile(w.path)
	w.onReload(err)
	if err != nil {
		return fmt.Errorf("load crosswalk %s: %w", w.path, err)
	}
	w.onLoad(cw, w.Source())
	w.log.Info("crosswalk loaded", "categories", len(cw), "frameworks", len(cw.Frameworks()))
	return nil
}

// Watch blocks until ctx is cancelled. The parent directory is watched so
// editors that replace the file by rename are picked up.
func (w *CrosswalkWatcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			w.log.Debug("crosswalk file event", "op", event.Op.String())
			w.schedule()

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error("file watcher error", "error", err)
		}
	}
}

func (w *CrosswalkWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.Load(); err != nil {
			w.log.Error("crosswalk reload failed, keeping previous table", "error", err)
		}
	})
}

func (w *CrosswalkWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
