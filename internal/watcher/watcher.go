// Package watcher reloads an index artifact when the file changes on disk,
// with fsnotify, debouncing and content hashing.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one artifact file and invokes a callback with its bytes
// whenever the content changes.
type Watcher struct {
	path     string
	onChange func(data []byte) error
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	digest   uint64
	hashed   bool
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for reload and event output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long the file must stay quiet before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for the artifact at path. onChange receives the
// full file content; it is not called again until the content differs.
func NewWatcher(path string, onChange func(data []byte) error, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the watched artifact path.
func (w *Watcher) Path() string { return w.path }

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
// The parent directory is watched so that atomic replacements are seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting", zap.String("path", w.path), zap.Duration("debounce", w.debounce))
	w.mu.Unlock()
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.debounceReload()
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce()
		w.logger.Warn("Index artifact removed, keeping the loaded index", zap.String("path", w.path))
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		if _, err := w.Sync(); err != nil {
			w.logger.Error("Index reload failed", zap.String("path", w.path), zap.Error(err))
		}
	})
}

func (w *Watcher) cancelDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Sync reads the artifact and hands it to the callback when its content
// changed since the last successful call. It reports whether the callback ran.
// A missing file is not an error.
func (w *Watcher) Sync() (bool, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.logger.Debug("watcher artifact missing", zap.String("path", w.path))
			return false, nil
		}
		return false, err
	}
	sum := xxhash.Sum64(data)

	w.mu.Lock()
	unchanged := w.hashed && sum == w.digest
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("watcher artifact unchanged", zap.String("path", w.path))
		return false, nil
	}
	if w.onChange == nil {
		return false, nil
	}
	if err := w.onChange(data); err != nil {
		return true, err
	}

	w.mu.Lock()
	w.digest, w.hashed = sum, true
	w.mu.Unlock()
	w.logger.Info("Index artifact loaded", zap.String("path", w.path), zap.Int("bytes", len(data)))
	return true, nil
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
