package config

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a config file for changes and calls a callback with every
// new valid configuration. It listens for fsnotify events on the file's
// directory (so editors that replace the file by rename are caught) and
// polls the file as a fallback when fsnotify is unavailable or its channels
// close.
type Watcher struct {
	path     string
	interval time.Duration
	debounce time.Duration
	onChange func(old, new *Config)
	noNotify bool

	mu       sync.Mutex
	current  *Config
	lastHash [sha256.Size]byte

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDebounce sets how long the watcher waits after a file event before
// reloading, so that a burst of writes yields one reload. Default: 100ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithPollingOnly disables fsnotify.
func WithPollingOnly() WatcherOption {
	return func(w *Watcher) { w.noNotify = true }
}

// NewWatcher creates a config file watcher. It loads the initial config
// immediately and starts watching in a background goroutine.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     filepath.Clean(path),
		interval: 5 * time.Second,
		debounce: 100 * time.Millisecond,
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash

	go w.run()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
}

func (w *Watcher) run() {
	defer close(w.stopped)

	if w.noNotify {
		w.poll()
		return
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config watcher: fsnotify not available, falling back to polling", "err", err)
		w.poll()
		return
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		slog.Warn("config watcher: cannot watch directory, falling back to polling",
			"dir", filepath.Dir(w.path), "err", err)
		w.poll()
		return
	}
	slog.Debug("config watcher started", "path", w.path, "mode", "fsnotify")

	// The ticker still runs so that missed events (network filesystems)
	// are eventually picked up.
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-fw.Events:
			if !ok {
				slog.Warn("config watcher: fsnotify closed, switching to polling")
				w.poll()
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			w.check()

		case <-ticker.C:
			w.check()

		case err, ok := <-fw.Errors:
			if !ok {
				slog.Warn("config watcher: fsnotify error channel closed, switching to polling")
				w.poll()
				return
			}
			slog.Warn("config watcher: fsnotify error", "err", err)
		}
	}
}

// poll checks the config file on every tick until Stop.
func (w *Watcher) poll() {
	slog.Debug("config watcher started", "path", w.path, "mode", "polling", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the config file and, if its content changed and is valid,
// swaps it in and calls onChange.
func (w *Watcher) check() {
	cfg, hash, err := w.loadAndHash()
	if err != nil {
		slog.Warn("config watcher: keeping previous configuration", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Outside the lock so the callback can call Current.
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

var errEmptyFile = errors.New("config file is empty")

// loadAndHash reads, parses and validates the config file and returns it
// alongside the file's SHA-256 hash.
func (w *Watcher) loadAndHash() (*Config, [sha256.Size]byte, error) {
	var zeroHash [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zeroHash, err
	}
	// A truncated file is usually a write in progress.
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, zeroHash, errEmptyFile
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zeroHash, err
	}
	return cfg, sha256.Sum256(data), nil
}
