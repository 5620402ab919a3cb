package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/claudeteam/logging"
)

const debounceDelay = 500 * time.Millisecond

// Watcher watches the configuration file for changes and reloads it,
// invoking the onChange callback with each valid new configuration.
// Invalid edits are logged and skipped; the previous configuration stays
// in effect.
type Watcher struct {
	path     string
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	current *Config
}

// NewWatcher creates a watcher for the given config file
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		path:     os.ExpandEnv(path),
		onChange: onChange,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start loads the initial configuration and begins watching
func (w *Watcher) Start() error {
	cfg, err := NewLoader(w.path).Load()
	if err != nil {
		return fmt.Errorf("failed to load initial configuration: %w", err)
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	// Watch the directory so atomic rename-style saves are still seen
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}

	go w.processEvents()
	return nil
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	return w.watcher.Close()
}

// Current returns the most recently loaded configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) processEvents() {
	var timer *time.Timer
	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Editors fire bursts of events per save; debounce them
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.LogWarnf("Config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := NewLoader(w.path).Load()
	if err != nil {
		logging.LogWarnf("Ignoring invalid config change: %v", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	logging.LogInfof("Configuration reloaded from %s", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
