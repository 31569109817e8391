package config

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Config from config.yaml whenever the file changes on
// disk. Grounded on the teacher's internal/notify/watcher.go: watch a
// directory, dispatch a callback on relevant create/write events, leave
// stderr-only logging to the caller's logger.
type Watcher struct {
	projectRoot string
	watcher     *fsnotify.Watcher
	done        chan struct{}

	mu  sync.RWMutex
	cur *Config
}

// NewWatcher loads the initial config and prepares (but does not start) a
// filesystem watch on its containing directory.
func NewWatcher(projectRoot string) (*Watcher, error) {
	cfg, err := Load(projectRoot)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		projectRoot: projectRoot,
		cur:         cfg,
		done:        make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded Config. Safe for concurrent use.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Start begins watching config.yaml's directory for changes. Only a
// successfully re-parsed config replaces the current one — a write that
// leaves the file mid-edit or malformed is logged and ignored.
func (w *Watcher) Start() error {
	if err := EnsureLayout(w.projectRoot); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(StoreDir(w.projectRoot)); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	go w.loop()
	return nil
}

// Stop shuts the watcher down and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(evt.Name) != "config.yaml" {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.projectRoot)
			if err != nil {
				log.Printf("config: reload failed, keeping previous config: %v", err)
				continue
			}
			w.mu.Lock()
			w.cur = cfg
			w.mu.Unlock()
			log.Printf("config: reloaded from %s", evt.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)
		}
	}
}
