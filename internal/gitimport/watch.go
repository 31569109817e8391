package gitimport

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers an incremental Import shortly after a commit or merge
// changes .git/HEAD or .git/refs (SPEC_FULL.md §12 supplemental feature #2: "a
// fsnotify watch on .git/refs/heads and .git/HEAD lets the importer
// enqueue newly-reachable commits shortly after a git commit/merge").
// Grounded on internal/config/watch.go's fsnotify loop, adapted from
// watching config.yaml to watching the .git control files.
type Watcher struct {
	importer *Importer
	repoDir  string
	watcher  *fsnotify.Watcher
	done     chan struct{}

	mu      sync.Mutex
	lastSHA string
}

// NewWatcher builds a Watcher that starts incremental imports from
// lastSHA (the importer's persisted cursor; empty means "from the
// beginning" on the first triggered import).
func NewWatcher(importer *Importer, repoDir, lastSHA string) *Watcher {
	return &Watcher{
		importer: importer,
		repoDir:  repoDir,
		lastSHA:  lastSHA,
		done:     make(chan struct{}),
	}
}

// Start begins watching .git/HEAD and .git/refs for changes. Each
// relevant event debounces briefly, then runs an incremental Import.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	gitDir := filepath.Join(w.repoDir, ".git")
	if err := fw.Add(gitDir); err != nil {
		_ = fw.Close()
		return err
	}
	refsHeads := filepath.Join(gitDir, "refs", "heads")
	_ = fw.Add(refsHeads) // best-effort: some repos keep refs packed only

	w.watcher = fw
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	var debounce *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("gitimport: watcher error: %v", err)
		case <-trigger:
			w.runIncremental(ctx)
		}
	}
}

func (w *Watcher) runIncremental(ctx context.Context) {
	w.mu.Lock()
	since := w.lastSHA
	w.mu.Unlock()

	res, err := w.importer.Import(ctx, since)
	if err != nil {
		log.Printf("gitimport: incremental import failed: %v", err)
		return
	}
	if res.LastSHA == "" {
		return
	}
	w.mu.Lock()
	w.lastSHA = res.LastSHA
	w.mu.Unlock()
	if res.Accepted > 0 {
		log.Printf("gitimport: imported %d new commit(s), cursor now %s", res.Accepted, res.LastSHA)
	}
}
