// Package watch follows an output tree while searches run. It tails each
// run's samples file and heartbeat and emits snapshot events a UI can
// render live, without touching the searches themselves.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"caustic/internal/logging"
)

// Kind labels watcher events.
type Kind string

const (
	// KindRunning reports a live run: heartbeat present, no completion
	// marker.
	KindRunning Kind = "running"
	// KindCompleted reports that a run's completion marker appeared.
	KindCompleted Kind = "completed"
)

// Event is a snapshot of one run directory.
type Event struct {
	Dir               string
	Kind              Kind
	Search            string
	Dataset           string
	Samples           int
	BestLogLikelihood float64
	LastBeat          time.Time
}

// Watcher subscribes to an output root via fsnotify. Directories created
// while watching are added on the fly, so runs started after Start are
// picked up. fsnotify does not recurse; every directory is watched
// individually.
type Watcher struct {
	// Debounce is how long a directory must stay quiet before it is
	// re-read. Set before Start.
	Debounce time.Duration

	root    string
	events  chan Event
	watcher *fsnotify.Watcher
	runs    map[string]*runState
	pending map[string]time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New prepares a watcher over root. Call Events before Start so the
// initial snapshot is not dropped.
func New(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		Debounce: 500 * time.Millisecond,
		root:     root,
		events:   make(chan Event, 64),
		watcher:  fw,
		runs:     make(map[string]*runState),
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Events returns the snapshot stream. The channel closes when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start scans the tree, emits one snapshot per live run found, and begins
// watching. Runs that completed before the scan stay silent; the results
// database is their surface. Non-blocking; Stop tears it down.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	for _, dir := range w.addTree(w.root) {
		w.refresh(dir, true)
	}
	logging.Watch("watching output root: %s", w.root)

	go w.run(ctx)
	return nil
}

// Stop stops watching, waits for the loop to drain, and closes the event
// channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	close(w.events)
	logging.Watch("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchDebug("fsnotify error: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			// A new directory may already contain files; walk it so the
			// whole subtree is watched and read.
			for _, dir := range w.addTree(ev.Name) {
				w.pending[dir] = time.Now()
			}
			return
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.pending[filepath.Dir(ev.Name)] = time.Now()
	}
}

// flush re-reads directories that have been quiet past the debounce
// window.
func (w *Watcher) flush() {
	now := time.Now()
	for dir, ts := range w.pending {
		if now.Sub(ts) >= w.Debounce {
			delete(w.pending, dir)
			w.refresh(dir, false)
		}
	}
}

// addTree watches dir and everything under it, returning the directories
// seen.
func (w *Watcher) addTree(root string) []string {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			logging.WatchDebug("cannot watch %s: %v", path, addErr)
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		logging.WatchDebug("walk %s: %v", root, err)
	}
	return dirs
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		logging.WatchDebug("event dropped: %s", ev.Dir)
	}
}
