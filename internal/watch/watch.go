// Package watch reports batches of changed source files under a directory
// tree.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a directory tree and hands debounced batches of changed
// files to a callback.
type Watcher struct {
	root      string
	fsWatcher *fsnotify.Watcher

	match    func(path string) bool
	skipDirs map[string]bool
	onChange func(paths []string)
	onRemove func(paths []string)
	onError  func(error)

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceDelay sets how long the watcher waits for further events
// before reporting a batch.
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithMatch restricts reported files to those for which fn returns true.
func WithMatch(fn func(path string) bool) Option {
	return func(w *Watcher) {
		w.match = fn
	}
}

// WithSkipDirs names directories that are never watched, in addition to
// hidden ones.
func WithSkipDirs(names ...string) Option {
	return func(w *Watcher) {
		for _, n := range names {
			w.skipDirs[n] = true
		}
	}
}

// WithOnRemove sets the callback for matched files that are gone when their
// batch is flushed, whether removed or renamed away. Without it those files
// are dropped from the batch.
func WithOnRemove(fn func(paths []string)) Option {
	return func(w *Watcher) {
		w.onRemove = fn
	}
}

// WithOnError sets the callback for watcher errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher for every directory under root. onChange receives
// the files of each batch that still exist, sorted; it runs on a timer
// goroutine, one batch at a time.
func New(root string, onChange func(paths []string), opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:          root,
		fsWatcher:     fsWatcher,
		match:         func(string) bool { return true },
		skipDirs:      make(map[string]bool),
		onChange:      onChange,
		debounceDelay: 300 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(root); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("add directories to watch: %w", err)
	}
	return w, nil
}

func (w *Watcher) skip(path string, name string) bool {
	if path == w.root {
		return false
	}
	return strings.HasPrefix(name, ".") || w.skipDirs[name]
}

// addDirs recursively adds every directory under dir.
func (w *Watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skip(path, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher and cancels any pending batch. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skip(event.Name, filepath.Base(event.Name)) {
				if err := w.addDirs(event.Name); err != nil && w.onError != nil {
					w.onError(err)
				}
			}
			return
		}
	}

	if !w.match(event.Name) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush reports the pending batch.
func (w *Watcher) flush() {
	select {
	case <-w.done:
		return
	default:
	}

	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	slices.Sort(files)

	var changed, removed []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			removed = append(removed, f)
			continue
		}
		changed = append(changed, f)
	}
	if len(removed) > 0 && w.onRemove != nil {
		w.onRemove(removed)
	}
	if len(changed) > 0 {
		w.onChange(changed)
	}
}
