// Package watcher turns file system notifications under the root into debounced
// batches and applies them to the caches and the search index.
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lexandro/contextor-mcp/ignore"
)

// DefaultInterval is the debounce quiet period.
const DefaultInterval = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Root     string
	Rules    *ignore.RuleSet
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher watches every non-ignored directory under the root, including ones
// created later.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	rules     *ignore.RuleSet
	root      string
	logger    *slog.Logger
}

// New registers the root and its non-ignored subdirectories.
func New(options Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(options.Interval),
		rules:     options.Rules,
		root:      options.Root,
		logger:    options.Logger,
	}

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && w.rules.ShouldIgnoreEntry(d.Name(), true, false) {
			return filepath.SkipDir
		}
		w.watch(path)
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Changes returns the channel of debounced batches. It is closed by Close.
func (w *Watcher) Changes() <-chan []Change {
	return w.debouncer.Output()
}

// Start forwards notifications to the debouncer until the watcher is closed.
// Call it in a goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	name := filepath.Base(path)

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	// Removed paths can no longer be classified, so only the name rules apply.
	isDir, isFile := false, false
	if info, err := os.Stat(path); err == nil {
		isDir, isFile = info.IsDir(), info.Mode().IsRegular()
	}
	if w.rules.ShouldIgnoreEntry(name, isDir, isFile) {
		return
	}

	if op == OpCreate && isDir {
		w.watch(path)
	}
	w.debouncer.Add(path, op)
}

func (w *Watcher) watch(path string) {
	if err := w.fsWatcher.Add(path); err != nil {
		w.logger.Warn("failed to watch directory", "path", path, "error", err)
	}
}

// Close stops watching and closes the Changes channel.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.debouncer.Stop()
	return err
}
