package watcher

import (
	"log/slog"
	"os"
)

// Invalidator drops cached data derived from a path.
type Invalidator interface {
	Invalidate(path string)
}

// IndexUpdater keeps a search index in step with file changes.
type IndexUpdater interface {
	IndexFile(absolutePath string) error
	RemoveFile(absolutePath string) error
}

// Apply invalidates cache entries for every changed path and, when updater is not
// nil, re-indexes written files and drops removed ones.
func Apply(changes []Change, invalidator Invalidator, updater IndexUpdater, logger *slog.Logger) {
	for _, change := range changes {
		invalidator.Invalidate(change.Path)
		if updater == nil {
			continue
		}

		switch change.Op {
		case OpRemove, OpRename:
			if err := updater.RemoveFile(change.Path); err != nil {
				logger.Debug("failed to remove from index", "path", change.Path, "error", err)
			}
		case OpCreate, OpWrite:
			info, err := os.Stat(change.Path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if err := updater.IndexFile(change.Path); err != nil {
				logger.Debug("skipped index update", "path", change.Path, "error", err)
				continue
			}
		}
		logger.Debug("applied change", "path", change.Path, "op", change.Op)
	}
}

// Run applies batches from w until it is closed.
func Run(w *Watcher, invalidator Invalidator, updater IndexUpdater, logger *slog.Logger) {
	for changes := range w.Changes() {
		Apply(changes, invalidator, updater, logger)
	}
}
