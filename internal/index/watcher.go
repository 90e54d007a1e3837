package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/cardbind/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(c Change)

// DefaultDebounce is how long a bundle must stay quiet before it is
// re-indexed.
const DefaultDebounce = 150 * time.Millisecond

// Watch starts an fsnotify watcher on the bundles root and processes file
// change events until ctx is cancelled.
//
// Events are grouped by bundle, the first path element under root. Each
// bundle is re-indexed once it has been quiet for debounce, and cb (if
// non-nil) is called for every resulting change. Directories created at
// runtime are added to the watch list.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]time.Time)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	schedule := func(bundle string) {
		if len(pending) == 0 {
			timer.Reset(debounce)
		}
		pending[bundle] = time.Now().Add(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case now := <-timer.C:
			next := time.Duration(0)
			for bundle, due := range pending {
				if wait := due.Sub(now); wait > 0 {
					if next == 0 || wait < next {
						next = wait
					}
					continue
				}
				delete(pending, bundle)
				reindex(db, store, bundle, logger, cb)
			}
			if len(pending) > 0 {
				if next <= 0 {
					next = time.Millisecond
				}
				timer.Reset(next)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, ev.Name)
			if err != nil || rel == "." {
				continue
			}
			rel = filepath.ToSlash(rel)
			bundle, _, _ := strings.Cut(rel, "/")
			if strings.HasPrefix(bundle, ".") || strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(bundle)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reindex(db *DB, store storage.Provider, bundle string, logger *slog.Logger, cb EventCallback) {
	c, changed, err := SyncBundle(db, store, bundle)
	if err != nil {
		logger.Warn("watcher: reindex failed", slog.String("bundle", bundle), slog.String("error", err.Error()))
		return
	}
	if !changed {
		return
	}
	logger.Debug("watcher: reindexed", slog.String("bundle", bundle), slog.String("op", c.Kind))
	if cb != nil {
		cb(c)
	}
}

// addDirsRecursive adds root and all its visible subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
