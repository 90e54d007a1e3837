package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/cardfile"
	"github.com/starford/cardbind/internal/checksum"
	"github.com/starford/cardbind/internal/models"
	"github.com/starford/cardbind/internal/storage"
)

// Change kinds reported by Sync, SyncBundle and Watch.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Change is one bundle whose index row changed.
type Change struct {
	Kind   string `json:"kind"`
	Bundle string `json:"bundle"`
}

const scanWorkers = 4

// Sync scans every bundle under the root and brings the index up to date:
//   - new or changed bundles are upserted
//   - bundles removed from disk, or left without a card file, are deleted
//
// Bundles are scanned in parallel. A bundle that cannot be scanned is
// logged and left as indexed.
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) ([]Change, error) {
	names, err := store.Bundles()
	if err != nil {
		return nil, err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		scanned = make(map[string]*models.Bundle, len(names))
		failed  = make(map[string]bool)
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := scanBundle(store, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("sync: scan failed", slog.String("bundle", name), slog.String("error", err.Error()))
				failed[name] = true
				return nil
			}
			scanned[name] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("index: sync: %w", err)
	}

	var changes []Change
	for _, name := range names {
		b := scanned[name]
		if b == nil {
			continue
		}
		prev, ok := known[name]
		if ok && prev == b.Checksum {
			continue
		}
		if err := db.UpsertBundle(*b); err != nil {
			logger.Warn("sync: upsert failed", slog.String("bundle", name), slog.String("error", err.Error()))
			continue
		}
		kind := Updated
		if !ok {
			kind = Created
		}
		logger.Debug("sync: indexed", slog.String("bundle", name), slog.String("op", kind))
		changes = append(changes, Change{Kind: kind, Bundle: name})
	}

	for name := range known {
		if scanned[name] != nil || failed[name] {
			continue
		}
		if err := db.DeleteBundle(name); err != nil {
			logger.Warn("sync: delete failed", slog.String("bundle", name), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("bundle", name))
		changes = append(changes, Change{Kind: Deleted, Bundle: name})
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Bundle < changes[j].Bundle })
	return changes, nil
}

// SyncBundle re-indexes one bundle. ok is false when nothing changed.
func SyncBundle(db *DB, store storage.Provider, name string) (Change, bool, error) {
	prev, err := db.GetBundle(name)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return Change{}, false, err
	}

	b, err := scanBundle(store, name)
	if err != nil {
		return Change{}, false, err
	}
	if b == nil {
		if prev == nil {
			return Change{}, false, nil
		}
		if err := db.DeleteBundle(name); err != nil {
			return Change{}, false, err
		}
		return Change{Kind: Deleted, Bundle: name}, true, nil
	}
	if prev != nil && prev.Checksum == b.Checksum {
		return Change{}, false, nil
	}
	if err := db.UpsertBundle(*b); err != nil {
		return Change{}, false, err
	}
	kind := Updated
	if prev == nil {
		kind = Created
	}
	return Change{Kind: kind, Bundle: name}, true, nil
}

// scanBundle lists a bundle directory. It returns nil when the directory is
// gone or holds no card file.
func scanBundle(store storage.Provider, name string) (*models.Bundle, error) {
	files, err := store.List(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prefix := name + "/"
	sums := make(map[string]string, len(files))
	paths := make([]string, 0, len(files))
	var latest time.Time
	for _, f := range files {
		rel := strings.TrimPrefix(f.Path, prefix)
		sums[rel] = f.Checksum
		paths = append(paths, rel)
		if f.UpdatedAt.After(latest) {
			latest = f.UpdatedAt
		}
	}
	card, ok := cardfile.Find(paths)
	if !ok {
		return nil, nil
	}
	return &models.Bundle{
		Name:      name,
		CardFile:  card,
		Checksum:  checksum.Combine(sums),
		FileCount: len(files),
		UpdatedAt: latest.UTC(),
	}, nil
}
