// Package testutil provides shared test helpers for bundle roots and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/cardbind/internal/index"
	"github.com/starford/cardbind/internal/storage"
)

// TestDB creates a temporary SQLite database that is closed at cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "cardbind-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBundles creates a temporary bundles root with a storage.Provider.
func TestBundles(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteBundle writes files (bundle-relative path to content) into bundle
// and syncs the index.
func WriteBundle(t *testing.T, store storage.Provider, db *index.DB, bundle string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := store.Write(filepath.ToSlash(filepath.Join(bundle, name)), []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := index.Sync(context.Background(), db, store, QuietLogger()); err != nil {
		t.Fatal(err)
	}
}

// QuietLogger discards all output.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
