package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/cardbind/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) add(c Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) has(want Change) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c == want {
			return true
		}
	}
	return false
}

func (r *recorder) count(bundle string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.changes {
		if c.Bundle == bundle {
			n++
		}
	}
	return n
}

// startWatch runs Watch until the test ends and waits for it to return.
func startWatch(t *testing.T, db *DB, root string, store storage.Provider, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, root, 50*time.Millisecond, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewBundleIndexed(t *testing.T) {
	root, store, db := syncEnv(t)
	rec := &recorder{}
	startWatch(t, db, root, store, rec.add)

	_ = os.MkdirAll(filepath.Join(root, "weather"), 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(root, "weather", "card.json"), []byte(`{}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has(Change{Kind: Created, Bundle: "weather"})
	}, "expected created:weather callback")
}

func TestWatcher_BurstIsDebounced(t *testing.T) {
	root, store, db := syncEnv(t)
	_ = store.Write("w/card.json", []byte(`{}`))
	if _, err := Sync(context.Background(), db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatch(t, db, root, store, rec.add)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(root, "w", "card.json"), []byte(fmt.Sprintf(`{"n":%d}`, i)), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has(Change{Kind: Updated, Bundle: "w"})
	}, "expected updated:w callback")
	time.Sleep(200 * time.Millisecond)
	if n := rec.count("w"); n != 1 {
		t.Errorf("callbacks for w = %d, want 1", n)
	}
}

func TestWatcher_DeleteRemovesBundle(t *testing.T) {
	root, store, db := syncEnv(t)
	_ = store.Write("gone/card.json", []byte(`{}`))
	if _, err := Sync(context.Background(), db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	startWatch(t, db, root, store, nil)

	_ = os.RemoveAll(filepath.Join(root, "gone"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		list, _ := db.ListBundles()
		return len(list) == 0
	}, "deleted bundle still in index")
}
