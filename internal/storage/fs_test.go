package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"template":{"type":"text"}}`)
	if err := s.Write("weather/card.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("weather/card.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("b/card.json", []byte("{}"))
	if err := s.Delete("b/card.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("b/card.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList_SkipsHidden(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("w/card.json", []byte("{}"))
	_ = s.Write("w/i18n/en-US.json", []byte("{}"))
	_ = s.Write("w/.cache/x.json", []byte("{}"))
	_ = s.Write("w/.DS_Store", []byte("x"))

	items, err := s.List("w")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	if diff := cmp.Diff([]string{"w/card.json", "w/i18n/en-US.json"}, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if items[0].Checksum == "" {
		t.Error("checksum not set")
	}
}

func TestBundles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("clock/card.json", []byte("{}"))
	_ = s.Write("weather/card.json", []byte("{}"))
	_ = s.Write(".trash/card.json", []byte("{}"))
	_ = s.Write("loose.json", []byte("{}"))

	got, err := s.Bundles()
	if err != nil {
		t.Fatalf("Bundles: %v", err)
	}
	if diff := cmp.Diff([]string{"clock", "weather"}, got); diff != "" {
		t.Errorf("bundles mismatch (-want +got):\n%s", diff)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.json", []byte("original"))
	if err := s.Write("atomic.json", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, tempPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "cardbind-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestBundleAssets(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("w/card.json", []byte("{}"))
	_ = s.Write("w/i18n/en-US.json", []byte(`{"a":"b"}`))
	_ = s.Write("w/i18n/zh-CN.json", []byte(`{}`))
	_ = s.Write("other/i18n/fr.json", []byte(`{}`))

	a, err := NewBundleAssets(s, "w")
	if err != nil {
		t.Fatalf("NewBundleAssets: %v", err)
	}
	if diff := cmp.Diff([]string{"i18n/en-US.json", "i18n/zh-CN.json"}, a.AssetList("i18n/")); diff != "" {
		t.Errorf("asset list mismatch (-want +got):\n%s", diff)
	}
	got, ok := a.AssetContent("i18n/en-US.json")
	if !ok || got != `{"a":"b"}` {
		t.Errorf("content = %q (%v)", got, ok)
	}
	if _, ok := a.AssetContent("missing.json"); ok {
		t.Error("missing asset reported present")
	}
}
