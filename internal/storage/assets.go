package storage

import (
	"fmt"
	"path"
	"strings"
)

// BundleAssets exposes the files of one bundle with bundle-relative paths.
// The file listing is taken once, when the value is built.
type BundleAssets struct {
	provider Provider
	bundle   string
	paths    []string
}

// NewBundleAssets snapshots the file list of bundle.
func NewBundleAssets(p Provider, bundle string) (*BundleAssets, error) {
	files, err := p.List(bundle)
	if err != nil {
		return nil, fmt.Errorf("storage: bundle assets %s: %w", bundle, err)
	}
	prefix := bundle + "/"
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, strings.TrimPrefix(f.Path, prefix))
	}
	return &BundleAssets{provider: p, bundle: bundle, paths: paths}, nil
}

// AssetList returns the bundle files whose path starts with prefix.
func (b *BundleAssets) AssetList(prefix string) []string {
	var out []string
	for _, p := range b.paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// AssetContent reads one bundle file as text.
func (b *BundleAssets) AssetContent(name string) (string, bool) {
	data, err := b.provider.Read(path.Join(b.bundle, name))
	if err != nil {
		return "", false
	}
	return string(data), true
}
