// Package storage defines the bundle file-system abstraction.
package storage

import "github.com/starford/cardbind/internal/models"

// Provider is the interface for bundle file operations. Paths are relative
// to the bundles root.
type Provider interface {
	// Bundles returns the names of the directories directly under the root.
	Bundles() ([]string, error)
	// List returns metadata for every regular file under dir.
	List(dir string) ([]models.AssetMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
