package index

import "github.com/starford/cardbind/internal/models"

// BundleIndex defines the catalogue operations consumers depend on.
type BundleIndex interface {
	UpsertBundle(b models.Bundle) error
	DeleteBundle(name string) error
	GetBundle(name string) (*models.Bundle, error)
	ListBundles() ([]models.Bundle, error)
	AllChecksums() (map[string]string, error)

	SaveSession(s models.Session) error
	DeleteSession(id string) error
	GetSession(id string) (*models.Session, error)
	ListSessions(bundle string) ([]models.Session, error)

	Close() error
}

var _ BundleIndex = (*DB)(nil)
