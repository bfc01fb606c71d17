package manifest

import (
	"github.com/starford/vimwiki2neorg/internal/models"
	"github.com/starford/vimwiki2neorg/internal/rewrite"
)

// Store is what the conversion pipeline needs from a manifest. Consumers
// depend on this rather than *DB so tests can substitute a fake.
type Store interface {
	RecordConversion(c models.Conversion, links []rewrite.LinkRef) error
	DeleteConversion(source string) error
	GetConversion(source string) (*models.Conversion, error)
	AllChecksums() (map[string]string, error)
	ListConversions() ([]models.Conversion, error)
	Backlinks(target string) ([]string, error)
	BeginRun() (string, error)
	FinishRun(id string, counts RunCounts) error
}

var _ Store = (*DB)(nil)
