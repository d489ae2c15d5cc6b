package awards

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/logbook/internal/domain/model"
)

//go:embed catalog/awards.yaml
var defaultCatalog []byte

type catalogFile struct {
	Awards []model.AwardDefinition `yaml:"awards"`
}

// CatalogStore is what seeding needs from persistence.
type CatalogStore interface {
	CountAwards(ctx context.Context) (int, error)
	SeedAwards(ctx context.Context, defs []model.AwardDefinition) (int, error)
}

// DecodeCatalog reads a YAML catalog and validates each entry.
func DecodeCatalog(r io.Reader) ([]model.AwardDefinition, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	for i, d := range f.Awards {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidCatalog, i)
		}
		if d.Type != model.AwardCamping && d.Type != model.AwardWalkabout {
			return nil, fmt.Errorf("%w: %q has unknown type %q", ErrInvalidCatalog, d.Name, d.Type)
		}
		if d.Value <= 0 {
			return nil, fmt.Errorf("%w: %q needs a positive value", ErrInvalidCatalog, d.Name)
		}
	}
	return f.Awards, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() ([]model.AwardDefinition, error) {
	return DecodeCatalog(bytes.NewReader(defaultCatalog))
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) ([]model.AwardDefinition, error) {
	if path == "" {
		return DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	defer f.Close()
	return DecodeCatalog(f)
}

// Seed writes defs when the catalog table is empty and returns how many were written.
func Seed(ctx context.Context, store CatalogStore, defs []model.AwardDefinition) (int, error) {
	n, err := store.CountAwards(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count awards: %w", ErrPersistence, err)
	}
	if n > 0 {
		return 0, nil
	}
	written, err := store.SeedAwards(ctx, defs)
	if err != nil {
		return written, fmt.Errorf("%w: seed awards: %w", ErrPersistence, err)
	}
	return written, nil
}
