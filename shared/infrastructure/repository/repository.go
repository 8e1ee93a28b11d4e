package repository

import (
	"fmt"

	"pgmirror/shared/application/ports"
)

type Repositories struct {
	catalog *CatalogRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db ports.Database, obs ports.Observability) (*Repositories, error) {
	logger, metrics, err := obs.ComponentsScoped("repository")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	return &Repositories{
		catalog: &CatalogRepository{newBaseRepository(db, logger, metrics, "book")},
	}, nil
}

func (r *Repositories) Catalog() ports.Catalog {
	return r.catalog
}
