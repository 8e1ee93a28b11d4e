package database

import (
	"context"
	"fmt"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// CreateDatabase returns the adapter selected by ADAPTER_DATABASE
func CreateDatabase(ctx context.Context, cfg *config.Config, obs ports.Observability) (ports.Database, error) {
	switch cfg.Adapters.Database {
	case "postgres":
		db, err := NewPostgresAdapter(ctx, &cfg.Database, obs)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database adapter: %s", cfg.Adapters.Database)
	}
}
