package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
	"pgmirror/shared/infrastructure/storage/adapters/fs"
	"pgmirror/shared/infrastructure/storage/adapters/s3"
)

// CreateStorage returns the adapter selected by ADAPTER_STORAGE.
func CreateStorage(ctx context.Context, cfg *config.Config, obs ports.Observability) (ports.Storage, error) {
	logger, metrics, err := obs.ComponentsScoped("storage")
	if err != nil {
		return nil, err
	}

	switch cfg.Adapters.Storage {
	case "s3":
		return s3.New(ctx, &cfg.Storage, logger, metrics)
	case "filesystem":
		s, err := fs.NewStorage(afero.NewOsFs(), cfg.Storage.BucketOrPath, logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}
