package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plasmap/internal/infra/persistence/memory"
	"plasmap/internal/infra/persistence/postgres"
	"plasmap/internal/infra/persistence/sqlite"
	"plasmap/pkg/domain"
)

// ErrUnsupported reports an unknown backend name.
var ErrUnsupported = errors.New("unsupported backend")

// StorageDriver names a plasmid store backend.
type StorageDriver string

// Supported storage drivers.
const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

// StorageConfig selects and configures the plasmid store.
type StorageConfig struct {
	Driver      StorageDriver `mapstructure:"driver"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
}

// OpenStore opens the configured backend. An empty driver means sqlite.
func OpenStore(ctx context.Context, cfg StorageConfig) (domain.PlasmidStore, error) {
	switch StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.Driver)))) {
	case StorageSQLite, "":
		st, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case StorageMemory:
		return memory.NewStore(), nil
	case StoragePostgres:
		st, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: storage driver %q", ErrUnsupported, cfg.Driver)
	}
}
