package blob

import (
	"context"
	"fmt"

	"plasmap/internal/infra/blob/fs"
	memorystore "plasmap/internal/infra/blob/memory"
	infraS3 "plasmap/internal/infra/blob/s3"
)

// S3Config configures the S3 backend.
type S3Config = infraS3.Config

// Config selects and configures a backend. An empty Driver means fs.
type Config struct {
	Driver Driver   `mapstructure:"driver"`
	FSRoot string   `mapstructure:"fs_root"`
	S3     S3Config `mapstructure:"s3"`
}

// Open builds the Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests returns an S3 Store wired to an in-process fake endpoint.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
