// Package blob is the entry point for artifact storage. It re-exports the
// core contract and selects a backend from configuration.
package blob

import "plasmap/internal/blob/core"

type (
	// Driver names a blob backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// Info describes a stored artifact.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrExists     = core.ErrExists
	ErrNotFound   = core.ErrNotFound
	ErrInvalidKey = core.ErrInvalidKey
)
