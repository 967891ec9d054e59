// Package core holds the blob storage contract shared by the backends under
// internal/infra/blob.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a blob backend.
type Driver string

const (
	// DriverFilesystem stores artifacts below a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores artifacts in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory (tests).
	DriverMemory Driver = "memory"
)

var (
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("blob: key already exists")
	// ErrNotFound is returned by Get and Head for unknown keys.
	ErrNotFound = errors.New("blob: key not found")
	// ErrInvalidKey rejects empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// PutOptions carries optional attributes for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a minimal S3-shaped artifact store. Put is create-only; callers
// that replace an artifact delete it first.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// CloneMetadata copies user metadata so stores never share maps with callers.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
