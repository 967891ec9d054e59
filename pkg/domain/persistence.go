package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateKey reports a create that collided with an existing (name, namespace).
var ErrDuplicateKey = errors.New("plasmid already exists")

// ErrNotFound reports a lookup for a key that is not stored.
var ErrNotFound = errors.New("plasmid not found")

// DuplicateKeyError carries the key that violated the uniqueness constraint.
type DuplicateKeyError struct {
	Key Key
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateKey, e.Key)
}

// Unwrap lets errors.Is match ErrDuplicateKey.
func (e DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// PlasmidStore is the persistence contract shared by the memory, sqlite and
// postgres backends.
type PlasmidStore interface {
	// FindPlasmid returns the plasmid stored under key.
	FindPlasmid(ctx context.Context, key Key) (Plasmid, bool, error)
	// CreatePlasmid inserts p and fails with ErrDuplicateKey when the key exists.
	CreatePlasmid(ctx context.Context, p Plasmid) (Plasmid, error)
	// InsertPlasmidIfAbsent atomically inserts p unless its key exists. It
	// returns the stored plasmid and whether this call created it.
	InsertPlasmidIfAbsent(ctx context.Context, p Plasmid) (Plasmid, bool, error)
	// ListPlasmids returns plasmids ordered by namespace then name. An empty
	// namespace lists everything.
	ListPlasmids(ctx context.Context, namespace string) ([]Plasmid, error)
	// DeletePlasmids removes plasmids in namespace (all when empty) and
	// returns how many were removed.
	DeletePlasmids(ctx context.Context, namespace string) (int, error)
	Close() error
}
