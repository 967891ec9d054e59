// Package core materializes GenBank files as stored plasmids and carries the
// service-level observability hooks (logging, metrics, tracing).
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plasmap/internal/genbank"
	"plasmap/internal/infra/persistence/memory"
	"plasmap/pkg/domain"
)

// Service exposes plasmid operations over a domain.PlasmidStore.
type Service struct {
	store domain.PlasmidStore
	opts  serviceOptions
}

// NewService constructs a service backed by store.
func NewService(store domain.PlasmidStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{store: store, opts: o}
}

// NewInMemoryService returns a service over a fresh memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the backing store.
func (s *Service) Store() domain.PlasmidStore { return s.store }

// DefaultNamespace reports the namespace applied to keys without one.
func (s *Service) DefaultNamespace() string { return s.opts.namespace }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error, attrs ...any) error {
	started := time.Now()
	ctx, span := s.opts.tracer.Start(ctx, op)
	s.opts.logger.Debug("operation started", append([]any{"op", op}, attrs...)...)
	err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, elapsed)
	attrs = append([]any{"op", op, "duration", elapsed}, attrs...)
	if err != nil {
		s.opts.logger.Error("operation failed", append(attrs, "error", err)...)
		return err
	}
	s.opts.logger.Info("operation completed", attrs...)
	return nil
}

// ImportGenBank returns the plasmid stored under the file's name in
// namespace, creating it from the file when absent. The second result is
// true when this call created the plasmid. An existing plasmid is returned
// without reading the file.
func (s *Service) ImportGenBank(ctx context.Context, path, namespace string) (domain.Plasmid, bool, error) {
	key := domain.Key{Name: genbank.NameFromPath(path), Namespace: namespace}.Normalize(s.opts.namespace)
	var (
		out     domain.Plasmid
		created bool
	)
	err := s.run(ctx, "import_genbank", func(ctx context.Context) error {
		existing, ok, err := s.store.FindPlasmid(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			out = existing
			return nil
		}
		rec, err := s.opts.parser(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		out, created, err = s.store.InsertPlasmidIfAbsent(ctx, s.plasmidFromRecord(key, rec))
		return err
	}, "name", key.Name, "namespace", key.Namespace, "path", path)
	if err != nil {
		return domain.Plasmid{}, false, err
	}
	return out, created, nil
}

func (s *Service) plasmidFromRecord(key domain.Key, rec genbank.Record) domain.Plasmid {
	return domain.Plasmid{
		ID:         s.opts.newID(),
		Name:       key.Name,
		Namespace:  key.Namespace,
		Owner:      s.opts.owner,
		Length:     rec.Length,
		MolType:    rec.MolType,
		Definition: rec.Definition,
		Accession:  rec.Accession,
		Version:    rec.Version,
		Keywords:   rec.Keywords,
		Organism:   rec.Organism,
		Features:   domain.FeatureBlock{Raw: rec.FeaturesRaw},
		Sequence:   rec.Sequence,
		GCContent:  rec.GCContent,
		CreatedAt:  s.opts.clock.Now(),
	}
}

// Plasmid fetches one plasmid, failing with domain.ErrNotFound.
func (s *Service) Plasmid(ctx context.Context, key domain.Key) (domain.Plasmid, error) {
	key = key.Normalize(s.opts.namespace)
	var out domain.Plasmid
	err := s.run(ctx, "get_plasmid", func(ctx context.Context) error {
		p, ok, err := s.store.FindPlasmid(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		out = p
		return nil
	}, "name", key.Name, "namespace", key.Namespace)
	return out, err
}

// ListPlasmids lists a namespace, or every plasmid when namespace is empty.
func (s *Service) ListPlasmids(ctx context.Context, namespace string) ([]domain.Plasmid, error) {
	var out []domain.Plasmid
	err := s.run(ctx, "list_plasmids", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListPlasmids(ctx, namespace)
		return err
	}, "namespace", namespace)
	return out, err
}

// ClearPlasmids deletes a namespace, or everything when namespace is empty,
// and returns the number removed.
func (s *Service) ClearPlasmids(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.run(ctx, "clear_plasmids", func(ctx context.Context) error {
		var err error
		n, err = s.store.DeletePlasmids(ctx, namespace)
		return err
	}, "namespace", namespace)
	return n, err
}

// IsNotFound reports whether err marks a missing plasmid.
func IsNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
