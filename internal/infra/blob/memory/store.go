// Package memory keeps artifacts in process memory. Used by tests and by
// dry runs of the renderer.
package memory

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // ETag only
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"plasmap/internal/blob/core"
)

type object struct {
	info core.Info
	data []byte
}

// Store implements core.Store with a mutex-guarded map.
type Store struct {
	mu   sync.RWMutex
	objs map[string]object
}

// New returns an empty store.
func New() *Store { return &Store{objs: make(map[string]object)} }

// Driver reports core.DriverMemory.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put reads r fully and stores it unless key is taken.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, fmt.Errorf("%w: empty", core.ErrInvalidKey)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := md5.Sum(b) //nolint:gosec
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	info := core.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     core.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = object{info: info, data: b}
	return info, nil
}

func (s *Store) lookup(key string) (object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[key]
	if !ok {
		return object{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	obj.info.Metadata = core.CloneMetadata(obj.info.Metadata)
	return obj, nil
}

// Get returns a reader over a copy of the stored bytes.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, err := s.lookup(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	return obj.info, io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// Head returns metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	obj, err := s.lookup(key)
	return obj.info, err
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns artifacts under prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			inf := v.info
			inf.Metadata = core.CloneMetadata(inf.Metadata)
			out = append(out, inf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
