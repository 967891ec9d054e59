package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"plasmap/internal/blob/core"
)

func TestStore_Lifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
	meta := map[string]string{"a": "1"}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{Metadata: meta}); err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["a"] = "changed"
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v2")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "v" || info.Metadata["a"] != "1" || info.ETag == "" {
		t.Fatalf("unexpected artifact %q %+v", data, info)
	}
	info.Metadata["a"] = "mutated"
	if head, _ := store.Head(ctx, "k"); head.Metadata["a"] != "1" {
		t.Fatalf("metadata shared with caller")
	}
	if list, err := store.List(ctx, "x"); err != nil || len(list) != 0 {
		t.Fatalf("list miss: %v %d", err, len(list))
	}
	if _, err := store.Put(ctx, " ", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("fail") }

func TestStore_PutReadError(t *testing.T) {
	if _, err := New().Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestStore_ConcurrentPutSingleWinner(t *testing.T) {
	store := New()
	ctx := context.Background()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Put(ctx, "same", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful put, got %d", wins)
	}
}
