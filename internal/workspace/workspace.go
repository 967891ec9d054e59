// Package workspace manages per-run scratch directories under a temp root.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAge is how long a run directory survives Prune.
const DefaultMaxAge = 24 * time.Hour

// NewRunDir creates root if needed and a fresh uuid-named directory inside it.
func NewRunDir(root string) (string, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", fmt.Errorf("create temp root: %w", err)
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(dir, 0o750); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

// Removal failure for one directory.
type Removal struct {
	Name string
	Err  error
}

// PruneResult lists what Prune removed and what it could not.
type PruneResult struct {
	Removed []string
	Failed  []Removal
}

// Prune removes the directories directly under root last modified more than
// maxAge before now. Regular files are left alone. A missing root is not an
// error.
func Prune(root string, maxAge time.Duration, now time.Time) (PruneResult, error) {
	var res PruneResult
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read temp root: %w", err)
	}
	limit := now.Add(-maxAge)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			res.Failed = append(res.Failed, Removal{Name: e.Name(), Err: err})
			continue
		}
		if !info.ModTime().Before(limit) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			res.Failed = append(res.Failed, Removal{Name: e.Name(), Err: err})
			continue
		}
		res.Removed = append(res.Removed, e.Name())
	}
	sort.Strings(res.Removed)
	return res, nil
}
