// Package testutil holds import-boundary assertions shared by package tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// ImportPredicate reports whether an import path is forbidden.
type ImportPredicate func(importPath string) bool

// InternalImportForbidden matches any path under an internal/ directory.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// StorageImportForbidden matches the persistence and blob layers and the
// database and cloud drivers behind them.
func StorageImportForbidden(path string) bool {
	for _, p := range []string{
		"plasmap/internal/infra/",
		"plasmap/internal/blob",
		"plasmap/internal/core",
		"database/sql",
		"modernc.org/sqlite",
		"github.com/jackc/pgx",
		"github.com/aws/",
	} {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// AnyOf combines predicates.
func AnyOf(preds ...ImportPredicate) ImportPredicate {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

// AssertNoDirectImports parses the non-test Go files of dir and fails when
// one of them imports a path matched by forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden ImportPredicate, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

func directImportViolations(dir string, forbidden ImportPredicate) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			ip := strings.Trim(imp.Path.Value, `"`)
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}
