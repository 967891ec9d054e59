package graphic

import (
	"testing"

	"plasmap/testutil"
)

func TestGraphicImportsOnlyParser(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return testutil.StorageImportForbidden(path) || (testutil.InternalImportForbidden(path) && path != "plasmap/internal/genbank")
	}, "graphic maps parsed records only")
}
