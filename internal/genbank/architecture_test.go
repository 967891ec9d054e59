package genbank

import (
	"testing"

	"plasmap/testutil"
)

func TestParserStaysFreeOfStorage(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.StorageImportForbidden, testutil.InternalImportForbidden),
		"the parser only reads files")
}
