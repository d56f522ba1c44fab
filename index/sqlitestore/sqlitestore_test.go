package sqlitestore_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/ocfl-go/layeredstore/index"
	"github.com/ocfl-go/layeredstore/index/sqlitestore"
)

func openTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	// A name-scoped in-memory database keeps each test's schema isolated
	// even though modernc.org/sqlite shares memory databases by name.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	store, err := sqlitestore.Open(dsn)
	assert.NilError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndVisibleRecordGroupedMax(t *testing.T) {
	store := openTestStore(t)

	_, err := store.AddRecords([]index.ListingRecord{
		{LayerId: 1, Path: "a/b", Type: index.Directory},
		{LayerId: 1, Path: "a/b/x", Type: index.File},
		{LayerId: 2, Path: "a/b/x", Type: index.File},
	})
	assert.NilError(t, err)

	rec, ok, err := store.VisibleRecord("a/b/x")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, rec.LayerId, index.LayerId(2))

	layers, err := store.FindLayersContaining("a/b/x")
	assert.NilError(t, err)
	assert.DeepEqual(t, layers, []index.LayerId{1, 2})
}

func TestListDirectoryAndListRecursive(t *testing.T) {
	store := openTestStore(t)

	_, err := store.AddRecords([]index.ListingRecord{
		{LayerId: 1, Path: "root", Type: index.Directory},
		{LayerId: 1, Path: "root/child", Type: index.Directory},
		{LayerId: 1, Path: "root/child/leaf", Type: index.File},
	})
	assert.NilError(t, err)

	children, err := store.ListDirectory("root")
	assert.NilError(t, err)
	assert.Equal(t, len(children), 1)
	assert.Equal(t, children[0].Path, "root/child")

	descendants, err := store.ListRecursive("root")
	assert.NilError(t, err)
	assert.Equal(t, len(descendants), 2)
}

func TestAddRecordsDuplicateRejected(t *testing.T) {
	store := openTestStore(t)

	_, err := store.AddRecords([]index.ListingRecord{{LayerId: 1, Path: "a", Type: index.File}})
	assert.NilError(t, err)

	_, err = store.AddRecords([]index.ListingRecord{{LayerId: 1, Path: "a", Type: index.File}})
	assert.ErrorContains(t, err, "duplicate")
}

func TestSaveRecordsRewritesPath(t *testing.T) {
	store := openTestStore(t)

	inserted, err := store.AddRecords([]index.ListingRecord{{LayerId: 1, Path: "old/name", Type: index.File}})
	assert.NilError(t, err)

	rec := inserted[0]
	rec.Path = "new/name"
	assert.NilError(t, store.SaveRecords([]index.ListingRecord{rec}))

	_, ok, err := store.VisibleRecord("old/name")
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	got, ok, err := store.VisibleRecord("new/name")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, got.RecordId, rec.RecordId)
}
