package index

import (
	"fmt"

	"github.com/ocfl-go/layeredstore/errs"
	"github.com/ocfl-go/layeredstore/internal/pathutil"
)

// ListingIndex enforces the core invariants (at most one record per
// (layer, path); File and Directory records never coexist at a path;
// Directory records materialize every ancestor) on top of a
// ListingIndexStore, which supplies the actual persistence and the
// grouped-max visibility queries.
type ListingIndex struct {
	store ListingIndexStore
}

// New wraps store in a ListingIndex.
func New(store ListingIndexStore) *ListingIndex {
	return &ListingIndex{store: store}
}

// AddFile inserts a File record at (layerId, path). Fails with
// errs.Conflict if a Directory record exists anywhere for path, or
// errs.Duplicate if (layerId, path) is already present.
func (idx *ListingIndex) AddFile(layerId LayerId, path string) (ListingRecord, error) {
	existing, err := idx.store.RecordsAtPath(path)
	if err != nil {
		return ListingRecord{}, errs.WrapPathErr("addFile", path, err)
	}
	for _, r := range existing {
		if r.Type == Directory {
			return ListingRecord{}, errs.WrapPathErr("addFile", path,
				fmt.Errorf("%w: %s is already occupied by a directory", errs.Conflict, path))
		}
		if r.LayerId == layerId {
			return ListingRecord{}, errs.WrapPathErr("addFile", path, errs.Duplicate)
		}
	}

	inserted, err := idx.store.AddRecords([]ListingRecord{{LayerId: layerId, Path: path, Type: File}})
	if err != nil {
		return ListingRecord{}, errs.WrapPathErr("addFile", path, err)
	}
	return inserted[0], nil
}

// AddDirectories ensures Directory records exist in layerId for path and
// every proper ancestor, returning only the records newly created.
// Idempotent within a layer. Fails with errs.Conflict if any segment of
// path is already a File in any layer.
func (idx *ListingIndex) AddDirectories(layerId LayerId, path string) ([]ListingRecord, error) {
	var toInsert []ListingRecord

	for ancestor := range pathutil.AncestorsFromRoot(path) {
		existing, err := idx.store.RecordsAtPath(ancestor)
		if err != nil {
			return nil, errs.WrapPathErr("addDirectories", path, err)
		}

		var alreadyInLayer bool
		for _, r := range existing {
			if r.Type == File {
				return nil, errs.WrapPathErr("addDirectories", path, fmt.Errorf(
					"%w: Cannot add directory %s because it is already occupied by a file.",
					errs.Conflict, path,
				))
			}
			if r.LayerId == layerId {
				alreadyInLayer = true
			}
		}
		if alreadyInLayer {
			continue
		}
		toInsert = append(toInsert, ListingRecord{LayerId: layerId, Path: ancestor, Type: Directory})
	}

	if len(toInsert) == 0 {
		return nil, nil
	}

	inserted, err := idx.store.AddRecords(toInsert)
	if err != nil {
		return nil, errs.WrapPathErr("addDirectories", path, err)
	}
	return inserted, nil
}

// AddRecords bulk-inserts records, applying the same type-conflict and
// duplicate checks as AddFile/AddDirectories to every record.
func (idx *ListingIndex) AddRecords(records []ListingRecord) ([]ListingRecord, error) {
	for _, rec := range records {
		existing, err := idx.store.RecordsAtPath(rec.Path)
		if err != nil {
			return nil, errs.WrapPathErr("addRecords", rec.Path, err)
		}
		for _, r := range existing {
			isFileDirClash := (r.Type == File && rec.Type == Directory) || (r.Type == Directory && rec.Type == File)
			if isFileDirClash {
				return nil, errs.WrapPathErr("addRecords", rec.Path, errs.Conflict)
			}
			if r.LayerId == rec.LayerId {
				return nil, errs.WrapPathErr("addRecords", rec.Path, errs.Duplicate)
			}
		}
	}
	inserted, err := idx.store.AddRecords(records)
	if err != nil {
		return nil, errs.WrapPathErr("addRecords", "", err)
	}
	return inserted, nil
}

// SaveRecords upserts records by RecordId, used to rewrite Path on
// existing records after a rename.
func (idx *ListingIndex) SaveRecords(records []ListingRecord) error {
	if err := idx.store.SaveRecords(records); err != nil {
		return errs.WrapPathErr("saveRecords", "", err)
	}
	return nil
}

// DeleteRecords removes records by RecordId.
func (idx *ListingIndex) DeleteRecords(records []ListingRecord) error {
	if err := idx.store.DeleteRecords(records); err != nil {
		return errs.WrapPathErr("deleteRecords", "", err)
	}
	return nil
}

// RecordsAtPath returns every per-layer record at path, ascending by
// LayerId. Used by callers that must inspect every layer touching a path
// rather than only the visible winner (e.g. DeleteFiles).
func (idx *ListingIndex) RecordsAtPath(path string) ([]ListingRecord, error) {
	recs, err := idx.store.RecordsAtPath(path)
	if err != nil {
		return nil, errs.WrapPathErr("recordsAtPath", path, err)
	}
	return recs, nil
}

// ListDirectory returns the visible immediate children of path.
func (idx *ListingIndex) ListDirectory(path string) ([]ListingRecord, error) {
	recs, err := idx.store.ListDirectory(path)
	if err != nil {
		return nil, errs.WrapPathErr("listDirectory", path, err)
	}
	return recs, nil
}

// ListRecursive returns the visible proper descendants of path.
func (idx *ListingIndex) ListRecursive(path string) ([]ListingRecord, error) {
	recs, err := idx.store.ListRecursive(path)
	if err != nil {
		return nil, errs.WrapPathErr("listRecursive", path, err)
	}
	return recs, nil
}

// FindLayersContaining returns, ascending, every layer in which path has a
// record.
func (idx *ListingIndex) FindLayersContaining(path string) ([]LayerId, error) {
	ids, err := idx.store.FindLayersContaining(path)
	if err != nil {
		return nil, errs.WrapPathErr("findLayersContaining", path, err)
	}
	return ids, nil
}

// VisibleRecord returns the winning record for path: the record with the
// greatest LayerId among those whose path matches.
func (idx *ListingIndex) VisibleRecord(path string) (ListingRecord, bool, error) {
	rec, ok, err := idx.store.VisibleRecord(path)
	if err != nil {
		return ListingRecord{}, false, errs.WrapPathErr("visibleRecord", path, err)
	}
	return rec, ok, nil
}

// IsContentInlined reports whether the visible record for path carries
// cached content.
func (idx *ListingIndex) IsContentInlined(path string) (bool, error) {
	rec, ok, err := idx.VisibleRecord(path)
	if err != nil {
		return false, err
	}
	return ok && rec.Inlined(), nil
}

// ReadInlined returns the cached content of the visible record for path.
// Callers must check IsContentInlined first; ReadInlined returns
// errs.NotFound if the visible record carries no content.
func (idx *ListingIndex) ReadInlined(path string) ([]byte, error) {
	rec, ok, err := idx.VisibleRecord(path)
	if err != nil {
		return nil, err
	}
	if !ok || !rec.Inlined() {
		return nil, errs.WrapPathErr("readInlined", path, errs.NotFound)
	}
	return rec.Content, nil
}

// Close releases the underlying store.
func (idx *ListingIndex) Close() error {
	return idx.store.Close()
}
