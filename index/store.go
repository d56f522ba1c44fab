package index

// ListingIndexStore is the persistence medium for ListingRecords.
// Its grouped-max queries ("for each path, the record with the greatest
// layerId") are the core primitive the overlay's visibility resolution is
// built on; a relational implementation expresses this as a join against a
// grouped-max subquery (see index/sqlitestore), an embedded one as a
// per-key scan (see index/memstore).
type ListingIndexStore interface {
	// AddRecords inserts records, assigning and filling each RecordId.
	// Returns errs.Duplicate if any (LayerId, Path) pair already exists.
	AddRecords(records []ListingRecord) ([]ListingRecord, error)
	// SaveRecords upserts records by RecordId, used to rewrite Path on
	// existing records after a rename.
	SaveRecords(records []ListingRecord) error
	// DeleteRecords removes records by RecordId. Unknown ids are ignored.
	DeleteRecords(records []ListingRecord) error

	// RecordsAtPath returns every per-layer record whose Path equals path,
	// in ascending LayerId order. Used for cross-layer invariant checks
	// (type conflicts, occupancy) that must see every layer, not just the
	// visible winner.
	RecordsAtPath(path string) ([]ListingRecord, error)

	// VisibleRecord returns the record with the greatest LayerId among
	// those whose Path equals path, and whether any record exists at all.
	VisibleRecord(path string) (ListingRecord, bool, error)

	// ListDirectory returns, for each immediate child path of path, the
	// record from the highest LayerId in which it appears.
	ListDirectory(path string) ([]ListingRecord, error)

	// ListRecursive returns the same per-path newest-layer selection as
	// ListDirectory but over every proper descendant of path.
	ListRecursive(path string) ([]ListingRecord, error)

	// FindLayersContaining returns, in ascending order, every LayerId in
	// which path has a record.
	FindLayersContaining(path string) ([]LayerId, error)

	// Close releases resources held by the store (e.g. a sqlite handle).
	Close() error
}
