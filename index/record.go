// Package index implements the ListingIndex: a persistent map from
// (layer, path) to (type, optional inlined content) that answers listing
// and visibility queries without walking the on-disk layers.
package index

// LayerId identifies a layer. Larger values are newer; the top layer's id
// is the maximum id known to the LayerManager.
type LayerId = int64

// RecordId is an opaque identifier assigned by a ListingIndexStore on
// insert, stable across SaveRecords calls.
type RecordId = int64

// EntryType classifies what a ListingRecord's path denotes.
type EntryType int

const (
	File EntryType = iota
	Directory
	Other
)

func (t EntryType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// ListingRecord is one entry of the index: a binding of (layerId, path) to
// a type and, optionally, inlined file content.
type ListingRecord struct {
	RecordId RecordId
	LayerId  LayerId
	Path     string
	Type     EntryType
	// Content is non-nil only when this record was ingested through an
	// InliningFilter that elected to cache the bytes. An empty-but-non-nil
	// slice means an inlined empty file; nil means "not inlined".
	Content []byte
}

// Inlined reports whether r carries cached content.
func (r ListingRecord) Inlined() bool {
	return r.Content != nil
}
