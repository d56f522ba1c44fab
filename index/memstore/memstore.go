// Package memstore implements an in-memory index.ListingIndexStore,
// intended for tests and for embedders that don't want a SQLite file. It
// implements the same grouped-max-per-path selection as the SQLite-backed
// store in Go rather than SQL.
package memstore

import (
	"sort"
	"sync"

	"github.com/ocfl-go/layeredstore/errs"
	"github.com/ocfl-go/layeredstore/index"
	"github.com/ocfl-go/layeredstore/internal/pathutil"
)

type key struct {
	layerId index.LayerId
	path    string
}

// Store is a concurrency-safe in-memory index.ListingIndexStore.
type Store struct {
	mu      sync.Mutex
	records map[key]index.ListingRecord
	nextId  index.RecordId
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[key]index.ListingRecord),
	}
}

var _ index.ListingIndexStore = (*Store)(nil)

func (s *Store) AddRecords(records []index.ListingRecord) ([]index.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]index.ListingRecord, len(records))
	for i, rec := range records {
		k := key{rec.LayerId, rec.Path}
		if _, exists := s.records[k]; exists {
			return nil, errs.Duplicate
		}
		s.nextId++
		rec.RecordId = s.nextId
		s.records[k] = rec
		out[i] = rec
	}
	return out, nil
}

func (s *Store) SaveRecords(records []index.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		for k, existing := range s.records {
			if existing.RecordId == rec.RecordId {
				delete(s.records, k)
				break
			}
		}
		s.records[key{rec.LayerId, rec.Path}] = rec
	}
	return nil
}

func (s *Store) DeleteRecords(records []index.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[index.RecordId]struct{}, len(records))
	for _, rec := range records {
		ids[rec.RecordId] = struct{}{}
	}
	for k, existing := range s.records {
		if _, ok := ids[existing.RecordId]; ok {
			delete(s.records, k)
		}
	}
	return nil
}

func (s *Store) RecordsAtPath(path string) ([]index.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []index.ListingRecord
	for k, rec := range s.records {
		if k.path == path {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LayerId < out[j].LayerId })
	return out, nil
}

func (s *Store) VisibleRecord(path string) (index.ListingRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.visibleRecordLocked(path)
}

func (s *Store) visibleRecordLocked(path string) (index.ListingRecord, bool, error) {
	var (
		winner index.ListingRecord
		found  bool
	)
	for k, rec := range s.records {
		if k.path != path {
			continue
		}
		if !found || rec.LayerId > winner.LayerId {
			winner = rec
			found = true
		}
	}
	return winner, found, nil
}

// groupedMax collapses every record whose path satisfies keep into the
// single record with the greatest LayerId per path.
func (s *Store) groupedMax(keep func(path string) bool) []index.ListingRecord {
	best := make(map[string]index.ListingRecord)
	for k, rec := range s.records {
		if !keep(k.path) {
			continue
		}
		cur, ok := best[k.path]
		if !ok || rec.LayerId > cur.LayerId {
			best[k.path] = rec
		}
	}
	out := make([]index.ListingRecord, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	return out
}

func (s *Store) ListDirectory(path string) ([]index.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.groupedMax(func(p string) bool {
		return pathutil.IsImmediateChild(path, p)
	}), nil
}

func (s *Store) ListRecursive(path string) ([]index.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.groupedMax(func(p string) bool {
		return pathutil.IsProperDescendant(path, p)
	}), nil
}

func (s *Store) FindLayersContaining(path string) ([]index.LayerId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []index.LayerId
	for k := range s.records {
		if k.path == path {
			ids = append(ids, k.layerId)
		}
	}
	// simple insertion sort: callers expect ascending order and the set is
	// typically tiny (one entry per layer that ever touched the path).
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids, nil
}

func (s *Store) Close() error { return nil }
