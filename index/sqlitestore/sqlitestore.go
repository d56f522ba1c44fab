// Package sqlitestore implements the default index.ListingIndexStore over
// a single SQLite table, using the pure-Go modernc.org/sqlite driver so the
// index never requires a cgo toolchain. The grouped-max-per-path query is
// expressed as a self-join against a GROUP BY path, MAX(layer_id)
// subquery.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ocfl-go/layeredstore/errs"
	"github.com/ocfl-go/layeredstore/index"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS listing_records (
	record_id INTEGER PRIMARY KEY AUTOINCREMENT,
	layer_id  INTEGER NOT NULL,
	path      TEXT NOT NULL,
	type      INTEGER NOT NULL,
	content   BLOB
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_listing_path_layer ON listing_records(path, layer_id);
CREATE INDEX IF NOT EXISTS idx_listing_layer ON listing_records(layer_id);
`

// Store is a SQLite-backed index.ListingIndexStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and
// ensures the listing_records schema exists. Use ":memory:" or
// "file::memory:?cache=shared" for a transient, in-process database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

var _ index.ListingIndexStore = (*Store)(nil)

func (s *Store) AddRecords(records []index.ListingRecord) ([]index.ListingRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]index.ListingRecord, len(records))
	stmt, err := tx.Prepare(`INSERT INTO listing_records (layer_id, path, type, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i, rec := range records {
		res, err := stmt.Exec(rec.LayerId, rec.Path, int(rec.Type), rec.Content)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return nil, errs.Duplicate
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		rec.RecordId = id
		out[i] = rec
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveRecords(records []index.ListingRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO listing_records (record_id, layer_id, path, type, content)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			layer_id = excluded.layer_id,
			path = excluded.path,
			type = excluded.type,
			content = excluded.content
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.RecordId, rec.LayerId, rec.Path, int(rec.Type), rec.Content); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) DeleteRecords(records []index.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM listing_records WHERE record_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.RecordId); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) RecordsAtPath(path string) ([]index.ListingRecord, error) {
	rows, err := s.db.Query(
		`SELECT record_id, layer_id, path, type, content FROM listing_records WHERE path = ? ORDER BY layer_id ASC`,
		path,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) VisibleRecord(path string) (index.ListingRecord, bool, error) {
	row := s.db.QueryRow(`
		SELECT record_id, layer_id, path, type, content
		FROM listing_records
		WHERE path = ?
		ORDER BY layer_id DESC
		LIMIT 1
	`, path)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return index.ListingRecord{}, false, nil
	}
	if err != nil {
		return index.ListingRecord{}, false, err
	}
	return rec, true, nil
}

// groupedMaxQuery is the grouped-max-per-path self-join, parameterized by
// the WHERE clause selecting which paths are in scope (immediate children
// vs. all proper descendants).
const groupedMaxQuery = `
SELECT r.record_id, r.layer_id, r.path, r.type, r.content
FROM listing_records r
JOIN (
	SELECT path, MAX(layer_id) AS max_layer
	FROM listing_records
	GROUP BY path
) m ON r.path = m.path AND r.layer_id = m.max_layer
WHERE %s
`

func (s *Store) ListDirectory(path string) ([]index.ListingRecord, error) {
	// An immediate child of path has exactly one more segment: either
	// "path/<seg>" with no further "/", or, when path is the virtual
	// root (""), any single-segment path.
	var (
		where string
		args  []any
	)
	if path == "" {
		where = "r.path NOT LIKE '%/%'"
	} else {
		where = "r.path LIKE ? AND r.path NOT LIKE ?"
		args = []any{path + "/%", path + "/%/%"}
	}

	rows, err := s.db.Query(fmt.Sprintf(groupedMaxQuery, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListRecursive(path string) ([]index.ListingRecord, error) {
	var (
		where string
		args  []any
	)
	if path == "" {
		where = "1=1"
	} else {
		where = "r.path LIKE ?"
		args = []any{path + "/%"}
	}

	rows, err := s.db.Query(fmt.Sprintf(groupedMaxQuery, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) FindLayersContaining(path string) ([]index.LayerId, error) {
	rows, err := s.db.Query(`SELECT layer_id FROM listing_records WHERE path = ? ORDER BY layer_id ASC`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []index.LayerId
	for rows.Next() {
		var id index.LayerId
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (index.ListingRecord, error) {
	var (
		rec     index.ListingRecord
		ty      int
		content []byte
	)
	if err := row.Scan(&rec.RecordId, &rec.LayerId, &rec.Path, &ty, &content); err != nil {
		return index.ListingRecord{}, err
	}
	rec.Type = index.EntryType(ty)
	rec.Content = content
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]index.ListingRecord, error) {
	var out []index.ListingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
