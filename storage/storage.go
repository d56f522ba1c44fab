// Package storage implements the virtual-filesystem facade that composes
// a Layer mutation with a ListingIndex update for every write-shaped
// operation, and resolves reads through the visible-record rule (the
// record with the greatest layer id wins).
//
// LayeredStorage is a *sync.RWMutex-guarded facade. The basic reads
// (listing, existence, read) RLock and delegate to unexported "NoLock"
// methods that other methods reuse without re-entering the lock; the
// mutators do their work inline under Lock. Composite operations
// (CopyFileInto, CopyFileInternal, CopyDirectoryOutOf, Walk,
// DeleteEmptyDirsDown, DeleteEmptyDirsUp) take the lock per step, so they
// are not atomic as a whole.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/ngicks/go-common/serr"

	"github.com/ocfl-go/layeredstore/errs"
	"github.com/ocfl-go/layeredstore/index"
	"github.com/ocfl-go/layeredstore/index/inlinefilter"
	"github.com/ocfl-go/layeredstore/internal/pathutil"
	"github.com/ocfl-go/layeredstore/layer"
	"github.com/ocfl-go/layeredstore/layermanager"
)

// Layers is the subset of *layermanager.LayerManager the facade consumes.
type Layers interface {
	GetTopLayer() (*layer.Layer, error)
	GetLayer(id layer.Id) (*layer.Layer, error)
}

var _ Layers = (*layermanager.LayerManager)(nil)

// LayeredStorage is the virtual-filesystem facade. Its *sync.RWMutex
// guards the whole facade: RLock'd for reads, Lock'd for mutations.
type LayeredStorage struct {
	rw     sync.RWMutex
	layers Layers
	idx    *index.ListingIndex
	filter inlinefilter.Filter
	logger *slog.Logger
}

// Option configures a LayeredStorage at construction time.
type Option func(*LayeredStorage)

// WithInliningFilter overrides the default reject-all InliningFilter.
func WithInliningFilter(f inlinefilter.Filter) Option {
	return func(s *LayeredStorage) { s.filter = f }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *LayeredStorage) { s.logger = l }
}

// New builds a LayeredStorage over layers and idx.
func New(layers Layers, idx *index.ListingIndex, opts ...Option) *LayeredStorage {
	s := &LayeredStorage{
		layers: layers,
		idx:    idx,
		filter: inlinefilter.RejectAll,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- reads ---

func (s *LayeredStorage) listDirectoryNoLock(path string) ([]index.ListingRecord, error) {
	recs, err := s.idx.ListDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.IoError, err)
	}
	return recs, nil
}

// ListDirectory returns the visible immediate children of path.
func (s *LayeredStorage) ListDirectory(path string) ([]index.ListingRecord, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	return s.listDirectoryNoLock(path)
}

func (s *LayeredStorage) listRecursiveNoLock(path string) ([]index.ListingRecord, error) {
	recs, err := s.idx.ListRecursive(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.IoError, err)
	}
	return recs, nil
}

// ListRecursive returns the visible proper descendants of path.
func (s *LayeredStorage) ListRecursive(path string) ([]index.ListingRecord, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	return s.listRecursiveNoLock(path)
}

// DirectoryIsEmpty reports whether path has no visible children.
func (s *LayeredStorage) DirectoryIsEmpty(path string) (bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	recs, err := s.listDirectoryNoLock(path)
	if err != nil {
		return false, err
	}
	return len(recs) == 0, nil
}

func (s *LayeredStorage) fileExistsNoLock(path string) (bool, error) {
	ids, err := s.idx.FindLayersContaining(path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errs.IoError, err)
	}
	return len(ids) > 0, nil
}

// FileExists reports whether path has a record in any layer.
func (s *LayeredStorage) FileExists(path string) (bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	return s.fileExistsNoLock(path)
}

// Stat reports the type and size of path without reading its bytes.
func (s *LayeredStorage) Stat(path string) (index.EntryType, int64, bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	rec, ok, err := s.idx.VisibleRecord(path)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %w", errs.IoError, err)
	}
	if !ok {
		return 0, 0, false, nil
	}
	if rec.Type != index.File {
		return rec.Type, 0, true, nil
	}
	if rec.Inlined() {
		return rec.Type, int64(len(rec.Content)), true, nil
	}
	l, err := s.layers.GetLayer(rec.LayerId)
	if err != nil {
		return 0, 0, false, errs.WrapPathErr("stat", path, err)
	}
	info, err := l.Stat(path)
	if err != nil {
		return 0, 0, false, errs.WrapPathErr("stat", path, err)
	}
	return rec.Type, info.Size(), true, nil
}

func (s *LayeredStorage) readNoLock(path string) (io.ReadCloser, error) {
	rec, ok, err := s.idx.VisibleRecord(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.IoError, err)
	}
	if !ok {
		return nil, errs.WrapPathErr("read", path, errs.NotFound)
	}
	if rec.Inlined() {
		return io.NopCloser(bytes.NewReader(rec.Content)), nil
	}
	l, err := s.layers.GetLayer(rec.LayerId)
	if err != nil {
		return nil, errs.WrapPathErr("read", path, err)
	}
	rc, err := l.Read(path)
	if err != nil {
		return nil, errs.WrapPathErr("read", path, err)
	}
	return rc, nil
}

// Read opens the visible content of path: inlined bytes if cached,
// otherwise a stream from the winning layer.
func (s *LayeredStorage) Read(path string) (io.ReadCloser, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	return s.readNoLock(path)
}

// ReadToString reads path fully and decodes it as UTF-8, failing with
// errs.Encoding on invalid byte sequences.
func (s *LayeredStorage) ReadToString(path string) (string, error) {
	s.rw.RLock()
	rc, err := s.readNoLock(path)
	s.rw.RUnlock()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", errs.WrapPathErr("readToString", path, err)
	}
	if !utf8.Valid(b) {
		return "", errs.WrapPathErr("readToString", path, errs.Encoding)
	}
	return string(b), nil
}

// FindLayersContaining returns, ascending, every layer containing path.
func (s *LayeredStorage) FindLayersContaining(path string) ([]index.LayerId, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	ids, err := s.idx.FindLayersContaining(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.IoError, err)
	}
	return ids, nil
}

// Walk visits every visible descendant of path in ascending path-length
// order, calling fn(path, type) for each.
func (s *LayeredStorage) Walk(path string, fn func(p string, t index.EntryType) error) error {
	s.rw.RLock()
	recs, err := s.listRecursiveNoLock(path)
	s.rw.RUnlock()
	if err != nil {
		return err
	}
	sortByPathLengthAscending(recs)
	for _, r := range recs {
		if err := fn(r.Path, r.Type); err != nil {
			return err
		}
	}
	return nil
}

// --- writes ---

// Write stores bytes at path in the top layer and indexes it. mediaType is
// accepted and ignored by the core, mirroring the source's signature.
func (s *LayeredStorage) Write(path string, contents []byte, mediaType string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	top, err := s.layers.GetTopLayer()
	if err != nil {
		return errs.WrapPathErr("write", path, err)
	}
	if err := top.Write(path, contents); err != nil {
		return errs.WrapPathErr("write", path, err)
	}

	var indexErr error
	defer func() {
		if indexErr != nil {
			s.logger.Warn("compensating failed index update after write", "path", path, "error", indexErr)
			_ = top.DeleteFiles([]string{path})
		}
	}()

	var content []byte
	if s.filter.Accept(path) {
		content = contents
	}
	_, indexErr = s.idx.AddRecords([]index.ListingRecord{{LayerId: top.Id(), Path: path, Type: index.File, Content: content}})
	if indexErr != nil {
		return errs.WrapPathErr("write", path, indexErr)
	}
	return nil
}

// CreateDirectories performs mkdir -p on the top layer, then materializes
// the corresponding Directory records.
func (s *LayeredStorage) CreateDirectories(path string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	top, err := s.layers.GetTopLayer()
	if err != nil {
		return errs.WrapPathErr("createDirectories", path, err)
	}
	if err := top.CreateDirectories(path); err != nil {
		return errs.WrapPathErr("createDirectories", path, err)
	}

	var indexErr error
	defer func() {
		if indexErr != nil {
			s.logger.Warn("compensating failed index update after createDirectories", "path", path, "error", indexErr)
			_ = top.DeleteDirectory(path)
		}
	}()

	_, indexErr = s.idx.AddDirectories(top.Id(), path)
	if indexErr != nil {
		return indexErr
	}
	return nil
}

// CopyFileInto writes the bytes read from an external file into destPath
// on the top layer and indexes it.
func (s *LayeredStorage) CopyFileInto(externalSrc, destPath, mediaType string) error {
	f, err := os.Open(externalSrc)
	if err != nil {
		return errs.WrapPathErr("copyFileInto", destPath, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return errs.WrapPathErr("copyFileInto", destPath, err)
	}
	return s.Write(destPath, b, mediaType)
}

// CopyFileInternal reads srcPath through the overlay and writes it to
// destPath on the top layer.
func (s *LayeredStorage) CopyFileInternal(srcPath, destPath string) error {
	s.rw.RLock()
	rc, err := s.readNoLock(srcPath)
	s.rw.RUnlock()
	if err != nil {
		return errs.WrapPathErr("copyFileInternal", srcPath, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return errs.WrapPathErr("copyFileInternal", srcPath, err)
	}
	return s.Write(destPath, b, "")
}

// CopyDirectoryOutOf materializes srcPath's visible subtree at
// destExternalPath on the host filesystem, processing records in ascending
// path-length order so each parent directory exists before its children.
func (s *LayeredStorage) CopyDirectoryOutOf(srcPath, destExternalPath string) error {
	s.rw.RLock()
	recs, err := s.listRecursiveNoLock(srcPath)
	s.rw.RUnlock()
	if err != nil {
		return errs.WrapPathErr("copyDirectoryOutOf", srcPath, err)
	}
	sortByPathLengthAscending(recs)

	if err := os.MkdirAll(destExternalPath, 0o755); err != nil {
		return errs.WrapPathErr("copyDirectoryOutOf", srcPath, err)
	}

	for _, rec := range recs {
		rel := rec.Path[len(srcPath):]
		for len(rel) > 0 && rel[0] == '/' {
			rel = rel[1:]
		}
		target := destExternalPath
		if rel != "" {
			target = filepath.Join(destExternalPath, filepath.FromSlash(rel))
		}

		switch rec.Type {
		case index.Directory:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errs.WrapPathErr("copyDirectoryOutOf", rec.Path, err)
			}
		case index.File:
			s.rw.RLock()
			rc, err := s.readNoLock(rec.Path)
			s.rw.RUnlock()
			if err != nil {
				return errs.WrapPathErr("copyDirectoryOutOf", rec.Path, err)
			}
			if err := writeExternalFile(target, rc); err != nil {
				return errs.WrapPathErr("copyDirectoryOutOf", rec.Path, err)
			}
		}
	}
	return nil
}

func writeExternalFile(target string, rc io.ReadCloser) error {
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}

// MoveDirectoryInto moves the external directory tree rooted at
// externalSrc into the top layer at destPath, inlining descendant files
// the InliningFilter accepts. The physical move completes before inlined
// content is read back, since inlining presupposes completed visibility.
func (s *LayeredStorage) MoveDirectoryInto(externalSrc, destPath string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	top, err := s.layers.GetTopLayer()
	if err != nil {
		return errs.WrapPathErr("moveDirectoryInto", destPath, err)
	}

	if parent := pathutil.Parent(destPath); parent != "" {
		if _, err := s.idx.AddDirectories(top.Id(), parent); err != nil {
			return errs.WrapPathErr("moveDirectoryInto", destPath, err)
		}
	}

	descendants, err := scanExternalTree(externalSrc, destPath)
	if err != nil {
		return errs.WrapPathErr("moveDirectoryInto", destPath, err)
	}

	// The filter inspects the external path, so consult it while that path
	// still exists; the accepted files' content is read after the move.
	accepted := make(map[string]bool, len(descendants))
	for _, d := range descendants {
		if d.entryType == index.File && s.filter.Accept(d.externalPath) {
			accepted[d.path] = true
		}
	}

	if err := top.MoveDirectoryInto(externalSrc, destPath); err != nil {
		return errs.WrapPathErr("moveDirectoryInto", destPath, err)
	}

	toInsert := make([]index.ListingRecord, 0, len(descendants)+1)
	toInsert = append(toInsert, index.ListingRecord{LayerId: top.Id(), Path: destPath, Type: index.Directory})
	for _, d := range descendants {
		rec := index.ListingRecord{LayerId: top.Id(), Path: d.path, Type: d.entryType}
		if accepted[d.path] {
			if content, err := readThroughTopLayer(top, d.path); err == nil {
				rec.Content = content
			}
		}
		toInsert = append(toInsert, rec)
	}

	var indexErr error
	defer func() {
		if indexErr != nil {
			s.logger.Warn("compensating failed index update after moveDirectoryInto", "path", destPath, "error", indexErr)
			_ = top.DeleteDirectory(destPath)
		}
	}()

	if _, indexErr = s.idx.AddRecords(toInsert); indexErr != nil {
		return errs.WrapPathErr("moveDirectoryInto", destPath, indexErr)
	}
	return nil
}

func readThroughTopLayer(top *layer.Layer, path string) ([]byte, error) {
	rc, err := top.Read(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type scannedEntry struct {
	path         string
	externalPath string
	entryType    index.EntryType
}

// scanExternalTree walks the host directory tree at externalSrc, mapping
// each descendant to its destination virtual path and EntryType, ahead of
// the physical move.
func scanExternalTree(externalSrc, destPath string) ([]scannedEntry, error) {
	var out []scannedEntry
	baseInfo, err := os.Stat(externalSrc)
	if err != nil {
		return nil, err
	}
	if !baseInfo.IsDir() {
		return nil, fmt.Errorf("moveDirectoryInto: external source %s is not a directory", externalSrc)
	}

	var walk func(hostPath, virtualPath string) error
	walk = func(hostPath, virtualPath string) error {
		entries, err := readDirSorted(hostPath)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			hp := filepath.Join(hostPath, entry.Name())
			vp := pathutil.Join(virtualPath, entry.Name())
			info, err := entry.Info()
			if err != nil {
				return err
			}
			switch {
			case info.IsDir():
				out = append(out, scannedEntry{path: vp, externalPath: hp, entryType: index.Directory})
				if err := walk(hp, vp); err != nil {
					return err
				}
			case info.Mode().IsRegular():
				out = append(out, scannedEntry{path: vp, externalPath: hp, entryType: index.File})
			default:
				out = append(out, scannedEntry{path: vp, externalPath: hp, entryType: index.Other})
			}
		}
		return nil
	}
	if err := walk(externalSrc, destPath); err != nil {
		return nil, err
	}
	return out, nil
}

func readDirSorted(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// MoveDirectoryInternal renames srcPath to destPath within the top layer.
// Precondition: every record under srcPath must resolve to the top layer;
// otherwise InvariantViolation.
func (s *LayeredStorage) MoveDirectoryInternal(srcPath, destPath string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	top, err := s.layers.GetTopLayer()
	if err != nil {
		return errs.WrapLinkErr("moveDirectoryInternal", srcPath, destPath, err)
	}

	recs, err := s.listRecursiveNoLock(srcPath)
	if err != nil {
		return errs.WrapLinkErr("moveDirectoryInternal", srcPath, destPath, err)
	}
	self, ok, err := s.idx.VisibleRecord(srcPath)
	if err != nil {
		return errs.WrapLinkErr("moveDirectoryInternal", srcPath, destPath, err)
	}
	if ok {
		recs = append(recs, self)
	}
	if err := requireAllInLayer(s.idx, recs, top.Id()); err != nil {
		return errs.WrapLinkErr("moveDirectoryInternal", srcPath, destPath, err)
	}

	newBase := pathutil.Join(destPath, pathutil.Base(srcPath))
	if err := top.MoveDirectoryInternal(srcPath, newBase); err != nil {
		return errs.WrapLinkErr("moveDirectoryInternal", srcPath, destPath, err)
	}

	rewritten := make([]index.ListingRecord, len(recs))
	for i, r := range recs {
		tail := r.Path[len(srcPath):]
		rewritten[i] = r
		rewritten[i].Path = newBase + tail
	}

	var indexErr error
	defer func() {
		if indexErr != nil {
			s.logger.Warn("compensating failed index update after moveDirectoryInternal", "src", srcPath, "dest", destPath, "error", indexErr)
			_ = top.MoveDirectoryInternal(newBase, srcPath)
		}
	}()

	if indexErr = s.idx.SaveRecords(rewritten); indexErr != nil {
		return errs.WrapLinkErr("moveDirectoryInternal", srcPath, destPath, indexErr)
	}
	return nil
}

// requireAllInLayer fails with InvariantViolation unless every record in
// recs belongs to layerId, and unless every path has no record in any
// other layer either (the full set of layers containing each path must be
// exactly {layerId} or empty).
func requireAllInLayer(idx *index.ListingIndex, recs []index.ListingRecord, layerId index.LayerId) error {
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if r.LayerId != layerId {
			return fmt.Errorf("%w: %s exists outside the top layer", errs.InvariantViolation, r.Path)
		}
		seen[r.Path] = struct{}{}
	}
	for p := range seen {
		ids, err := idx.FindLayersContaining(p)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.IoError, err)
		}
		if len(ids) != 1 || ids[0] != layerId {
			return fmt.Errorf("%w: %s exists outside the top layer", errs.InvariantViolation, p)
		}
	}
	return nil
}

// DeleteDirectory recursively deletes path from the top layer.
// Precondition: every record under path must be in the top layer;
// otherwise InvariantViolation.
func (s *LayeredStorage) DeleteDirectory(path string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	top, err := s.layers.GetTopLayer()
	if err != nil {
		return errs.WrapPathErr("deleteDirectory", path, err)
	}

	recs, err := s.listRecursiveNoLock(path)
	if err != nil {
		return errs.WrapPathErr("deleteDirectory", path, err)
	}
	self, ok, err := s.idx.VisibleRecord(path)
	if err != nil {
		return errs.WrapPathErr("deleteDirectory", path, err)
	}
	if ok {
		recs = append(recs, self)
	}
	if err := requireAllInLayer(s.idx, recs, top.Id()); err != nil {
		return errs.WrapPathErr("deleteDirectory", path, err)
	}

	if err := top.DeleteDirectory(path); err != nil {
		return errs.WrapPathErr("deleteDirectory", path, err)
	}

	if err := s.idx.DeleteRecords(recs); err != nil {
		s.logger.Warn("index cleanup failed after deleteDirectory; disk state ahead of index", "path", path, "error", err)
		return errs.WrapPathErr("deleteDirectory", path, err)
	}
	return nil
}

// DeleteFile removes path from every layer in which it currently appears,
// sealed or not. This is deliberately broader than the top-layer-only
// precondition DeleteDirectory and MoveDirectoryInternal enforce: deleting
// a file is defined to reach every occurrence so that a path cannot keep
// surfacing from a stale lower layer once it has been deleted.
func (s *LayeredStorage) DeleteFile(path string) error {
	return s.DeleteFiles([]string{path})
}

// DeleteFiles removes each path in paths from every containing layer,
// sealed layers included (see DeleteFile). A failure deleting one path
// does not stop the others: every path is attempted, and the index is
// cleaned up only for the records whose disk deletion actually succeeded,
// then every failure is reported together.
func (s *LayeredStorage) DeleteFiles(paths []string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	var toDelete []index.ListingRecord
	var failures []serr.PrefixErr
	for _, p := range paths {
		recs, err := s.idx.RecordsAtPath(p)
		if err != nil {
			failures = append(failures, serr.PrefixErr{P: p, E: err})
			continue
		}
		pathFailed := false
		for _, r := range recs {
			l, err := s.layers.GetLayer(r.LayerId)
			if err != nil {
				failures = append(failures, serr.PrefixErr{P: p, E: err})
				pathFailed = true
				continue
			}
			if err := l.DeleteFiles([]string{p}); err != nil {
				failures = append(failures, serr.PrefixErr{P: p, E: err})
				pathFailed = true
				continue
			}
			toDelete = append(toDelete, r)
		}
		if pathFailed {
			s.logger.Warn("deleteFiles left a path partially removed", "path", p)
		}
	}

	if err := s.idx.DeleteRecords(toDelete); err != nil {
		failures = append(failures, serr.PrefixErr{P: "", E: err})
	}
	if len(failures) > 0 {
		return errs.WrapPathErr("deleteFiles", "", serr.GatherPrefixed(failures))
	}
	return nil
}

// DeleteEmptyDirsDown deletes every directory below path that is empty in
// the visible view, processed in descending path-length order, requiring
// each to reside in the top layer. path itself is not considered.
func (s *LayeredStorage) DeleteEmptyDirsDown(path string) error {
	s.rw.Lock()
	recs, err := s.listRecursiveNoLock(path)
	s.rw.Unlock()
	if err != nil {
		return errs.WrapPathErr("deleteEmptyDirsDown", path, err)
	}

	var dirs []index.ListingRecord
	for _, r := range recs {
		if r.Type == index.Directory {
			dirs = append(dirs, r)
		}
	}
	sortByPathLengthDescending(dirs)

	for _, d := range dirs {
		empty, err := s.DirectoryIsEmpty(d.Path)
		if err != nil {
			return errs.WrapPathErr("deleteEmptyDirsDown", d.Path, err)
		}
		if !empty {
			continue
		}
		if err := s.DeleteDirectory(d.Path); err != nil {
			return errs.WrapPathErr("deleteEmptyDirsDown", d.Path, err)
		}
	}
	return nil
}

// DeleteEmptyDirsUp walks the proper ancestors of path from deepest to
// shallowest, deleting each that is empty in the visible view. path itself
// is not considered, and an empty ancestor with a record outside the top
// layer is left in place.
func (s *LayeredStorage) DeleteEmptyDirsUp(path string) error {
	for ancestor := range pathutil.AncestorsFromLeaf(path) {
		empty, err := s.DirectoryIsEmpty(ancestor)
		if err != nil {
			return errs.WrapPathErr("deleteEmptyDirsUp", ancestor, err)
		}
		if !empty {
			continue
		}
		if err := s.DeleteDirectory(ancestor); err != nil {
			if errors.Is(err, errs.InvariantViolation) {
				continue
			}
			return errs.WrapPathErr("deleteEmptyDirsUp", ancestor, err)
		}
	}
	return nil
}

func sortByPathLengthAscending(recs []index.ListingRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return pathutil.Depth(recs[i].Path) < pathutil.Depth(recs[j].Path)
	})
}

func sortByPathLengthDescending(recs []index.ListingRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return pathutil.Depth(recs[i].Path) > pathutil.Depth(recs[j].Path)
	})
}
