// Package layer implements a single on-disk filesystem subtree: the
// primitive a Layer exposes to LayeredStorage for file and directory
// mutation, independent of visibility or indexing concerns.
//
// A Layer wraps an afero.Fs rooted at its own directory, delegating each
// method to the underlying filesystem and gating mutators behind a sealed
// flag once the layer is no longer writable.
package layer

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/ocfl-go/layeredstore/errs"
	"github.com/ocfl-go/layeredstore/internal/pathutil"
)

// Id identifies a layer. Larger values are newer.
type Id = int64

// Layer is a handle to a filesystem subtree rooted at some directory,
// bound to an Id and a sealed/open state.
type Layer struct {
	id     Id
	fsys   afero.Fs
	afs    afero.Afero
	sealed atomic.Bool
}

// New wraps fsys (already rooted at the layer's directory) as an open
// Layer with the given id.
func New(id Id, fsys afero.Fs) *Layer {
	return &Layer{id: id, fsys: fsys, afs: afero.Afero{Fs: fsys}}
}

// Id returns the layer's identity.
func (l *Layer) Id() Id { return l.id }

// Sealed reports whether the layer currently rejects mutations.
func (l *Layer) Sealed() bool { return l.sealed.Load() }

// Seal marks the layer read-only. Sealing is idempotent and irreversible;
// it is invoked by external layer-management policy, never by
// LayeredStorage itself.
func (l *Layer) Seal() { l.sealed.Store(true) }

func (l *Layer) checkWritable(op, path string) error {
	if l.Sealed() {
		return errs.WrapPathErr(op, path, errs.ReadOnly)
	}
	return nil
}

// Write creates path (and its parent directories) and stores inputBytes.
// Overwriting an existing file is forbidden: callers must guarantee path
// is novel via the index.
func (l *Layer) Write(path string, inputBytes []byte) error {
	if err := l.checkWritable("write", path); err != nil {
		return err
	}
	if parent := pathutil.Parent(path); parent != "" {
		if err := l.fsys.MkdirAll(parent, 0o755); err != nil {
			return errs.WrapPathErr("write", path, err)
		}
	}
	f, err := l.fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errs.WrapPathErr("write", path, err)
	}
	defer f.Close()
	if _, err := f.Write(inputBytes); err != nil {
		return errs.WrapPathErr("write", path, err)
	}
	return nil
}

// CreateDirectories performs the equivalent of mkdir -p within the layer.
func (l *Layer) CreateDirectories(path string) error {
	if err := l.checkWritable("mkdir", path); err != nil {
		return err
	}
	if err := l.fsys.MkdirAll(path, 0o755); err != nil {
		return errs.WrapPathErr("mkdir", path, err)
	}
	return nil
}

// DeleteDirectory recursively deletes path.
func (l *Layer) DeleteDirectory(path string) error {
	if err := l.checkWritable("deleteDirectory", path); err != nil {
		return err
	}
	if err := l.fsys.RemoveAll(path); err != nil {
		return errs.WrapPathErr("deleteDirectory", path, err)
	}
	return nil
}

// DeleteFiles best-effort removes every path in paths, continuing past
// individual failures and returning the first error encountered (if any)
// after attempting all of them. Unlike every other mutator, DeleteFiles
// is permitted on a sealed layer: the facade uses it to remove a path
// from *every* layer that still has a record for it, sealed lower layers
// included, so a deleted path cannot keep resurfacing from underneath.
func (l *Layer) DeleteFiles(paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := l.fsys.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = errs.WrapPathErr("deleteFiles", p, err)
			}
		}
	}
	return firstErr
}

// Read opens path for reading.
func (l *Layer) Read(path string) (io.ReadCloser, error) {
	f, err := l.fsys.Open(path)
	if err != nil {
		return nil, errs.WrapPathErr("read", path, err)
	}
	return f, nil
}

// Close releases the layer's backing filesystem, if it holds closable
// resources (an archive- or database-backed afero.Fs, for instance); a
// plain on-disk or in-memory backing filesystem has nothing to release.
func (l *Layer) Close() error {
	if c, ok := l.fsys.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileExists stats path on disk.
func (l *Layer) FileExists(path string) (bool, error) {
	exists, err := l.afs.Exists(path)
	if err != nil {
		return false, errs.WrapPathErr("fileExists", path, err)
	}
	return exists, nil
}

// Stat returns on-disk file info for path.
func (l *Layer) Stat(path string) (fs.FileInfo, error) {
	info, err := l.fsys.Stat(path)
	if err != nil {
		return nil, errs.WrapPathErr("stat", path, err)
	}
	return info, nil
}

// MoveDirectoryInternal renames srcPath to destPath within this layer.
func (l *Layer) MoveDirectoryInternal(srcPath, destPath string) error {
	if err := l.checkWritable("rename", srcPath); err != nil {
		return err
	}
	if parent := pathutil.Parent(destPath); parent != "" {
		if err := l.fsys.MkdirAll(parent, 0o755); err != nil {
			return errs.WrapLinkErr("rename", srcPath, destPath, err)
		}
	}
	if err := l.fsys.Rename(srcPath, destPath); err != nil {
		return errs.WrapLinkErr("rename", srcPath, destPath, err)
	}
	return nil
}

// realPather is implemented by afero.BasePathFs (and similar wrappers)
// to expose the host filesystem path backing a virtual path. Layers
// backed by such a filesystem can attempt a same-device os.Rename before
// falling back to copy-then-delete.
type realPather interface {
	RealPath(name string) (string, error)
}

// MoveDirectoryInto moves the external directory tree rooted at
// sourceExternalPath into this layer at destPath. If the layer's
// filesystem exposes a host path (RealPath), an os.Rename is attempted
// first; without a host path, or on any rename failure, the tree is copied
// in, then the external source is removed.
func (l *Layer) MoveDirectoryInto(sourceExternalPath, destPath string) error {
	if err := l.checkWritable("moveDirectoryInto", destPath); err != nil {
		return err
	}
	if parent := pathutil.Parent(destPath); parent != "" {
		if err := l.fsys.MkdirAll(parent, 0o755); err != nil {
			return errs.WrapPathErr("moveDirectoryInto", destPath, err)
		}
	}

	if rp, ok := l.fsys.(realPather); ok {
		if realDest, err := rp.RealPath(destPath); err == nil {
			if err := os.Rename(sourceExternalPath, realDest); err == nil {
				return nil
			}
			// Fall through to copy-then-delete on any rename failure
			// (typically EXDEV, cross-device).
		}
	}

	if err := copyTree(sourceExternalPath, l.fsys, destPath); err != nil {
		return errs.WrapPathErr("moveDirectoryInto", destPath, err)
	}
	if err := os.RemoveAll(sourceExternalPath); err != nil {
		return errs.WrapPathErr("moveDirectoryInto", destPath, err)
	}
	return nil
}

// copyTree recursively copies the host directory tree at src into dst at
// destPath.
func copyTree(src string, dst afero.Fs, destPath string) error {
	return filepath.Walk(src, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := destPath
		if rel != "." {
			target = pathutil.Join(destPath, filepath.ToSlash(rel))
		}

		switch {
		case info.IsDir():
			return dst.MkdirAll(target, info.Mode().Perm())
		case info.Mode().IsRegular():
			in, err := os.Open(p)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := dst.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
			if err != nil {
				return err
			}
			defer out.Close()
			_, err = io.Copy(out, in)
			return err
		default:
			// symlinks and other special files are not part of the OCFL
			// object model this core serves; skip them.
			return nil
		}
	})
}
