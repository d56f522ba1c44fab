// Package errs defines the closed error taxonomy used throughout the
// layered-storage core.
package errs

import "errors"

// Sentinel errors returned by the layer, index and facade packages.
// Implementations wrap these with [WrapPathErr] so callers can both
// errors.Is against the sentinel and recover the offending path.
var (
	// IoError indicates an underlying filesystem or index transport failure.
	IoError = errors.New("io error")
	// NotFound indicates the requested path has no visible record.
	NotFound = errors.New("not found")
	// Conflict indicates a type or occupancy violation (e.g. file vs directory).
	Conflict = errors.New("conflict")
	// Duplicate indicates a record already exists for (layerId, path).
	Duplicate = errors.New("duplicate")
	// InvariantViolation indicates an operation precondition on layer locality failed.
	InvariantViolation = errors.New("invariant violation")
	// ReadOnly indicates an attempt to mutate a sealed layer.
	ReadOnly = errors.New("read only")
	// Encoding indicates invalid bytes where text was expected.
	Encoding = errors.New("encoding error")
)

// PathErr wraps a sentinel error with the operation name and path that
// triggered it, analogous to [*io/fs.PathError] but carrying one of the
// sentinels above as its Err so errors.Is(err, errs.NotFound) etc. works.
type PathErr struct {
	Op   string
	Path string
	Err  error
}

func (e *PathErr) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathErr) Unwrap() error { return e.Err }

// WrapPathErr wraps err into a *PathErr carrying op and path.
// If err is nil, WrapPathErr also returns nil.
// If err is already a *PathErr, its Op and Path are overwritten when
// op/path are non-empty.
func WrapPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PathErr); ok {
		if op != "" {
			pe.Op = op
		}
		if path != "" {
			pe.Path = path
		}
		return pe
	}
	return &PathErr{Op: op, Path: path, Err: err}
}

// LinkErr is the rename/move analogue of PathErr, carrying two paths.
type LinkErr struct {
	Op       string
	Old, New string
	Err      error
}

func (e *LinkErr) Error() string {
	return e.Op + " " + e.Old + " -> " + e.New + ": " + e.Err.Error()
}

func (e *LinkErr) Unwrap() error { return e.Err }

// WrapLinkErr wraps err into a *LinkErr carrying op, old and new.
func WrapLinkErr(op, old, new string, err error) error {
	if err == nil {
		return nil
	}
	if le, ok := err.(*LinkErr); ok {
		if op != "" {
			le.Op = op
		}
		if old != "" {
			le.Old = old
		}
		if new != "" {
			le.New = new
		}
		return le
	}
	return &LinkErr{Op: op, Old: old, New: new, Err: err}
}
