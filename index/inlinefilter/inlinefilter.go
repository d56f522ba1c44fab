// Package inlinefilter implements the strategy for deciding which files
// moved into a layer get their bytes cached inside the ListingIndex: a
// small strategy object the facade holds and consults per file, with one
// trivial implementation and one size-aware implementation.
package inlinefilter

import "os"

// Filter decides whether the file at externalPath should have its content
// cached in the index at ingest time.
type Filter interface {
	Accept(externalPath string) bool
}

// FilterFunc adapts a plain function to a Filter.
type FilterFunc func(externalPath string) bool

func (f FilterFunc) Accept(externalPath string) bool { return f(externalPath) }

// RejectAll is the spec's stated default: nothing is ever inlined.
var RejectAll Filter = FilterFunc(func(string) bool { return false })

// sizeThreshold inlines any regular file whose size does not exceed max.
type sizeThreshold struct {
	max int64
}

// SizeThreshold returns a Filter that accepts files up to maxBytes in size,
// statting externalPath to decide. Stat failures (e.g. a path that does
// not exist) and directories are treated as reject.
func SizeThreshold(maxBytes int64) Filter {
	return &sizeThreshold{max: maxBytes}
}

func (f *sizeThreshold) Accept(externalPath string) bool {
	info, err := os.Stat(externalPath)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Size() <= f.max
}
