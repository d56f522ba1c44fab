// Package layermanager implements the ordered stack of layers, with
// exactly one — the newest — designated top and mutable.
package layermanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/ngicks/go-common/serr"
	"github.com/spf13/afero"

	"github.com/ocfl-go/layeredstore/errs"
	"github.com/ocfl-go/layeredstore/layer"
)

// LayerManager owns the ordered set of layers and designates exactly one
// as top. Creating and sealing layers are administrative operations
// invoked by a repository-maintenance tool outside LayeredStorage;
// LayeredStorage only ever consumes the current stack.
type LayerManager struct {
	mu      sync.RWMutex
	baseDir string
	byId    map[layer.Id]*layer.Layer
	order   []layer.Id // ascending; order[len(order)-1] is top
}

// New returns a LayerManager whose administratively created layers live
// under baseDir, one subdirectory per layer id.
func New(baseDir string) *LayerManager {
	return &LayerManager{
		baseDir: baseDir,
		byId:    make(map[layer.Id]*layer.Layer),
	}
}

// Adopt registers an already-constructed layer (e.g. one restored from
// disk at startup) as the new top of the stack. l's id must be greater
// than every previously adopted layer's id.
func (m *LayerManager) Adopt(l *layer.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) > 0 && l.Id() <= m.order[len(m.order)-1] {
		return fmt.Errorf("layermanager: layer id %d is not newer than current top %d", l.Id(), m.order[len(m.order)-1])
	}
	m.byId[l.Id()] = l
	m.order = append(m.order, l.Id())
	return nil
}

// CreateLayer materializes a new on-disk subtree under baseDir and adopts
// it as the new top layer, returning its assigned id.
func (m *LayerManager) CreateLayer() (layer.Id, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id layer.Id = 1
	if len(m.order) > 0 {
		id = m.order[len(m.order)-1] + 1
	}

	root := filepath.Join(m.baseDir, uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("layermanager: create layer root %s: %w", root, err)
	}

	fsys := afero.NewBasePathFs(afero.NewOsFs(), root)
	l := layer.New(id, fsys)
	m.byId[id] = l
	m.order = append(m.order, id)
	return id, nil
}

// SealLayer marks the layer with the given id read-only. Sealing the
// current top layer is legal; callers are expected to follow it with
// CreateLayer to establish a new mutable top.
func (m *LayerManager) SealLayer(id layer.Id) error {
	m.mu.RLock()
	l, ok := m.byId[id]
	m.mu.RUnlock()
	if !ok {
		return errs.WrapPathErr("sealLayer", "", fmt.Errorf("%w: no such layer %d", errs.NotFound, id))
	}
	l.Seal()
	return nil
}

// GetTopLayer returns the current mutable layer.
func (m *LayerManager) GetTopLayer() (*layer.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return nil, fmt.Errorf("layermanager: %w: no layers", errs.NotFound)
	}
	return m.byId[m.order[len(m.order)-1]], nil
}

// GetLayer looks up a layer by id.
func (m *LayerManager) GetLayer(id layer.Id) (*layer.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.byId[id]
	if !ok {
		return nil, fmt.Errorf("layermanager: %w: no layer %d", errs.NotFound, id)
	}
	return l, nil
}

// Layers returns every layer in ascending (oldest-first) id order.
func (m *LayerManager) Layers() []*layer.Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*layer.Layer, len(m.order))
	for i, id := range m.order {
		out[i] = m.byId[id]
	}
	return out
}

// Close releases every layer's backing filesystem, gathering per-layer
// close errors together rather than stopping at the first.
func (m *LayerManager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefixed := make([]serr.PrefixErr, 0, len(m.order))
	for _, id := range m.order {
		prefixed = append(prefixed, serr.PrefixErr{
			P: fmt.Sprintf("layer %d: ", id),
			E: m.byId[id].Close(),
		})
	}
	return serr.GatherPrefixed(prefixed)
}
