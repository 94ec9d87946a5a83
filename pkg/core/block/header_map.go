package block

import (
	"sync"

	"github.com/cambricnet/cambric/pkg/util"
)

// HeaderMap is an in-memory implementation of HeaderSource, mainly used
// for testing and for embedders that keep headers in memory anyway.
type HeaderMap struct {
	mut     sync.RWMutex
	headers map[util.Uint256]*Header
}

var _ HeaderSource = (*HeaderMap)(nil)

// NewHeaderMap creates a new HeaderMap object.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{
		headers: make(map[util.Uint256]*Header),
	}
}

// Add puts the given header into the map under the given block hash,
// replacing an older one if present.
func (m *HeaderMap) Add(hash util.Uint256, h *Header) {
	m.mut.Lock()
	m.headers[hash] = h
	m.mut.Unlock()
}

// Header implements the HeaderSource interface.
func (m *HeaderMap) Header(hash util.Uint256) (*Header, error) {
	m.mut.RLock()
	defer m.mut.RUnlock()
	if h, ok := m.headers[hash]; ok {
		return h, nil
	}
	return nil, ErrHeaderNotFound
}

// Len returns the number of headers in the map.
func (m *HeaderMap) Len() int {
	m.mut.RLock()
	defer m.mut.RUnlock()
	return len(m.headers)
}
