/*
Package state implements the world state of a single block: a top-level
flat key-value trie plus any number of named child tries.

BlockStorage is built privately through a Builder and becomes a shared
read-only snapshot once sealed. Sharing a sealed snapshot is a pointer
copy; its content never changes, so any number of concurrent readers can
use it without locks. New content for a block always means a new
BlockStorage, never an in-place update of a published one.
*/
package state

import (
	"bytes"
)

// CodeKey is the reserved top-level key under which the runtime code blob
// is stored.
const CodeKey = ":code"

// BlockStorage is the sealed world state of one block. It is immutable:
// the only way to produce one is Builder.Seal. Slices returned or handed
// to callbacks by its methods are owned by the snapshot and must not be
// modified.
type BlockStorage struct {
	top        map[string][]byte
	topKeys    []string
	children   map[string]*Child
	childNames [][]byte
}

// Child is one namespaced child trie of a sealed BlockStorage. Its key
// space is independent from the top-level trie and from every other child.
type Child struct {
	trie map[string][]byte
	keys []string
}

// Value returns the value stored in the top-level trie under the given key.
// The second return value denotes key presence, absence is not an error.
func (s *BlockStorage) Value(key []byte) ([]byte, bool) {
	v, ok := s.top[string(key)]
	return v, ok
}

// Code returns the runtime code blob stored under the reserved CodeKey key.
// It is absent if it was never inserted.
func (s *BlockStorage) Code() ([]byte, bool) {
	v, ok := s.top[CodeKey]
	return v, ok
}

// Len returns the number of top-level entries.
func (s *BlockStorage) Len() int {
	return len(s.top)
}

// Seek iterates over top-level entries in ascending key order until false
// is returned from f. Key and value slices should not be modified.
func (s *BlockStorage) Seek(f func(k, v []byte) bool) {
	for _, k := range s.topKeys {
		if !f([]byte(k), s.top[k]) {
			break
		}
	}
}

// Child returns the child trie with the given name or nil if there is none.
func (s *BlockStorage) Child(name []byte) *Child {
	return s.children[string(name)]
}

// ChildValue returns the value stored in the named child trie under the
// given key, absence (of the child or of the key) is not an error.
func (s *BlockStorage) ChildValue(name, key []byte) ([]byte, bool) {
	c := s.children[string(name)]
	if c == nil {
		return nil, false
	}
	return c.Value(key)
}

// ChildNames returns the names of all child tries in ascending order. The
// returned slices should not be modified.
func (s *BlockStorage) ChildNames() [][]byte {
	return s.childNames
}

// Equal returns true if both storages have exactly the same content, in
// the top-level trie and in every child trie.
func (s *BlockStorage) Equal(other *BlockStorage) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if !mapEqual(s.top, other.top) || len(s.children) != len(other.children) {
		return false
	}
	for name, c := range s.children {
		oc, ok := other.children[name]
		if !ok || !mapEqual(c.trie, oc.trie) {
			return false
		}
	}
	return true
}

// Value returns the value stored in the child trie under the given key.
// The second return value denotes key presence, absence is not an error.
func (c *Child) Value(key []byte) ([]byte, bool) {
	v, ok := c.trie[string(key)]
	return v, ok
}

// Len returns the number of entries in the child trie.
func (c *Child) Len() int {
	return len(c.trie)
}

// Seek iterates over child trie entries in ascending key order until false
// is returned from f. Key and value slices should not be modified.
func (c *Child) Seek(f func(k, v []byte) bool) {
	for _, k := range c.keys {
		if !f([]byte(k), c.trie[k]) {
			break
		}
	}
}

func mapEqual(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !bytes.Equal(av, bv) {
			return false
		}
	}
	return true
}
