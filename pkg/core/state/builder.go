package state

import (
	"bytes"
	"sort"

	"github.com/cambricnet/cambric/pkg/util/slice"
)

// Builder accumulates the world state of a block before it is published.
// It is exclusively owned by its creator: no locking is done and nothing
// is shared until Seal, which freezes the content into a BlockStorage.
// A spent Builder must not be reused, any method call after Seal panics.
type Builder struct {
	top      map[string][]byte
	children map[string]map[string][]byte
}

// NewBuilder creates an empty state Builder.
func NewBuilder() *Builder {
	return &Builder{
		top:      make(map[string][]byte),
		children: make(map[string]map[string][]byte),
	}
}

// Put writes the given key-value pair into the top-level trie. Both slices
// are copied, the caller keeps ownership of its buffers.
func (b *Builder) Put(key, value []byte) {
	b.ensureNotSealed()
	b.top[string(key)] = slice.Copy(value)
}

// PutChild writes the given key-value pair into the named child trie,
// creating the child on first use. Slices are copied like in Put.
func (b *Builder) PutChild(name, key, value []byte) {
	b.ensureNotSealed()
	c, ok := b.children[string(name)]
	if !ok {
		c = make(map[string][]byte)
		b.children[string(name)] = c
	}
	c[string(key)] = slice.Copy(value)
}

// Value returns the top-level value accumulated so far for the given key.
func (b *Builder) Value(key []byte) ([]byte, bool) {
	b.ensureNotSealed()
	v, ok := b.top[string(key)]
	return v, ok
}

// ChildValue returns the value accumulated so far in the named child trie
// for the given key.
func (b *Builder) ChildValue(name, key []byte) ([]byte, bool) {
	b.ensureNotSealed()
	c, ok := b.children[string(name)]
	if !ok {
		return nil, false
	}
	v, ok := c[string(key)]
	return v, ok
}

// Seal freezes the accumulated content and returns it as a shareable
// read-only BlockStorage. The Builder is spent afterwards.
func (b *Builder) Seal() *BlockStorage {
	b.ensureNotSealed()

	bs := &BlockStorage{
		top:      b.top,
		topKeys:  sortedKeys(b.top),
		children: make(map[string]*Child, len(b.children)),
	}
	names := make([][]byte, 0, len(b.children))
	for name, trie := range b.children {
		bs.children[name] = &Child{
			trie: trie,
			keys: sortedKeys(trie),
		}
		names = append(names, []byte(name))
	}
	sort.Slice(names, func(i, j int) bool {
		return bytes.Compare(names[i], names[j]) < 0
	})
	bs.childNames = names

	b.top = nil
	b.children = nil
	return bs
}

func (b *Builder) ensureNotSealed() {
	if b.top == nil {
		panic("use of an already sealed state Builder")
	}
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
