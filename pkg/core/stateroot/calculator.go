/*
Package stateroot computes commitment hashes over sealed block storage.

The root of a storage snapshot is a Blake2b-256 Merkle root over an
ordered list of leaves. Every top-level pair contributes a leaf tagged
0x00 covering the length-prefixed key and value, and every child trie
contributes a leaf tagged 0x01 covering its length-prefixed name and
its own root. Top-level leaves come first in key order, child leaves
follow in name order. The root of a child trie is computed the same
way a storage with only top-level pairs would be, so equal contents
commit to equal hashes regardless of nesting. An empty snapshot yields
the zero hash.
*/
package stateroot

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cambricnet/cambric/pkg/core/state"
	"github.com/cambricnet/cambric/pkg/crypto/hash"
	"github.com/cambricnet/cambric/pkg/util"
	lru "github.com/hashicorp/golang-lru"
)

// Leaf domain separation tags. Key/value pair leaves and child trie
// leaves must never collide even for crafted contents.
const (
	pairLeafTag  = 0x00
	childLeafTag = 0x01
)

// DefaultCacheSize is the number of root computations memoized by a
// Calculator when no explicit size is given.
const DefaultCacheSize = 32

// ErrRootMismatch is returned by VerifyStateRoot when the computed
// root differs from the expected one.
var ErrRootMismatch = errors.New("state root mismatch")

// Calculator computes and verifies state roots of sealed storage. It
// memoizes results per snapshot, which is sound because snapshots are
// immutable once sealed. Calculator is safe for concurrent use.
type Calculator struct {
	memo *lru.Cache
}

// NewCalculator returns a new Calculator memoizing up to cacheSize
// roots. Non-positive sizes fall back to DefaultCacheSize.
func NewCalculator(cacheSize int) *Calculator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New(cacheSize) // Never errors for positive size.
	return &Calculator{memo: cache}
}

// StateRoot returns the commitment root of the given snapshot. A nil
// or empty snapshot yields the zero hash.
func (c *Calculator) StateRoot(bs *state.BlockStorage) util.Uint256 {
	if bs == nil {
		return util.Uint256{}
	}
	if r, ok := c.memo.Get(bs); ok {
		return r.(util.Uint256)
	}
	root := calcStateRoot(bs)
	c.memo.Add(bs, root)
	return root
}

// ChildRoot returns the root of the named child trie within the given
// snapshot. It equals the StateRoot of a storage holding the child's
// pairs as its top-level ones. An absent child yields the zero hash.
func (c *Calculator) ChildRoot(bs *state.BlockStorage, name []byte) util.Uint256 {
	if bs == nil {
		return util.Uint256{}
	}
	return calcChildRoot(bs.Child(name))
}

// VerifyStateRoot checks the snapshot against an expected root and
// returns an error wrapping ErrRootMismatch if they differ.
func (c *Calculator) VerifyStateRoot(bs *state.BlockStorage, expected util.Uint256) error {
	if actual := c.StateRoot(bs); !actual.Equals(expected) {
		return fmt.Errorf("%w: expected %s, got %s", ErrRootMismatch, expected, actual)
	}
	return nil
}

func calcStateRoot(bs *state.BlockStorage) util.Uint256 {
	leaves := make([]util.Uint256, 0, bs.Len()+len(bs.ChildNames()))
	bs.Seek(func(k, v []byte) bool {
		leaves = append(leaves, pairLeaf(k, v))
		return true
	})
	for _, name := range bs.ChildNames() {
		leaves = append(leaves, childLeaf(name, calcChildRoot(bs.Child(name))))
	}
	return hash.CalcMerkleRoot(leaves)
}

func calcChildRoot(c *state.Child) util.Uint256 {
	if c == nil {
		return util.Uint256{}
	}
	leaves := make([]util.Uint256, 0, c.Len())
	c.Seek(func(k, v []byte) bool {
		leaves = append(leaves, pairLeaf(k, v))
		return true
	})
	return hash.CalcMerkleRoot(leaves)
}

func pairLeaf(key, value []byte) util.Uint256 {
	buf := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(key)+len(value))
	buf = append(buf, pairLeafTag)
	buf = binary.AppendUvarint(buf, uint64(len(key)))
	buf = append(buf, key...)
	buf = binary.AppendUvarint(buf, uint64(len(value)))
	buf = append(buf, value...)
	return hash.Blake2b256(buf)
}

func childLeaf(name []byte, root util.Uint256) util.Uint256 {
	buf := make([]byte, 0, 1+binary.MaxVarintLen64+len(name)+util.Uint256Size)
	buf = append(buf, childLeafTag)
	buf = binary.AppendUvarint(buf, uint64(len(name)))
	buf = append(buf, name...)
	buf = append(buf, root[:]...)
	return hash.Blake2b256(buf)
}
