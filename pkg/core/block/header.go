/*
Package block contains the block header data the state layer works with.

Header hashing and wire encoding belong to outer layers; here a header is
plain data keyed by its already-known block hash.
*/
package block

import (
	"errors"

	"github.com/cambricnet/cambric/pkg/util"
)

// Header holds the head info of a block.
type Header struct {
	// ParentHash is the hash of the parent block.
	ParentHash util.Uint256
	// Number is the block height, genesis being zero.
	Number uint64
	// StateRoot is the root hash of the world state declared by this block.
	StateRoot util.Uint256
	// ExtrinsicsRoot is the root hash of the block body.
	ExtrinsicsRoot util.Uint256
}

// ErrHeaderNotFound is returned by HeaderSource implementations when they
// have no header for the requested hash.
var ErrHeaderNotFound = errors.New("header not found")

// HeaderSource provides headers by block hash. It is implemented by the
// header storage collaborator of the node and by HeaderMap.
type HeaderSource interface {
	// Header returns the header of the block with the given hash or an
	// error wrapping ErrHeaderNotFound if there is none.
	Header(hash util.Uint256) (*Header, error)
}
