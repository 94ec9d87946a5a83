/*
Package hash contains the hashing primitives the chain is built on.

Everything content-addressed (block hashes, state roots, trie leaves) uses
BLAKE2b-256.
*/
package hash

import (
	"golang.org/x/crypto/blake2b"

	"github.com/cambricnet/cambric/pkg/util"
)

// Blake2b256 hashes the incoming byte slice using the BLAKE2b-256 algorithm.
func Blake2b256(data []byte) util.Uint256 {
	return util.Uint256(blake2b.Sum256(data))
}
