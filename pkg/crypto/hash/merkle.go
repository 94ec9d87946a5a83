package hash

import "github.com/cambricnet/cambric/pkg/util"

// CalcMerkleRoot calculates the Merkle root hash value for the given slice
// of hashes. It uses the given slice as a scratchpad, so it will destroy
// its contents in the process. An empty slice yields a zero root, a single
// hash is its own root and an odd element is paired with itself.
func CalcMerkleRoot(hashes []util.Uint256) util.Uint256 {
	if len(hashes) == 0 {
		return util.Uint256{}
	}
	if len(hashes) == 1 {
		return hashes[0]
	}

	scratch := make([]byte, 2*util.Uint256Size)
	parents := hashes[:(len(hashes)+1)/2]
	for i := range parents {
		copy(scratch, hashes[i*2][:])

		if i*2+1 == len(hashes) {
			copy(scratch[util.Uint256Size:], hashes[i*2][:])
		} else {
			copy(scratch[util.Uint256Size:], hashes[i*2+1][:])
		}

		parents[i] = Blake2b256(scratch)
	}

	return CalcMerkleRoot(parents)
}
