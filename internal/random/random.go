/*
Package random contains utilities for generating random test data.
*/
package random

import (
	"math/rand"
	"time"

	"github.com/cambricnet/cambric/pkg/util"
)

func init() {
	rand.Seed(time.Now().UTC().UnixNano())
}

// String returns a random string with the n as its length.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(Int('A', 'Z'))
	}

	return string(b)
}

// Int returns a random integer in [min,max).
func Int(min, max int) int {
	return min + rand.Intn(max-min)
}

// Bytes returns a random byte slice of specified length.
func Bytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// Uint256 returns a random Uint256.
func Uint256() util.Uint256 {
	b := Bytes(util.Uint256Size)
	u, _ := util.Uint256DecodeBytes(b)
	return u
}
