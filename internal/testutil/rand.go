package testutil

import (
	"math/rand"

	"github.com/seehuhn/mt19937"
)

// NewRand returns a Mersenne Twister backed *rand.Rand seeded with seed.
// The sequence is fixed for a given seed on every platform and Go release,
// which keeps jittered keys in golden files stable.
//
// The returned generator is not safe for concurrent use.
func NewRand(seed int64) *rand.Rand {
	mt := mt19937.New()
	mt.Seed(seed)
	return rand.New(mt)
}
