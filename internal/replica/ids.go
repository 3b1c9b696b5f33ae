package replica

import (
	"math/rand"

	"github.com/google/uuid"
)

// IDGenerator assigns ids to newly created records.
// Implemented by UUIDv7IDs (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	NewID() string
}

// NonceSource rerolls version nonces on every local mutation.
// Implemented by RandomNonces (production) and testutil.FixedNonces (tests).
type NonceSource interface {
	Nonce() int64
}

// UUIDv7IDs generates time-sortable UUIDv7 record ids.
//
// Thread-safety: UUIDv7IDs is stateless and safe for concurrent use.
type UUIDv7IDs struct{}

// NewID returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7IDs) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RandomNonces draws nonces uniformly from [1, 2^31). Nonces only break
// ties, so they need no cryptographic strength.
//
// Thread-safety: RandomNonces uses the goroutine-safe global source.
type RandomNonces struct{}

// Nonce returns a fresh random nonce.
func (RandomNonces) Nonce() int64 {
	return 1 + rand.Int63n(1<<31-1)
}
