package reconcile

import (
	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/orderkey"
)

// DiscardRemote reports whether the local copy of a record beats the
// remote copy. local and remote must share an id.
//
// The local copy wins when it is under an active edit, when its version is
// higher, or when versions match and its nonce is lower. Remaining ties are
// broken by Newer so that the choice never depends on which side is local.
func DiscardRemote(local, remote ir.Record, edit EditContext) bool {
	if edit.Protects(local.ID) {
		return true
	}
	return Newer(local, remote)
}

// Newer reports whether a beats b under the version ordering:
//
//  1. higher Version
//  2. lower VersionNonce
//  3. lower ContentDigest (same version and nonce, different content)
//  4. larger valid order key (same content, keys differ)
//
// Repair moves a colliding key upward without bumping the version, so the
// repaired copy must beat the stale one or a second pass would undo it.
//
// Newer(a, b) and Newer(b, a) are never both true. When both are false the
// copies are interchangeable.
func Newer(a, b ir.Record) bool {
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	if a.VersionNonce != b.VersionNonce {
		return a.VersionNonce < b.VersionNonce
	}
	da, db := digest(a), digest(b)
	if da != db {
		return da < db
	}
	return keyGreater(a.OrderKey, b.OrderKey)
}

// digest returns "" when the record cannot be canonicalized; such a record
// then sorts before any hashable copy, which keeps the rule symmetric.
func digest(r ir.Record) string {
	d, err := ir.ContentDigest(r)
	if err != nil {
		return ""
	}
	return d
}

// keyGreater orders keys for tie-breaking: well-formed keys beat missing or
// malformed ones, then the larger key wins.
func keyGreater(a, b string) bool {
	va, vb := orderkey.Base62.Valid(a), orderkey.Base62.Valid(b)
	if va != vb {
		return va
	}
	return a > b
}
