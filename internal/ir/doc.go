// Package ir defines the record model shared by every boardsync package.
//
// A Record is the unit being reconciled: an id, a version/nonce pair used to
// pick a winner between conflicting copies, an order key that places it in
// the scene, a tombstone flag, and an opaque payload.
//
// This package imports nothing internal. Key constraints:
//   - Payload values are a sealed set (Null, String, Int, Bool, Array, Object)
//   - NO floats anywhere, so canonical bytes agree across peers
//   - All JSON tags use snake_case
//   - An empty OrderKey means "not yet assigned"
package ir
