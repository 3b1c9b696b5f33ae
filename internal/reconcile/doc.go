// Package reconcile merges a local and a remote copy of a scene.
//
// Reconcile is a pure function of (local, remote, edit context):
//
//  1. index local records by id
//  2. walk remote records in order and pick a winner per id
//  3. append local records the remote batch does not mention
//  4. sort by (order key, id), records without a key last
//  5. repair order keys so they strictly increase
//
// Silence is never deletion. A record missing from the remote batch means
// the peer has not seen it yet; deletion travels as a tombstone record and
// merges like any other edit.
//
// Inputs are never mutated. The output holds fresh clones, so callers may
// keep using their slices from other goroutines.
package reconcile
