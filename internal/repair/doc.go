// Package repair keeps the order keys of a record sequence consistent with
// its array order.
//
// The array is the source of truth for position. Keys are rewritten so that
// they strictly increase from left to right:
//
//   - FixInvalidIndices rewrites the minimal runs of records whose key is
//     missing, malformed, or not between its nearest valid neighbours. Each
//     run is regenerated with one KeysBetween call.
//   - RepairFromScratch is a greedy pass for data of unknown provenance.
//   - SyncMoved rewrites the keys of records moved by an explicit reorder
//     and falls back to FixInvalidIndices when that is not possible.
//
// Only OrderKey is touched. Version and nonce never change: repair is
// housekeeping, not an edit, and must not be broadcast as one.
//
// Generated keys are deterministic (no jitter) so that two replicas that
// repair the same sorted sequence agree on the result.
package repair
