// Package replica owns one client's copy of a scene.
//
// Reconciliation itself is a pure function. What it does not provide is
// sequencing: every merge must read the state the previous merge wrote.
// Replica supplies that with a single-writer loop.
//
// Single-Writer Loop:
// Remote batches and local edits are enqueued from any goroutine and
// applied one at a time by Run. Each applied operation is stamped with the
// next value of a logical Clock, reconciled or edited against the current
// state, published for Snapshot, and handed to the Persister if one is set.
//
// Errors are logged and the loop continues. A failed operation leaves the
// state exactly as it was.
//
// Local edits bump version and reroll the nonce. Order key repair never
// does: repaired keys are housekeeping and are not broadcast.
package replica
