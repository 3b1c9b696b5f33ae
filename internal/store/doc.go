// Package store provides SQLite-backed persistence for boardsync scenes.
//
// A scene is stored as its latest reconciled record set plus an
// append-only batch log:
//   - Records: one row per (scene, record id) with the canonical payload
//   - Batches: one row per applied replica operation, keyed by the
//     replica's logical sequence number, with the scene digest after it
//
// # Ordering
//
// Records are read back ORDER BY order_key, id with BINARY collation, the
// same byte order the merge uses. Rows without a key sort last. Stored data
// is treated as untrusted: LoadScene repairs every key that breaks strict
// ordering before returning.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
