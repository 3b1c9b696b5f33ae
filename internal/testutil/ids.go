package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates record ids "<prefix>-0001", "<prefix>-0002", ...
//
// Replicas use random UUIDv7 ids in production. Scenarios and golden traces
// need ids that are stable across runs, so tests inject this generator.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates an id generator. An empty prefix becomes "rec".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "rec"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next id.
//
// Implements replica.IDGenerator.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// FixedNonces replays a fixed list of nonces, cycling when exhausted.
// An empty list always yields 1.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedNonces struct {
	mu     sync.Mutex
	values []int64
	i      int
}

// NewFixedNonces creates a nonce source replaying values in order.
func NewFixedNonces(values ...int64) *FixedNonces {
	return &FixedNonces{values: append([]int64(nil), values...)}
}

// Nonce returns the next nonce.
//
// Implements replica.NonceSource.
func (f *FixedNonces) Nonce() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 1
	}
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}
