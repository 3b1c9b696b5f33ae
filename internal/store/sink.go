package store

import (
	"context"

	"github.com/roach88/boardsync/internal/ir"
)

// SceneSink persists one scene on behalf of a replica. It implements
// replica.Persister.
type SceneSink struct {
	store   *Store
	sceneID string
}

// Sink returns a persister writing to sceneID.
func (s *Store) Sink(sceneID string) *SceneSink {
	return &SceneSink{store: s, sceneID: sceneID}
}

// SceneID returns the scene this sink writes.
func (k *SceneSink) SceneID() string {
	return k.sceneID
}

// Persist commits the scene state produced by batch seq.
func (k *SceneSink) Persist(ctx context.Context, seq int64, source string, recs []ir.Record) error {
	return k.store.Commit(ctx, k.sceneID, seq, source, recs)
}
