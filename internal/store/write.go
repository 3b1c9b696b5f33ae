package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/boardsync/internal/ir"
)

// Batch is one entry of a scene's applied-operation log.
type Batch struct {
	SceneID string `json:"scene_id"`
	Seq     int64  `json:"seq"`
	Source  string `json:"source"`
	Records int    `json:"records"`
	Digest  string `json:"digest"`
}

// SaveScene replaces the stored record set of sceneID with recs and
// records the scene digest. The scene row is created on first save.
func (s *Store) SaveScene(ctx context.Context, sceneID string, recs []ir.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save scene %s: begin tx: %w", sceneID, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := saveSceneTx(ctx, tx, sceneID, 0, recs); err != nil {
		return fmt.Errorf("save scene %s: %w", sceneID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save scene %s: commit: %w", sceneID, err)
	}
	return nil
}

// AppendBatch inserts a batch log entry.
// Uses ON CONFLICT DO NOTHING for idempotency - a replayed seq is ignored.
//
// Note: The scene must exist (foreign key constraint).
func (s *Store) AppendBatch(ctx context.Context, b Batch) error {
	if err := appendBatchTx(ctx, s.db, b); err != nil {
		return fmt.Errorf("append batch: %w", err)
	}
	return nil
}

// Commit atomically saves the scene and logs the batch that produced it.
// The batch digest is computed from recs.
func (s *Store) Commit(ctx context.Context, sceneID string, seq int64, source string, recs []ir.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit seq %d: begin tx: %w", seq, err)
	}
	defer tx.Rollback()

	digest, err := saveSceneTx(ctx, tx, sceneID, seq, recs)
	if err != nil {
		return fmt.Errorf("commit seq %d: %w", seq, err)
	}
	b := Batch{SceneID: sceneID, Seq: seq, Source: source, Records: len(recs), Digest: digest}
	if err := appendBatchTx(ctx, tx, b); err != nil {
		return fmt.Errorf("commit seq %d: %w", seq, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seq %d: %w", seq, err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// saveSceneTx upserts the scene row and rewrites its records. It returns
// the scene digest.
func saveSceneTx(ctx context.Context, tx *sql.Tx, sceneID string, seq int64, recs []ir.Record) (string, error) {
	digest, err := ir.SceneDigest(recs)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scenes (id, digest, updated_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			digest = excluded.digest,
			updated_seq = MAX(scenes.updated_seq, excluded.updated_seq)
	`, sceneID, digest, seq)
	if err != nil {
		return "", fmt.Errorf("upsert scene: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE scene_id = ?`, sceneID); err != nil {
		return "", fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(scene_id, id, version, version_nonce, order_key, deleted, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		payload, err := marshalPayload(r.Payload)
		if err != nil {
			return "", fmt.Errorf("record %s: %w", r.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			sceneID,
			r.ID,
			r.Version,
			r.VersionNonce,
			nullableKey(r.OrderKey),
			r.Deleted,
			payload,
		)
		if err != nil {
			return "", fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	return digest, nil
}

func appendBatchTx(ctx context.Context, db execer, b Batch) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO batches
		(scene_id, seq, source, record_count, scene_digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scene_id, seq) DO NOTHING
	`,
		b.SceneID,
		b.Seq,
		b.Source,
		b.Records,
		b.Digest,
	)
	if err != nil {
		return fmt.Errorf("insert batch %s/%d: %w", b.SceneID, b.Seq, err)
	}
	return nil
}
