package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/boardsync/internal/ir"
)

// LoadScene returns the records of sceneID in key order with invalid keys
// repaired. Rows without a key come last, ordered by id.
//
// Stored data may have been written by an older or foreign client, so the
// result always goes through RepairFromScratch. Repairs are logged, not
// written back; the next save persists them.
//
// Returns ErrSceneNotFound (wrapped) for an unknown scene.
func (s *Store) LoadScene(ctx context.Context, sceneID string) ([]ir.Record, error) {
	ok, err := s.sceneExists(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("load scene %s: %w", sceneID, ErrSceneNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, version_nonce, order_key, deleted, payload
		FROM records
		WHERE scene_id = ?
		ORDER BY order_key IS NULL, order_key COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	recs := []ir.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	changed, err := s.repairer.RepairFromScratch(recs)
	if err != nil {
		return nil, fmt.Errorf("load scene %s: repair: %w", sceneID, err)
	}
	if len(changed) > 0 {
		slog.Warn("repaired stored order keys",
			"scene", sceneID,
			"records", len(recs),
			"repaired", len(changed),
		)
	}
	return recs, nil
}

// Batches returns the batch log of sceneID ordered by seq.
// Returns an empty slice (not nil) for a scene with no batches.
func (s *Store) Batches(ctx context.Context, sceneID string) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scene_id, seq, source, record_count, scene_digest
		FROM batches
		WHERE scene_id = ?
		ORDER BY seq ASC
	`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.SceneID, &b.Seq, &b.Source, &b.Records, &b.Digest); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// LastSeq returns the highest logged seq of sceneID, or 0. A replica
// resuming the scene starts its clock here.
func (s *Store) LastSeq(ctx context.Context, sceneID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM batches WHERE scene_id = ?
	`, sceneID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq %s: %w", sceneID, err)
	}
	return seq, nil
}

// SceneDigest returns the digest recorded by the last save of sceneID.
func (s *Store) SceneDigest(ctx context.Context, sceneID string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM scenes WHERE id = ?`, sceneID).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("scene digest %s: %w", sceneID, ErrSceneNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("scene digest %s: %w", sceneID, err)
	}
	return digest, nil
}

// Scenes returns all stored scene ids in byte order.
func (s *Store) Scenes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM scenes ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}
	return ids, nil
}

func scanRecord(rows *sql.Rows) (ir.Record, error) {
	var (
		r       ir.Record
		key     sql.NullString
		payload string
	)
	if err := rows.Scan(&r.ID, &r.Version, &r.VersionNonce, &key, &r.Deleted, &payload); err != nil {
		return ir.Record{}, fmt.Errorf("scan record: %w", err)
	}
	if key.Valid {
		r.OrderKey = key.String
	}
	obj, err := unmarshalPayload(payload)
	if err != nil {
		return ir.Record{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	r.Payload = obj
	return r, nil
}
