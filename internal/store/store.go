package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/boardsync/internal/repair"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stored in PRAGMA user_version.
// v1 adds the (scene_id, order_key, id) index that LoadScene orders by.
const currentSchemaVersion = 1

// ErrSceneNotFound is returned when a scene id has never been saved.
var ErrSceneNotFound = errors.New("scene not found")

// Store keeps scenes and the log of batches applied to them in one SQLite
// file. WAL journaling lets readers run alongside the single writer.
type Store struct {
	db       *sql.DB
	repairer *repair.Repairer
}

// Option configures a Store.
type Option func(*Store)

// WithRepairer sets the repairer used to sanitise loaded scenes. It should
// use the same alphabet as the replicas writing the scene.
func WithRepairer(r *repair.Repairer) Option {
	return func(s *Store) { s.repairer = r }
}

// Open opens the scene database at path, creating it when missing, and
// brings its schema up to date. Reopening an existing file is safe.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one connection: SQLite serialises writers anyway, and pragmas are
	// per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	setup := []struct {
		step string
		run  func(*sql.DB) error
	}{
		{"connect", func(db *sql.DB) error { return db.Ping() }},
		{"pragmas", applyPragmas},
		{"schema", applySchema},
	}
	for _, st := range setup {
		if err := st.run(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("open %s: %s: %w", path, st.step, err)
		}
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.repairer == nil {
		s.repairer = repair.New(nil)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for tests and ad hoc inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}
	return runMigrations(db)
}

// runMigrations steps user_version up to currentSchemaVersion.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	migrations := []func(*sql.DB) error{migrateToV1}
	for v := version; v < currentSchemaVersion; v++ {
		if err := migrations[v](db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the index backing LoadScene's ORDER BY.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_order
		ON records(scene_id, order_key COLLATE BINARY, id COLLATE BINARY)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma compares a live pragma value against expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if !strings.EqualFold(value, expected) {
		return fmt.Errorf("%s = %q, want %q", name, value, expected)
	}
	return nil
}

// sceneExists reports whether id has a scenes row.
func (s *Store) sceneExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check scene %s: %w", id, err)
	}
	return count > 0, nil
}
