package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	player_id  TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store implements profile persistence over SQLite. One file holds every
// profile document; the version column backs optimistic concurrency.
type Store struct {
	db *sql.DB
}

// Ensure Store implements the interface
var _ profile.Store = (*Store)(nil)

// Open opens the profile store and applies the schema
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads one profile document
func (s *Store) Get(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM profiles WHERE player_id = ?`, string(id),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	var p model.PlayerProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Upsert writes one profile document. A write carrying an older version
// than the stored row is ignored: flushes can arrive out of order and the
// newest version must win.
func (s *Store) Upsert(ctx context.Context, p *model.PlayerProfile) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO profiles (player_id, doc, version, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(player_id) DO UPDATE SET
	doc = excluded.doc,
	version = excluded.version,
	updated_at = excluded.updated_at
WHERE excluded.version > profiles.version`,
		string(p.PlayerID), string(doc), p.Version, p.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
