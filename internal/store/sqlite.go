package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/efreitasn/papertrade/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS portfolios (
	session_id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	data TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore is a SnapshotStore backed by a single-table SQLite database:
// one JSON record per session keyed by session_id. The seq guard in the
// upsert makes writes monotonic even if a stale save slips past the
// persister's coalescing.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts the session's record, refusing to replace a newer one.
func (s *SQLiteStore) Save(ctx context.Context, snap *PortfolioSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal portfolio snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolios (session_id, seq, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			seq = excluded.seq,
			data = excluded.data,
			updated_at = excluded.updated_at
		WHERE excluded.seq >= portfolios.seq`,
		snap.SessionID, snap.Seq, string(data), time.Now().UTC(),
	)
	return err
}

// Load reads the session's record.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*PortfolioSnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM portfolios WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return unmarshalSnapshot([]byte(data))
}

// List reads every persisted session record.
func (s *SQLiteStore) List(ctx context.Context) ([]*PortfolioSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM portfolios ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PortfolioSnapshot
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		snap, err := unmarshalSnapshot([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes the session's record.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM portfolios WHERE session_id = ?`, sessionID)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unmarshalSnapshot(data []byte) (*PortfolioSnapshot, error) {
	var snap PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal portfolio snapshot: %w", err)
	}
	return &snap, nil
}
