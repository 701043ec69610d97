// Package sqlite persists lead records in an SQLite database via database/sql
// and the modernc.org/sqlite driver. The log is append-only: records are
// inserted once and never updated in place.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leadflow/leadflow/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	verdict_id     TEXT NOT NULL,
	kind           TEXT NOT NULL,
	score          INTEGER NOT NULL,
	band           TEXT NOT NULL,
	degraded       INTEGER NOT NULL,
	channel_id     TEXT NOT NULL,
	subject_id     TEXT NOT NULL,
	sender_display TEXT,
	transcript     TEXT NOT NULL,
	extras_json    TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_channel ON leads(channel_id);
CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);
`

// Store is an SQLite-backed core.LeadStore.
type Store struct {
	db *sql.DB
}

var _ core.LeadStore = (*Store)(nil)

// Open opens (creating if needed) the lead log at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open lead store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply lead schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing database handle, applying the schema.
func NewFromDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply lead schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append implements core.LeadStore.
func (s *Store) Append(ctx context.Context, rec core.LeadRecord) error {
	extras, err := json.Marshal(rec.Extras)
	if err != nil {
		return fmt.Errorf("marshal lead extras: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads(id,verdict_id,kind,score,band,degraded,channel_id,subject_id,sender_display,transcript,extras_json,created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.VerdictID, rec.Kind.String(), rec.Score, rec.Band.String(),
		boolToInt(rec.Degraded), rec.ChannelID, rec.SubjectID, nullable(rec.SenderDisplay),
		rec.Transcript, string(extras), rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert lead record: %w", err)
	}
	return nil
}

// Count returns the number of persisted lead records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count lead records: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
