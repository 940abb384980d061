package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const busyTimeout = 5000 // milliseconds

// uriPathEscaper escapes the bytes that SQLite's URI filename syntax treats as delimiters. SQLite decodes %HH in the path.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// Schema is the SQLite schema for review outcomes.
const Schema = `
CREATE TABLE IF NOT EXISTS outcomes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    TEXT NOT NULL,
    document_id   TEXT NOT NULL,
    mode          TEXT NOT NULL,
    applied       INTEGER NOT NULL,
    cancelled     INTEGER NOT NULL,
    accepted      INTEGER NOT NULL,
    rejected      INTEGER NOT NULL,
    original_hash TEXT NOT NULL,
    final_hash    TEXT NOT NULL,
    message       TEXT NOT NULL,
    recorded_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_document ON outcomes(document_id, recorded_at);
`

// SQLite stores outcomes in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and initializes the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if d := filepath.Dir(path); d != "." && d != "" {
		if err := os.MkdirAll(d, 0o777); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", uriPathEscaper.Replace(path), busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, o Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (session_id, document_id, mode, applied, cancelled, accepted, rejected, original_hash, final_hash, message, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.SessionID, o.DocumentID, o.Mode, o.Applied, o.Cancelled, o.Accepted, o.Rejected, o.OriginalHash, o.FinalHash, o.Message, o.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, documentID string, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, document_id, mode, applied, cancelled, accepted, rejected, original_hash, final_hash, message, recorded_at
		FROM outcomes WHERE document_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?
	`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var recordedAt int64
		if err := rows.Scan(&o.SessionID, &o.DocumentID, &o.Mode, &o.Applied, &o.Cancelled, &o.Accepted, &o.Rejected, &o.OriginalHash, &o.FinalHash, &o.Message, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.RecordedAt = time.Unix(0, recordedAt).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
