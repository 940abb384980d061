// Package history records how each review ended: which document, which session, how many changes were accepted and rejected, and the content hashes
// before and after. It is an audit trail; nothing in the review engine reads it back.
package history

import (
	"context"
	"time"
)

// Outcome is one finished review.
type Outcome struct {
	SessionID    string    `json:"session_id"`
	DocumentID   string    `json:"document_id"`
	Mode         string    `json:"mode"` // "changes" or "hunks"
	Applied      bool      `json:"applied"`
	Cancelled    bool      `json:"cancelled"`
	Accepted     int       `json:"accepted"`
	Rejected     int       `json:"rejected"`
	OriginalHash string    `json:"original_hash"`
	FinalHash    string    `json:"final_hash"` // empty when cancelled
	Message      string    `json:"message"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Store appends outcomes and lists them per document, newest first. A limit <= 0 lists all.
type Store interface {
	Record(ctx context.Context, o Outcome) error
	List(ctx context.Context, documentID string, limit int) ([]Outcome, error)
	Close() error
}

// Nop discards outcomes.
type Nop struct{}

func (Nop) Record(context.Context, Outcome) error { return nil }

func (Nop) List(context.Context, string, int) ([]Outcome, error) { return nil, nil }

func (Nop) Close() error { return nil }
