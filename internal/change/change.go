// Package change turns a diff.Script into discrete, independently reviewable Changes and rebuilds a document from the Changes that were accepted.
//
// All offsets are byte offsets into the original document. A Change list produced by Extract is sorted ascending by From and never overlaps.
package change

import (
	"fmt"

	"github.com/codalotl/changereview/internal/diff"
)

// Type classifies a Change.
type Type string

const (
	Addition    Type = "addition"    // NewText is inserted at From; From == To
	Deletion    Type = "deletion"    // OriginalText at [From, To) is removed
	Replacement Type = "replacement" // OriginalText at [From, To) becomes NewText
)

// Status is a Change's review disposition. Pending is the only non-terminal status.
type Status string

const (
	Pending  Status = "pending"
	Accepted Status = "accepted"
	Rejected Status = "rejected"
)

// Change is one atomic edit anchored to the original document.
type Change struct {
	ID           int // 1-based, assigned in document order
	Type         Type
	From         int // inclusive byte offset in the original
	To           int // exclusive byte offset in the original
	OriginalText string
	NewText      string
	Status       Status
}

// IsPending reports whether c still awaits a decision.
func (c Change) IsPending() bool {
	return c.Status == Pending
}

func (c Change) String() string {
	return fmt.Sprintf("#%d %s [%d,%d) %s", c.ID, c.Type, c.From, c.To, c.Status)
}

// Extract walks s left to right and emits one Change per run of non-equal edits. A delete followed by an insert becomes a Replacement, a lone delete a Deletion,
// and a lone insert an Addition at the current original offset. Every returned Change is Pending.
func Extract(s diff.Script) []Change {
	var changes []Change
	pos := 0 // offset in the original; inserts do not advance it

	emit := func(c Change) {
		c.ID = len(changes) + 1
		c.Status = Pending
		changes = append(changes, c)
	}

	for i := 0; i < len(s); i++ {
		e := s[i]
		switch e.Op {
		case diff.OpEqual:
			pos += len(e.Text)
		case diff.OpDelete:
			if i+1 < len(s) && s[i+1].Op == diff.OpInsert {
				emit(Change{Type: Replacement, From: pos, To: pos + len(e.Text), OriginalText: e.Text, NewText: s[i+1].Text})
				i++
			} else {
				emit(Change{Type: Deletion, From: pos, To: pos + len(e.Text), OriginalText: e.Text})
			}
			pos += len(e.Text)
		case diff.OpInsert:
			emit(Change{Type: Addition, From: pos, To: pos, NewText: e.Text})
		}
	}
	return changes
}

// Compute diffs original to proposed with opts and extracts the resulting Changes. It returns nil when the texts are equal.
func Compute(original, proposed string, opts diff.Options) []Change {
	return Extract(diff.Compute(original, proposed, opts))
}

// Count tallies changes by status.
func Count(changes []Change) (accepted, rejected, pending int) {
	for _, c := range changes {
		switch c.Status {
		case Accepted:
			accepted++
		case Rejected:
			rejected++
		default:
			pending++
		}
	}
	return accepted, rejected, pending
}
