package review

import (
	"fmt"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/hunk"
)

// Mode is the unit a review was finalized in.
type Mode string

const (
	ModeChanges Mode = "changes"
	ModeHunks   Mode = "hunks"
)

// Result is the outcome of finalizing or cancelling a Session.
//
// In ModeChanges the counts are changes, and pending changes count as rejected. In ModeHunks they are hunks: AcceptedCount is the number applied and
// RejectedCount the number toggled off.
type Result struct {
	Mode          Mode
	Applied       bool // at least one change or hunk was accepted
	FinalContent  string
	AcceptedCount int
	RejectedCount int
	Cancelled     bool
	Message       string

	// Skipped lists accepted changes that could not be spliced into the original. It is empty unless the changes were edited outside the session.
	Skipped []*change.BoundsError
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func changesMessage(accepted, rejected int, skipped []*change.BoundsError) string {
	msg := "No changes applied."
	if accepted > 0 {
		msg = fmt.Sprintf("Applied %s, rejected %d.", plural(accepted, "change"), rejected)
	}
	if len(skipped) > 0 {
		msg += fmt.Sprintf(" %s could not be applied.", plural(len(skipped), "accepted change"))
	}
	return msg
}

func hunksMessage(hunks []hunk.Hunk) string {
	applied, _ := hunk.Count(hunks)
	if applied == 0 {
		return "No hunks applied."
	}
	return fmt.Sprintf("Applied %d of %s.", applied, plural(len(hunks), "hunk"))
}
