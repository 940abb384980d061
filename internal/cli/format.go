package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/history"
	"github.com/codalotl/changereview/internal/review"
	"github.com/codalotl/changereview/internal/uni"
)

// textColumnWidth is the width of each original/new text column in change listings.
const textColumnWidth = 28

func writeChanges(w io.Writer, changes []change.Change) {
	row := func(cols ...string) {
		widths := []int{4, 12, 9, 14, textColumnWidth, 0}
		var b strings.Builder
		for i, c := range cols {
			if widths[i] > 0 {
				c = uni.PadRight(c, widths[i], nil)
			}
			b.WriteString(c)
			if i < len(cols)-1 {
				b.WriteString(" ")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	row("ID", "TYPE", "STATUS", "RANGE", "ORIGINAL", "NEW")
	for _, c := range changes {
		row(
			fmt.Sprint(c.ID),
			string(c.Type),
			string(c.Status),
			fmt.Sprintf("[%d,%d)", c.From, c.To),
			uni.Preview(c.OriginalText, textColumnWidth, nil),
			uni.Preview(c.NewText, textColumnWidth, nil),
		)
	}
}

func writeResult(w io.Writer, res review.Result) {
	fmt.Fprintln(w, res.Message)
	for _, be := range res.Skipped {
		fmt.Fprintf(w, "  skipped: %v\n", be)
	}
}

func writeHistory(w io.Writer, outcomes []history.Outcome) {
	for _, o := range outcomes {
		state := "applied"
		switch {
		case o.Cancelled:
			state = "cancelled"
		case !o.Applied:
			state = "unchanged"
		}
		fmt.Fprintf(w, "%s  %-7s  %-9s  +%d -%d  %s  %s\n",
			o.RecordedAt.UTC().Format(time.DateTime), o.Mode, state, o.Accepted, o.Rejected, shortHash(o.SessionID), o.Message)
	}
}

func shortHash(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
