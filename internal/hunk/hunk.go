// Package hunk groups Changes into contiguous, context-anchored hunks that can be toggled as a unit, and re-applies the toggled hunks to a document.
//
// A Hunk is a patch: Before + Old + After locates the region in the document, and New replaces Old. Hunks are always derived from a change.Change list, so the
// fine-grained and coarse-grained views of a review never disagree.
//
// Reconstruction never trusts line numbers. Each applied hunk's context must occur exactly once in the running content; otherwise the hunk is skipped and reported
// (ErrContextNotFound, ErrAmbiguousContext). Preflight runs the same simulation and fails the whole set if any hunk would be skipped.
package hunk

import (
	"fmt"
	"strings"
)

// LineType classifies a Hunk line.
type LineType string

const (
	LineContext  LineType = "context"
	LineAddition LineType = "addition"
	LineDeletion LineType = "deletion"
)

// Line is one displayed line of a Hunk. Content has no trailing EOL.
type Line struct {
	Type    LineType
	Content string
}

// Hunk is a contiguous region of the original document together with its replacement.
//
// Line ranges are 0-based and cover Before + Old + After (original) or Before + New + After (new document, assuming every earlier hunk is applied). Header uses
// the unified-diff convention, where starts are 1-based.
type Hunk struct {
	ID                int // 1-based
	OriginalStartLine int
	OriginalLineCount int
	NewStartLine      int
	NewLineCount      int
	Header            string
	Lines             []Line

	Before string // context preceding Old
	Old    string // original text being replaced; whole lines
	After  string // context following Old
	New    string // replacement for Old; whole lines

	ChangeIDs []int // changes grouped into this hunk, ascending
	Applied   bool  // defaults to true; set to false to keep the original text
}

// Context returns Before + Old + After, the text that anchors h in a document.
func (h Hunk) Context() string {
	return h.Before + h.Old + h.After
}

// LineRange returns h's 1-based, inclusive original line range for messages, e.g. "3-7". An empty range is reported as its insertion point.
func (h Hunk) LineRange() string {
	first := h.OriginalStartLine + 1
	if h.OriginalLineCount <= 1 {
		return fmt.Sprintf("%d", first)
	}
	return fmt.Sprintf("%d-%d", first, first+h.OriginalLineCount-1)
}

// formatHeader builds "@@ -a,b +c,d @@". A zero-length range is printed at the line before it, as unified diffs do.
func formatHeader(oldStart, oldCount, newStart, newCount int) string {
	start := func(s, n int) int {
		if n == 0 {
			return s
		}
		return s + 1
	}
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", start(oldStart, oldCount), oldCount, start(newStart, newCount), newCount)
}

// Toggle sets Applied on the hunk with id and reports whether it exists.
func Toggle(hunks []Hunk, id int, applied bool) bool {
	for i := range hunks {
		if hunks[i].ID == id {
			hunks[i].Applied = applied
			return true
		}
	}
	return false
}

// Count tallies hunks by Applied.
func Count(hunks []Hunk) (applied, skipped int) {
	for _, h := range hunks {
		if h.Applied {
			applied++
		} else {
			skipped++
		}
	}
	return applied, skipped
}

func isLineStart(text string, off int) bool {
	return off == 0 || text[off-1] == '\n'
}

func trimEOL(s string) string {
	return strings.TrimSuffix(s, "\n")
}
