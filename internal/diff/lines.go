package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Line is one line of a line-level diff. Text includes the trailing '\n' if the input line had one.
//
// Op is OpEqual, OpDelete (line only in the old text), or OpInsert (line only in the new text).
type Line struct {
	Op   Op
	Text string
}

// Content returns l.Text without its trailing EOL.
func (l Line) Content() string {
	core, _ := trimEOL(l.Text, defaultEOL)
	return core
}

// HasEOL reports whether l.Text ends with an EOL.
func (l Line) HasEOL() bool {
	_, ok := trimEOL(l.Text, defaultEOL)
	return ok
}

// Lines diffs oldText to newText by whole lines. Within each changed block, all deleted lines precede all inserted lines.
//
// Invariants:
//   - concat(Text of OpEqual and OpDelete lines) == oldText
//   - concat(Text of OpEqual and OpInsert lines) == newText
func Lines(oldText, newText string) []Line {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// Diff based on lines:
	rOld, rNew, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	lineDiffs := dmp.DiffMainRunes(rOld, rNew, false)
	lineDiffs = dmp.DiffCleanupMerge(lineDiffs)

	// Rehydrate rune-strings back to the original lines.
	lineDiffs = dmp.DiffCharsToLines(lineDiffs, lineArray)

	var lines []Line
	var dels, ins []string

	flush := func() {
		for _, l := range dels {
			lines = append(lines, Line{Op: OpDelete, Text: l})
		}
		for _, l := range ins {
			lines = append(lines, Line{Op: OpInsert, Text: l})
		}
		dels = nil
		ins = nil
	}

	for _, d := range lineDiffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			for _, l := range splitPreserveEOL(d.Text, defaultEOL) {
				lines = append(lines, Line{Op: OpEqual, Text: l})
			}
		case diffmatchpatch.DiffDelete:
			dels = append(dels, splitPreserveEOL(d.Text, defaultEOL)...)
		case diffmatchpatch.DiffInsert:
			ins = append(ins, splitPreserveEOL(d.Text, defaultEOL)...)
		}
	}
	flush()

	return lines
}

// CountLines returns the number of lines in text: every '\n' ends a line, and a non-empty unterminated tail counts as one more.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, defaultEOL)
	if !strings.HasSuffix(text, defaultEOL) {
		n++
	}
	return n
}

// SplitLines splits text into lines, preserving the trailing '\n' on each line.
func SplitLines(text string) []string {
	return splitPreserveEOL(text, defaultEOL)
}
