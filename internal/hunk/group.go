package hunk

import (
	"sort"
	"strings"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/diff"
)

// DefaultContextLines is the default Options.ContextLines.
const DefaultContextLines = 3

// Options control Group.
type Options struct {
	// ContextLines is the minimum number of unchanged lines on each side of a hunk. Changes separated by at most 2*ContextLines unchanged lines share a hunk.
	ContextLines int
}

// DefaultOptions returns Options with DefaultContextLines.
func DefaultOptions() Options {
	return Options{ContextLines: DefaultContextLines}
}

// Compute diffs original to proposed and groups the resulting changes into hunks.
func Compute(original, proposed string, diffOpts diff.Options, opts Options) []Hunk {
	return Group(original, change.Compute(original, proposed, diffOpts), opts)
}

// Group groups changes (sorted and non-overlapping, as produced by change.Extract) into hunks over original. Statuses are ignored: every hunk starts Applied.
//
// Each change is widened to whole lines. Spans that overlap or sit within 2*ContextLines unchanged lines of each other merge. Each hunk then takes ContextLines
// lines of context on each side, growing one line at a time (never into a neighbouring hunk's Old) until Before + Old + After occurs exactly once both in
// original and in original with every earlier hunk applied. A hunk that cannot be made unique is merged with its neighbour. Applying every hunk with Reconstruct
// therefore yields the same text as accepting every change.
func Group(original string, changes []change.Change, opts Options) []Hunk {
	if len(changes) == 0 {
		return nil
	}
	ctx := max(opts.ContextLines, 0)
	g := &grouper{original: original, lines: newLineIndex(original)}

	var spans []span
	for _, c := range changes {
		sp := g.widen(span{from: c.From, to: c.To, changes: []change.Change{c}})
		if n := len(spans); n > 0 && g.gapLines(spans[n-1], sp) <= 2*ctx {
			spans[n-1] = g.merge(spans[n-1], sp)
			continue
		}
		spans = append(spans, sp)
	}

	var hunks []Hunk
	for k := 0; k < len(spans); {
		h, ok := g.anchor(spans, k, ctx)
		switch {
		case ok || len(spans) == 1:
			h.ID = k + 1
			hunks = append(hunks, h)
			k++
		case k > 0:
			// Rebuild the previous hunk with this span folded in.
			k--
			spans = g.absorb(spans, k)
			hunks = hunks[:k]
		default:
			spans = g.absorb(spans, k)
		}
	}
	return hunks
}

// span is a whole-line region [from, to) of the original and its text with the span's changes applied.
type span struct {
	from, to int
	newText  string
	changes  []change.Change
}

type grouper struct {
	original string
	lines    lineIndex
}

// widen extends sp to whole lines on both sides. If the replacement would not end in a newline (and sp is not at the end of the document), the next line is pulled
// in so that Old and New both end on a line boundary.
func (g *grouper) widen(sp span) span {
	sp.from = g.lines.lineStart(sp.from)
	if !isLineStart(g.original, sp.to) {
		sp.to = g.lines.lineEnd(sp.to)
	}
	sp.newText = g.apply(sp)
	for sp.to < len(g.original) && sp.newText != "" && !strings.HasSuffix(sp.newText, "\n") {
		end := g.lines.lineEnd(sp.to)
		sp.newText += g.original[sp.to:end]
		sp.to = end
	}
	return sp
}

func (g *grouper) merge(a, b span) span {
	return g.widen(span{
		from:    a.from,
		to:      max(a.to, b.to),
		changes: append(append([]change.Change(nil), a.changes...), b.changes...),
	})
}

// absorb merges spans[k+1] into spans[k], then keeps merging while the widened span overlaps its successor.
func (g *grouper) absorb(spans []span, k int) []span {
	for first := true; k+1 < len(spans) && (first || spans[k+1].from < spans[k].to); first = false {
		spans[k] = g.merge(spans[k], spans[k+1])
		spans = append(spans[:k+1], spans[k+2:]...)
	}
	return spans
}

// gapLines returns the number of unchanged lines between a and b, or -1 if they touch or overlap.
func (g *grouper) gapLines(a, b span) int {
	if b.from <= a.to {
		return -1
	}
	return strings.Count(g.original[a.to:b.from], "\n")
}

// apply returns original[sp.from:sp.to] with sp.changes applied.
func (g *grouper) apply(sp span) string {
	var b strings.Builder
	pos := sp.from
	for _, c := range sp.changes {
		b.WriteString(g.original[pos:c.From])
		b.WriteString(c.NewText)
		pos = c.To
	}
	b.WriteString(g.original[pos:sp.to])
	return b.String()
}

// running returns original with spans applied.
func (g *grouper) running(spans []span) string {
	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		b.WriteString(g.original[pos:sp.from])
		b.WriteString(sp.newText)
		pos = sp.to
	}
	b.WriteString(g.original[pos:])
	return b.String()
}

// anchor builds the hunk for spans[k], growing its context until it is unique. ok is false if the context is still ambiguous once it reaches its neighbours.
func (g *grouper) anchor(spans []span, k, ctx int) (Hunk, bool) {
	sp := spans[k]
	lo, hi := 0, len(g.original)
	if k > 0 {
		lo = spans[k-1].to
	}
	if k+1 < len(spans) {
		hi = spans[k+1].from
	}

	running := g.running(spans[:k])
	oldText := g.original[sp.from:sp.to]
	first, last := g.lines.lineOf(sp.from), g.lines.lineOf(sp.to)

	var before, after string
	unique := false
	for nb, na := ctx, ctx; ; {
		bs := max(g.lines.startOf(first-nb), lo)
		ae := max(min(g.lines.startOf(last+na), hi), sp.to)
		before, after = g.original[bs:sp.from], g.original[sp.to:ae]

		anchor := before + oldText + after
		if occurrences(g.original, anchor) == 1 && occurrences(running, anchor) == 1 {
			unique = true
			break
		}
		growB, growA := bs > lo, ae < hi
		if !growB && !growA {
			break
		}
		if growB {
			nb++
		}
		if growA {
			na++
		}
	}

	delta := 0
	for _, prev := range spans[:k] {
		delta += diff.CountLines(prev.newText) - diff.CountLines(g.original[prev.from:prev.to])
	}

	h := Hunk{
		OriginalStartLine: g.lines.lineOf(sp.from - len(before)),
		OriginalLineCount: diff.CountLines(before + oldText + after),
		NewLineCount:      diff.CountLines(before + sp.newText + after),
		Before:            before,
		Old:               oldText,
		After:             after,
		New:               sp.newText,
		Applied:           true,
	}
	h.NewStartLine = h.OriginalStartLine + delta
	h.Header = formatHeader(h.OriginalStartLine, h.OriginalLineCount, h.NewStartLine, h.NewLineCount)
	for _, c := range sp.changes {
		h.ChangeIDs = append(h.ChangeIDs, c.ID)
	}
	h.Lines = buildLines(before, oldText, sp.newText, after)
	return h, unique
}

func buildLines(before, oldText, newText, after string) []Line {
	var lines []Line
	for _, l := range diff.SplitLines(before) {
		lines = append(lines, Line{Type: LineContext, Content: trimEOL(l)})
	}
	for _, l := range diff.Lines(oldText, newText) {
		t := LineContext
		switch l.Op {
		case diff.OpDelete:
			t = LineDeletion
		case diff.OpInsert:
			t = LineAddition
		}
		lines = append(lines, Line{Type: t, Content: l.Content()})
	}
	for _, l := range diff.SplitLines(after) {
		lines = append(lines, Line{Type: LineContext, Content: trimEOL(l)})
	}
	return lines
}

// occurrences counts the positions where s occurs in content, overlapping matches included, stopping at 2.
func occurrences(content, s string) int {
	if s == "" {
		return min(len(content)+1, 2)
	}
	i := strings.Index(content, s)
	if i < 0 {
		return 0
	}
	if strings.Contains(content[i+1:], s) {
		return 2
	}
	return 1
}

// lineIndex maps byte offsets to 0-based line numbers. A text ending in '\n' has an empty final line starting at len(text).
type lineIndex struct {
	n      int
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{n: len(text), starts: starts}
}

// lineOf returns the line containing off.
func (li lineIndex) lineOf(off int) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
}

// startOf returns the offset where line i starts, clamped to the text.
func (li lineIndex) startOf(i int) int {
	switch {
	case i <= 0:
		return 0
	case i >= len(li.starts):
		return li.n
	default:
		return li.starts[i]
	}
}

func (li lineIndex) lineStart(off int) int {
	return li.startOf(li.lineOf(off))
}

// lineEnd returns the offset just past the line containing off, including its '\n'.
func (li lineIndex) lineEnd(off int) int {
	return li.startOf(li.lineOf(off) + 1)
}
