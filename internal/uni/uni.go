// Package uni measures and trims text for fixed-width terminal columns, one grapheme cluster at a time.
package uni

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// Options control width calculation. A nil *Options assumes a non-East Asian locale.
type Options struct {
	EastAsianWidth   bool // treat ambiguous East Asian code points as 2 columns; use in CJK locales
	TreatEmojiAsWide bool // only considered if EastAsianWidth
}

// Ellipsis is appended by Truncate when it drops text.
const Ellipsis = "…"

// TextWidth returns the number of terminal columns str occupies.
func TextWidth(str string, opts *Options) int {
	return condition(opts).StringWidth(str)
}

// Truncate shortens str to at most width columns, cutting only between grapheme clusters. If anything is dropped the result ends in Ellipsis, which counts
// toward width.
func Truncate(str string, width int, opts *Options) string {
	cond := condition(opts)
	if width <= 0 {
		return ""
	}
	if cond.StringWidth(str) <= width {
		return str
	}

	limit := width - cond.StringWidth(Ellipsis)
	used := 0
	end := 0
	iter := graphemes.FromString(str)
	for iter.Next() {
		w := cond.StringWidth(iter.Value())
		if used+w > limit {
			break
		}
		used += w
		end = iter.End()
	}
	return str[:end] + Ellipsis
}

// PadRight appends spaces to str until it is width columns wide. Wider strings are returned unchanged.
func PadRight(str string, width int, opts *Options) string {
	if n := width - TextWidth(str, opts); n > 0 {
		return str + strings.Repeat(" ", n)
	}
	return str
}

var visibleWhitespace = strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`)

// Preview renders str on a single line, showing CR, LF, and tab as escapes, and truncates it to width columns.
func Preview(str string, width int, opts *Options) string {
	return Truncate(visibleWhitespace.Replace(str), width, opts)
}

func condition(opts *Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true
	if opts == nil {
		return cond
	}
	cond.EastAsianWidth = opts.EastAsianWidth
	if opts.EastAsianWidth && opts.TreatEmojiAsWide {
		cond.StrictEmojiNeutral = false
	}
	return cond
}
