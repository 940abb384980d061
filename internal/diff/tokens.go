package diff

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Runes in the surrogate range cannot survive a string round trip, so token indexes skip over it.
const (
	surrogateStart = 0xD800
	surrogateLen   = 0x800
	maxRune        = 0x10FFFF
)

// tokenEncoder maps distinct tokens to distinct runes so diffmatchpatch can diff token sequences the same way DiffLinesToRunes diffs lines.
type tokenEncoder struct {
	ids    map[string]int
	tokens []string
}

func newTokenEncoder() *tokenEncoder {
	return &tokenEncoder{ids: make(map[string]int)}
}

// encode returns one rune per token. ok is false if the token table no longer fits in the rune space.
func (enc *tokenEncoder) encode(tokens []string) (runes []rune, ok bool) {
	runes = make([]rune, 0, len(tokens))
	for _, tok := range tokens {
		id, seen := enc.ids[tok]
		if !seen {
			id = len(enc.tokens)
			enc.tokens = append(enc.tokens, tok)
			enc.ids[tok] = id
		}
		r, ok := indexToRune(id)
		if !ok {
			return nil, false
		}
		runes = append(runes, r)
	}
	return runes, true
}

// decode rehydrates diff texts from runes back to the tokens they stand for.
func (enc *tokenEncoder) decode(diffs []diffmatchpatch.Diff) []diffmatchpatch.Diff {
	out := make([]diffmatchpatch.Diff, 0, len(diffs))
	for _, d := range diffs {
		var b strings.Builder
		for _, r := range d.Text {
			idx := runeToIndex(r)
			if idx >= 0 && idx < len(enc.tokens) {
				b.WriteString(enc.tokens[idx])
			}
		}
		out = append(out, diffmatchpatch.Diff{Type: d.Type, Text: b.String()})
	}
	return out
}

func indexToRune(i int) (rune, bool) {
	if i >= surrogateStart {
		i += surrogateLen
	}
	if i > maxRune {
		return 0, false
	}
	return rune(i), true
}

func runeToIndex(r rune) int {
	i := int(r)
	if i >= surrogateStart+surrogateLen {
		i -= surrogateLen
	}
	return i
}

// splitWords splits text on UAX #29 word boundaries. Every byte of text belongs to exactly one token.
func splitWords(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	iter := words.FromString(text)
	for iter.Next() {
		tokens = append(tokens, iter.Value())
	}
	return tokens
}

// splitPreserveEOL splits text by eol and preserves the eol on each line, except possibly the last.
func splitPreserveEOL(text, eol string) []string {
	if text == "" {
		return nil
	}
	if eol == "" {
		eol = defaultEOL
	}
	var lines []string
	for {
		idx := strings.Index(text, eol)
		if idx == -1 {
			if text != "" {
				lines = append(lines, text)
			}
			break
		}
		lines = append(lines, text[:idx+len(eol)])
		text = text[idx+len(eol):]
		if text == "" {
			break
		}
	}
	return lines
}

// trimEOL removes a trailing eol from a line if present.
func trimEOL(line, eol string) (string, bool) {
	if eol != "" && strings.HasSuffix(line, eol) {
		return line[:len(line)-len(eol)], true
	}
	return line, false
}
