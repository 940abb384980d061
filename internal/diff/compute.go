package diff

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Granularity selects the token unit that Compute diffs over.
type Granularity string

const (
	GranularityWord Granularity = "word" // UAX #29 words; whitespace runs and newlines are their own tokens
	GranularityLine Granularity = "line" // whole lines, including the trailing '\n'
	GranularityChar Granularity = "char" // code points (bytes, for invalid UTF-8)
)

// DefaultMergeThreshold is the default Options.MergeThreshold.
const DefaultMergeThreshold = 3

// ParseGranularity parses s ("word", "line", or "char"). An empty string yields GranularityWord.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GranularityWord, nil
	case GranularityWord, GranularityLine, GranularityChar:
		return g, nil
	default:
		return "", fmt.Errorf("unknown diff granularity %q (want word, line, or char)", s)
	}
}

// Options control Compute.
type Options struct {
	Granularity Granularity

	// SemanticCleanup runs diffmatchpatch's semantic cleanup, which removes coincidental equalities and shifts edit boundaries toward natural breaks.
	SemanticCleanup bool

	// MergeThreshold folds an equal fragment shorter than this many bytes into the edits on both sides of it. 0 disables folding.
	MergeThreshold int

	// Timeout bounds the Myers search. 0 means no timeout, which keeps output deterministic.
	Timeout time.Duration
}

// DefaultOptions returns word granularity with semantic cleanup and the default merge threshold.
func DefaultOptions() Options {
	return Options{
		Granularity:     GranularityWord,
		SemanticCleanup: true,
		MergeThreshold:  DefaultMergeThreshold,
	}
}

// Compute diffs original to proposed, returning a minimal edit script after semantic cleanup.
//
// If original == proposed, the script is a single OpEqual (or empty, if both are empty). If original is empty, the script is a single OpInsert covering proposed.
// Compute is deterministic and side-effect free.
func Compute(original, proposed string, opts Options) Script {
	if original == proposed {
		if original == "" {
			return nil
		}
		return Script{{Op: OpEqual, Text: original}}
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = opts.Timeout

	var diffs []diffmatchpatch.Diff
	switch opts.Granularity {
	case GranularityChar:
		diffs = diffChars(dmp, original, proposed, opts.SemanticCleanup)
	case GranularityLine:
		diffs = diffTokens(dmp, splitPreserveEOL(original, defaultEOL), splitPreserveEOL(proposed, defaultEOL), opts.SemanticCleanup)
	default:
		diffs = diffTokens(dmp, splitWords(original), splitWords(proposed), opts.SemanticCleanup)
	}
	if diffs == nil {
		// Token table overflowed; code points are always representable.
		diffs = diffChars(dmp, original, proposed, opts.SemanticCleanup)
	}

	script := normalize(diffs)
	script = alignToGraphemes(script, original, proposed)
	script = mergeSandwiched(script, opts.MergeThreshold)

	if err := script.validate(original, proposed); err != nil {
		panic(fmt.Errorf("diff.Compute: validate failed with %v", err))
	}
	return script
}

// diffChars diffs code points. If either side is not valid UTF-8, it diffs bytes instead so that no byte is replaced with U+FFFD.
func diffChars(dmp *diffmatchpatch.DiffMatchPatch, original, proposed string, semantic bool) []diffmatchpatch.Diff {
	if utf8.ValidString(original) && utf8.ValidString(proposed) {
		diffs := dmp.DiffMain(original, proposed, false)
		if semantic {
			diffs = dmp.DiffCleanupSemantic(diffs)
		}
		return diffs
	}

	// Byte runes >= 0x80 are two bytes wide inside diffmatchpatch's strings, and its lossless pass shifts by rune counts. Only the merge pass is safe here.
	diffs := dmp.DiffCleanupMerge(dmp.DiffMainRunes(bytesToRunes(original), bytesToRunes(proposed), false))
	for i := range diffs {
		diffs[i].Text = runesToBytes(diffs[i].Text)
	}
	return diffs
}

// diffTokens diffs two token sequences by mapping each distinct token to a single rune. It returns nil if there are more distinct tokens than runes.
func diffTokens(dmp *diffmatchpatch.DiffMatchPatch, a, b []string, semantic bool) []diffmatchpatch.Diff {
	enc := newTokenEncoder()
	ra, okA := enc.encode(a)
	rb, okB := enc.encode(b)
	if !okA || !okB {
		return nil
	}

	diffs := dmp.DiffMainRunes(ra, rb, false)
	if !semantic {
		return enc.decode(diffs)
	}

	// Equality elimination is measured in tokens; boundary scoring only makes sense on the real text.
	diffs = enc.decode(eliminateEqualities(dmp, diffs))
	if !validDiffs(diffs) {
		// The lossless pass compares runes, and distinct invalid bytes all decode to U+FFFD.
		return diffs
	}
	return dmp.DiffCleanupSemanticLossless(diffs)
}

// normalize converts diffmatchpatch diffs to a Script: empty fragments are dropped, adjacent equals are joined, and each run of non-equal fragments becomes at most
// one delete followed by at most one insert.
func normalize(diffs []diffmatchpatch.Diff) Script {
	var script Script
	var del, ins strings.Builder

	flush := func() {
		if del.Len() > 0 {
			script = append(script, Edit{Op: OpDelete, Text: del.String()})
		}
		if ins.Len() > 0 {
			script = append(script, Edit{Op: OpInsert, Text: ins.String()})
		}
		del.Reset()
		ins.Reset()
	}

	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			del.WriteString(d.Text)
		case diffmatchpatch.DiffInsert:
			ins.WriteString(d.Text)
		case diffmatchpatch.DiffEqual:
			flush()
			if n := len(script); n > 0 && script[n-1].Op == OpEqual {
				script[n-1].Text += d.Text
				continue
			}
			script = append(script, Edit{Op: OpEqual, Text: d.Text})
		}
	}
	flush()
	return script
}

func validDiffs(diffs []diffmatchpatch.Diff) bool {
	for _, d := range diffs {
		if !utf8.ValidString(d.Text) {
			return false
		}
	}
	return true
}

func bytesToRunes(s string) []rune {
	out := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = rune(s[i])
	}
	return out
}

func runesToBytes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteByte(byte(r))
	}
	return b.String()
}
