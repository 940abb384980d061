package diff

import (
	"slices"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// segment is either an equal fragment or a change run (deleted text replaced by inserted text).
type segment struct {
	equal bool
	text  string // equal only
	del   string // change only
	ins   string // change only
}

// mergeSandwiched folds each equal fragment shorter than threshold bytes that sits between two change runs into a single change run. This avoids reporting
// "foo bar" -> "baz qux" as two changes separated by a one-space equality. Folding repeats until no such fragment remains.
func mergeSandwiched(s Script, threshold int) Script {
	if threshold <= 0 || len(s) < 3 {
		return s
	}

	segs := toSegments(s)
	out := make([]segment, 0, len(segs))
	for i := 0; i < len(segs); i++ {
		sg := segs[i]
		// If we find [change][small equal][change], merge into the change already in out.
		if sg.equal && len(sg.text) < threshold && len(out) > 0 && !out[len(out)-1].equal && i+1 < len(segs) && !segs[i+1].equal {
			prev := &out[len(out)-1]
			next := segs[i+1]
			prev.del += sg.text + next.del
			prev.ins += sg.text + next.ins
			i++
			continue
		}
		out = append(out, sg)
	}
	return fromSegments(out)
}

func toSegments(s Script) []segment {
	var segs []segment
	for _, e := range s {
		if e.Op == OpEqual {
			segs = append(segs, segment{equal: true, text: e.Text})
			continue
		}
		if len(segs) == 0 || segs[len(segs)-1].equal {
			segs = append(segs, segment{})
		}
		last := &segs[len(segs)-1]
		switch e.Op {
		case OpDelete:
			last.del += e.Text
		case OpInsert:
			last.ins += e.Text
		}
	}
	return segs
}

func fromSegments(segs []segment) Script {
	var s Script
	for _, sg := range segs {
		if sg.equal {
			s = append(s, Edit{Op: OpEqual, Text: sg.text})
			continue
		}
		if sg.del != "" {
			s = append(s, Edit{Op: OpDelete, Text: sg.del})
		}
		if sg.ins != "" {
			s = append(s, Edit{Op: OpInsert, Text: sg.ins})
		}
	}
	return s
}

// alignToGraphemes widens every change run so that it starts and ends on a grapheme cluster boundary in both texts. This keeps a combining mark together with
// its base character and repairs any boundary that diffmatchpatch's byte-oriented shifting left inside a multi-byte rune.
func alignToGraphemes(s Script, original, proposed string) Script {
	if s.IsIdentity() {
		return s
	}
	ob := graphemeBoundaries(original)
	pb := graphemeBoundaries(proposed)
	aligned := func(o, p int) bool { return ob[o] && pb[p] }

	segs := toSegments(s)
	for changed := true; changed; {
		changed = false
		o, p := 0, 0
		for i := range segs {
			sg := &segs[i]
			if sg.equal {
				o += len(sg.text)
				p += len(sg.text)
				continue
			}

			// An equal segment emptied earlier in this pass is dropped by compactSegments, which joins this run to the previous one.
			if !aligned(o, p) && i > 0 && segs[i-1].equal && segs[i-1].text != "" {
				prev := &segs[i-1]
				k := 1
				for k < len(prev.text) && !aligned(o-k, p-k) {
					k++
				}
				moved := prev.text[len(prev.text)-k:]
				prev.text = prev.text[:len(prev.text)-k]
				sg.del = moved + sg.del
				sg.ins = moved + sg.ins
				o -= k
				p -= k
				changed = true
			}

			oEnd, pEnd := o+len(sg.del), p+len(sg.ins)
			if !aligned(oEnd, pEnd) && i+1 < len(segs) && segs[i+1].equal && segs[i+1].text != "" {
				next := &segs[i+1]
				k := 1
				for k < len(next.text) && !aligned(oEnd+k, pEnd+k) {
					k++
				}
				moved := next.text[:k]
				next.text = next.text[k:]
				sg.del += moved
				sg.ins += moved
				oEnd += k
				pEnd += k
				changed = true
			}
			o, p = oEnd, pEnd
		}
		segs = compactSegments(segs)
	}
	return fromSegments(segs)
}

// compactSegments drops empty equal segments and joins the change runs they separated.
func compactSegments(segs []segment) []segment {
	out := segs[:0]
	for _, sg := range segs {
		if sg.equal && sg.text == "" {
			continue
		}
		if n := len(out); n > 0 && !sg.equal && !out[n-1].equal {
			out[n-1].del += sg.del
			out[n-1].ins += sg.ins
			continue
		}
		if n := len(out); n > 0 && sg.equal && out[n-1].equal {
			out[n-1].text += sg.text
			continue
		}
		out = append(out, sg)
	}
	return out
}

// graphemeBoundaries returns b where b[i] reports whether byte offset i of text is a grapheme cluster boundary. len(b) == len(text)+1.
func graphemeBoundaries(text string) []bool {
	b := make([]bool, len(text)+1)
	b[0] = true
	b[len(text)] = true
	iter := graphemes.FromString(text)
	for iter.Next() {
		b[iter.End()] = true
	}
	return b
}

// eliminateEqualities replaces each equality that is no longer than the edits on both sides of it with a delete and an insert, measuring length in runes. This is
// the first phase of diffmatchpatch's DiffCleanupSemantic. The remaining phases slice text by byte offsets derived from rune counts, which would split the
// multi-byte runes that stand for encoded tokens.
func eliminateEqualities(dmp *diffmatchpatch.DiffMatchPatch, diffs []diffmatchpatch.Diff) []diffmatchpatch.Diff {
	changed := false
	var equalities []int // indexes of equalities, innermost last
	var lastEquality string
	var ins1, del1, ins2, del2 int

	for i := 0; i < len(diffs); i++ {
		switch diffs[i].Type {
		case diffmatchpatch.DiffEqual:
			equalities = append(equalities, i)
			ins1, del1 = ins2, del2
			ins2, del2 = 0, 0
			lastEquality = diffs[i].Text
			continue
		case diffmatchpatch.DiffInsert:
			ins2 += utf8.RuneCountInString(diffs[i].Text)
		case diffmatchpatch.DiffDelete:
			del2 += utf8.RuneCountInString(diffs[i].Text)
		}

		n := utf8.RuneCountInString(lastEquality)
		if n == 0 || n > max(ins1, del1) || n > max(ins2, del2) {
			continue
		}

		at := equalities[len(equalities)-1]
		diffs = slices.Insert(diffs, at, diffmatchpatch.Diff{Type: diffmatchpatch.DiffDelete, Text: lastEquality})
		diffs[at+1].Type = diffmatchpatch.DiffInsert

		// Rewind to the previous equality, which may now be eliminable too.
		equalities = equalities[:len(equalities)-1]
		if len(equalities) > 0 {
			equalities = equalities[:len(equalities)-1]
		}
		i = -1
		if len(equalities) > 0 {
			i = equalities[len(equalities)-1]
		}
		ins1, del1, ins2, del2 = 0, 0, 0, 0
		lastEquality = ""
		changed = true
	}

	if changed {
		diffs = dmp.DiffCleanupMerge(diffs)
	}
	return diffs
}
