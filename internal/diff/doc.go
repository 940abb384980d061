// Package diff computes edit scripts between an original and a proposed text.
//
// Representation: A Script is an ordered slice of Edits. Each Edit has an Op:
//   - OpEqual: text present on both sides
//   - OpInsert: text present only in the proposed side
//   - OpDelete: text present only in the original side
//
// Invariants:
//   - concat(equal + delete texts) == original
//   - concat(equal + insert texts) == proposed
//   - no Edit has empty Text; adjacent Edits never share an OpEqual
//   - within a run of non-equal Edits, deletes come before inserts
//
// Getting a script: Use Compute:
//
//	s := diff.Compute(original, proposed, diff.DefaultOptions())
//	for _, e := range s { ... }
//
// Granularity: Compute tokenizes both sides before running Myers' O(ND) algorithm (via diffmatchpatch). GranularityWord (the default) uses Unicode word boundaries
// (UAX #29), so edits land on whole words and never split an identifier. GranularityLine diffs whole lines. GranularityChar diffs code points. After the diff, a
// semantic cleanup pass folds short equal fragments that are sandwiched between edits into those edits.
//
// Offsets: All lengths are in bytes (UTF-8 code units). Callers that anchor edits to positions (see package change) use the same unit.
//
// Lines: Lines computes a whole-line diff. It backs hunk rendering and does not participate in Change extraction.
package diff
