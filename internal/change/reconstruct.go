package change

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrOutOfBounds  = errors.New("change range is outside the content")
	ErrOverlap      = errors.New("change overlaps another accepted change")
	ErrTextMismatch = errors.New("content at change range does not match its original text")
)

// BoundsError reports an accepted Change that Reconstruct skipped. It can only happen when the content is not the snapshot the Changes were computed against.
type BoundsError struct {
	Change     Change
	ContentLen int
	Err        error // ErrOutOfBounds, ErrOverlap, or ErrTextMismatch
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("change %d [%d,%d) skipped: %v (content length %d)", e.Change.ID, e.Change.From, e.Change.To, e.Err, e.ContentLen)
}

func (e *BoundsError) Unwrap() error {
	return e.Err
}

// Reconstruct applies every Accepted change in changes to original and returns the result. Pending and Rejected changes leave their ranges untouched.
//
// Changes are resolved right to left (descending From; ties go to the larger To, then the larger ID) so each splice leaves the offsets of lower changes valid. An
// accepted change that is out of bounds, overlaps a change already applied, or no longer matches original is skipped and reported; Reconstruct never panics.
//
// With every change accepted the result is the proposed text the changes were extracted from; with none accepted it is original.
func Reconstruct(original string, changes []Change) (string, []*BoundsError) {
	var accepted []Change
	for _, c := range changes {
		if c.Status == Accepted {
			accepted = append(accepted, c)
		}
	}
	if len(accepted) == 0 {
		return original, nil
	}

	slices.SortStableFunc(accepted, func(a, b Change) int {
		if c := cmp.Compare(b.From, a.From); c != 0 {
			return c
		}
		if c := cmp.Compare(b.To, a.To); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	var errs []*BoundsError
	skip := func(c Change, err error) {
		errs = append(errs, &BoundsError{Change: c, ContentLen: len(original), Err: err})
	}

	// Select right to left, then splice left to right in one pass.
	applied := make([]Change, 0, len(accepted))
	limit := len(original) // lowest From applied so far
	for _, c := range accepted {
		switch {
		case c.From < 0 || c.To < c.From || c.To > len(original):
			skip(c, ErrOutOfBounds)
		case c.To > limit:
			skip(c, ErrOverlap)
		case original[c.From:c.To] != c.OriginalText:
			skip(c, ErrTextMismatch)
		default:
			applied = append(applied, c)
			limit = c.From
		}
	}
	slices.Reverse(applied)

	var b strings.Builder
	b.Grow(len(original))
	pos := 0
	for _, c := range applied {
		b.WriteString(original[pos:c.From])
		b.WriteString(c.NewText)
		pos = c.To
	}
	b.WriteString(original[pos:])

	// Report skips in document order.
	slices.SortStableFunc(errs, func(a, b *BoundsError) int { return cmp.Compare(a.Change.ID, b.Change.ID) })
	return b.String(), errs
}
