package hunk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrContextNotFound  = errors.New("hunk context not found")
	ErrAmbiguousContext = errors.New("hunk context is ambiguous")
)

// HunkError reports an applied hunk that could not be located.
type HunkError struct {
	Hunk Hunk
	Err  error // ErrContextNotFound or ErrAmbiguousContext
}

func (e *HunkError) Error() string {
	return fmt.Sprintf("hunk %d %s (original lines %s): %v", e.Hunk.ID, e.Hunk.Header, e.Hunk.LineRange(), e.Err)
}

func (e *HunkError) Unwrap() error {
	return e.Err
}

// PreflightError rejects a hunk set because at least one applied hunk could not be located.
type PreflightError struct {
	Errors []*HunkError
}

func (e *PreflightError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of the selected hunks cannot be applied safely:", len(e.Errors))
	for _, he := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(he.Error())
	}
	return b.String()
}

func (e *PreflightError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, he := range e.Errors {
		errs[i] = he
	}
	return errs
}

// Reconstruct applies every Applied hunk, in order, to a running copy of original. Each hunk's Context must occur exactly once in the running content; New then
// replaces Old at that location. A hunk whose context is missing or occurs more than once is skipped and reported, and later hunks still apply.
func Reconstruct(original string, hunks []Hunk) (string, []*HunkError) {
	content := original
	var errs []*HunkError
	for _, h := range hunks {
		if !h.Applied {
			continue
		}
		anchor := h.Context()
		switch occurrences(content, anchor) {
		case 0:
			errs = append(errs, &HunkError{Hunk: h, Err: ErrContextNotFound})
		case 1:
			start := strings.Index(content, anchor) + len(h.Before)
			content = content[:start] + h.New + content[start+len(h.Old):]
		default:
			errs = append(errs, &HunkError{Hunk: h, Err: ErrAmbiguousContext})
		}
	}
	return content, errs
}

// Preflight simulates Reconstruct without committing to a partial result. If any applied hunk would be skipped, it returns a *PreflightError naming every such
// hunk and the content is not returned.
func Preflight(original string, hunks []Hunk) (string, error) {
	content, errs := Reconstruct(original, hunks)
	if len(errs) > 0 {
		return "", &PreflightError{Errors: errs}
	}
	return content, nil
}
