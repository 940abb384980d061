package change

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/codalotl/changereview/internal/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withStatus(changes []Change, s Status) []Change {
	out := make([]Change, len(changes))
	for i, c := range changes {
		c.Status = s
		out[i] = c
	}
	return out
}

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		original string
		proposed string
		want     []Change
	}{
		{
			name:     "single word replacement",
			original: "line1\nline2\nline3",
			proposed: "line1\nlineTWO\nline3",
			want: []Change{
				{ID: 1, Type: Replacement, From: 6, To: 11, OriginalText: "line2", NewText: "lineTWO", Status: Pending},
			},
		},
		{
			name:     "whole document creation",
			original: "",
			proposed: "new file content",
			want: []Change{
				{ID: 1, Type: Addition, From: 0, To: 0, NewText: "new file content", Status: Pending},
			},
		},
		{
			name:     "line deletion",
			original: "A\nB\nC",
			proposed: "A\nC",
			want: []Change{
				{ID: 1, Type: Deletion, From: 2, To: 4, OriginalText: "B\n", Status: Pending},
			},
		},
		{
			name:     "equal texts",
			original: "same\n",
			proposed: "same\n",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.original, tt.proposed, diff.DefaultOptions())
			assert.Equal(t, tt.want, got)
			require.NoError(t, Validate(tt.original, got))

			final, errs := Reconstruct(tt.original, withStatus(got, Accepted))
			assert.Empty(t, errs)
			assert.Equal(t, tt.proposed, final)

			final, errs = Reconstruct(tt.original, withStatus(got, Rejected))
			assert.Empty(t, errs)
			assert.Equal(t, tt.original, final)
		})
	}
}

func TestReconstruct_PartialAcceptance(t *testing.T) {
	original := "The quick brown fox\njumps over\nthe lazy dog.\n"
	proposed := "The slow brown fox\njumps over\nthe energetic dog.\n"

	changes := Compute(original, proposed, diff.DefaultOptions())
	require.Len(t, changes, 2)
	assert.Equal(t, "quick", changes[0].OriginalText)
	assert.Equal(t, "lazy", changes[1].OriginalText)

	changes[0].Status = Accepted
	changes[1].Status = Rejected
	final, errs := Reconstruct(original, changes)
	assert.Empty(t, errs)
	assert.Equal(t, "The slow brown fox\njumps over\nthe lazy dog.\n", final)

	// The second region is byte-for-byte the original.
	tail := original[changes[1].From-len("the "):]
	assert.True(t, strings.HasSuffix(final, tail))

	// Pending counts as untouched.
	changes[1].Status = Pending
	final, _ = Reconstruct(original, changes)
	assert.Equal(t, "The slow brown fox\njumps over\nthe lazy dog.\n", final)
}

func TestReconstruct_SkipsBadChanges(t *testing.T) {
	original := "0123456789"
	changes := []Change{
		{ID: 1, Type: Replacement, From: 1, To: 3, OriginalText: "12", NewText: "ab", Status: Accepted},
		{ID: 2, Type: Replacement, From: 2, To: 5, OriginalText: "234", NewText: "xyz", Status: Accepted},
		{ID: 3, Type: Deletion, From: 8, To: 12, OriginalText: "89??", Status: Accepted},
		{ID: 4, Type: Replacement, From: 6, To: 7, OriginalText: "X", NewText: "Y", Status: Accepted},
	}

	final, errs := Reconstruct(original, changes)
	assert.Equal(t, "01xyz56789", final)
	require.Len(t, errs, 3)
	assert.Equal(t, 1, errs[0].Change.ID)
	assert.ErrorIs(t, errs[0], ErrOverlap)
	assert.Equal(t, 3, errs[1].Change.ID)
	assert.ErrorIs(t, errs[1], ErrOutOfBounds)
	assert.Equal(t, 4, errs[2].Change.ID)
	assert.ErrorIs(t, errs[2], ErrTextMismatch)
	assert.Contains(t, errs[1].Error(), "change 3 [8,12)")
}

func TestReconstruct_SamePointAdditionsKeepIDOrder(t *testing.T) {
	changes := []Change{
		{ID: 1, Type: Addition, From: 1, To: 1, NewText: "X", Status: Accepted},
		{ID: 2, Type: Addition, From: 1, To: 1, NewText: "Y", Status: Accepted},
		{ID: 3, Type: Replacement, From: 1, To: 2, OriginalText: "b", NewText: "B", Status: Accepted},
	}
	final, errs := Reconstruct("abc", changes)
	assert.Empty(t, errs)
	assert.Equal(t, "aXYBc", final)
}

func TestValidate(t *testing.T) {
	original := "hello world"
	good := []Change{
		{ID: 1, Type: Replacement, From: 0, To: 5, OriginalText: "hello", NewText: "hi", Status: Pending},
		{ID: 2, Type: Addition, From: 5, To: 5, NewText: ",", Status: Accepted},
		{ID: 3, Type: Deletion, From: 6, To: 11, OriginalText: "world", Status: Rejected},
	}
	require.NoError(t, Validate(original, good))

	tests := []struct {
		name   string
		mutate func([]Change)
		errSub string
	}{
		{"duplicate id", func(c []Change) { c[1].ID = 1 }, "duplicate id"},
		{"unsorted", func(c []Change) { c[0], c[2] = c[2], c[0] }, "not sorted"},
		{"overlap", func(c []Change) {
			c[1] = Change{ID: 2, Type: Deletion, From: 3, To: 6, OriginalText: "lo ", Status: Pending}
		}, "overlaps"},
		{"text mismatch", func(c []Change) { c[0].OriginalText = "HELLO" }, "does not match"},
		{"wide addition", func(c []Change) { c[1].To = 6; c[1].OriginalText = " " }, "zero-width"},
		{"out of range", func(c []Change) { c[2].To = 20 }, "outside content"},
		{"bad status", func(c []Change) { c[0].Status = "maybe" }, "unknown status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := append([]Change(nil), good...)
			tt.mutate(changes)
			err := Validate(original, changes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestCount(t *testing.T) {
	changes := []Change{{Status: Accepted}, {Status: Rejected}, {Status: Pending}, {Status: Pending}}
	a, r, p := Count(changes)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, r)
	assert.Equal(t, 2, p)
}

func TestCompute_RandomProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"alpha", "beta", " ", "\n", "\t", "γ", "🙂", ";", "x", "yy", "\r\n"}
	text := func() string {
		var b strings.Builder
		for n := rng.Intn(30); n > 0; n-- {
			b.WriteString(vocab[rng.Intn(len(vocab))])
		}
		return b.String()
	}

	for i := 0; i < 200; i++ {
		original, proposed := text(), text()
		for _, g := range []diff.Granularity{diff.GranularityWord, diff.GranularityLine, diff.GranularityChar} {
			opts := diff.DefaultOptions()
			opts.Granularity = g
			changes := Compute(original, proposed, opts)
			require.NoError(t, Validate(original, changes), "case %d %s", i, g)

			final, errs := Reconstruct(original, withStatus(changes, Accepted))
			require.Empty(t, errs)
			require.Equal(t, proposed, final, "case %d %s", i, g)

			final, errs = Reconstruct(original, changes)
			require.Empty(t, errs)
			require.Equal(t, original, final, "case %d %s", i, g)

			// Accepting an arbitrary subset never produces bounds errors.
			mixed := withStatus(changes, Rejected)
			for j := range mixed {
				if rng.Intn(2) == 0 {
					mixed[j].Status = Accepted
				}
			}
			_, errs = Reconstruct(original, mixed)
			require.Empty(t, errs)
		}
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("line1\nline2\nline3", "line1\nlineTWO\nline3")
	f.Add("", "new file content")
	f.Add("A\nB\nC", "A\nC")
	f.Add("abc\xffdef", "abc\xfeXdef")
	f.Add("cafe", "café")
	f.Add("a\xe9\r\n\n\xe9", "\xe9\xe9\xe9")

	f.Fuzz(func(t *testing.T, original, proposed string) {
		for _, g := range []diff.Granularity{diff.GranularityWord, diff.GranularityChar, diff.GranularityLine} {
			opts := diff.DefaultOptions()
			opts.Granularity = g
			changes := Compute(original, proposed, opts)
			if err := Validate(original, changes); err != nil {
				t.Fatalf("%s: %v", g, err)
			}
			if final, errs := Reconstruct(original, withStatus(changes, Accepted)); final != proposed || len(errs) > 0 {
				t.Fatalf("%s accept all: got %q (%d errors), want %q", g, final, len(errs), proposed)
			}
			if final, errs := Reconstruct(original, changes); final != original || len(errs) > 0 {
				t.Fatalf("%s reject all: got %q (%d errors), want %q", g, final, len(errs), original)
			}
		}
	})
}
