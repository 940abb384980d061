package review

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/hunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestRegistry() *Registry {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return NewRegistry(opts)
}

func startSession(t *testing.T, r *Registry, original, proposed string) (*Session, *recorder) {
	t.Helper()
	s, ok := r.Start("doc.txt", original, proposed)
	require.True(t, ok)
	rec := &recorder{}
	s.Subscribe(rec.handle)
	return s, rec
}

func TestSession_AcceptAndFinalize(t *testing.T) {
	r := newTestRegistry()
	original := "line1\nline2\nline3"
	proposed := "line1\nlineTWO\nline3"
	s, rec := startSession(t, r, original, proposed)

	assert.True(t, s.IsActive())
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, ContentHash(original), s.OriginalHash)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), s.StartedAt)
	require.Len(t, s.AllChanges(), 1)
	assert.Equal(t, 1, s.RemainingCount())

	assert.True(t, s.Accept(1))
	assert.False(t, s.Accept(1), "accepting twice is a no-op")
	assert.False(t, s.Reject(1), "no U-turns")
	assert.False(t, s.Accept(99))

	c, ok := s.Change(1)
	require.True(t, ok)
	assert.Equal(t, change.Accepted, c.Status)

	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, Result{
		Mode:          ModeChanges,
		Applied:       true,
		FinalContent:  proposed,
		AcceptedCount: 1,
		RejectedCount: 0,
		Message:       "Applied 1 change, rejected 0.",
	}, res)

	assert.Equal(t, []EventType{ChangeAccepted, ReviewComplete}, rec.types())
	assert.Equal(t, 1, rec.events[0].ChangeID)
	assert.Equal(t, 0, rec.events[0].RemainingCount)
	require.NotNil(t, rec.last().Result)
	assert.Equal(t, proposed, rec.last().Result.FinalContent)

	assert.False(t, s.IsActive())
	_, err = s.Finalize()
	assert.ErrorIs(t, err, ErrInactive)
	assert.False(t, s.Accept(1))
	_, ok = r.Session("doc.txt")
	assert.False(t, ok)
}

func TestSession_RejectYieldsOriginal(t *testing.T) {
	r := newTestRegistry()
	s, rec := startSession(t, r, "line1\nline2\nline3", "line1\nlineTWO\nline3")

	assert.True(t, s.Reject(1))
	res, err := s.Finalize()
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, "line1\nline2\nline3", res.FinalContent)
	assert.Equal(t, 1, res.RejectedCount)
	assert.Equal(t, "No changes applied.", res.Message)
	assert.Equal(t, []EventType{ChangeRejected, ReviewComplete}, rec.types())
}

func TestRegistry_StartWithoutChanges(t *testing.T) {
	r := newTestRegistry()
	s, ok := r.Start("doc.txt", "same", "same")
	assert.False(t, ok)
	assert.Nil(t, s)
	assert.Empty(t, r.Documents())
}

func TestSession_PendingIsRejectedAtFinalize(t *testing.T) {
	r := newTestRegistry()
	original := "one two three four five six seven"
	proposed := "ONE two three four five six SEVEN"
	s, _ := startSession(t, r, original, proposed)
	require.Len(t, s.PendingChanges(), 2)

	require.True(t, s.Accept(2))
	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "one two three four five six SEVEN", res.FinalContent)
	assert.Equal(t, 1, res.AcceptedCount)
	assert.Equal(t, 1, res.RejectedCount)

	// The finalized snapshot records the implicit rejection.
	all := s.AllChanges()
	assert.Equal(t, change.Rejected, all[0].Status)
	assert.Equal(t, change.Accepted, all[1].Status)
}

func TestSession_TwoEditsPartialAcceptance(t *testing.T) {
	r := newTestRegistry()
	original := "alpha\nbeta\ngamma\ndelta\nepsilon\n"
	proposed := "ALPHA\nbeta\ngamma\ndelta\nEPSILON\n"
	s, _ := startSession(t, r, original, proposed)
	require.Len(t, s.AllChanges(), 2)

	require.True(t, s.Accept(1))
	require.True(t, s.Reject(2))
	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "ALPHA\nbeta\ngamma\ndelta\nepsilon\n", res.FinalContent)
	assert.True(t, strings.HasSuffix(res.FinalContent, original[strings.Index(original, "beta"):]))
}

func TestSession_BulkOperations(t *testing.T) {
	r := newTestRegistry()
	s, rec := startSession(t, r, "a b c d e f g h", "A b c D e f G h")
	require.Len(t, s.AllChanges(), 3)

	require.True(t, s.Reject(2))
	assert.Equal(t, 2, s.AcceptAllRemaining())
	assert.Equal(t, 0, s.AcceptAllRemaining())
	assert.Equal(t, 0, s.RejectAllRemaining())

	assert.Equal(t, []EventType{ChangeRejected, AllAccepted}, rec.types())
	assert.Equal(t, 2, rec.last().Count)
	assert.Equal(t, 0, rec.last().RemainingCount)
	assert.Empty(t, s.PendingChanges())

	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "A b c d e f G h", res.FinalContent)
}

func TestSession_RejectAllThenFinalize(t *testing.T) {
	r := newTestRegistry()
	s, rec := startSession(t, r, "a b c d", "A b c D")
	assert.Equal(t, 2, s.RejectAllRemaining())
	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "a b c d", res.FinalContent)
	assert.Equal(t, []EventType{AllRejected, ReviewComplete}, rec.types())
}

func TestSession_Cancel(t *testing.T) {
	r := newTestRegistry()
	s, rec := startSession(t, r, "a b c d", "A b c D")
	require.True(t, s.Accept(1))

	res := s.Cancel()
	assert.False(t, res.Applied)
	assert.True(t, res.Cancelled)
	assert.Equal(t, "a b c d", res.FinalContent)
	assert.Equal(t, []EventType{ChangeAccepted, ReviewCancelled}, rec.types())
	assert.False(t, s.IsActive())

	// Cancel is total and repeatable; only the first publishes.
	res = s.Cancel()
	assert.Equal(t, "a b c d", res.FinalContent)
	assert.Len(t, rec.types(), 2)

	_, err := s.Finalize()
	assert.ErrorIs(t, err, ErrInactive)
}

func TestRegistry_StartCancelsPrevious(t *testing.T) {
	r := newTestRegistry()
	all := &recorder{}
	unsubscribe := r.Subscribe(all.handle)

	first, firstRec := startSession(t, r, "a b", "a c")
	second, ok := r.Start("doc.txt", "a b", "a d")
	require.True(t, ok)

	assert.False(t, first.IsActive())
	assert.True(t, second.IsActive())
	assert.Equal(t, []EventType{ReviewCancelled}, firstRec.types())
	assert.Equal(t, []EventType{ReviewCancelled}, all.types())
	assert.Equal(t, first.SessionID, all.last().SessionID)

	got, ok := r.Session("doc.txt")
	require.True(t, ok)
	assert.Same(t, second, got)

	// A proposal with no changes leaves the active session alone.
	_, ok = r.Start("doc.txt", "a b", "a b")
	assert.False(t, ok)
	assert.True(t, second.IsActive())

	unsubscribe()
	second.Accept(1)
	assert.Len(t, all.types(), 1)
}

func TestRegistry_IndependentDocuments(t *testing.T) {
	r := newTestRegistry()
	a, ok := r.Start("a.txt", "x", "y")
	require.True(t, ok)
	b, ok := r.Start("b.txt", "x", "z")
	require.True(t, ok)
	assert.Equal(t, []string{"a.txt", "b.txt"}, r.Documents())

	_, err := a.Finalize()
	require.NoError(t, err)
	assert.True(t, b.IsActive())
	assert.Equal(t, []string{"b.txt"}, r.Documents())
}

func TestSession_SnapshotsAreCopies(t *testing.T) {
	r := newTestRegistry()
	s, _ := startSession(t, r, "a b", "a c")
	changes := s.AllChanges()
	changes[0].Status = change.Accepted
	changes[0].NewText = "mutated"

	c, _ := s.Change(1)
	assert.Equal(t, change.Pending, c.Status)
	assert.Equal(t, "c", c.NewText)
}

func TestSession_CheckCurrent(t *testing.T) {
	r := newTestRegistry()
	s, _ := startSession(t, r, "a b", "a c")
	assert.NoError(t, s.CheckCurrent("a b"))
	assert.ErrorIs(t, s.CheckCurrent("a b!"), ErrStaleDocument)
}

func TestSession_HunkMode(t *testing.T) {
	r := newTestRegistry()
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("row %d", i))
	}
	original := strings.Join(lines, "\n") + "\n"
	proposed := strings.Replace(original, "row 1\n", "row one\n", 1)
	proposed = strings.Replace(proposed, "row 18\n", "row eighteen\n", 1)

	s, rec := startSession(t, r, original, proposed)
	hunks := s.Hunks()
	require.Len(t, hunks, 2)
	assert.True(t, hunks[0].Applied)

	assert.True(t, s.ToggleHunk(2, false))
	assert.False(t, s.ToggleHunk(2, false), "already skipped")
	assert.False(t, s.ToggleHunk(7, false))
	assert.Equal(t, HunkToggled, rec.last().Type)
	assert.Equal(t, 2, rec.last().HunkID)
	assert.False(t, rec.last().Applied)

	want := strings.Replace(original, "row 1\n", "row one\n", 1)
	preview, err := s.PreviewHunks()
	require.NoError(t, err)
	assert.Equal(t, want, preview)
	assert.True(t, s.IsActive())

	res, err := s.FinalizeHunks()
	require.NoError(t, err)
	assert.Equal(t, ModeHunks, res.Mode)
	assert.Equal(t, want, res.FinalContent)
	assert.Equal(t, 1, res.AcceptedCount)
	assert.Equal(t, 1, res.RejectedCount)
	assert.Equal(t, "Applied 1 of 2 hunks.", res.Message)

	all := s.AllChanges()
	assert.Equal(t, change.Accepted, all[0].Status)
	assert.Equal(t, change.Rejected, all[1].Status)
	assert.Equal(t, ReviewComplete, rec.last().Type)
}

func TestSession_FinalizeHunksFailsClosed(t *testing.T) {
	r := newTestRegistry()
	s, rec := startSession(t, r, "foo bar baz foo bar baz", "foo BAR baz foo bar baz")

	// Replace the derived hunks with one whose context occurs twice.
	s.mu.Lock()
	s.hunks = []hunk.Hunk{{ID: 1, Header: "@@ -1,1 +1,1 @@", Before: "foo ", Old: "bar", After: " baz", New: "BAR", Applied: true}}
	s.mu.Unlock()

	_, err := s.FinalizeHunks()
	var pe *hunk.PreflightError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, hunk.ErrAmbiguousContext)
	assert.True(t, s.IsActive())
	assert.Empty(t, rec.types())

	_, err = s.PreviewHunks()
	assert.ErrorIs(t, err, hunk.ErrAmbiguousContext)

	// The session can still be finalized change by change.
	require.True(t, s.Accept(1))
	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "foo BAR baz foo bar baz", res.FinalContent)
}

func TestSession_ConcurrentDecisions(t *testing.T) {
	r := newTestRegistry()
	var words, changed []string
	for i := 0; i < 40; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
		changed = append(changed, fmt.Sprintf("W%d", i))
	}
	// Alternate changed and unchanged words so every change is separate.
	for i := 1; i < len(changed); i += 2 {
		changed[i] = words[i]
	}
	s, rec := startSession(t, r, strings.Join(words, "\n"), strings.Join(changed, "\n"))
	n := len(s.AllChanges())
	require.Equal(t, 20, n)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := 1; id <= n; id++ {
				if s.Accept(id) {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n, wins)
	assert.Len(t, rec.types(), n)
	assert.Equal(t, 0, s.RemainingCount())
}

func TestSession_ConcurrentEventsKeepTransitionOrder(t *testing.T) {
	r := newTestRegistry()
	var words, changed []string
	for i := 0; i < 60; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
		changed = append(changed, fmt.Sprintf("W%d", i))
	}
	for i := 1; i < len(changed); i += 2 {
		changed[i] = words[i]
	}
	s, rec := startSession(t, r, strings.Join(words, "\n"), strings.Join(changed, "\n"))
	n := len(s.AllChanges())
	require.Equal(t, 30, n)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				id := (i+g*7)%n + 1
				if g%2 == 0 {
					s.Accept(id)
				} else {
					s.Reject(id)
				}
			}
		}(g)
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, n)
	for i, ev := range rec.events {
		assert.Equal(t, n-1-i, ev.RemainingCount, "event %d", i)
	}
}

func TestSession_HandlerMayDecide(t *testing.T) {
	r := newTestRegistry()
	s, rec := startSession(t, r, "alpha\nbeta\ngamma\ndelta\nepsilon\n", "ALPHA\nbeta\ngamma\ndelta\nEPSILON\n")
	require.Len(t, s.AllChanges(), 2)

	s.Subscribe(func(ev Event) {
		if ev.Type == ChangeAccepted && ev.ChangeID == 1 {
			s.Reject(2)
		}
	})

	require.True(t, s.Accept(1))
	assert.Equal(t, []EventType{ChangeAccepted, ChangeRejected}, rec.types())
	assert.Equal(t, 0, rec.last().RemainingCount)
}
