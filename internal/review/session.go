package review

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/eventbus"
	"github.com/codalotl/changereview/internal/hunk"
)

var (
	ErrInactive      = errors.New("review session is no longer active")
	ErrStaleDocument = errors.New("document changed since the review started")
)

// Session is the review state of one document. It owns its Change list: callers only ever see copies, and every status transition goes through Accept, Reject,
// or the bulk and finalize methods. A Session is safe for concurrent use. Each transition queues its event while holding the lock, and events are delivered
// outside the lock in that same order, so subscribers never see RemainingCount go backwards. When two goroutines race, the event of the loser may be delivered
// by the winner, after the loser's call has returned.
//
// The exported fields are fixed when the session starts and must not be modified.
type Session struct {
	DocumentID      string
	SessionID       string
	OriginalContent string
	ProposedContent string
	OriginalHash    string // ContentHash(OriginalContent)
	StartedAt       time.Time

	mu       sync.Mutex
	active   bool
	changes  []change.Change
	hunks    []hunk.Hunk // nil until first used
	hunkOpts hunk.Options

	pending  []Event // queued under mu, drained by flush
	draining bool

	bus      eventbus.Bus[Event]
	registry *Registry
}

// ContentHash returns the hex SHA-256 of content. It identifies a document snapshot in history records and stale checks.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Subscribe registers fn for this session's events and returns its unsubscribe function.
func (s *Session) Subscribe(fn eventbus.Handler[Event]) (unsubscribe func()) {
	return s.bus.Subscribe(fn)
}

// IsActive reports whether s can still be decided, finalized, or cancelled.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// AllChanges returns a snapshot of every change.
func (s *Session) AllChanges() []change.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.changes)
}

// PendingChanges returns a snapshot of the changes still awaiting a decision.
func (s *Session) PendingChanges() []change.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []change.Change
	for _, c := range s.changes {
		if c.IsPending() {
			out = append(out, c)
		}
	}
	return out
}

// Change returns a copy of the change with id.
func (s *Session) Change(id int) (change.Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.changes[i], true
	}
	return change.Change{}, false
}

// RemainingCount returns the number of pending changes.
func (s *Session) RemainingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

// CheckCurrent returns ErrStaleDocument if current is not the content the session started from. Offsets are only meaningful against that snapshot, so a stale
// session must be cancelled rather than finalized.
func (s *Session) CheckCurrent(current string) error {
	if ContentHash(current) != s.OriginalHash {
		return ErrStaleDocument
	}
	return nil
}

// Accept marks the change with id accepted. It returns false, and changes nothing, if the session is inactive or the change is missing or already decided.
func (s *Session) Accept(id int) bool {
	return s.decide(id, change.Accepted, ChangeAccepted)
}

// Reject marks the change with id rejected. It returns false, and changes nothing, if the session is inactive or the change is missing or already decided.
func (s *Session) Reject(id int) bool {
	return s.decide(id, change.Rejected, ChangeRejected)
}

func (s *Session) decide(id int, to change.Status, typ EventType) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if !s.active || i < 0 || !s.changes[i].IsPending() {
		s.mu.Unlock()
		return false
	}
	s.changes[i].Status = to
	ev := s.eventLocked(typ)
	ev.ChangeID = id
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	s.flush()
	return true
}

// AcceptAllRemaining accepts every pending change and returns how many moved. One all-accepted event is published if any did.
func (s *Session) AcceptAllRemaining() int {
	return s.decideAll(change.Accepted, AllAccepted)
}

// RejectAllRemaining rejects every pending change and returns how many moved. One all-rejected event is published if any did.
func (s *Session) RejectAllRemaining() int {
	return s.decideAll(change.Rejected, AllRejected)
}

func (s *Session) decideAll(to change.Status, typ EventType) int {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return 0
	}
	n := 0
	for i := range s.changes {
		if s.changes[i].IsPending() {
			s.changes[i].Status = to
			n++
		}
	}
	if n == 0 {
		s.mu.Unlock()
		return 0
	}
	ev := s.eventLocked(typ)
	ev.Count = n
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	s.flush()
	return n
}

// Finalize ends the review. Pending changes are rejected, the accepted ones are applied to OriginalContent, and a review-complete event carrying the Result is
// published. A second call returns ErrInactive.
func (s *Session) Finalize() (Result, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return Result{}, ErrInactive
	}
	for i := range s.changes {
		if s.changes[i].IsPending() {
			s.changes[i].Status = change.Rejected
		}
	}
	final, skipped := change.Reconstruct(s.OriginalContent, s.changes)
	accepted, rejected, _ := change.Count(s.changes)
	res := Result{
		Mode:          ModeChanges,
		Applied:       accepted > 0,
		FinalContent:  final,
		AcceptedCount: accepted,
		RejectedCount: rejected,
		Message:       changesMessage(accepted, rejected, skipped),
		Skipped:       skipped,
	}
	s.finishLocked(ReviewComplete, res)
	s.mu.Unlock()

	s.finish()
	return res, nil
}

// Cancel ends the review without applying anything: FinalContent is OriginalContent. It publishes review-cancelled if the session was active. Cancel is always
// safe to call.
func (s *Session) Cancel() Result {
	s.mu.Lock()
	res := Result{
		Mode:          ModeChanges,
		FinalContent:  s.OriginalContent,
		RejectedCount: len(s.changes),
		Cancelled:     true,
		Message:       "Review cancelled; no changes applied.",
	}
	if !s.active {
		s.mu.Unlock()
		return res
	}
	s.finishLocked(ReviewCancelled, res)
	s.mu.Unlock()

	s.finish()
	return res
}

// Hunks returns a snapshot of the session's hunks, grouping the changes on first use. Every hunk starts applied.
func (s *Session) Hunks() []hunk.Hunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.hunksLocked())
}

// ToggleHunk sets whether the hunk with id is applied. It returns false if the session is inactive, the hunk is missing, or it already has that value.
func (s *Session) ToggleHunk(id int, applied bool) bool {
	s.mu.Lock()
	hunks := s.hunksLocked()
	unchanged := slices.ContainsFunc(hunks, func(h hunk.Hunk) bool { return h.ID == id && h.Applied == applied })
	if !s.active || unchanged || !hunk.Toggle(hunks, id, applied) {
		s.mu.Unlock()
		return false
	}
	ev := s.eventLocked(HunkToggled)
	ev.HunkID = id
	ev.Applied = applied
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	s.flush()
	return true
}

// PreviewHunks returns the content that FinalizeHunks would produce, without changing state. If any applied hunk cannot be located, it returns a
// *hunk.PreflightError instead of a partial result.
func (s *Session) PreviewHunks() (string, error) {
	s.mu.Lock()
	hunks := slices.Clone(s.hunksLocked())
	s.mu.Unlock()
	return hunk.Preflight(s.OriginalContent, hunks)
}

// FinalizeHunks ends the review in hunk mode. It runs a pre-flight first: if any applied hunk cannot be located, it returns the *hunk.PreflightError and the session
// stays active. Otherwise changes in applied hunks become accepted, all others rejected, and review-complete is published.
func (s *Session) FinalizeHunks() (Result, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return Result{}, ErrInactive
	}
	hunks := s.hunksLocked()
	final, err := hunk.Preflight(s.OriginalContent, hunks)
	if err != nil {
		s.mu.Unlock()
		return Result{}, err
	}

	accepted := make(map[int]bool)
	for _, h := range hunks {
		for _, id := range h.ChangeIDs {
			accepted[id] = h.Applied
		}
	}
	for i := range s.changes {
		s.changes[i].Status = change.Rejected
		if accepted[s.changes[i].ID] {
			s.changes[i].Status = change.Accepted
		}
	}

	applied, skipped := hunk.Count(hunks)
	res := Result{
		Mode:          ModeHunks,
		Applied:       applied > 0,
		FinalContent:  final,
		AcceptedCount: applied,
		RejectedCount: skipped,
		Message:       hunksMessage(hunks),
	}
	s.finishLocked(ReviewComplete, res)
	s.mu.Unlock()

	s.finish()
	return res, nil
}

func (s *Session) hunksLocked() []hunk.Hunk {
	if s.hunks == nil {
		s.hunks = hunk.Group(s.OriginalContent, s.changes, s.hunkOpts)
	}
	return s.hunks
}

// indexLocked returns the index of the change with id, or -1. IDs are assigned 1..n in order.
func (s *Session) indexLocked(id int) int {
	if id < 1 || id > len(s.changes) || s.changes[id-1].ID != id {
		return -1
	}
	return id - 1
}

func (s *Session) remainingLocked() int {
	_, _, pending := change.Count(s.changes)
	return pending
}

func (s *Session) eventLocked(typ EventType) Event {
	return Event{
		Type:           typ,
		DocumentID:     s.DocumentID,
		SessionID:      s.SessionID,
		RemainingCount: s.remainingLocked(),
	}
}

func (s *Session) finishLocked(typ EventType, res Result) {
	s.active = false
	ev := s.eventLocked(typ)
	ev.Result = &res
	s.pending = append(s.pending, ev)
}

// finish deregisters s and publishes its final event.
func (s *Session) finish() {
	if s.registry != nil {
		s.registry.release(s)
	}
	s.flush()
}

// flush delivers pending events in the order they were queued. One goroutine drains at a time: events queued by another goroutine, or by a handler, are delivered
// by the loop already running.
func (s *Session) flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.publish(ev)
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Session) publish(ev Event) {
	s.bus.Publish(ev)
	if s.registry != nil {
		s.registry.bus.Publish(ev)
	}
}
