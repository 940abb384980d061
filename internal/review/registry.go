// Package review runs accept/reject reviews of a proposed document replacement.
//
// A Registry holds at most one active Session per document. Registry.Start diffs the original against the proposal, extracts Changes, and (if there are any)
// returns a new Session. Starting a session for a document that already has one cancels the old session first.
//
// A Session is decided change by change (Accept, Reject), in bulk (AcceptAllRemaining, RejectAllRemaining), or hunk by hunk (ToggleHunk), and then ended
// with Finalize, FinalizeHunks, or Cancel. Every transition publishes an Event to the session's subscribers and to the registry's.
package review

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/diff"
	"github.com/codalotl/changereview/internal/eventbus"
	"github.com/codalotl/changereview/internal/hunk"
	"github.com/google/uuid"
)

// Options configure a Registry.
type Options struct {
	Diff  diff.Options
	Hunks hunk.Options
	Now   func() time.Time // defaults to time.Now
}

// DefaultOptions returns the default diff and hunk options.
func DefaultOptions() Options {
	return Options{Diff: diff.DefaultOptions(), Hunks: hunk.DefaultOptions()}
}

// Registry tracks the active Session of each document. It is safe for concurrent use.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session

	bus eventbus.Bus[Event]
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{opts: opts, sessions: make(map[string]*Session)}
}

// Start begins a review of proposed against original for documentID. It returns false, and leaves any existing session alone, if there is nothing to review.
// Otherwise the previous active session for documentID (if any) is cancelled, publishing review-cancelled, and the new session is returned.
func (r *Registry) Start(documentID, original, proposed string) (*Session, bool) {
	changes := change.Compute(original, proposed, r.opts.Diff)
	if len(changes) == 0 {
		return nil, false
	}
	if err := change.Validate(original, changes); err != nil {
		panic(fmt.Errorf("review.Start: extracted changes are invalid: %v", err))
	}

	s := &Session{
		DocumentID:      documentID,
		SessionID:       uuid.NewString(),
		OriginalContent: original,
		ProposedContent: proposed,
		OriginalHash:    ContentHash(original),
		StartedAt:       r.opts.Now(),
		active:          true,
		changes:         changes,
		hunkOpts:        r.opts.Hunks,
		registry:        r,
	}

	r.mu.Lock()
	prev := r.sessions[documentID]
	r.sessions[documentID] = s
	r.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	return s, true
}

// Session returns the active session for documentID.
func (r *Registry) Session(documentID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[documentID]
	return s, ok
}

// Documents returns the ids of documents with an active session, sorted.
func (r *Registry) Documents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Subscribe registers fn for the events of every session this registry starts.
func (r *Registry) Subscribe(fn eventbus.Handler[Event]) (unsubscribe func()) {
	return r.bus.Subscribe(fn)
}

// release forgets s if it is still the active session for its document.
func (r *Registry) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.DocumentID] == s {
		delete(r.sessions, s.DocumentID)
	}
}
