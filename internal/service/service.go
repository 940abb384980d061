// Package service connects review sessions to persistence: it reads the document under review from a docstore.Store, runs the session through a
// review.Registry, writes the final content back, and records each outcome in a history.Store.
//
// Errors returned by Service are *health.Err or *health.HumanErr and have already been logged.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/codalotl/changereview/internal/docstore"
	"github.com/codalotl/changereview/internal/health"
	"github.com/codalotl/changereview/internal/history"
	"github.com/codalotl/changereview/internal/review"
)

var (
	ErrExcluded  = errors.New("document is excluded from review")
	ErrNoSession = errors.New("no active review for document")
)

// Options configure a Service.
type Options struct {
	Exclude []string         // doublestar globs matched against document ids
	Logger  *slog.Logger     // nil logs nothing
	Now     func() time.Time // defaults to time.Now
}

type Service struct {
	store    docstore.Store
	history  history.Store
	registry *review.Registry
	exclude  []string
	health   health.Ctx
	now      func() time.Time
}

// New returns a Service. A nil hist records nothing.
func New(store docstore.Store, hist history.Store, registry *review.Registry, opts Options) *Service {
	if hist == nil {
		hist = history.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    store,
		history:  hist,
		registry: registry,
		exclude:  opts.Exclude,
		health:   health.NewCtx(opts.Logger),
		now:      opts.Now,
	}
}

// Registry returns the registry sessions are started in.
func (s *Service) Registry() *review.Registry {
	return s.registry
}

// Excluded reports whether documentID matches an exclude glob.
func (s *Service) Excluded(documentID string) bool {
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, documentID); ok {
			return true
		}
	}
	return false
}

// Begin reads documentID and starts a review of proposed against it. A document that does not exist yet reviews as empty, so the whole proposal is one
// addition. It returns false if the proposal matches the document.
func (s *Service) Begin(ctx context.Context, documentID, proposed string) (*review.Session, bool, error) {
	h := s.health.With("document", documentID)
	if s.Excluded(documentID) {
		return nil, false, h.LogErr(health.WrapHuman("Refusing to review "+documentID+": it matches review.exclude.", "begin review", ErrExcluded))
	}

	original, err := s.read(ctx, documentID)
	if err != nil {
		return nil, false, h.LogWrappedErr("read document", err)
	}

	sess, ok := s.registry.Start(documentID, original, proposed)
	if !ok {
		h.Log("no changes proposed")
		return nil, false, nil
	}
	h.Log("review started", "session", sess.SessionID, "changes", len(sess.AllChanges()))
	return sess, true, nil
}

// Commit finalizes the active review of documentID in change mode and writes the result. If the stored document no longer matches the session's snapshot,
// the review is cancelled instead and the error wraps review.ErrStaleDocument.
//
// Once the session has been finalized its Result is returned even if the write fails; the error then says the document was not updated.
func (s *Service) Commit(ctx context.Context, documentID string) (review.Result, error) {
	return s.commit(ctx, documentID, (*review.Session).Finalize)
}

// CommitHunks is Commit in hunk mode. If an applied hunk cannot be located, the error wraps a *hunk.PreflightError and the session stays active.
func (s *Service) CommitHunks(ctx context.Context, documentID string) (review.Result, error) {
	return s.commit(ctx, documentID, (*review.Session).FinalizeHunks)
}

// Abort cancels the active review of documentID. The document is not touched.
func (s *Service) Abort(ctx context.Context, documentID string) (review.Result, error) {
	h := s.health.With("document", documentID)
	sess, ok := s.registry.Session(documentID)
	if !ok {
		return review.Result{}, h.LogErr(health.WrapHuman("There is no active review for "+documentID+".", "abort review", ErrNoSession))
	}
	res := sess.Cancel()
	s.record(ctx, h, sess, res, sess.OriginalHash)
	h.Log("review cancelled", "session", sess.SessionID)
	return res, nil
}

// History lists recorded outcomes for documentID, newest first.
func (s *Service) History(ctx context.Context, documentID string, limit int) ([]history.Outcome, error) {
	out, err := s.history.List(ctx, documentID, limit)
	if err != nil {
		return nil, s.health.LogWrappedErr("list history", err, "document", documentID)
	}
	return out, nil
}

func (s *Service) commit(ctx context.Context, documentID string, finalize func(*review.Session) (review.Result, error)) (review.Result, error) {
	h := s.health.With("document", documentID)
	sess, ok := s.registry.Session(documentID)
	if !ok {
		return review.Result{}, h.LogErr(health.WrapHuman("There is no active review for "+documentID+".", "commit review", ErrNoSession))
	}
	h = h.With("session", sess.SessionID)

	current, err := s.read(ctx, documentID)
	if err != nil {
		return review.Result{}, h.LogWrappedErr("read document", err)
	}
	if err := sess.CheckCurrent(current); err != nil {
		res := sess.Cancel()
		s.record(ctx, h, sess, res, sess.OriginalHash)
		return res, h.LogErr(health.WrapHuman(documentID+" changed since the review started; the review was cancelled.", "commit review", err,
			"want_hash", sess.OriginalHash, "have_hash", review.ContentHash(current)))
	}

	res, err := finalize(sess)
	if err != nil {
		return review.Result{}, h.LogWrappedErr("finalize review", err)
	}

	finalHash := review.ContentHash(res.FinalContent)
	if res.FinalContent != current {
		if err := s.store.Write(ctx, documentID, res.FinalContent); err != nil {
			s.record(ctx, h, sess, res, finalHash)
			return res, h.LogErr(health.WrapHuman("The review finished but "+documentID+" could not be written.", "write document", err))
		}
	}
	s.record(ctx, h, sess, res, finalHash)
	h.Log("review committed", "mode", res.Mode, "accepted", res.AcceptedCount, "rejected", res.RejectedCount, "skipped", len(res.Skipped))
	return res, nil
}

// record appends an outcome to history. History is an audit trail: a failure is logged and does not fail the review.
func (s *Service) record(ctx context.Context, h health.Ctx, sess *review.Session, res review.Result, finalHash string) {
	o := history.Outcome{
		SessionID:    sess.SessionID,
		DocumentID:   sess.DocumentID,
		Mode:         string(res.Mode),
		Applied:      res.Applied,
		Cancelled:    res.Cancelled,
		Accepted:     res.AcceptedCount,
		Rejected:     res.RejectedCount,
		OriginalHash: sess.OriginalHash,
		Message:      res.Message,
		RecordedAt:   s.now().UTC(),
	}
	if !res.Cancelled {
		o.FinalHash = finalHash
	}
	if err := s.history.Record(ctx, o); err != nil {
		_ = h.LogWrappedErr("record history", err)
	}
}

func (s *Service) read(ctx context.Context, documentID string) (string, error) {
	content, err := s.store.Read(ctx, documentID)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", nil
	}
	return content, err
}
