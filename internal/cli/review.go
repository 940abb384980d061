package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/hunk"
	"github.com/codalotl/changereview/internal/review"
	"github.com/spf13/cobra"
)

func newReviewCommand(g *globalFlags) *cobra.Command {
	var p proposalFlags
	var accept, reject []int
	var acceptRest, rejectRest, dryRun bool

	cmd := &cobra.Command{
		Use:   "review <document-id> <proposed-file>",
		Short: "Review a proposed replacement of a stored document change by change, then commit the accepted changes.",
		Long: "Review starts a session for the document, applies --accept and --reject decisions by change id (see `changereview changes`), " +
			"optionally decides the rest in bulk, and commits. Changes left pending are rejected.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if acceptRest && rejectRest {
				return usageErrorf("--accept-rest and --reject-rest are mutually exclusive")
			}
			documentID := args[0]
			env, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			proposed, err := p.read(args[1])
			if err != nil {
				return err
			}
			svc, closeFn, err := env.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			sess, ok, err := svc.Begin(cmd.Context(), documentID, proposed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "No changes proposed.")
				return nil
			}

			if err := decide(sess, accept, change.Accepted); err != nil {
				_, _ = svc.Abort(cmd.Context(), documentID)
				return err
			}
			if err := decide(sess, reject, change.Rejected); err != nil {
				_, _ = svc.Abort(cmd.Context(), documentID)
				return err
			}
			switch {
			case acceptRest:
				sess.AcceptAllRemaining()
			case rejectRest:
				sess.RejectAllRemaining()
			}

			if dryRun {
				writeChanges(cmd.ErrOrStderr(), sess.AllChanges())
				res, err := sess.Finalize()
				if err != nil {
					return err
				}
				fmt.Fprint(out, res.FinalContent)
				fmt.Fprintln(cmd.ErrOrStderr(), res.Message, "(dry run; nothing written)")
				return nil
			}

			res, err := svc.Commit(cmd.Context(), documentID)
			if err != nil {
				return err
			}
			writeResult(out, res)
			return nil
		},
	}
	p.register(cmd)
	cmd.Flags().IntSliceVar(&accept, "accept", nil, "change ids to accept")
	cmd.Flags().IntSliceVar(&reject, "reject", nil, "change ids to reject")
	cmd.Flags().BoolVar(&acceptRest, "accept-rest", false, "accept every change not otherwise decided")
	cmd.Flags().BoolVar(&rejectRest, "reject-rest", false, "reject every change not otherwise decided")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the resulting document instead of writing it")
	return cmd
}

// keptActive reports whether a failed hunk commit left its session open. Only a failed pre-flight does; a stale document or a failed write has already ended it.
func keptActive(err error) bool {
	var pe *hunk.PreflightError
	return errors.As(err, &pe)
}

// decide moves each change in ids to status to. Naming a missing change, or one already decided the other way, is an error.
func decide(sess *review.Session, ids []int, to change.Status) error {
	for _, id := range ids {
		c, ok := sess.Change(id)
		if !ok {
			return fmt.Errorf("no change with id %d (the proposal has %d)", id, len(sess.AllChanges()))
		}
		if !c.IsPending() {
			if c.Status == to {
				continue
			}
			return fmt.Errorf("change %d is already %s", id, c.Status)
		}
		if to == change.Accepted {
			sess.Accept(id)
		} else {
			sess.Reject(id)
		}
	}
	return nil
}

func newApplyHunksCommand(g *globalFlags, out io.Writer) *cobra.Command {
	var p proposalFlags
	var skip []int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply-hunks <document-id> <proposed-file>",
		Short: "Apply a proposed replacement of a stored document hunk by hunk.",
		Long:  "Every hunk (see `changereview hunks`) is applied except those named by --skip. Nothing is written unless every applied hunk can be located.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID := args[0]
			env, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			proposed, err := p.read(args[1])
			if err != nil {
				return err
			}
			svc, closeFn, err := env.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			sess, ok, err := svc.Begin(cmd.Context(), documentID, proposed)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes proposed.")
				return nil
			}

			hunks := sess.Hunks()
			for _, id := range skip {
				if !slices.ContainsFunc(hunks, func(h hunk.Hunk) bool { return h.ID == id }) {
					_, _ = svc.Abort(cmd.Context(), documentID)
					return fmt.Errorf("no hunk with id %d (the proposal has %d)", id, len(hunks))
				}
				sess.ToggleHunk(id, false)
			}

			if dryRun {
				fmt.Fprintln(cmd.ErrOrStderr(), hunk.RenderUnified(sess.Hunks(), false, "a/"+documentID, "b/"+documentID))
				final, err := sess.PreviewHunks()
				sess.Cancel()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), final)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), hunk.RenderUnified(sess.Hunks(), useColor(out), "a/"+documentID, "b/"+documentID))
			res, err := svc.CommitHunks(cmd.Context(), documentID)
			if err != nil {
				if keptActive(err) {
					_, _ = svc.Abort(cmd.Context(), documentID)
				}
				return err
			}
			writeResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	p.register(cmd)
	cmd.Flags().IntSliceVar(&skip, "skip", nil, "hunk ids to leave out")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the resulting document instead of writing it")
	return cmd
}

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <document-id>",
		Short: "List recorded review outcomes for a document, newest first.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			svc, closeFn, err := env.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			outcomes, err := svc.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(outcomes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded reviews.")
				return nil
			}
			writeHistory(cmd.OutOrStdout(), outcomes)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum outcomes to list; 0 lists all")
	return cmd
}
