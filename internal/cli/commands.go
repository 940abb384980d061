package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/codalotl/changereview/internal/change"
	"github.com/codalotl/changereview/internal/config"
	"github.com/codalotl/changereview/internal/hunk"
	"github.com/codalotl/changereview/internal/proposal"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
}

// proposalFlags select how a proposed-file argument is read.
type proposalFlags struct {
	fromMarkdown bool
	lang         string
}

func (p *proposalFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.fromMarkdown, "from-markdown", false, "treat the proposed file as a markdown reply and use its first fenced code block")
	cmd.Flags().StringVar(&p.lang, "lang", "", "with --from-markdown, use the first block with this language")
}

func (p *proposalFlags) read(path string) (string, error) {
	if p.lang != "" && !p.fromMarkdown {
		return "", usageErrorf("--lang requires --from-markdown")
	}
	content, err := readFile(path)
	if err != nil || !p.fromMarkdown {
		return content, err
	}
	return proposal.Extract(content, p.lang)
}

func newRootCommand(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "changereview",
		Short:         "changereview lets you accept or reject proposed edits to a document one change at a time.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return UsageError{Message: err.Error()}
	})

	root.AddCommand(
		newChangesCommand(g),
		newHunksCommand(g, out),
		newReviewCommand(g),
		newApplyHunksCommand(g, out),
		newHistoryCommand(g),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a UsageError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return UsageError{Message: err.Error()}
		}
		return nil
	}
}

func newChangesCommand(g *globalFlags) *cobra.Command {
	var p proposalFlags
	cmd := &cobra.Command{
		Use:   "changes <original-file> <proposed-file>",
		Short: "List the changes between two files.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			original, err := readFile(args[0])
			if err != nil {
				return err
			}
			proposed, err := p.read(args[1])
			if err != nil {
				return err
			}

			changes := change.Compute(original, proposed, env.cfg.DiffOptions())
			env.health.Debug("computed changes", "original", args[0], "proposed", args[1], "count", len(changes))
			if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
				return nil
			}
			writeChanges(cmd.OutOrStdout(), changes)
			return nil
		},
	}
	p.register(cmd)
	return cmd
}

func newHunksCommand(g *globalFlags, out io.Writer) *cobra.Command {
	var p proposalFlags
	var contextLines int
	cmd := &cobra.Command{
		Use:   "hunks <original-file> <proposed-file>",
		Short: "Show the changes between two files as unified diff hunks.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			original, err := readFile(args[0])
			if err != nil {
				return err
			}
			proposed, err := p.read(args[1])
			if err != nil {
				return err
			}

			opts := env.cfg.HunkOptions()
			if cmd.Flags().Changed("context") {
				if contextLines < 0 {
					return usageErrorf("--context must be >= 0")
				}
				opts.ContextLines = contextLines
			}
			hunks := hunk.Compute(original, proposed, env.cfg.DiffOptions(), opts)
			if len(hunks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), hunk.RenderUnified(hunks, useColor(out), args[0], args[1]))
			return nil
		},
	}
	p.register(cmd)
	cmd.Flags().IntVar(&contextLines, "context", hunk.DefaultContextLines, "minimum lines of context around each hunk")
	return cmd
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
