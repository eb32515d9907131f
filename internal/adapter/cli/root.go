// Package cli wires the reviewbot commands: the webhook server, local
// reviews, skip checks, and review history stats.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/akorchak/reviewbot/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// LocalReviewer reviews a branch of a local repository checkout.
type LocalReviewer interface {
	ReviewBranch(ctx context.Context, req review.LocalRequest) (review.LocalResult, error)
	CurrentBranch(ctx context.Context) (string, error)
}

// ServerRunner starts the webhook server and blocks until shutdown.
type ServerRunner interface {
	Run(ctx context.Context) error
}

// HistoryReader reads aggregate review history.
type HistoryReader interface {
	CountByDecision(ctx context.Context) (map[review.Decision]int, error)
	RecentBySubject(ctx context.Context, subject string, limit int) ([]review.HistoryRecord, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	LocalReviewer LocalReviewer
	Server        ServerRunner
	History       HistoryReader
	Args          Arguments

	DefaultOutput string
	DefaultRepo   string
	DefaultBranch string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "reviewbot",
		Short: "AI code review service for GitLab",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.Server))
	root.AddCommand(localCommand(deps.LocalReviewer, deps.DefaultOutput, deps.DefaultRepo, deps.DefaultBranch))
	root.AddCommand(checkSkipCommand())
	root.AddCommand(statsCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}

	return root
}

func serveCommand(server ServerRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the GitLab webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == nil {
				return fmt.Errorf("server is not configured; check gitlab and provider settings")
			}
			return server.Run(cmd.Context())
		},
	}
}

func localCommand(reviewer LocalReviewer, defaultOutput, defaultRepo, defaultBranch string) *cobra.Command {
	var baseRef string
	var targetRef string
	var outputDir string
	var repository string
	var includeUncommitted bool
	var detectTarget bool

	cmd := &cobra.Command{
		Use:   "local [target]",
		Short: "Review a local branch against a base reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reviewer == nil {
				return fmt.Errorf("local reviewer is not configured; check provider settings")
			}
			if len(args) > 0 {
				targetRef = args[0]
			}
			ctx := cmd.Context()
			if targetRef == "" && detectTarget && !includeUncommitted {
				resolved, err := reviewer.CurrentBranch(ctx)
				if err != nil {
					return fmt.Errorf("detect target branch: %w", err)
				}
				targetRef = resolved
			}
			if targetRef == "" && !includeUncommitted {
				return fmt.Errorf("target branch not specified; pass as an argument, use --target, or disable --detect-target")
			}

			result, err := reviewer.ReviewBranch(ctx, review.LocalRequest{
				BaseRef:            baseRef,
				TargetRef:          targetRef,
				IncludeUncommitted: includeUncommitted,
				OutputDir:          outputDir,
				Repository:         repository,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Verdict: %s\n", result.Verdict)
			_, _ = fmt.Fprintf(out, "Files analyzed: %d\n", result.FileCount)
			_, _ = fmt.Fprintf(out, "Report: %s\n", result.ArtifactPath)
			return nil
		},
	}

	if defaultBranch == "" {
		defaultBranch = "main"
	}
	if defaultOutput == "" {
		defaultOutput = "out"
	}
	cmd.Flags().StringVar(&baseRef, "base", defaultBranch, "Base reference to diff against")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target branch to review (overrides positional)")
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write review reports")
	cmd.Flags().StringVar(&repository, "repository", defaultRepo, "Optional repository name override")
	cmd.Flags().BoolVar(&includeUncommitted, "include-uncommitted", false, "Review uncommitted working tree changes against the base")
	cmd.Flags().BoolVar(&detectTarget, "detect-target", true, "Automatically detect the checked out branch when no target is provided")

	return cmd
}

func statsCommand(history HistoryReader) *cobra.Command {
	var subject string
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review history statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return fmt.Errorf("review history store is disabled; set store.enabled to true")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if subject != "" {
				records, err := history.RecentBySubject(ctx, subject, limit)
				if err != nil {
					return fmt.Errorf("read history for %s: %w", subject, err)
				}
				if len(records) == 0 {
					_, _ = fmt.Fprintf(out, "no reviews recorded for %s\n", subject)
					return nil
				}
				for _, rec := range records {
					_, _ = fmt.Fprintf(out, "%s  %-22s %-18s posted=%-5t files=%d\n",
						rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Decision, rec.Verdict, rec.Posted, rec.FileCount)
				}
				return nil
			}

			counts, err := history.CountByDecision(ctx)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(counts) == 0 {
				_, _ = fmt.Fprintln(out, "no reviews recorded")
				return nil
			}

			decisions := make([]string, 0, len(counts))
			for d := range counts {
				decisions = append(decisions, string(d))
			}
			sort.Strings(decisions)
			for _, d := range decisions {
				_, _ = fmt.Fprintf(out, "%-24s %d\n", d, counts[review.Decision(d)])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Show recent reviews for one subject key (e.g. 42!7)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum records to show with --subject")

	return cmd
}
