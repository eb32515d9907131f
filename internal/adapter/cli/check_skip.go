package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akorchak/reviewbot/internal/usecase/skip"
)

// ErrShouldReview is returned when no skip trigger is found,
// indicating the review should proceed. Use this as a sentinel
// error in CI pipeline scripts.
var ErrShouldReview = errors.New("should review")

// checkSkipCommand creates the check-skip subcommand.
// This command checks commit messages and MR metadata for skip triggers.
//
// Exit codes:
//   - 0: Skip trigger found, review should be skipped
//   - 1: No skip trigger, review should proceed
func checkSkipCommand() *cobra.Command {
	var commitMessages []string
	var mrTitle string
	var mrDescription string

	cmd := &cobra.Command{
		Use:   "check-skip",
		Short: "Check if code review should be skipped",
		Long: `Check commit messages and merge request metadata for skip triggers.

Supported skip trigger patterns:
  [skip ai-review]
  [skip-ai-review]

Patterns are case-insensitive and can appear anywhere in the text.

Exit codes:
  0 - Skip trigger found, review should be skipped
  1 - No skip trigger, review should proceed

Example usage in a GitLab CI job:
  if reviewbot check-skip --commit-message "$CI_COMMIT_MESSAGE"; then
    echo "Skipping code review"
    exit 0
  fi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := skip.CheckRequest{
				CommitMessages: commitMessages,
				Title:          mrTitle,
				Description:    mrDescription,
			}

			result := skip.Check(req)

			if result.ShouldSkip {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "skip: %s\n", result.Reason)
				return nil // Exit 0
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "review: no skip trigger found")
			return ErrShouldReview // Exit 1
		},
	}

	cmd.Flags().StringArrayVar(&commitMessages, "commit-message", nil, "Commit message(s) to check (can be repeated)")
	cmd.Flags().StringVar(&mrTitle, "mr-title", "", "Merge request title to check")
	cmd.Flags().StringVar(&mrDescription, "mr-description", "", "Merge request description to check")

	return cmd
}
