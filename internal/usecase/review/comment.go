package review

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/akorchak/reviewbot/internal/domain"
)

// CommentMarker identifies review comments posted by this service. The
// duplicate guard scans recent notes for it.
const CommentMarker = "AI Code Review"

const (
	maxRenderedIssues      = 5
	maxRenderedSuggestions = 3
)

var titleCaser = cases.Title(language.English)

func verdictEmoji(v domain.Verdict) string {
	switch v {
	case domain.VerdictApprove:
		return "✅"
	case domain.VerdictReject:
		return "❌"
	default:
		return "❓"
	}
}

// RenderComment turns a review outcome into the markdown note posted on the
// merge request. The same outcome always renders to the same bytes, which is
// what makes comment fingerprinting meaningful.
func RenderComment(outcome domain.ReviewOutcome) string {
	if len(outcome.Files) == 0 && outcome.ParseError != "" {
		return renderParseFailure(outcome)
	}

	overall := outcome.OverallVerdict()
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s: %s\n\n", verdictEmoji(overall), CommentMarker, overall)
	fmt.Fprintf(&b, "Files analyzed: %d\n\n", len(outcome.Files))

	for _, f := range outcome.Files {
		fmt.Fprintf(&b, "### %s `%s` - %s\n\n", verdictEmoji(f.Verdict), f.FilePath, f.Verdict)
		if f.WhatChanged != "" {
			fmt.Fprintf(&b, "**What changed:** %s\n\n", f.WhatChanged)
		}
		if f.VerdictExplanation != "" {
			fmt.Fprintf(&b, "**Why this verdict:** %s\n\n", f.VerdictExplanation)
		}
		renderIssues(&b, f.CriticalIssues)
		renderSuggestions(&b, f.Suggestions)
		b.WriteString("---\n\n")
	}

	if outcome.ModelName != "" {
		fmt.Fprintf(&b, "_Reviewed by %s_\n", outcome.ModelName)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderIssues(b *strings.Builder, issues []domain.Issue) {
	if len(issues) == 0 {
		return
	}
	b.WriteString("**Issues found:**\n\n")
	shown := issues
	if len(shown) > maxRenderedIssues {
		shown = shown[:maxRenderedIssues]
	}
	for i, issue := range shown {
		loc := ""
		if issue.Line != "" {
			loc = fmt.Sprintf("Line %s, ", issue.Line)
		}
		kind := titleCaser.String(issue.Type)
		if kind == "" {
			kind = "Issue"
		}
		fmt.Fprintf(b, "%d. %s%s: %s\n", i+1, loc, kind, issue.Message)
		if issue.Why != "" {
			fmt.Fprintf(b, "   - Why it matters: %s\n", issue.Why)
		}
		if issue.Fix != "" {
			fmt.Fprintf(b, "   - Suggested fix: %s\n", issue.Fix)
		}
	}
	if len(issues) > maxRenderedIssues {
		fmt.Fprintf(b, "\n_...and %d more_\n", len(issues)-maxRenderedIssues)
	}
	b.WriteString("\n")
}

func renderSuggestions(b *strings.Builder, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	b.WriteString("**Suggestions:**\n\n")
	shown := suggestions
	if len(shown) > maxRenderedSuggestions {
		shown = shown[:maxRenderedSuggestions]
	}
	for _, s := range shown {
		fmt.Fprintf(b, "- %s\n", s)
	}
	b.WriteString("\n")
}

func renderParseFailure(outcome domain.ReviewOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## ❌ %s: ERROR\n\n", CommentMarker)
	b.WriteString("The review completed but its output could not be parsed.\n\n")
	fmt.Fprintf(&b, "```\n%s\n```\n\n", outcome.ParseError)
	b.WriteString("Please re-run the review or inspect the changes manually.\n")
	return b.String()
}
