package review

import (
	"fmt"
	"strings"

	"github.com/akorchak/reviewbot/internal/domain"
)

const reviewPromptTemplate = `You are a strict senior code reviewer. Review the merge request below and respond with JSON only.

Merge request: %s
Author: %s
Target branch: %s
Source branch: %s

Description:
%s

Changes:
%s

Respond with a single JSON object of this exact shape, with no prose before or after it:

{
  "files": [
    {
      "file_path": "path/to/file",
      "verdict": "APPROVE" | "CHANGES_REQUESTED" | "REJECT",
      "what_changed": "one or two sentences describing the change",
      "verdict_explanation": "why you chose this verdict",
      "critical_issues": [
        {
          "line": 42,
          "type": "bug" | "security" | "performance" | "style",
          "message": "what is wrong",
          "why": "why it matters",
          "fix": "how to fix it"
        }
      ],
      "suggestions": ["optional improvement"]
    }
  ]
}

Rules:
- Emit one entry in "files" for every changed file in the diff.
- Use REJECT only for changes that must not be merged in any form.
- Use CHANGES_REQUESTED when the change is acceptable after fixes.
- Keep "critical_issues" empty for a clean APPROVE.
- Never invent files that are not in the diff.`

// FormatReviewPrompt renders the oracle prompt for one change set.
func FormatReviewPrompt(req OracleRequest) string {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "(no description)"
	}
	return fmt.Sprintf(reviewPromptTemplate,
		req.Title, req.Author, req.TargetBranch, req.SourceBranch, desc, req.Diff)
}

// FormatDiffText renders diff entries into the textual form sent to the
// oracle. Entries with empty bodies are omitted, matching the fingerprint
// filter, so the oracle sees exactly the content that was fingerprinted.
func FormatDiffText(entries []domain.DiffEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if strings.TrimSpace(e.Diff) == "" {
			continue
		}
		fmt.Fprintf(&b, "=== File: %s ===\n", e.Path())
		b.WriteString(e.Diff)
		if !strings.HasSuffix(e.Diff, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
