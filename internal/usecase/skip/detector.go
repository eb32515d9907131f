// Package skip provides skip trigger detection for reviews. It lets authors
// bypass the automated review by including specific patterns in commit
// messages or merge request metadata.
package skip

import (
	"regexp"
	"strings"
)

// skipTriggerPattern matches [skip ai-review] or [skip-ai-review] (case-insensitive).
var skipTriggerPattern = regexp.MustCompile(`(?i)\[skip[ -]ai-review\]`)

// ContainsSkipTrigger checks if text contains a skip trigger pattern.
// Supported patterns:
//   - [skip ai-review]
//   - [skip-ai-review]
//
// Matching is case-insensitive.
func ContainsSkipTrigger(text string) bool {
	return skipTriggerPattern.MatchString(text)
}

// CheckRequest contains the inputs to check for skip triggers.
type CheckRequest struct {
	CommitMessages []string // Commit messages in the push (optional)
	Title          string   // Merge request title (optional)
	Description    string   // Merge request description (optional)
}

// CheckResult contains the result of checking for skip triggers.
type CheckResult struct {
	ShouldSkip bool   // True if a skip trigger was found
	Reason     string // Source where trigger was found
}

// Check examines commit messages and merge request metadata for skip
// triggers. It checks in order: commit messages, title, description.
// Returns the first match found.
func Check(req CheckRequest) CheckResult {
	for _, msg := range req.CommitMessages {
		if ContainsSkipTrigger(msg) {
			return CheckResult{ShouldSkip: true, Reason: "commit message"}
		}
	}

	if ContainsSkipTrigger(strings.TrimSpace(req.Title)) {
		return CheckResult{ShouldSkip: true, Reason: "merge request title"}
	}

	if ContainsSkipTrigger(req.Description) {
		return CheckResult{ShouldSkip: true, Reason: "merge request description"}
	}

	return CheckResult{}
}
