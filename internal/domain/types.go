package domain

import (
	"encoding/json"
	"strings"
)

// Verdict is the oracle's judgement for a file or for a whole change set.
type Verdict string

const (
	VerdictApprove          Verdict = "APPROVE"
	VerdictChangesRequested Verdict = "CHANGES_REQUESTED"
	VerdictReject           Verdict = "REJECT"
)

// NormalizeVerdict maps free-form oracle output onto a known verdict.
// Anything unrecognized is treated as CHANGES_REQUESTED, never as approval.
func NormalizeVerdict(raw string) Verdict {
	switch Verdict(raw) {
	case VerdictApprove, VerdictChangesRequested, VerdictReject:
		return Verdict(raw)
	default:
		return VerdictChangesRequested
	}
}

// LineRef is a source line reference. Oracles emit it as either a JSON
// number or a quoted string, so it accepts both.
type LineRef string

func (l *LineRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = LineRef(s)
		return nil
	}
	*l = LineRef(trimmed)
	return nil
}

// Issue is a single problem the oracle found in a file.
type Issue struct {
	Line    LineRef `json:"line"`
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Why     string  `json:"why"`
	Fix     string  `json:"fix"`
}

// FileReview is the oracle's verdict for one changed file.
type FileReview struct {
	FilePath           string   `json:"file_path"`
	Verdict            Verdict  `json:"verdict"`
	WhatChanged        string   `json:"what_changed"`
	VerdictExplanation string   `json:"verdict_explanation"`
	CriticalIssues     []Issue  `json:"critical_issues"`
	Suggestions        []string `json:"suggestions"`
}

// ReviewOutcome is the structured verdict produced for one ChangeFingerprint.
// Outcomes are immutable once produced.
type ReviewOutcome struct {
	Files []FileReview `json:"files"`

	// ParseError is set when the oracle response could not be recovered
	// into structured form. The outcome is still postable.
	ParseError string `json:"error,omitempty"`

	ProviderName string `json:"-"`
	ModelName    string `json:"-"`
	TokensIn     int    `json:"-"`
	TokensOut    int    `json:"-"`
}

// OverallVerdict aggregates the per-file verdicts: APPROVE only when every
// file is approved, REJECT when any file is rejected, CHANGES_REQUESTED
// otherwise.
func (o ReviewOutcome) OverallVerdict() Verdict {
	if len(o.Files) == 0 {
		return VerdictChangesRequested
	}
	allApproved := true
	for _, f := range o.Files {
		switch NormalizeVerdict(string(f.Verdict)) {
		case VerdictReject:
			return VerdictReject
		case VerdictChangesRequested:
			allApproved = false
		}
	}
	if allApproved {
		return VerdictApprove
	}
	return VerdictChangesRequested
}

// Labels returns the labels applied to a merge request for a verdict. The
// caller unions these with existing labels rather than replacing them.
func (v Verdict) Labels() []string {
	switch v {
	case VerdictApprove:
		return []string{"ai-reviewed", "ready-for-merge"}
	case VerdictReject:
		return []string{"ai-reviewed", "rejected"}
	default:
		return []string{"ai-reviewed", "changes-requested"}
	}
}
