package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akorchak/reviewbot/internal/domain"
)

func TestOverallVerdictAggregation(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []domain.Verdict
		want     domain.Verdict
	}{
		{
			name:     "all approved",
			verdicts: []domain.Verdict{domain.VerdictApprove, domain.VerdictApprove},
			want:     domain.VerdictApprove,
		},
		{
			name:     "one requests changes",
			verdicts: []domain.Verdict{domain.VerdictApprove, domain.VerdictChangesRequested},
			want:     domain.VerdictChangesRequested,
		},
		{
			name:     "reject dominates",
			verdicts: []domain.Verdict{domain.VerdictApprove, domain.VerdictReject},
			want:     domain.VerdictReject,
		},
		{
			name:     "reject beats changes requested",
			verdicts: []domain.Verdict{domain.VerdictChangesRequested, domain.VerdictReject},
			want:     domain.VerdictReject,
		},
		{
			name:     "unknown verdict is not approval",
			verdicts: []domain.Verdict{domain.VerdictApprove, domain.Verdict("LGTM")},
			want:     domain.VerdictChangesRequested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := domain.ReviewOutcome{}
			for _, v := range tt.verdicts {
				outcome.Files = append(outcome.Files, domain.FileReview{Verdict: v})
			}
			assert.Equal(t, tt.want, outcome.OverallVerdict())
		})
	}
}

func TestOverallVerdictNoFiles(t *testing.T) {
	// The controller skips posting entirely for empty outcomes; the
	// aggregate still defaults to the non-approving verdict.
	assert.Equal(t, domain.VerdictChangesRequested, domain.ReviewOutcome{}.OverallVerdict())
}

func TestVerdictLabels(t *testing.T) {
	assert.Equal(t, []string{"ai-reviewed", "ready-for-merge"}, domain.VerdictApprove.Labels())
	assert.Equal(t, []string{"ai-reviewed", "changes-requested"}, domain.VerdictChangesRequested.Labels())
	assert.Equal(t, []string{"ai-reviewed", "rejected"}, domain.VerdictReject.Labels())
}

func TestSubjectKeys(t *testing.T) {
	mr := domain.MergeRequestSubject("42", 7)
	branch := domain.BranchSubject("42", "feature/login")

	assert.Equal(t, "42!7", mr.Key())
	assert.Equal(t, "42@feature/login", branch.Key())
	assert.NotEqual(t, mr.Key(), branch.Key())

	// Subjects are comparable and usable as map keys.
	m := map[domain.Subject]bool{mr: true}
	assert.True(t, m[domain.MergeRequestSubject("42", 7)])
}

func TestNormalizeVerdict(t *testing.T) {
	assert.Equal(t, domain.VerdictApprove, domain.NormalizeVerdict("APPROVE"))
	assert.Equal(t, domain.VerdictReject, domain.NormalizeVerdict("REJECT"))
	assert.Equal(t, domain.VerdictChangesRequested, domain.NormalizeVerdict(""))
	assert.Equal(t, domain.VerdictChangesRequested, domain.NormalizeVerdict("approve"))
}
