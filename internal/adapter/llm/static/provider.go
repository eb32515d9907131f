// Package static provides a canned oracle for tests and dry runs.
package static

import (
	"context"

	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

// Provider returns a fixed outcome without calling any remote service.
type Provider struct {
	outcome domain.ReviewOutcome
}

// NewProvider constructs a Provider returning the supplied outcome.
func NewProvider(outcome domain.ReviewOutcome) *Provider {
	return &Provider{outcome: outcome}
}

// NewApprovingProvider constructs a Provider that approves every file it is
// shown, useful for wiring checks and demos.
func NewApprovingProvider() *Provider {
	return &Provider{
		outcome: domain.ReviewOutcome{
			ProviderName: "static",
			ModelName:    "static",
			Files: []domain.FileReview{
				{
					FilePath:           "(all files)",
					Verdict:            domain.VerdictApprove,
					WhatChanged:        "Static provider does not inspect changes.",
					VerdictExplanation: "Static provider approves unconditionally.",
				},
			},
		},
	}
}

// Review returns the canned outcome.
func (p *Provider) Review(ctx context.Context, req review.OracleRequest) (domain.ReviewOutcome, error) {
	return p.outcome, nil
}

// EstimateTokens provides a character-based estimate.
func (p *Provider) EstimateTokens(text string) int {
	return len(text) / 4
}
