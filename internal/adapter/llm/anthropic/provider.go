package anthropic

import (
	"context"
	"fmt"

	"github.com/akorchak/reviewbot/internal/adapter/llm"
	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

const providerName = "anthropic"

// Client abstracts the Anthropic HTTP client behaviour the provider needs.
type Client interface {
	Generate(ctx context.Context, prompt string) (*APIResponse, error)
}

// Provider implements the review.Oracle port on top of the Messages API.
type Provider struct {
	model  string
	client Client
}

// NewProvider constructs a Provider for the supplied model.
func NewProvider(model string, client Client) *Provider {
	return &Provider{
		model:  model,
		client: client,
	}
}

// Review sends the change set to Claude and recovers a structured outcome.
func (p *Provider) Review(ctx context.Context, req review.OracleRequest) (domain.ReviewOutcome, error) {
	if p.client == nil {
		return domain.ReviewOutcome{}, fmt.Errorf("anthropic client missing")
	}

	resp, err := p.client.Generate(ctx, review.FormatReviewPrompt(req))
	if err != nil {
		return domain.ReviewOutcome{}, err
	}

	outcome := llmhttp.ParseReviewOutcome(resp.Text)
	outcome.ProviderName = providerName
	outcome.ModelName = p.model
	outcome.TokensIn = resp.TokensIn
	outcome.TokensOut = resp.TokensOut
	return outcome, nil
}

// EstimateTokens returns an estimated token count for prompt budgeting.
func (p *Provider) EstimateTokens(text string) int {
	return llm.EstimateTokens(text)
}
