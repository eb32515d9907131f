package gemini

import (
	"context"
	"fmt"

	"github.com/akorchak/reviewbot/internal/adapter/llm"
	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

const providerName = "gemini"

// Client abstracts the Gemini HTTP client behaviour the provider needs.
type Client interface {
	Generate(ctx context.Context, prompt string, seed uint64) (*APIResponse, error)
}

// Provider implements the review.Oracle port on top of the Gemini API.
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

// Review sends the change set to Gemini and recovers a structured outcome.
// A response that cannot be parsed is returned as an outcome with ParseError
// set, not as an error.
func (p *Provider) Review(ctx context.Context, req review.OracleRequest) (domain.ReviewOutcome, error) {
	if p.client == nil {
		return domain.ReviewOutcome{}, fmt.Errorf("gemini client missing")
	}

	resp, err := p.client.Generate(ctx, review.FormatReviewPrompt(req), req.Seed)
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
