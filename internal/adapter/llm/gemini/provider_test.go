package gemini_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akorchak/reviewbot/internal/adapter/llm/gemini"
	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

type stubClient struct {
	prompts  []string
	seeds    []uint64
	response *gemini.APIResponse
	err      error
}

func (s *stubClient) Generate(ctx context.Context, prompt string, seed uint64) (*gemini.APIResponse, error) {
	s.prompts = append(s.prompts, prompt)
	s.seeds = append(s.seeds, seed)
	return s.response, s.err
}

func TestProviderReview(t *testing.T) {
	t.Run("parses structured response", func(t *testing.T) {
		client := &stubClient{
			response: &gemini.APIResponse{
				Text: `{"files": [{"file_path": "main.go", "verdict": "APPROVE",
					"what_changed": "Added a helper", "verdict_explanation": "Safe change"}]}`,
				TokensIn:  100,
				TokensOut: 50,
			},
		}

		provider := gemini.NewProvider("gemini-2.0-flash", client)

		outcome, err := provider.Review(context.Background(), review.OracleRequest{
			Title: "Add helper",
			Diff:  "=== File: main.go ===\n+func helper() {}",
			Seed:  42,
		})

		require.NoError(t, err)
		require.Len(t, client.prompts, 1)
		assert.Contains(t, client.prompts[0], "Add helper")
		assert.Equal(t, []uint64{42}, client.seeds)

		assert.Equal(t, "gemini", outcome.ProviderName)
		assert.Equal(t, "gemini-2.0-flash", outcome.ModelName)
		assert.Equal(t, 100, outcome.TokensIn)
		assert.Equal(t, 50, outcome.TokensOut)
		require.Len(t, outcome.Files, 1)
		assert.Equal(t, domain.VerdictApprove, outcome.Files[0].Verdict)
	})

	t.Run("unparseable response becomes parse error outcome", func(t *testing.T) {
		client := &stubClient{
			response: &gemini.APIResponse{Text: "I cannot review this."},
		}

		provider := gemini.NewProvider("gemini-2.0-flash", client)

		outcome, err := provider.Review(context.Background(), review.OracleRequest{Diff: "x"})

		require.NoError(t, err)
		assert.NotEmpty(t, outcome.ParseError)
		assert.Empty(t, outcome.Files)
	})

	t.Run("returns error when client is nil", func(t *testing.T) {
		provider := gemini.NewProvider("gemini-2.0-flash", nil)

		_, err := provider.Review(context.Background(), review.OracleRequest{Diff: "x"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "gemini client missing")
	})

	t.Run("propagates client errors", func(t *testing.T) {
		client := &stubClient{err: assert.AnError}
		provider := gemini.NewProvider("gemini-2.0-flash", client)

		_, err := provider.Review(context.Background(), review.OracleRequest{Diff: "x"})

		assert.Error(t, err)
	})
}

func TestProviderEstimateTokens(t *testing.T) {
	provider := gemini.NewProvider("gemini-2.0-flash", &stubClient{})

	count := provider.EstimateTokens("some text to estimate")
	assert.Greater(t, count, 0)
}
