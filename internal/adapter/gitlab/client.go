// Package gitlab implements the review gateway against the GitLab REST API.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
)

// blockLabel marks a merge request whose merge is blocked by a negative
// review. BlockMerge adds it, UnblockMerge removes it.
const blockLabel = "ai-review-blocked"

// Client talks to a GitLab instance. It implements review.Gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryConf  llmhttp.RetryConfig
	logger     llmhttp.Logger
}

// NewClient creates a GitLab API client. baseURL is the instance root, for
// example "https://gitlab.example.com".
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf: llmhttp.RetryConfig{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetRetryConfig replaces the retry configuration.
func (c *Client) SetRetryConfig(conf llmhttp.RetryConfig) {
	c.retryConf = conf
}

// SetLogger enables request logging.
func (c *Client) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// do executes one API call with retry and decodes the response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	endpoint := c.baseURL + "/api/v4" + path
	var respBody []byte
	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if reqErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Service:   serviceName,
			}
		}
		req.Header.Set("PRIVATE-TOKEN", c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, callErr := c.httpClient.Do(req)
		if callErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Service:   serviceName,
			}
		}
		defer resp.Body.Close()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return &llmhttp.Error{
				Type:       llmhttp.ErrTypeUnknown,
				Message:    fmt.Sprintf("read response: %v", readErr),
				StatusCode: resp.StatusCode,
				Retryable:  true,
				Service:    serviceName,
			}
		}
		if c.logger != nil {
			c.logger.LogResponse(ctx, llmhttp.ResponseLog{
				Service:    serviceName,
				Timestamp:  start,
				Duration:   time.Since(start),
				StatusCode: resp.StatusCode,
			})
		}
		if resp.StatusCode >= 400 {
			return MapHTTPError(resp.StatusCode, data)
		}
		respBody = data
		return nil
	}, c.retryConf)
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func mrPath(projectID string, mrIID int) string {
	return fmt.Sprintf("/projects/%s/merge_requests/%d", url.PathEscape(projectID), mrIID)
}

func (c *Client) MergeRequestInfo(ctx context.Context, projectID string, mrIID int) (review.MergeRequestInfo, error) {
	var mr mergeRequest
	if err := c.do(ctx, http.MethodGet, mrPath(projectID, mrIID), nil, &mr); err != nil {
		return review.MergeRequestInfo{}, err
	}
	return mr.toInfo(), nil
}

func (c *Client) MergeRequestChanges(ctx context.Context, projectID string, mrIID int) ([]domain.DiffEntry, error) {
	var resp changesResponse
	if err := c.do(ctx, http.MethodGet, mrPath(projectID, mrIID)+"/changes", nil, &resp); err != nil {
		return nil, err
	}
	return toDiffEntries(resp.Changes), nil
}

// MergeRequestNotes returns the most recent notes first.
func (c *Client) MergeRequestNotes(ctx context.Context, projectID string, mrIID int, limit int) ([]review.Note, error) {
	path := fmt.Sprintf("%s/notes?order_by=created_at&sort=desc&per_page=%d", mrPath(projectID, mrIID), limit)
	var raw []note
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	notes := make([]review.Note, 0, len(raw))
	for _, n := range raw {
		notes = append(notes, review.Note{
			ID:        n.ID,
			Body:      n.Body,
			Author:    n.Author.Name,
			CreatedAt: n.CreatedAt,
		})
	}
	return notes, nil
}

func (c *Client) PostMergeRequestNote(ctx context.Context, projectID string, mrIID int, body string) error {
	return c.do(ctx, http.MethodPost, mrPath(projectID, mrIID)+"/notes", noteRequest{Body: body}, nil)
}

// UpdateLabels replaces the label set. Callers pass the union of existing
// and new labels.
func (c *Client) UpdateLabels(ctx context.Context, projectID string, mrIID int, labels []string) error {
	joined := strings.Join(labels, ",")
	return c.do(ctx, http.MethodPut, mrPath(projectID, mrIID), mergeRequestUpdate{Labels: &joined}, nil)
}

func (c *Client) Approve(ctx context.Context, projectID string, mrIID int) error {
	err := c.do(ctx, http.MethodPost, mrPath(projectID, mrIID)+"/approve", nil, nil)
	// Approving twice returns 401 or 409 depending on the instance; both
	// mean the approval is already in place.
	var httpErr *llmhttp.Error
	if asHTTPError(err, &httpErr) && (httpErr.StatusCode == http.StatusConflict || httpErr.StatusCode == http.StatusUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) Unapprove(ctx context.Context, projectID string, mrIID int) error {
	err := c.do(ctx, http.MethodPost, mrPath(projectID, mrIID)+"/unapprove", nil, nil)
	var httpErr *llmhttp.Error
	if asHTTPError(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		// Nothing to revoke.
		return nil
	}
	return err
}

// BlockMerge marks the merge request as blocked: it adds the block label and
// cancels merge-when-pipeline-succeeds so a queued auto-merge cannot land a
// rejected change.
func (c *Client) BlockMerge(ctx context.Context, projectID string, mrIID int) error {
	disabled := false
	err := c.do(ctx, http.MethodPut, mrPath(projectID, mrIID), mergeRequestUpdate{
		AddLabels:                 blockLabel,
		MergeWhenPipelineSucceeds: &disabled,
	}, nil)
	var httpErr *llmhttp.Error
	if asHTTPError(err, &httpErr) && httpErr.Type == llmhttp.ErrTypeInvalidRequest {
		// Clearing the merge flag fails when no auto-merge is queued.
		// Retry with the label alone.
		return c.do(ctx, http.MethodPut, mrPath(projectID, mrIID), mergeRequestUpdate{AddLabels: blockLabel}, nil)
	}
	return err
}

func (c *Client) UnblockMerge(ctx context.Context, projectID string, mrIID int) error {
	return c.do(ctx, http.MethodPut, mrPath(projectID, mrIID), mergeRequestUpdate{RemoveLabels: blockLabel}, nil)
}

func (c *Client) OpenMergeRequestsForBranch(ctx context.Context, projectID, sourceBranch string) ([]review.MergeRequestInfo, error) {
	path := fmt.Sprintf("/projects/%s/merge_requests?state=opened&source_branch=%s",
		url.PathEscape(projectID), url.QueryEscape(sourceBranch))
	var raw []mergeRequest
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	infos := make([]review.MergeRequestInfo, 0, len(raw))
	for _, mr := range raw {
		infos = append(infos, mr.toInfo())
	}
	return infos, nil
}

func (c *Client) CompareBranches(ctx context.Context, projectID, from, to string) ([]domain.DiffEntry, error) {
	path := fmt.Sprintf("/projects/%s/repository/compare?from=%s&to=%s",
		url.PathEscape(projectID), url.QueryEscape(from), url.QueryEscape(to))
	var resp compareResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return toDiffEntries(resp.Diffs), nil
}

func asHTTPError(err error, target **llmhttp.Error) bool {
	return err != nil && errors.As(err, target)
}
