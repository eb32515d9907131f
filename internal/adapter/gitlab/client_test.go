package gitlab_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akorchak/reviewbot/internal/adapter/gitlab"
	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
)

func newClient(t *testing.T, handler http.Handler) (*gitlab.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := gitlab.NewClient(srv.URL, "glpat-test-token")
	c.SetRetryConfig(llmhttp.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	})
	return c, srv
}

func TestMergeRequestChanges(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/merge_requests/7/changes", r.URL.Path)
		assert.Equal(t, "glpat-test-token", r.Header.Get("PRIVATE-TOKEN"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"changes": []map[string]string{
				{"old_path": "a.go", "new_path": "a.go", "diff": "@@ -1 +1 @@\n"},
				{"old_path": "b.go", "new_path": "c.go", "diff": ""},
			},
		})
	}))

	entries, err := c.MergeRequestChanges(context.Background(), "42", 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.go", entries[0].Path())
	assert.Equal(t, "c.go", entries[1].Path())
}

func TestMergeRequestInfo(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Frepo/merge_requests/7", r.URL.EscapedPath())
		json.NewEncoder(w).Encode(map[string]interface{}{
			"iid":           7,
			"title":         "Add feature",
			"state":         "opened",
			"source_branch": "feature",
			"target_branch": "main",
			"labels":        []string{"backend"},
			"author":        map[string]string{"name": "Dev"},
		})
	}))

	info, err := c.MergeRequestInfo(context.Background(), "group/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, info.IID)
	assert.Equal(t, "Dev", info.Author)
	assert.Equal(t, []string{"backend"}, info.Labels)
}

func TestPostMergeRequestNote(t *testing.T) {
	var posted string
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/projects/42/merge_requests/7/notes", r.URL.Path)
		var body struct {
			Body string `json:"body"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		posted = body.Body
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.PostMergeRequestNote(context.Background(), "42", 7, "## AI Code Review: APPROVE")
	require.NoError(t, err)
	assert.Equal(t, "## AI Code Review: APPROVE", posted)
}

func TestMergeRequestNotesPagination(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 2, "body": "newest", "created_at": time.Now().Format(time.RFC3339)},
			{"id": 1, "body": "older", "created_at": time.Now().Format(time.RFC3339)},
		})
	}))

	notes, err := c.MergeRequestNotes(context.Background(), "42", 7, 20)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "newest", notes[0].Body)
}

func TestUpdateLabelsJoins(t *testing.T) {
	var update map[string]interface{}
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		w.Write([]byte("{}"))
	}))

	err := c.UpdateLabels(context.Background(), "42", 7, []string{"backend", "ai-reviewed"})
	require.NoError(t, err)
	assert.Equal(t, "backend,ai-reviewed", update["labels"])
}

func TestBlockMergeSetsLabelAndCancelsAutoMerge(t *testing.T) {
	var update map[string]interface{}
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		w.Write([]byte("{}"))
	}))

	require.NoError(t, c.BlockMerge(context.Background(), "42", 7))
	assert.Equal(t, "ai-review-blocked", update["add_labels"])
	assert.Equal(t, false, update["merge_when_pipeline_succeeds"])
}

func TestApproveTwiceIsIdempotent(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "already approved"}`))
	}))
	assert.NoError(t, c.Approve(context.Background(), "42", 7))
}

func TestCompareBranches(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/repository/compare", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("from"))
		assert.Equal(t, "feature", r.URL.Query().Get("to"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"diffs": []map[string]string{{"old_path": "x.go", "new_path": "x.go", "diff": "@@"}},
		})
	}))

	entries, err := c.CompareBranches(context.Background(), "42", "main", "feature")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestOpenMergeRequestsForBranch(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "opened", r.URL.Query().Get("state"))
		assert.Equal(t, "feature", r.URL.Query().Get("source_branch"))
		json.NewEncoder(w).Encode([]map[string]interface{}{{"iid": 7, "source_branch": "feature"}})
	}))

	mrs, err := c.OpenMergeRequestsForBranch(context.Background(), "42", "feature")
	require.NoError(t, err)
	require.Len(t, mrs, 1)
	assert.Equal(t, 7, mrs[0].IID)
}

func TestRetriesOnServerError(t *testing.T) {
	var calls int32
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"changes": []map[string]string{}})
	}))

	_, err := c.MergeRequestChanges(context.Background(), "42", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	var calls int32
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "401 Unauthorized"}`))
	}))

	_, err := c.MergeRequestChanges(context.Background(), "42", 7)
	require.Error(t, err)
	var httpErr *llmhttp.Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, llmhttp.ErrTypeAuthentication, httpErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
