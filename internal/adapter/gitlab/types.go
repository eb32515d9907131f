package gitlab

import (
	"time"

	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

// mergeRequest is the GitLab API representation of a merge request, reduced
// to the fields the service reads.
type mergeRequest struct {
	IID          int      `json:"iid"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	State        string   `json:"state"`
	SourceBranch string   `json:"source_branch"`
	TargetBranch string   `json:"target_branch"`
	Labels       []string `json:"labels"`
	WebURL       string   `json:"web_url"`
	Author       struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"author"`
}

func (m mergeRequest) toInfo() review.MergeRequestInfo {
	return review.MergeRequestInfo{
		IID:          m.IID,
		Title:        m.Title,
		Description:  m.Description,
		Author:       m.Author.Name,
		SourceBranch: m.SourceBranch,
		TargetBranch: m.TargetBranch,
		State:        m.State,
		Labels:       m.Labels,
		WebURL:       m.WebURL,
	}
}

// change is one entry of the merge request changes payload.
type change struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
	Diff    string `json:"diff"`
}

func toDiffEntries(changes []change) []domain.DiffEntry {
	entries := make([]domain.DiffEntry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, domain.DiffEntry{
			OldPath: c.OldPath,
			NewPath: c.NewPath,
			Diff:    c.Diff,
		})
	}
	return entries
}

type changesResponse struct {
	Changes []change `json:"changes"`
}

type compareResponse struct {
	Diffs []change `json:"diffs"`
}

type note struct {
	ID        int       `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Author    struct {
		Name string `json:"name"`
	} `json:"author"`
}

type noteRequest struct {
	Body string `json:"body"`
}

// mergeRequestUpdate is the PUT body for label and merge flag changes.
// Empty fields are omitted so unrelated attributes stay untouched.
type mergeRequestUpdate struct {
	Labels                    *string `json:"labels,omitempty"`
	AddLabels                 string  `json:"add_labels,omitempty"`
	RemoveLabels              string  `json:"remove_labels,omitempty"`
	MergeWhenPipelineSucceeds *bool   `json:"merge_when_pipeline_succeeds,omitempty"`
}
