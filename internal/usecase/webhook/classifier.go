// Package webhook classifies incoming GitLab webhook payloads into review
// work. Most deliveries are noise (comments, approvals the service itself
// produced, pushes to the default branch) and are filtered out here before
// any gateway or oracle traffic happens.
package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/akorchak/reviewbot/internal/usecase/review"
	"github.com/akorchak/reviewbot/internal/usecase/skip"
)

// Payload is the subset of a GitLab webhook body the classifier reads.
type Payload struct {
	ObjectKind       string                  `json:"object_kind"`
	EventType        string                  `json:"event_type"`
	Project          Project                 `json:"project"`
	ObjectAttributes *MergeRequestAttributes `json:"object_attributes"`
	User             *User                   `json:"user"`

	// Push fields.
	Ref               string   `json:"ref"`
	After             string   `json:"after"`
	UserName          string   `json:"user_name"`
	Commits           []Commit `json:"commits"`
	TotalCommitsCount int      `json:"total_commits_count"`
}

type Project struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
}

type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type MergeRequestAttributes struct {
	IID          int    `json:"iid"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	Action       string `json:"action"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	URL          string `json:"url"`
	LastCommit   Commit `json:"last_commit"`
}

type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Title   string `json:"title"`
}

// Kind says which pipeline, if any, a delivery feeds.
type Kind int

const (
	KindIgnored Kind = iota
	KindMergeRequest
	KindPush
)

// Classification is the routing decision for one delivery. Exactly one of
// MergeRequest or Push is set when Kind is not KindIgnored.
type Classification struct {
	Kind         Kind
	Reason       string
	MergeRequest *review.MergeRequestTask
	Push         *review.PushTask
}

func ignored(reason string) Classification {
	return Classification{Kind: KindIgnored, Reason: reason}
}

// deletedRefAfter is the SHA GitLab reports when a branch is deleted.
const deletedRefAfter = "0000000000000000000000000000000000000000"

// ParsePayload decodes a raw webhook body.
func ParsePayload(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	return p, nil
}

// Classify routes one payload. It never errors: anything it cannot or
// should not act on becomes KindIgnored with a reason.
func Classify(p Payload) Classification {
	switch p.ObjectKind {
	case "merge_request":
		return classifyMergeRequest(p)
	case "push":
		return classifyPush(p)
	case "note":
		return ignored("note event")
	default:
		return ignored(fmt.Sprintf("unsupported event kind %q", p.ObjectKind))
	}
}

func classifyMergeRequest(p Payload) Classification {
	attrs := p.ObjectAttributes
	if attrs == nil {
		return ignored("merge request event without object_attributes")
	}

	// Approval events fire when this service approves; acting on them
	// would loop.
	if attrs.Action == "approved" || attrs.Action == "unapproved" {
		return ignored("approval event")
	}

	switch attrs.State {
	case "closed", "merged":
		return ignored(fmt.Sprintf("merge request is %s", attrs.State))
	}

	switch attrs.Action {
	case "open", "update", "reopen":
	default:
		return ignored(fmt.Sprintf("merge request action %q", attrs.Action))
	}

	if res := skip.Check(skip.CheckRequest{Title: attrs.Title, Description: attrs.Description}); res.ShouldSkip {
		return ignored("skip trigger in " + res.Reason)
	}

	author := ""
	if p.User != nil {
		author = p.User.Name
	}
	return Classification{
		Kind: KindMergeRequest,
		MergeRequest: &review.MergeRequestTask{
			ProjectID:    strconv.Itoa(p.Project.ID),
			MRIID:        attrs.IID,
			Title:        attrs.Title,
			Description:  attrs.Description,
			Author:       author,
			SourceBranch: attrs.SourceBranch,
			TargetBranch: attrs.TargetBranch,
			Action:       attrs.Action,
			HeadSHA:      attrs.LastCommit.ID,
			URL:          attrs.URL,
		},
	}
}

func classifyPush(p Payload) Classification {
	if !strings.HasPrefix(p.Ref, "refs/heads/") {
		return ignored("not a branch push")
	}
	branch := strings.TrimPrefix(p.Ref, "refs/heads/")
	if branch == "" {
		return ignored("not a branch push")
	}
	if branch == "main" || branch == "master" || (p.Project.DefaultBranch != "" && branch == p.Project.DefaultBranch) {
		return ignored("push to default branch")
	}
	if p.After == deletedRefAfter {
		return ignored("branch deletion")
	}
	if len(p.Commits) == 0 && p.TotalCommitsCount == 0 {
		return ignored("push without commits")
	}

	messages := make([]string, 0, len(p.Commits))
	for _, c := range p.Commits {
		messages = append(messages, c.Message)
	}
	if res := skip.Check(skip.CheckRequest{CommitMessages: messages}); res.ShouldSkip {
		return ignored("skip trigger in " + res.Reason)
	}

	return Classification{
		Kind: KindPush,
		Push: &review.PushTask{
			ProjectID: strconv.Itoa(p.Project.ID),
			Branch:    branch,
			Author:    p.UserName,
			HeadSHA:   p.After,
			Commits:   p.TotalCommitsCount,
		},
	}
}
