package review

import (
	"context"
	"time"

	"github.com/akorchak/reviewbot/internal/domain"
)

// Oracle produces a structured review for a prepared request. Implementations
// live under internal/adapter/llm.
type Oracle interface {
	Review(ctx context.Context, req OracleRequest) (domain.ReviewOutcome, error)
	EstimateTokens(text string) int
}

// OracleRequest carries everything the oracle needs to review one change set.
type OracleRequest struct {
	Title        string
	Description  string
	Author       string
	SourceBranch string
	TargetBranch string
	Diff         string

	// Seed is a sampling seed for providers that honor one. Zero means
	// unseeded.
	Seed uint64
}

// SeedFunc derives a deterministic sampling seed for a branch pair, so that
// repeated reviews of the same refs sample the same way.
type SeedFunc func(baseRef, targetRef string) uint64

// MergeRequestInfo is the subset of gateway merge request state the
// controller reads.
type MergeRequestInfo struct {
	IID          int
	Title        string
	Description  string
	Author       string
	SourceBranch string
	TargetBranch string
	State        string
	Labels       []string
	WebURL       string
}

// Note is a single discussion note on a merge request.
type Note struct {
	ID        int
	Body      string
	Author    string
	CreatedAt time.Time
}

// Gateway is the controller's view of the code host. The GitLab adapter
// implements it.
type Gateway interface {
	MergeRequestInfo(ctx context.Context, projectID string, mrIID int) (MergeRequestInfo, error)
	MergeRequestChanges(ctx context.Context, projectID string, mrIID int) ([]domain.DiffEntry, error)
	MergeRequestNotes(ctx context.Context, projectID string, mrIID int, limit int) ([]Note, error)
	PostMergeRequestNote(ctx context.Context, projectID string, mrIID int, body string) error
	UpdateLabels(ctx context.Context, projectID string, mrIID int, labels []string) error
	Approve(ctx context.Context, projectID string, mrIID int) error
	Unapprove(ctx context.Context, projectID string, mrIID int) error
	BlockMerge(ctx context.Context, projectID string, mrIID int) error
	UnblockMerge(ctx context.Context, projectID string, mrIID int) error
	OpenMergeRequestsForBranch(ctx context.Context, projectID, sourceBranch string) ([]MergeRequestInfo, error)
	CompareBranches(ctx context.Context, projectID, from, to string) ([]domain.DiffEntry, error)
}

// Redactor scrubs secrets from diff text before it leaves the service.
type Redactor interface {
	Redact(text string) string
}

// Logger is the controller's structured logging port.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warning(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}

// Recorder persists completed review records for later inspection. Optional;
// a nil Recorder disables history.
type Recorder interface {
	Record(ctx context.Context, rec HistoryRecord) error
}

// HistoryRecord is one completed review as stored by the Recorder.
type HistoryRecord struct {
	Subject     string
	Decision    Decision
	Fingerprint domain.ChangeFingerprint
	Verdict     domain.Verdict
	Provider    string
	Model       string
	TokensIn    int
	TokensOut   int
	FileCount   int
	Posted      bool
	CreatedAt   time.Time
}
