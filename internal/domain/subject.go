package domain

import "fmt"

// SubjectKind discriminates the two identity schemes a review can target.
type SubjectKind int

const (
	// SubjectMergeRequest identifies a review scoped to an open merge request.
	SubjectMergeRequest SubjectKind = iota

	// SubjectBranch identifies a review scoped to a pushed branch that has
	// no open merge request yet.
	SubjectBranch
)

// String returns a human-readable kind name.
func (k SubjectKind) String() string {
	switch k {
	case SubjectMergeRequest:
		return "merge_request"
	case SubjectBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Subject identifies a reviewable unit. It is a tagged union: exactly one of
// MergeRequestIID or Branch is meaningful, selected by Kind. Subjects are
// comparable and used directly as cache keys.
type Subject struct {
	Kind            SubjectKind
	ProjectID       string
	MergeRequestIID int
	Branch          string
}

// MergeRequestSubject constructs an MR-scoped subject.
func MergeRequestSubject(projectID string, mrIID int) Subject {
	return Subject{
		Kind:            SubjectMergeRequest,
		ProjectID:       projectID,
		MergeRequestIID: mrIID,
	}
}

// BranchSubject constructs a branch-scoped subject for a push that has no
// open merge request yet.
func BranchSubject(projectID, branch string) Subject {
	return Subject{
		Kind:      SubjectBranch,
		ProjectID: projectID,
		Branch:    branch,
	}
}

// Key returns the canonical cache key for the subject. There is exactly one
// key format per kind.
func (s Subject) Key() string {
	if s.Kind == SubjectBranch {
		return fmt.Sprintf("%s@%s", s.ProjectID, s.Branch)
	}
	return fmt.Sprintf("%s!%d", s.ProjectID, s.MergeRequestIID)
}

// String implements fmt.Stringer for log output.
func (s Subject) String() string {
	if s.Kind == SubjectBranch {
		return fmt.Sprintf("project %s branch %s", s.ProjectID, s.Branch)
	}
	return fmt.Sprintf("project %s MR !%d", s.ProjectID, s.MergeRequestIID)
}
