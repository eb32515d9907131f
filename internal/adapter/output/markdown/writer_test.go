package markdown_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akorchak/reviewbot/internal/adapter/output/markdown"
	"github.com/akorchak/reviewbot/internal/domain"
)

func TestWriterProducesDeterministicFilename(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer := markdown.NewWriter(func() string {
		return "2025-01-01T00-00-00Z"
	})

	path, err := writer.Write(ctx, domain.ReviewArtifact{
		OutputDir:    dir,
		Repository:   "repo",
		SourceBranch: "feature",
		TargetBranch: "main",
		Provider:     "gemini",
		Model:        "gemini-2.0-flash",
		Verdict:      domain.VerdictApprove,
		Fingerprint:  domain.ChangeFingerprint("abc123"),
		Body:         "## ✅ AI Code Review: APPROVE\n",
	})
	if err != nil {
		t.Fatalf("writer returned error: %v", err)
	}

	if filepath.Base(path) != "repo_feature_gemini_2025-01-01T00-00-00Z.md" {
		t.Fatalf("unexpected filename: %s", filepath.Base(path))
	}
}

func TestWriterIncludesMetadataAndBody(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer := markdown.NewWriter(func() string {
		return "2025-01-01T00-00-00Z"
	})

	path, err := writer.Write(ctx, domain.ReviewArtifact{
		OutputDir:    dir,
		Repository:   "test-repo",
		SourceBranch: "feature",
		TargetBranch: "main",
		Provider:     "anthropic",
		Model:        "claude-3-5-sonnet-20241022",
		Verdict:      domain.VerdictChangesRequested,
		Fingerprint:  domain.ChangeFingerprint("deadbeef"),
		Body:         "## ❓ AI Code Review: CHANGES_REQUESTED\n\nFiles analyzed: 2",
	})
	if err != nil {
		t.Fatalf("writer returned error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	contentStr := string(content)

	if !strings.Contains(contentStr, "# Code Review Report") {
		t.Errorf("markdown missing report header: %s", contentStr)
	}
	if !strings.Contains(contentStr, "Provider: anthropic (claude-3-5-sonnet-20241022)") {
		t.Errorf("markdown missing provider line: %s", contentStr)
	}
	if !strings.Contains(contentStr, "Source: feature") {
		t.Errorf("markdown missing source branch: %s", contentStr)
	}
	if !strings.Contains(contentStr, "Target: main") {
		t.Errorf("markdown missing target branch: %s", contentStr)
	}
	if !strings.Contains(contentStr, "Change fingerprint: deadbeef") {
		t.Errorf("markdown missing fingerprint: %s", contentStr)
	}
	if !strings.Contains(contentStr, "Files analyzed: 2") {
		t.Errorf("markdown missing review body: %s", contentStr)
	}
	if !strings.HasSuffix(contentStr, "\n") {
		t.Errorf("markdown should end with a newline")
	}
}

func TestWriterSanitisesFilenameComponents(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer := markdown.NewWriter(func() string {
		return "ts"
	})

	path, err := writer.Write(ctx, domain.ReviewArtifact{
		OutputDir:    dir,
		Repository:   "Group/Repo Name",
		SourceBranch: "feat/new thing",
		TargetBranch: "main",
		Provider:     "static",
		Verdict:      domain.VerdictApprove,
		Body:         "body",
	})
	if err != nil {
		t.Fatalf("writer returned error: %v", err)
	}

	if filepath.Base(path) != "group-repo-name_feat-new-thing_static_ts.md" {
		t.Fatalf("unexpected filename: %s", filepath.Base(path))
	}
}
