// Package markdown persists local review runs as Markdown report files.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/akorchak/reviewbot/internal/domain"
)

type clock func() string

// Writer renders review outcomes into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Write persists a Markdown artifact to disk and returns the file path.
func (w *Writer) Write(ctx context.Context, artifact domain.ReviewArtifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s_%s.md",
		sanitise(artifact.Repository),
		sanitise(artifact.SourceBranch),
		sanitise(artifact.Provider),
		w.now(),
	)
	path := filepath.Join(artifact.OutputDir, filename)

	content := buildContent(artifact)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildContent(artifact domain.ReviewArtifact) string {
	var builder strings.Builder
	caser := cases.Title(language.English)
	builder.WriteString("# Code Review Report\n\n")
	builder.WriteString(fmt.Sprintf("- Provider: %s (%s)\n", artifact.Provider, artifact.Model))
	builder.WriteString(fmt.Sprintf("- Source: %s\n", artifact.SourceBranch))
	builder.WriteString(fmt.Sprintf("- Target: %s\n", artifact.TargetBranch))
	builder.WriteString(fmt.Sprintf("- Verdict: %s\n", caser.String(strings.ToLower(string(artifact.Verdict)))))
	builder.WriteString(fmt.Sprintf("- Change fingerprint: %s\n\n", artifact.Fingerprint))
	builder.WriteString(artifact.Body)
	if !strings.HasSuffix(artifact.Body, "\n") {
		builder.WriteString("\n")
	}
	return builder.String()
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
