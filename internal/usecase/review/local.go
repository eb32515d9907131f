package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/akorchak/reviewbot/internal/domain"
)

// DiffSource produces diff entries from a local repository.
type DiffSource interface {
	Diff(ctx context.Context, baseRef, targetRef string) ([]domain.DiffEntry, error)
	UncommittedDiff(ctx context.Context, baseRef string) ([]domain.DiffEntry, error)
	CurrentBranch(ctx context.Context) (string, error)
}

// ArtifactWriter persists a finished local review.
type ArtifactWriter interface {
	Write(ctx context.Context, artifact domain.ReviewArtifact) (string, error)
}

// LocalRequest describes one local review run.
type LocalRequest struct {
	BaseRef            string
	TargetRef          string
	IncludeUncommitted bool
	OutputDir          string
	Repository         string
}

// LocalResult summarizes a finished local review.
type LocalResult struct {
	Verdict      domain.Verdict
	Fingerprint  domain.ChangeFingerprint
	ArtifactPath string
	FileCount    int
	TokensIn     int
	TokensOut    int
}

// LocalRunner reviews a branch of a local repository and writes the result
// to disk instead of posting it anywhere. It shares the oracle, prompt, and
// comment rendering with the webhook pipeline, so a local run produces the
// same verdict the server would.
type LocalRunner struct {
	source   DiffSource
	oracle   Oracle
	writer   ArtifactWriter
	redactor Redactor
	logger   Logger
	seedFunc SeedFunc
}

// NewLocalRunner constructs a LocalRunner.
func NewLocalRunner(source DiffSource, oracle Oracle, writer ArtifactWriter) *LocalRunner {
	return &LocalRunner{
		source: source,
		oracle: oracle,
		writer: writer,
		logger: nopLogger{},
	}
}

func (r *LocalRunner) SetRedactor(red Redactor) { r.redactor = red }

// SetSeedFunc makes oracle sampling deterministic per branch pair.
func (r *LocalRunner) SetSeedFunc(f SeedFunc) { r.seedFunc = f }

func (r *LocalRunner) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// CurrentBranch reports the checked-out branch of the repository.
func (r *LocalRunner) CurrentBranch(ctx context.Context) (string, error) {
	return r.source.CurrentBranch(ctx)
}

// ReviewBranch diffs the target ref against the base ref, sends the change
// set to the oracle, and writes a Markdown report.
func (r *LocalRunner) ReviewBranch(ctx context.Context, req LocalRequest) (LocalResult, error) {
	var (
		entries []domain.DiffEntry
		err     error
	)
	if req.IncludeUncommitted {
		entries, err = r.source.UncommittedDiff(ctx, req.BaseRef)
	} else {
		entries, err = r.source.Diff(ctx, req.BaseRef, req.TargetRef)
	}
	if err != nil {
		return LocalResult{}, fmt.Errorf("collect diff: %w", err)
	}

	fp, err := domain.Fingerprint(entries)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyChangeSet) {
			return LocalResult{}, fmt.Errorf("nothing to review between %s and %s: %w", req.BaseRef, req.TargetRef, err)
		}
		return LocalResult{}, err
	}

	diffText := FormatDiffText(entries)
	if r.redactor != nil {
		diffText = r.redactor.Redact(diffText)
	}

	r.logger.Info("invoking review oracle", map[string]interface{}{
		"source":           req.TargetRef,
		"target":           req.BaseRef,
		"fingerprint":      string(fp),
		"estimated_tokens": r.oracle.EstimateTokens(diffText),
	})

	oracleReq := OracleRequest{
		Title:        fmt.Sprintf("Local review of %s", req.TargetRef),
		SourceBranch: req.TargetRef,
		TargetBranch: req.BaseRef,
		Diff:         diffText,
	}
	if r.seedFunc != nil {
		oracleReq.Seed = r.seedFunc(req.BaseRef, req.TargetRef)
	}
	outcome, err := r.oracle.Review(ctx, oracleReq)
	if err != nil {
		return LocalResult{}, fmt.Errorf("analyze: %w", err)
	}
	if outcome.ParseError != "" {
		r.logger.Warning("oracle output required recovery", map[string]interface{}{
			"error": outcome.ParseError,
			"files": len(outcome.Files),
		})
	}

	verdict := outcome.OverallVerdict()
	path, err := r.writer.Write(ctx, domain.ReviewArtifact{
		OutputDir:    req.OutputDir,
		Repository:   req.Repository,
		SourceBranch: req.TargetRef,
		TargetBranch: req.BaseRef,
		Provider:     outcome.ProviderName,
		Model:        outcome.ModelName,
		Verdict:      verdict,
		Fingerprint:  fp,
		Body:         RenderComment(outcome),
	})
	if err != nil {
		return LocalResult{}, fmt.Errorf("write artifact: %w", err)
	}

	return LocalResult{
		Verdict:      verdict,
		Fingerprint:  fp,
		ArtifactPath: path,
		FileCount:    len(outcome.Files),
		TokensIn:     outcome.TokensIn,
		TokensOut:    outcome.TokensOut,
	}, nil
}
