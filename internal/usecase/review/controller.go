package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akorchak/reviewbot/internal/domain"
)

// Decision is the outcome of the dedup gate for one delivery.
type Decision string

const (
	// DecisionFreshAnalyze means the oracle was (or would be) invoked.
	DecisionFreshAnalyze Decision = "FRESH_ANALYZE"
	// DecisionSkipUnchanged means the change content was already analyzed
	// and posted, or there was nothing to analyze.
	DecisionSkipUnchanged Decision = "SKIP_UNCHANGED"
	// DecisionReuseCachedAnalysis means a previously computed outcome for
	// the same fingerprint was reused without calling the oracle.
	DecisionReuseCachedAnalysis Decision = "REUSE_CACHED_ANALYSIS"
	// DecisionReusePendingPush means a branch analysis produced before the
	// merge request existed was promoted onto it.
	DecisionReusePendingPush Decision = "REUSE_PENDING_PUSH"
)

// MergeRequestTask is one merge request delivery after classification.
type MergeRequestTask struct {
	ProjectID    string
	MRIID        int
	Title        string
	Description  string
	Author       string
	SourceBranch string
	TargetBranch string
	Action       string
	HeadSHA      string
	URL          string
}

// PushTask is one branch push delivery after classification.
type PushTask struct {
	ProjectID string
	Branch    string
	Author    string
	HeadSHA   string
	Commits   int
}

const defaultNoteScanDepth = 20

// Controller runs the review pipeline for classified deliveries. It owns the
// dedup decision: skip unchanged content, reuse cached or pending analyses,
// and invoke the oracle only for genuinely new change content. All state
// lives in the CacheStore; the controller itself is stateless and safe for
// concurrent use.
type Controller struct {
	caches  *CacheStore
	gateway Gateway
	oracle  Oracle

	redactor      Redactor
	logger        Logger
	history       Recorder
	seedFunc      SeedFunc
	defaultBranch string
	noteScanDepth int
	now           func() time.Time
}

func NewController(caches *CacheStore, gateway Gateway, oracle Oracle) *Controller {
	return &Controller{
		caches:        caches,
		gateway:       gateway,
		oracle:        oracle,
		logger:        nopLogger{},
		defaultBranch: "main",
		noteScanDepth: defaultNoteScanDepth,
		now:           time.Now,
	}
}

func (c *Controller) SetRedactor(r Redactor) { c.redactor = r }

func (c *Controller) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

func (c *Controller) SetRecorder(r Recorder) { c.history = r }

// SetSeedFunc makes oracle sampling deterministic per branch pair.
func (c *Controller) SetSeedFunc(f SeedFunc) { c.seedFunc = f }

// SetDefaultBranch sets the branch pushes are compared against.
func (c *Controller) SetDefaultBranch(branch string) {
	if branch != "" {
		c.defaultBranch = branch
	}
}

// SetNoteScanDepth sets how many recent notes the duplicate guard inspects.
// Zero disables the gateway scan; the in-memory record still applies.
func (c *Controller) SetNoteScanDepth(depth int) { c.noteScanDepth = depth }

// ProcessMergeRequest handles one merge request delivery end to end: fetch
// or reuse the diff, decide whether analysis is needed, analyze, and deliver
// the result. Deliveries for the same merge request serialize on a
// per-subject lock.
func (c *Controller) ProcessMergeRequest(ctx context.Context, task MergeRequestTask) (Decision, error) {
	subject := domain.MergeRequestSubject(task.ProjectID, task.MRIID)
	unlock := c.caches.LockSubject(subject)
	defer unlock()

	fields := map[string]interface{}{
		"subject": subject.String(),
		"action":  task.Action,
		"title":   task.Title,
	}

	entries, fp, err := c.mergeRequestDiff(ctx, subject, task)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyChangeSet) {
			c.logger.Info("change set has no reviewable content, skipping", fields)
			return DecisionSkipUnchanged, nil
		}
		return DecisionFreshAnalyze, fmt.Errorf("fetch merge request changes: %w", err)
	}
	fields["fingerprint"] = string(fp)

	if posted, ok := c.caches.Posted(subject); ok && posted.Fingerprint == fp {
		c.logger.Info("change content already reviewed, skipping", fields)
		return DecisionSkipUnchanged, nil
	}

	decision := DecisionFreshAnalyze
	var cached CachedOutcome

	if task.Action == "open" || task.Action == "reopen" {
		branch := domain.BranchSubject(task.ProjectID, task.SourceBranch)
		if pending, ok := c.caches.PendingPush(branch); ok {
			if pending.Fingerprint == fp {
				cached = CachedOutcome{
					Fingerprint:        pending.Fingerprint,
					Outcome:            pending.Outcome,
					Comment:            pending.Comment,
					CommentFingerprint: pending.CommentFingerprint,
					AnalyzedAt:         pending.CapturedAt,
				}
				decision = DecisionReusePendingPush
				c.caches.ConsumePendingPush(branch)
				c.caches.SetOutcome(subject, cached)
				c.logger.Info("promoting pending push review onto merge request", fields)
			} else {
				c.logger.Info("pending push review is stale, analyzing fresh", fields)
			}
		}
	}

	if decision == DecisionFreshAnalyze {
		if prev, ok := c.caches.Outcome(subject); ok && prev.Fingerprint == fp {
			cached = prev
			decision = DecisionReuseCachedAnalysis
			c.logger.Info("reusing cached analysis for unchanged content", fields)
		}
	}

	if decision == DecisionFreshAnalyze {
		outcome, err := c.analyze(ctx, OracleRequest{
			Title:        task.Title,
			Description:  task.Description,
			Author:       task.Author,
			SourceBranch: task.SourceBranch,
			TargetBranch: task.TargetBranch,
			Diff:         c.diffText(entries),
		})
		if err != nil {
			return decision, fmt.Errorf("analyze %s: %w", subject, err)
		}
		if len(outcome.Files) == 0 && outcome.ParseError == "" {
			c.logger.Warning("oracle returned no file reviews, nothing to post", fields)
			return decision, nil
		}
		comment := RenderComment(outcome)
		cached = CachedOutcome{
			Fingerprint:        fp,
			Outcome:            outcome,
			Comment:            comment,
			CommentFingerprint: domain.FingerprintComment(comment),
			AnalyzedAt:         c.now(),
		}
		c.caches.SetOutcome(subject, cached)
	}

	postedNow, err := c.deliver(ctx, subject, task.ProjectID, task.MRIID, cached)
	if err != nil {
		return decision, err
	}
	c.record(ctx, subject, decision, cached, postedNow)
	return decision, nil
}

// ProcessPush handles one branch push: analyze the branch against the
// default branch, then either deliver to an already-open merge request or
// park the result as a pending push review.
func (c *Controller) ProcessPush(ctx context.Context, task PushTask) (Decision, error) {
	subject := domain.BranchSubject(task.ProjectID, task.Branch)
	unlock := c.caches.LockSubject(subject)
	defer unlock()

	fields := map[string]interface{}{
		"subject": subject.String(),
		"branch":  task.Branch,
		"commits": task.Commits,
	}

	entries, err := c.gateway.CompareBranches(ctx, task.ProjectID, c.defaultBranch, task.Branch)
	if err != nil {
		return DecisionFreshAnalyze, fmt.Errorf("compare %s against %s: %w", task.Branch, c.defaultBranch, err)
	}
	fp, err := domain.Fingerprint(entries)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyChangeSet) {
			c.logger.Info("push has no reviewable content, skipping", fields)
			return DecisionSkipUnchanged, nil
		}
		return DecisionFreshAnalyze, err
	}
	fields["fingerprint"] = string(fp)
	c.caches.SetSnapshot(subject, domain.DiffSnapshot{
		Entries:     entries,
		Fingerprint: fp,
		HeadSHA:     task.HeadSHA,
		CapturedAt:  c.now(),
	})

	if pending, ok := c.caches.PendingPush(subject); ok && pending.Fingerprint == fp {
		c.logger.Info("identical push already analyzed and pending, skipping", fields)
		return DecisionSkipUnchanged, nil
	}

	decision := DecisionFreshAnalyze
	var cached CachedOutcome
	if prev, ok := c.caches.Outcome(subject); ok && prev.Fingerprint == fp {
		cached = prev
		decision = DecisionReuseCachedAnalysis
		c.logger.Info("reusing cached analysis for unchanged push content", fields)
	} else {
		outcome, err := c.analyze(ctx, OracleRequest{
			Title:        fmt.Sprintf("Push to %s", task.Branch),
			Author:       task.Author,
			SourceBranch: task.Branch,
			TargetBranch: c.defaultBranch,
			Diff:         c.diffText(entries),
		})
		if err != nil {
			return decision, fmt.Errorf("analyze %s: %w", subject, err)
		}
		if len(outcome.Files) == 0 && outcome.ParseError == "" {
			c.logger.Warning("oracle returned no file reviews, nothing to post", fields)
			return decision, nil
		}
		comment := RenderComment(outcome)
		cached = CachedOutcome{
			Fingerprint:        fp,
			Outcome:            outcome,
			Comment:            comment,
			CommentFingerprint: domain.FingerprintComment(comment),
			AnalyzedAt:         c.now(),
		}
		c.caches.SetOutcome(subject, cached)
	}

	mrs, err := c.gateway.OpenMergeRequestsForBranch(ctx, task.ProjectID, task.Branch)
	if err != nil {
		c.logger.Warning("listing open merge requests failed, parking review as pending", map[string]interface{}{
			"subject": subject.String(),
			"error":   err.Error(),
		})
		mrs = nil
	}

	if len(mrs) == 0 {
		c.caches.SetPendingPush(subject, PendingPushReview{
			Fingerprint:        cached.Fingerprint,
			Outcome:            cached.Outcome,
			Comment:            cached.Comment,
			CommentFingerprint: cached.CommentFingerprint,
			CapturedAt:         c.now(),
		})
		c.logger.Info("no open merge request for branch, review parked as pending", fields)
		c.record(ctx, subject, decision, cached, false)
		return decision, nil
	}

	mr := mrs[0]
	mrSubject := domain.MergeRequestSubject(task.ProjectID, mr.IID)
	unlockMR := c.caches.LockSubject(mrSubject)
	defer unlockMR()

	c.caches.SetOutcome(mrSubject, cached)
	postedNow, err := c.deliver(ctx, mrSubject, task.ProjectID, mr.IID, cached)
	if err != nil {
		return decision, err
	}
	c.record(ctx, mrSubject, decision, cached, postedNow)
	return decision, nil
}

// mergeRequestDiff returns the current diff and fingerprint for a merge
// request. When the delivery reports the same head commit as the stored
// snapshot, the snapshot substitutes for the gateway fetch; the fingerprint
// is recomputed from the stored entries either way.
func (c *Controller) mergeRequestDiff(ctx context.Context, subject domain.Subject, task MergeRequestTask) ([]domain.DiffEntry, domain.ChangeFingerprint, error) {
	if task.HeadSHA != "" {
		if snap, ok := c.caches.Snapshot(subject); ok && snap.HeadSHA == task.HeadSHA {
			if fp, err := domain.Fingerprint(snap.Entries); err == nil && fp == snap.Fingerprint {
				return snap.Entries, fp, nil
			}
		}
	}

	entries, err := c.gateway.MergeRequestChanges(ctx, task.ProjectID, task.MRIID)
	if err != nil {
		return nil, "", err
	}
	fp, err := domain.Fingerprint(entries)
	if err != nil {
		return nil, "", err
	}
	c.caches.SetSnapshot(subject, domain.DiffSnapshot{
		Entries:     entries,
		Fingerprint: fp,
		HeadSHA:     task.HeadSHA,
		CapturedAt:  c.now(),
	})
	return entries, fp, nil
}

func (c *Controller) diffText(entries []domain.DiffEntry) string {
	text := FormatDiffText(entries)
	if c.redactor != nil {
		text = c.redactor.Redact(text)
	}
	return text
}

func (c *Controller) analyze(ctx context.Context, req OracleRequest) (domain.ReviewOutcome, error) {
	if c.seedFunc != nil {
		req.Seed = c.seedFunc(req.TargetBranch, req.SourceBranch)
	}
	c.logger.Info("invoking review oracle", map[string]interface{}{
		"title":            req.Title,
		"estimated_tokens": c.oracle.EstimateTokens(req.Diff),
	})
	outcome, err := c.oracle.Review(ctx, req)
	if err != nil {
		return domain.ReviewOutcome{}, err
	}
	if outcome.ParseError != "" {
		c.logger.Warning("oracle output required recovery", map[string]interface{}{
			"error": outcome.ParseError,
			"files": len(outcome.Files),
		})
	}
	return outcome, nil
}

// deliver posts a cached outcome onto a merge request unless an identical
// comment is already there. The posted record is written only after a
// successful post, so a failure here leaves the retry path intact: the next
// delivery reuses the cached outcome instead of calling the oracle again.
func (c *Controller) deliver(ctx context.Context, subject domain.Subject, projectID string, mrIID int, cached CachedOutcome) (bool, error) {
	logFields := map[string]interface{}{
		"subject":             subject.String(),
		"comment_fingerprint": string(cached.CommentFingerprint),
	}

	if posted, ok := c.caches.Posted(subject); ok && posted.CommentFingerprint == cached.CommentFingerprint {
		c.caches.SetPosted(subject, PostedComment{
			Fingerprint:        cached.Fingerprint,
			CommentFingerprint: cached.CommentFingerprint,
			PostedAt:           posted.PostedAt,
		})
		c.logger.Info("identical comment already posted, skipping", logFields)
		return false, nil
	}

	if c.noteScanDepth > 0 {
		notes, err := c.gateway.MergeRequestNotes(ctx, projectID, mrIID, c.noteScanDepth)
		if err != nil {
			c.logger.Warning("note scan for duplicates failed, continuing", map[string]interface{}{
				"subject": subject.String(),
				"error":   err.Error(),
			})
		} else if c.findDuplicateNote(notes, cached.CommentFingerprint) {
			c.caches.SetPosted(subject, PostedComment{
				Fingerprint:        cached.Fingerprint,
				CommentFingerprint: cached.CommentFingerprint,
				PostedAt:           c.now(),
			})
			c.logger.Info("identical comment found on gateway, skipping", logFields)
			return false, nil
		}
	}

	if err := c.gateway.PostMergeRequestNote(ctx, projectID, mrIID, cached.Comment); err != nil {
		return false, fmt.Errorf("post review comment on %s: %w", subject, err)
	}

	verdict := cached.Outcome.OverallVerdict()
	c.applyVerdict(ctx, projectID, mrIID, verdict)
	c.caches.SetPosted(subject, PostedComment{
		Fingerprint:        cached.Fingerprint,
		CommentFingerprint: cached.CommentFingerprint,
		PostedAt:           c.now(),
	})
	logFields["verdict"] = string(verdict)
	c.logger.Info("review comment posted", logFields)
	return true, nil
}

func (c *Controller) findDuplicateNote(notes []Note, fp domain.CommentFingerprint) bool {
	for _, n := range notes {
		if !strings.Contains(n.Body, CommentMarker) {
			continue
		}
		if domain.FingerprintComment(n.Body) == fp {
			return true
		}
	}
	return false
}

// applyVerdict adjusts approval, merge blocking, and labels. Every step is
// best effort: a failed label update must not undo an already-posted review.
func (c *Controller) applyVerdict(ctx context.Context, projectID string, mrIID int, verdict domain.Verdict) {
	warn := func(op string, err error) {
		if err != nil {
			c.logger.Warning(op+" failed", map[string]interface{}{
				"project": projectID,
				"mr_iid":  mrIID,
				"error":   err.Error(),
			})
		}
	}

	if verdict == domain.VerdictApprove {
		warn("unblock merge", c.gateway.UnblockMerge(ctx, projectID, mrIID))
		warn("approve merge request", c.gateway.Approve(ctx, projectID, mrIID))
	} else {
		warn("block merge", c.gateway.BlockMerge(ctx, projectID, mrIID))
	}

	labels := verdict.Labels()
	info, err := c.gateway.MergeRequestInfo(ctx, projectID, mrIID)
	if err != nil {
		warn("fetch merge request for labels", err)
	} else {
		labels = unionLabels(info.Labels, labels)
	}
	warn("update labels", c.gateway.UpdateLabels(ctx, projectID, mrIID, labels))
}

func unionLabels(existing, added []string) []string {
	out := make([]string, 0, len(existing)+len(added))
	seen := make(map[string]bool, len(existing)+len(added))
	for _, l := range append(append([]string{}, existing...), added...) {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func (c *Controller) record(ctx context.Context, subject domain.Subject, decision Decision, cached CachedOutcome, posted bool) {
	if c.history == nil {
		return
	}
	rec := HistoryRecord{
		Subject:     subject.Key(),
		Decision:    decision,
		Fingerprint: cached.Fingerprint,
		Verdict:     cached.Outcome.OverallVerdict(),
		Provider:    cached.Outcome.ProviderName,
		Model:       cached.Outcome.ModelName,
		TokensIn:    cached.Outcome.TokensIn,
		TokensOut:   cached.Outcome.TokensOut,
		FileCount:   len(cached.Outcome.Files),
		Posted:      posted,
		CreatedAt:   c.now(),
	}
	if err := c.history.Record(ctx, rec); err != nil {
		c.logger.Warning("recording review history failed", map[string]interface{}{
			"subject": subject.Key(),
			"error":   err.Error(),
		})
	}
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]interface{})           {}
func (nopLogger) Warning(string, map[string]interface{})        {}
func (nopLogger) Error(string, error, map[string]interface{})   {}
