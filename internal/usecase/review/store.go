package review

import (
	"sync"
	"time"

	"github.com/akorchak/reviewbot/internal/domain"
)

// CachedOutcome is a completed analysis that may not have been posted yet.
// It is written after the oracle returns and before the comment is posted,
// so a failed post can be retried without re-running the oracle.
type CachedOutcome struct {
	Fingerprint        domain.ChangeFingerprint
	Outcome            domain.ReviewOutcome
	Comment            string
	CommentFingerprint domain.CommentFingerprint
	AnalyzedAt         time.Time
}

// PostedComment records the last comment successfully posted for a subject.
type PostedComment struct {
	Fingerprint        domain.ChangeFingerprint
	CommentFingerprint domain.CommentFingerprint
	PostedAt           time.Time
}

// PendingPushReview is a completed branch analysis waiting for a merge
// request to appear for that branch.
type PendingPushReview struct {
	Fingerprint        domain.ChangeFingerprint
	Outcome            domain.ReviewOutcome
	Comment            string
	CommentFingerprint domain.CommentFingerprint
	CapturedAt         time.Time
}

// CacheStore holds the controller's in-memory state: diff snapshots, cached
// analyses, posted comment records, and pending push reviews, all keyed by
// subject. It also hands out per-subject locks so concurrent deliveries for
// the same subject serialize while different subjects proceed in parallel.
//
// Entries are never evicted. Service restarts clear all state; the posted
// comment scan in the controller covers that case.
type CacheStore struct {
	mu          sync.Mutex
	locks       map[string]*sync.Mutex
	snapshots   map[string]domain.DiffSnapshot
	outcomes    map[string]CachedOutcome
	posted      map[string]PostedComment
	pendingPush map[string]PendingPushReview
}

func NewCacheStore() *CacheStore {
	return &CacheStore{
		locks:       make(map[string]*sync.Mutex),
		snapshots:   make(map[string]domain.DiffSnapshot),
		outcomes:    make(map[string]CachedOutcome),
		posted:      make(map[string]PostedComment),
		pendingPush: make(map[string]PendingPushReview),
	}
}

// LockSubject acquires the lock for one subject and returns its release
// function.
func (s *CacheStore) LockSubject(subject domain.Subject) func() {
	s.mu.Lock()
	l, ok := s.locks[subject.Key()]
	if !ok {
		l = &sync.Mutex{}
		s.locks[subject.Key()] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *CacheStore) Snapshot(subject domain.Subject) (domain.DiffSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[subject.Key()]
	return snap, ok
}

func (s *CacheStore) SetSnapshot(subject domain.Subject, snap domain.DiffSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[subject.Key()] = snap
}

func (s *CacheStore) Outcome(subject domain.Subject) (CachedOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[subject.Key()]
	return o, ok
}

func (s *CacheStore) SetOutcome(subject domain.Subject, o CachedOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[subject.Key()] = o
}

func (s *CacheStore) Posted(subject domain.Subject) (PostedComment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posted[subject.Key()]
	return p, ok
}

func (s *CacheStore) SetPosted(subject domain.Subject, p PostedComment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posted[subject.Key()] = p
}

func (s *CacheStore) PendingPush(subject domain.Subject) (PendingPushReview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingPush[subject.Key()]
	return p, ok
}

func (s *CacheStore) SetPendingPush(subject domain.Subject, p PendingPushReview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPush[subject.Key()] = p
}

// ConsumePendingPush removes a pending push review. Called only when the
// pending analysis has been promoted onto a merge request.
func (s *CacheStore) ConsumePendingPush(subject domain.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingPush, subject.Key())
}
