package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrEmptyChangeSet is returned when no diff entry carries any content, for
// example a rename-only push. No review should be attempted in that case.
var ErrEmptyChangeSet = errors.New("change set has no diff content")

// ChangeFingerprint identifies a specific state of a subject's diff. It is
// computed from diff bodies only, so metadata churn (reordering, timestamps,
// header noise) does not produce a new fingerprint.
type ChangeFingerprint string

// DiffEntry is a single changed-file record as returned by the gateway.
type DiffEntry struct {
	OldPath string
	NewPath string
	Diff    string
}

// Path returns the best display path for the entry.
func (e DiffEntry) Path() string {
	if e.NewPath != "" {
		return e.NewPath
	}
	return e.OldPath
}

// Fingerprint computes the ChangeFingerprint for a set of diff entries.
//
// Entries with empty or whitespace-only diff bodies are ignored so that
// content-free renames do not perturb the result. The remaining bodies are
// concatenated in path order before hashing; the gateway does not guarantee
// a stable file order between fetches, sorting makes the digest independent
// of it. Paths themselves are not part of the digest.
func Fingerprint(entries []DiffEntry) (ChangeFingerprint, error) {
	bodies := make([]DiffEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Diff) == "" {
			continue
		}
		bodies = append(bodies, e)
	}
	if len(bodies) == 0 {
		return "", ErrEmptyChangeSet
	}

	sort.SliceStable(bodies, func(i, j int) bool {
		return bodies[i].Path() < bodies[j].Path()
	})

	h := sha256.New()
	for _, e := range bodies {
		h.Write([]byte(e.Diff))
	}
	return ChangeFingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// CommentFingerprint is a short content hash of a rendered review comment,
// used to detect an already-posted comment both in memory and when scanning
// the gateway's note history after a restart.
type CommentFingerprint string

// FingerprintComment computes the CommentFingerprint for a comment body.
func FingerprintComment(body string) CommentFingerprint {
	sum := sha256.Sum256([]byte(body))
	return CommentFingerprint(hex.EncodeToString(sum[:])[:8])
}

// DiffSnapshot is the last diff payload retrieved for a subject, tagged with
// its fingerprint, the head commit it was fetched at, and the capture time.
// A new fingerprint for the subject supersedes the snapshot. HeadSHA acts as
// a freshness validator: a snapshot may substitute for a gateway fetch only
// when the incoming event reports the same head commit.
type DiffSnapshot struct {
	Entries     []DiffEntry
	Fingerprint ChangeFingerprint
	HeadSHA     string
	CapturedAt  time.Time
}
