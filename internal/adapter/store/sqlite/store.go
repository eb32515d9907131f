// Package sqlite persists completed review records. The in-memory caches are
// authoritative for dedup decisions; this store is an audit trail that
// survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/akorchak/reviewbot/internal/domain"
	"github.com/akorchak/reviewbot/internal/usecase/review"
)

// Store implements review.Recorder on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at dbPath. Use ":memory:" for an
// in-memory database in tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject TEXT NOT NULL,
		decision TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		verdict TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		tokens_in INTEGER NOT NULL DEFAULT 0,
		tokens_out INTEGER NOT NULL DEFAULT 0,
		file_count INTEGER NOT NULL DEFAULT 0,
		posted INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_subject ON review_history(subject, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_history_fingerprint ON review_history(fingerprint);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one completed review.
func (s *Store) Record(ctx context.Context, rec review.HistoryRecord) error {
	query := `
		INSERT INTO review_history
			(subject, decision, fingerprint, verdict, provider, model, tokens_in, tokens_out, file_count, posted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	posted := 0
	if rec.Posted {
		posted = 1
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.Subject, string(rec.Decision), string(rec.Fingerprint), string(rec.Verdict),
		rec.Provider, rec.Model, rec.TokensIn, rec.TokensOut, rec.FileCount, posted,
		createdAt.Unix())
	if err != nil {
		return fmt.Errorf("insert review record: %w", err)
	}
	return nil
}

// RecentBySubject returns the newest records for one subject key, newest
// first.
func (s *Store) RecentBySubject(ctx context.Context, subject string, limit int) ([]review.HistoryRecord, error) {
	query := `
		SELECT subject, decision, fingerprint, verdict, provider, model,
		       tokens_in, tokens_out, file_count, posted, created_at
		FROM review_history
		WHERE subject = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("query review history: %w", err)
	}
	defer rows.Close()

	var out []review.HistoryRecord
	for rows.Next() {
		var rec review.HistoryRecord
		var decision, fingerprint, verdict string
		var posted int
		var createdAt int64
		if err := rows.Scan(&rec.Subject, &decision, &fingerprint, &verdict,
			&rec.Provider, &rec.Model, &rec.TokensIn, &rec.TokensOut,
			&rec.FileCount, &posted, &createdAt); err != nil {
			return nil, fmt.Errorf("scan review record: %w", err)
		}
		rec.Decision = review.Decision(decision)
		rec.Fingerprint = domain.ChangeFingerprint(fingerprint)
		rec.Verdict = domain.Verdict(verdict)
		rec.Posted = posted != 0
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByDecision returns how many records exist per decision, for the
// stats command.
func (s *Store) CountByDecision(ctx context.Context) (map[review.Decision]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT decision, COUNT(*) FROM review_history GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("query decision counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[review.Decision]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, fmt.Errorf("scan decision count: %w", err)
		}
		counts[review.Decision(decision)] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
