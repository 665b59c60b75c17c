package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// FavoriteStore records which jobs a user has saved. A favorite is a set
// membership: adding twice or removing something absent is not an error.
type FavoriteStore struct {
	db *sqlx.DB
}

func NewFavoriteStore(db *sqlx.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

func (s *FavoriteStore) q(query string) string { return s.db.Rebind(query) }

// Add saves jobID for userID.
func (s *FavoriteStore) Add(ctx context.Context, userID, jobID string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO favorites (user_id, job_id, created_at) VALUES (?, ?, ?)
	`), userID, jobID, time.Now().UTC())
	if isUniqueConstraintError(err) {
		return nil
	}
	return err
}

// Remove drops jobID from userID's favorites.
func (s *FavoriteStore) Remove(ctx context.Context, userID, jobID string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM favorites WHERE user_id = ? AND job_id = ?`), userID, jobID)
	return err
}

// Has reports whether userID has saved jobID.
func (s *FavoriteStore) Has(ctx context.Context, userID, jobID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND job_id = ?`), userID, jobID)
	return n > 0, err
}

// ListJobIDs returns the ids of userID's saved jobs as a set.
func (s *FavoriteStore) ListJobIDs(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, s.q(`SELECT job_id FROM favorites WHERE user_id = ?`), userID); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListJobs returns userID's saved jobs, most recently saved first.
func (s *FavoriteStore) ListJobs(ctx context.Context, userID string) ([]*Job, error) {
	var jobs []*Job
	err := s.db.SelectContext(ctx, &jobs, s.q(`
		SELECT j.* FROM jobs j
		INNER JOIN favorites f ON f.job_id = j.id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, j.id ASC
	`), userID)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
