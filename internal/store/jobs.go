package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Job statuses.
const (
	JobDraft     = "draft"
	JobPublished = "published"
)

// EmploymentTypes lists the accepted job employment types in display order.
var EmploymentTypes = []string{"full-time", "part-time", "contract", "freelance", "internship"}

var (
	// ErrInvalidStatus is returned for a job status other than draft or published.
	ErrInvalidStatus = errors.New("job status must be one of: draft, published")

	// ErrInvalidEmploymentType is returned for an employment type outside EmploymentTypes.
	ErrInvalidEmploymentType = errors.New("unknown employment type")
)

// Job is a listing posted by a company account.
type Job struct {
	ID             string       `db:"id"`
	CompanyID      string       `db:"company_id"`
	Title          string       `db:"title"`
	Description    string       `db:"description"`
	Location       string       `db:"location"`
	EmploymentType string       `db:"employment_type"`
	Remote         bool         `db:"remote"`
	Status         string       `db:"status"`
	PublishedAt    sql.NullTime `db:"published_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (j *Job) IsPublished() bool { return j.Status == JobPublished }

// JobFields holds the editable fields of a job.
type JobFields struct {
	Title          string
	Description    string
	Location       string
	EmploymentType string
	Remote         bool
}

func (f JobFields) normalize() (JobFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Location = strings.TrimSpace(f.Location)
	f.EmploymentType = strings.ToLower(strings.TrimSpace(f.EmploymentType))
	if f.Title == "" || f.Description == "" {
		return f, ErrMissingField
	}
	if f.EmploymentType == "" {
		f.EmploymentType = EmploymentTypes[0]
	}
	if !isEmploymentType(f.EmploymentType) {
		return f, fmt.Errorf("%w: %q", ErrInvalidEmploymentType, f.EmploymentType)
	}
	return f, nil
}

func isEmploymentType(t string) bool {
	for _, k := range EmploymentTypes {
		if k == t {
			return true
		}
	}
	return false
}

// JobFilter narrows a job search. Empty fields match everything.
type JobFilter struct {
	Query          string // case-insensitive match on title or description
	Location       string // case-insensitive substring of location
	EmploymentType string
	RemoteOnly     bool
	ViewerID       string // the viewer's own drafts are included
}

type JobStore struct {
	db *sqlx.DB
}

func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts a draft job for companyID.
func (s *JobStore) Create(ctx context.Context, companyID string, fields JobFields) (*Job, error) {
	f, err := fields.normalize()
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO jobs (id, company_id, title, description, location, employment_type, remote, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, companyID, f.Title, f.Description, f.Location, f.EmploymentType, f.Remote, JobDraft, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the job with id, or ErrNotFound.
func (s *JobStore) GetByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	err := s.db.GetContext(ctx, &j, s.q(`SELECT * FROM jobs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Update replaces a job's editable fields. Status is untouched.
func (s *JobStore) Update(ctx context.Context, id string, fields JobFields) (*Job, error) {
	f, err := fields.normalize()
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE jobs
		SET title = ?, description = ?, location = ?, employment_type = ?, remote = ?, updated_at = ?
		WHERE id = ?
	`), f.Title, f.Description, f.Location, f.EmploymentType, f.Remote, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Publish makes a job visible in search. Publishing an already published
// job keeps its original PublishedAt.
func (s *JobStore) Publish(ctx context.Context, id string) (*Job, error) {
	j, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.IsPublished() {
		return j, nil
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, s.q(`
		UPDATE jobs SET status = ?, published_at = ?, updated_at = ? WHERE id = ?
	`), JobPublished, now, now, id)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Unpublish returns a job to draft.
func (s *JobStore) Unpublish(ctx context.Context, id string) (*Job, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE jobs SET status = ?, published_at = NULL, updated_at = ? WHERE id = ?
	`), JobDraft, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a job and every favorite pointing at it.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM favorites WHERE job_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM jobs WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByCompany returns all of a company's jobs, drafts included, newest first.
func (s *JobStore) ListByCompany(ctx context.Context, companyID string) ([]*Job, error) {
	var jobs []*Job
	err := s.db.SelectContext(ctx, &jobs, s.q(`
		SELECT * FROM jobs WHERE company_id = ? ORDER BY created_at DESC, id ASC
	`), companyID)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Search returns published jobs, plus the viewer's own drafts, matching f,
// oldest first.
func (s *JobStore) Search(ctx context.Context, f JobFilter) ([]*Job, error) {
	where := []string{"(status = ? OR company_id = ?)"}
	args := []any{JobPublished, f.ViewerID}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		pattern := containsPattern(q)
		where = append(where, "(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')")
		args = append(args, pattern, pattern)
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		where = append(where, "LOWER(location) LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(loc))
	}
	if et := strings.ToLower(strings.TrimSpace(f.EmploymentType)); et != "" {
		where = append(where, "employment_type = ?")
		args = append(args, et)
	}
	if f.RemoteOnly {
		where = append(where, "remote = ?")
		args = append(args, true)
	}

	var jobs []*Job
	query := `SELECT * FROM jobs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at ASC, id ASC`
	if err := s.db.SelectContext(ctx, &jobs, s.q(query), args...); err != nil {
		return nil, err
	}
	return jobs, nil
}
