package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Account types chosen during onboarding. A fresh login has none.
const (
	AccountCompany  = "company"
	AccountCreative = "creative"
)

// ErrInvalidAccountType is returned when an account type is not company or creative.
var ErrInvalidAccountType = errors.New("account type must be one of: company, creative")

// ErrAccountTypeSet is returned when onboarding is attempted a second time.
var ErrAccountTypeSet = errors.New("account type is already set")

var (
	slugStripRe  = regexp.MustCompile(`[^a-z0-9-]`)
	slugHyphenRe = regexp.MustCompile(`-{2,}`)
	slugSpaceRe  = regexp.MustCompile(`[\s_]+`)
)

const maxSlugAttempts = 50

// User is a profile row. Every authenticated person has one; AccountType
// decides whether they post jobs or publish a portfolio.
type User struct {
	ID          string    `db:"id"`
	Provider    string    `db:"provider"`
	Subject     string    `db:"subject"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Slug        string    `db:"slug"`
	AccountType string    `db:"account_type"`
	Bio         string    `db:"bio"`
	Website     string    `db:"website"`
	Location    string    `db:"location"`
	Role        string    `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

func (u *User) IsCompany() bool  { return u.AccountType == AccountCompany }
func (u *User) IsCreative() bool { return u.AccountType == AccountCreative }

// NeedsOnboarding reports whether the user has not picked an account type yet.
func (u *User) NeedsOnboarding() bool { return u.AccountType == "" }

// ProfileUpdate holds the user-editable profile fields.
type ProfileUpdate struct {
	DisplayName string
	Bio         string
	Website     string
	Location    string
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// q rebinds ? placeholders to the driver's native format.
func (s *UserStore) q(query string) string { return s.db.Rebind(query) }

// DeriveSlug turns a display name into a URL-safe profile slug:
// lowercase, whitespace and underscores to hyphens, everything outside
// [a-z0-9-] dropped, hyphen runs collapsed, edges trimmed.
func DeriveSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Upsert creates or refreshes a user record on OIDC login. Returning users
// keep their slug, role and account type; only email and display name follow
// the identity provider.
// adminEmail: if non-empty and matches email on INSERT, role is set to "admin".
func (s *UserStore) Upsert(ctx context.Context, provider, subject, email, displayName, adminEmail string) (*User, error) {
	now := time.Now().UTC()

	var existing User
	err := s.db.GetContext(ctx, &existing, s.q(`SELECT * FROM users WHERE provider = ? AND subject = ?`), provider, subject)
	if err == nil {
		_, err = s.db.ExecContext(ctx, s.q(`
			UPDATE users SET email = ?, display_name = ?, updated_at = ? WHERE id = ?
		`), email, displayName, now, existing.ID)
		if err != nil {
			return nil, err
		}
		return s.GetByID(ctx, existing.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	role := "user"
	if adminEmail != "" && email == adminEmail {
		role = "admin"
	}
	id := uuid.New().String()

	base := DeriveSlug(displayName)
	if base == "" {
		base = "user-" + id[:8]
	}

	// The unique index on slug arbitrates concurrent signups; on collision
	// retry with -2, -3, ... suffixes.
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug := base
		if attempt > 1 {
			slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		_, err = s.db.ExecContext(ctx, s.q(`
			INSERT INTO users (id, provider, subject, email, display_name, slug, role, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), id, provider, subject, email, displayName, slug, role, now, now)
		if err == nil {
			return s.GetByID(ctx, id)
		}
		if !isUniqueConstraintError(err) {
			return nil, err
		}
		// A concurrent login for the same identity won the race.
		if u, getErr := s.getByIdentity(ctx, provider, subject); getErr == nil {
			return u, nil
		}
	}
	return nil, fmt.Errorf("allocate slug for %q: %w", base, ErrSlugTaken)
}

func (s *UserStore) getByIdentity(ctx context.Context, provider, subject string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE provider = ? AND subject = ?`), provider, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns the user with the given id, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetBySlug returns the user whose profile lives at /u/{slug}, or ErrNotFound.
func (s *UserStore) GetBySlug(ctx context.Context, slug string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE slug = ?`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetAccountType records the onboarding choice. The choice is made once:
// a user who already has an account type gets ErrAccountTypeSet.
func (s *UserStore) SetAccountType(ctx context.Context, id, accountType string) (*User, error) {
	if accountType != AccountCompany && accountType != AccountCreative {
		return nil, ErrInvalidAccountType
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET account_type = ?, updated_at = ? WHERE id = ? AND account_type = ''`),
		accountType, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrAccountTypeSet
	}
	return s.GetByID(ctx, id)
}

// UpdateProfile replaces the editable profile fields. The slug is stable and
// does not follow display name edits.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET display_name = ?, bio = ?, website = ?, location = ?, updated_at = ?
		WHERE id = ?
	`), strings.TrimSpace(p.DisplayName), p.Bio, strings.TrimSpace(p.Website), strings.TrimSpace(p.Location), time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ListByAccountType returns users of one account type ordered by display name.
func (s *UserStore) ListByAccountType(ctx context.Context, accountType string) ([]*User, error) {
	var users []*User
	err := s.db.SelectContext(ctx, &users, s.q(`
		SELECT * FROM users WHERE account_type = ? ORDER BY display_name ASC
	`), accountType)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// requireRow maps a zero-row UPDATE/DELETE to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
