package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/joestump/folio/internal/store"
	"github.com/joestump/folio/internal/testutil"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "Alice Smith", "alice-smith"},
		{"apostrophe and suffix", "Joe O'Brien III", "joe-obrien-iii"},
		{"already lowercase", "alice", "alice"},
		{"leading trailing spaces", "  Bob  ", "bob"},
		{"multiple spaces", "Jane   Doe", "jane-doe"},
		{"special characters", "Test!@#$%User", "testuser"},
		{"consecutive hyphens", "a--b---c", "a-b-c"},
		{"leading trailing hyphens", "-test-", "test"},
		{"empty string", "", ""},
		{"all special chars", "!@#$%^&*()", ""},
		{"unicode letters", "Café Owner", "caf-owner"},
		{"underscores", "pixel_perfect_studio", "pixel-perfect-studio"},
		{"dots and commas", "Acme, Inc.", "acme-inc"},
		{"numbers preserved", "Studio 42", "studio-42"},
		{"tabs and newlines", "Tab\tNew\nLine", "tab-new-line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.DeriveSlug(tt.input)
			if got != tt.expected {
				t.Errorf("DeriveSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func newUserStore(t *testing.T) *store.UserStore {
	t.Helper()
	return store.NewUserStore(testutil.NewTestDB(t))
}

func TestGetBySlug(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	u, err := us.Upsert(ctx, "test", "sub1", "alice@example.com", "Alice Smith", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	found, err := us.GetBySlug(ctx, "alice-smith")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if found.ID != u.ID {
		t.Errorf("GetBySlug ID = %s, want %s", found.ID, u.ID)
	}

	if _, err := us.GetBySlug(ctx, "nonexistent"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBySlug(nonexistent) err = %v, want ErrNotFound", err)
	}
}

func TestUpsert_DuplicateNamesGetSuffixedSlugs(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	want := []string{"alice-smith", "alice-smith-2", "alice-smith-3"}
	for i, w := range want {
		u, err := us.Upsert(ctx, "test", "sub"+w, "alice@example.com", "Alice Smith", "")
		if err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
		if u.Slug != w {
			t.Errorf("user %d slug = %q, want %q", i, u.Slug, w)
		}
	}
}

func TestUpsert_ReturningUserKeepsSlugAndAccountType(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	u, err := us.Upsert(ctx, "test", "sub1", "bob@example.com", "Bob Jones", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !u.NeedsOnboarding() {
		t.Error("new user should need onboarding")
	}
	if _, err := us.SetAccountType(ctx, u.ID, store.AccountCreative); err != nil {
		t.Fatalf("SetAccountType: %v", err)
	}

	u2, err := us.Upsert(ctx, "test", "sub1", "robert@example.com", "Robert Jones", "")
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if u2.ID != u.ID {
		t.Errorf("ID changed: %s -> %s", u.ID, u2.ID)
	}
	if u2.Slug != "bob-jones" {
		t.Errorf("Slug = %q, want %q", u2.Slug, "bob-jones")
	}
	if u2.Email != "robert@example.com" || u2.DisplayName != "Robert Jones" {
		t.Errorf("identity fields not refreshed: %q %q", u2.Email, u2.DisplayName)
	}
	if !u2.IsCreative() {
		t.Errorf("AccountType = %q, want creative", u2.AccountType)
	}
}

func TestUpsert_AdminEmail(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	admin, err := us.Upsert(ctx, "test", "sub1", "root@example.com", "Root", "root@example.com")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("Role = %q, want admin", admin.Role)
	}
	other, err := us.Upsert(ctx, "test", "sub2", "user@example.com", "User", "root@example.com")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if other.IsAdmin() {
		t.Error("non-matching email should not be admin")
	}
}

func TestUpsert_EmptyDisplayNameFallsBackToIDSlug(t *testing.T) {
	us := newUserStore(t)
	u, err := us.Upsert(context.Background(), "test", "sub1", "x@example.com", "!!!", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if u.Slug != "user-"+u.ID[:8] {
		t.Errorf("Slug = %q, want %q", u.Slug, "user-"+u.ID[:8])
	}
}

func TestSetAccountType(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()
	u, err := us.Upsert(ctx, "test", "sub1", "acme@example.com", "Acme", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, err := us.SetAccountType(ctx, u.ID, "wizard"); !errors.Is(err, store.ErrInvalidAccountType) {
		t.Errorf("SetAccountType(wizard) err = %v, want ErrInvalidAccountType", err)
	}
	if _, err := us.SetAccountType(ctx, "missing", store.AccountCompany); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetAccountType(missing) err = %v, want ErrNotFound", err)
	}

	got, err := us.SetAccountType(ctx, u.ID, store.AccountCompany)
	if err != nil {
		t.Fatalf("SetAccountType: %v", err)
	}
	if !got.IsCompany() {
		t.Errorf("AccountType = %q, want company", got.AccountType)
	}

	if _, err := us.SetAccountType(ctx, u.ID, store.AccountCreative); !errors.Is(err, store.ErrAccountTypeSet) {
		t.Errorf("second SetAccountType err = %v, want ErrAccountTypeSet", err)
	}
	if again, err := us.GetByID(ctx, u.ID); err != nil || !again.IsCompany() {
		t.Errorf("after second SetAccountType: %+v, %v; want company kept", again, err)
	}

	companies, err := us.ListByAccountType(ctx, store.AccountCompany)
	if err != nil {
		t.Fatalf("ListByAccountType: %v", err)
	}
	if len(companies) != 1 || companies[0].ID != u.ID {
		t.Errorf("ListByAccountType = %v, want [%s]", companies, u.ID)
	}
}

func TestUpdateProfile(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()
	u, err := us.Upsert(ctx, "test", "sub1", "c@example.com", "Cara", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := us.UpdateProfile(ctx, u.ID, store.ProfileUpdate{
		DisplayName: "  Cara Lee ",
		Bio:         "Brand designer.",
		Website:     "https://cara.example.com",
		Location:    "Lisbon",
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.DisplayName != "Cara Lee" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Cara Lee")
	}
	if got.Bio != "Brand designer." || got.Location != "Lisbon" {
		t.Errorf("profile = %+v", got)
	}
	if got.Slug != "cara" {
		t.Errorf("Slug = %q, want unchanged %q", got.Slug, "cara")
	}
	if _, err := us.UpdateProfile(ctx, "missing", store.ProfileUpdate{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateProfile(missing) err = %v, want ErrNotFound", err)
	}
}
