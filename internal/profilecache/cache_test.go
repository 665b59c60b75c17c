package profilecache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joestump/folio/internal/profilecache"
	"github.com/joestump/folio/internal/store"
	"github.com/joestump/folio/internal/testutil"
)

type countingGetter struct {
	src   profilecache.Getter
	calls int
}

func (c *countingGetter) GetByID(ctx context.Context, id string) (*store.User, error) {
	c.calls++
	return c.src.GetByID(ctx, id)
}

func TestCache_ReadThroughAndInvalidate(t *testing.T) {
	users := store.NewUserStore(testutil.NewTestDB(t))
	ctx := context.Background()
	u, err := users.Upsert(ctx, "test", "sub", "a@example.com", "Ada", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	g := &countingGetter{src: users}
	c := profilecache.New(g, 16, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, u.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.DisplayName != "Ada" {
			t.Errorf("DisplayName = %q, want Ada", got.DisplayName)
		}
	}
	if g.calls != 1 {
		t.Errorf("store calls = %d, want 1", g.calls)
	}

	if _, err := users.UpdateProfile(ctx, u.ID, store.ProfileUpdate{DisplayName: "Ada L."}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	c.Invalidate(u.ID)
	got, err := c.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if got.DisplayName != "Ada L." {
		t.Errorf("DisplayName = %q, want refreshed %q", got.DisplayName, "Ada L.")
	}
	if g.calls != 2 {
		t.Errorf("store calls = %d, want 2", g.calls)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	users := store.NewUserStore(testutil.NewTestDB(t))
	g := &countingGetter{src: users}
	c := profilecache.New(g, 16, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
		}
	}
	if g.calls != 2 {
		t.Errorf("store calls = %d, want 2", g.calls)
	}
}
