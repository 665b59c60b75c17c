package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/api"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
	"github.com/joestump/folio/internal/testutil"
)

// testEnv holds all stores and helpers needed for API integration tests.
type testEnv struct {
	Router         http.Handler
	UserStore      *store.UserStore
	PortfolioStore *store.PortfolioStore
	JobStore       *store.JobStore
	FavoriteStore  *store.FavoriteStore
	TokenStore     *auth.SQLTokenStore
}

// newTestEnv creates an in-memory SQLite test database, runs migrations,
// and wires up the full API router with real stores and the batch persister.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith is newTestEnv with a custom order persister. A nil
// persister selects the batch persister over the real store.
func newTestEnvWith(t *testing.T, p ordering.Persister) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	us := store.NewUserStore(db)
	ps := store.NewPortfolioStore(db)
	js := store.NewJobStore(db)
	fs := store.NewFavoriteStore(db)
	ts := auth.NewSQLTokenStore(db)
	if p == nil {
		p = &ordering.BatchPersister{Store: ps}
	}

	router := api.NewAPIRouter(api.Deps{
		APIAuth:        auth.NewAPIAuth(ts, us, nil),
		UserStore:      us,
		PortfolioStore: ps,
		JobStore:       js,
		FavoriteStore:  fs,
		OrderPersister: p,
	})
	return &testEnv{
		Router:         router,
		UserStore:      us,
		PortfolioStore: ps,
		JobStore:       js,
		FavoriteStore:  fs,
		TokenStore:     ts,
	}
}

// seedUser creates a user with the given account type ("" leaves the
// account un-onboarded).
func seedUser(t *testing.T, env *testEnv, name, accountType string) *store.User {
	t.Helper()
	ctx := context.Background()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	u, err := env.UserStore.Upsert(ctx, "test", "sub-"+email, email, name, "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if accountType != "" {
		u, err = env.UserStore.SetAccountType(ctx, u.ID, accountType)
		if err != nil {
			t.Fatalf("set account type: %v", err)
		}
	}
	return u
}

// seedToken creates a real API token for a user and returns the plaintext Bearer value.
func seedToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	plaintext, _, err := auth.Issue(context.Background(), env.TokenStore, userID, "test-token", 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return plaintext
}

// seedItems creates one portfolio item per title, in order.
func seedItems(t *testing.T, env *testEnv, userID string, titles ...string) []*store.PortfolioItem {
	t.Helper()
	out := make([]*store.PortfolioItem, len(titles))
	for i, title := range titles {
		item, err := env.PortfolioStore.Create(context.Background(), store.NewPortfolioItem{
			UserID: userID,
			PortfolioItemFields: store.PortfolioItemFields{
				Title:       title,
				Description: title + " description",
			},
		})
		if err != nil {
			t.Fatalf("seed item %q: %v", title, err)
		}
		out[i] = item
	}
	return out
}

// do sends a request through the router with an optional bearer token.
func do(t *testing.T, env *testEnv, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.Router.ServeHTTP(rr, req)
	return rr
}

// titles returns the owner's item titles in persisted order.
func titles(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	items, err := env.PortfolioStore.ListByOwner(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	var parts []string
	for _, it := range items {
		parts = append(parts, it.Title)
	}
	return strings.Join(parts, ",")
}

// newServer serves the router under /api the way the application mounts it
// and returns the base URL.
func newServer(t *testing.T, env *testEnv) string {
	t.Helper()
	r := chi.NewRouter()
	r.Mount("/api", env.Router)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}
