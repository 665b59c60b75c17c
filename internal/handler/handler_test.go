package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/notify"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/profilecache"
	"github.com/joestump/folio/internal/store"
	"github.com/joestump/folio/internal/testutil"
)

// countingPersister wraps a persister, counting calls and optionally failing.
type countingPersister struct {
	next ordering.Persister
	fail bool

	mu    sync.Mutex
	calls int
}

func (p *countingPersister) PersistOrder(ctx context.Context, updates []store.OrderUpdate) ordering.PersistResult {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.fail {
		ids := make([]string, len(updates))
		for i, u := range updates {
			ids[i] = u.ID
		}
		return ordering.PersistResult{Outcome: ordering.TotalFailure, Failed: ids}
	}
	return p.next.PersistOrder(ctx, updates)
}

func (p *countingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type handlerTestEnv struct {
	router    http.Handler
	sm        *scs.SessionManager
	users     *store.UserStore
	items     *store.PortfolioStore
	jobs      *store.JobStore
	persister *countingPersister

	mu       sync.Mutex
	managers []*ordering.Manager
}

// newHandlerTestEnv wires the full router over an in-memory database, an
// in-memory session store and a counting batch persister.
func newHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	sm := scs.New()
	users := store.NewUserStore(db)
	items := store.NewPortfolioStore(db)
	jobs := store.NewJobStore(db)
	cache := profilecache.New(users, 64, time.Minute)
	hub := notify.NewHub(64, time.Minute)

	env := &handlerTestEnv{
		sm:        sm,
		users:     users,
		items:     items,
		jobs:      jobs,
		persister: &countingPersister{next: &ordering.BatchPersister{Store: items}},
	}
	registry := ordering.NewRegistry(64, time.Minute, func(sessionKey, userID string) *ordering.Manager {
		m := ordering.NewManager(userID, items, env.persister, ordering.NotifierFunc(func(msg string, sev ordering.Severity) {
			hub.Inbox(sessionKey).Notify(msg, sev)
		}))
		env.mu.Lock()
		env.managers = append(env.managers, m)
		env.mu.Unlock()
		return m
	})

	env.router = NewRouter(Deps{
		SessionManager: sm,
		AuthHandlers:   auth.NewHandlers(nil, sm, users, cache, "", false),
		AuthMiddleware: auth.NewMiddleware(sm, cache),
		UserStore:      users,
		PortfolioStore: items,
		JobStore:       jobs,
		FavoriteStore:  store.NewFavoriteStore(db),
		TokenStore:     auth.NewSQLTokenStore(db),
		Profiles:       cache,
		Managers:       registry,
		Inboxes:        hub,
		OrderPersister: env.persister,
	})
	return env
}

// wait blocks until every background persist has finished.
func (e *handlerTestEnv) wait() {
	e.mu.Lock()
	ms := append([]*ordering.Manager(nil), e.managers...)
	e.mu.Unlock()
	for _, m := range ms {
		m.Wait()
	}
}

func (e *handlerTestEnv) user(t *testing.T, name, accountType string) *store.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.users.Upsert(ctx, "test", "sub-"+name, strings.ToLower(name)+"@example.com", name, "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if accountType != "" {
		if u, err = e.users.SetAccountType(ctx, u.ID, accountType); err != nil {
			t.Fatalf("SetAccountType: %v", err)
		}
	}
	return u
}

func (e *handlerTestEnv) seedItems(t *testing.T, userID string, titles ...string) []*store.PortfolioItem {
	t.Helper()
	var out []*store.PortfolioItem
	for _, title := range titles {
		it, err := e.items.Create(context.Background(), store.NewPortfolioItem{
			UserID:              userID,
			PortfolioItemFields: store.PortfolioItemFields{Title: title, Description: title + " work"},
		})
		if err != nil {
			t.Fatalf("Create %q: %v", title, err)
		}
		out = append(out, it)
	}
	return out
}

// login returns a session cookie for userID.
func (e *handlerTestEnv) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	h := e.sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.sm.Put(r.Context(), auth.SessionUserIDKey, userID)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, c := range rec.Result().Cookies() {
		if c.Name == e.sm.Cookie.Name {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

// do sends a request; form, when non-nil, is sent url-encoded.
func (e *handlerTestEnv) do(t *testing.T, method, path string, cookie *http.Cookie, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *handlerTestEnv) storedTitles(t *testing.T, userID string) string {
	t.Helper()
	items, err := e.items.ListByOwner(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	var parts []string
	for _, it := range items {
		parts = append(parts, it.Title)
	}
	return strings.Join(parts, ",")
}

// renderedOrder returns the titles in the order they appear in body.
func renderedOrder(body string, titles ...string) string {
	type pos struct {
		title string
		at    int
	}
	var ps []pos
	for _, title := range titles {
		if i := strings.Index(body, "<h3>"+title+"</h3>"); i >= 0 {
			ps = append(ps, pos{title, i})
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].at < ps[j].at })
	var out []string
	for _, p := range ps {
		out = append(out, p.title)
	}
	return strings.Join(out, ",")
}
