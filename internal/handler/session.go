package handler

import (
	"context"
	"net/http"

	"github.com/joestump/folio/internal/notify"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
)

// sessionScope finds the per-session state: the portfolio manager and the
// notification inbox. Both are keyed by the session's stable key.
type sessionScope struct {
	keyOf    func(r *http.Request) string
	registry *ordering.Registry
	inboxes  *notify.Hub
}

func (s *sessionScope) key(r *http.Request, user *store.User) string {
	if k := s.keyOf(r); k != "" {
		return k
	}
	return "user:" + user.ID
}

// manager returns the session's manager for user, loading it from the store
// on first use.
func (s *sessionScope) manager(ctx context.Context, r *http.Request, user *store.User) (*ordering.Manager, error) {
	m := s.registry.Get(s.key(r, user), user.ID)
	if m.Loaded() {
		return m, nil
	}
	if _, err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// reload discards the manager's divergent state and reads the persisted
// order, after any background persist has landed.
func (s *sessionScope) reload(ctx context.Context, r *http.Request, user *store.User) (*ordering.Manager, error) {
	m := s.registry.Get(s.key(r, user), user.ID)
	m.Wait()
	if _, err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *sessionScope) inbox(r *http.Request, user *store.User) *notify.Inbox {
	return s.inboxes.Inbox(s.key(r, user))
}
