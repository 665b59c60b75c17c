package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alexedwards/scs/v2"
	"github.com/joestump/folio/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserGetter loads a user by id. Both *store.UserStore and
// *profilecache.Cache satisfy it.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*store.User, error)
}

// Middleware provides HTTP middleware for authentication and authorization.
type Middleware struct {
	sessions *scs.SessionManager
	users    UserGetter
}

// NewMiddleware creates a new auth Middleware.
func NewMiddleware(sm *scs.SessionManager, users UserGetter) *Middleware {
	return &Middleware{sessions: sm, users: users}
}

// sessionUser resolves the session's user, or nil. A session pointing at a
// deleted user is destroyed.
func (m *Middleware) sessionUser(r *http.Request) *store.User {
	userID := m.sessions.GetString(r.Context(), SessionUserIDKey)
	if userID == "" {
		return nil
	}
	user, err := m.users.GetByID(r.Context(), userID)
	if err != nil {
		_ = m.sessions.Destroy(r.Context())
		return nil
	}
	return user
}

// RequireAuth redirects to /auth/login if no valid session exists.
// On success, sets the *store.User on the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.sessionUser(r)
		if user == nil {
			http.Redirect(w, r, "/auth/login?redirect="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalUser sets the session's user on the context when there is one and
// never blocks the request.
func (m *Middleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.sessionUser(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOnboarded sends users without an account type to /onboarding.
// Must be used after RequireAuth.
func (m *Middleware) RequireOnboarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u != nil && u.NeedsOnboarding() {
			http.Redirect(w, r, "/onboarding", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccountType returns a middleware that admits only users of the
// given account type. Must be used after RequireAuth.
func (m *Middleware) RequireAccountType(accountType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || user.AccountType != accountType {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionKey returns the stable key of the request's session.
func (m *Middleware) SessionKey(r *http.Request) string {
	return SessionKey(r.Context(), m.sessions)
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(UserContextKey).(*store.User)
	return u
}
