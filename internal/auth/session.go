package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	SessionUserIDKey = "user_id"
	// SessionKeyKey holds a stable per-login key used to find the session's
	// portfolio manager and notification inbox. It survives token renewal.
	SessionKeyKey = "session_key"
)

// NewSessionManager creates an SCS session manager backed by the application DB.
// The driver parameter selects the appropriate store: "mysql", "postgres", or
// "sqlite3" (default).
func NewSessionManager(db *sqlx.DB, driver string, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case "mysql":
		sm.Store = mysqlstore.New(db.DB)
	case "postgres":
		sm.Store = postgresstore.New(db.DB)
	default: // sqlite3
		sm.Store = sqlite3store.New(db.DB)
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "folio_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}

// SessionKey returns the session's stable key, minting one if the session
// predates it. It returns "" when the request carries no logged-in session.
func SessionKey(ctx context.Context, sm *scs.SessionManager) string {
	if sm.GetString(ctx, SessionUserIDKey) == "" {
		return ""
	}
	key := sm.GetString(ctx, SessionKeyKey)
	if key == "" {
		key = uuid.NewString()
		sm.Put(ctx, SessionKeyKey, key)
	}
	return key
}
