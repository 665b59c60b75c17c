package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
)

// APIAuth authenticates /api requests. A request carrying an Authorization
// header must present a valid bearer token; otherwise a logged-in session
// cookie is accepted so the browser can call the API directly.
type APIAuth struct {
	tokens   TokenStore
	users    UserGetter
	sessions *scs.SessionManager
}

func NewAPIAuth(ts TokenStore, users UserGetter, sm *scs.SessionManager) *APIAuth {
	return &APIAuth{tokens: ts, users: users, sessions: sm}
}

// Authenticate injects the caller's *store.User into the context or
// responds 401 {"error": "unauthorized"}.
func (a *APIAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			a.bearer(w, r, header, next)
			return
		}
		if a.sessions == nil {
			writeUnauthorized(w)
			return
		}
		userID := a.sessions.GetString(r.Context(), SessionUserIDKey)
		if userID == "" {
			writeUnauthorized(w)
			return
		}
		user, err := a.users.GetByID(r.Context(), userID)
		if err != nil {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *APIAuth) bearer(w http.ResponseWriter, r *http.Request, header string, next http.Handler) {
	plaintext, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || plaintext == "" {
		writeUnauthorized(w)
		return
	}
	rec, err := Verify(r.Context(), a.tokens, plaintext)
	if err != nil {
		writeUnauthorized(w)
		return
	}
	user, err := a.users.GetByID(r.Context(), rec.UserID)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	go func(id string) {
		if err := a.tokens.UpdateLastUsed(context.Background(), id); err != nil {
			log.Printf("auth: update token last_used_at: %v", err)
		}
	}(rec.ID)

	next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
}

// writeUnauthorized writes a 401 JSON response.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"})
}
