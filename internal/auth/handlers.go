package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/joestump/folio/internal/profilecache"
	"github.com/joestump/folio/internal/store"
)

const (
	cookieState        = "__auth_state"
	cookieCodeVerifier = "__auth_pkce"
	cookieRedirect     = "__auth_redirect"
)

// IdentityProvider is the OIDC side of the login flow. *Provider implements it.
type IdentityProvider interface {
	AuthCodeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error)
}

// Handlers provides HTTP handlers for the OIDC authentication flow.
type Handlers struct {
	provider   IdentityProvider
	sessions   *scs.SessionManager
	users      *store.UserStore
	profiles   *profilecache.Cache
	adminEmail string
	secure     bool
	onLogout   []func(sessionKey string)
}

// NewHandlers creates a new Handlers with the given dependencies.
func NewHandlers(p IdentityProvider, sm *scs.SessionManager, us *store.UserStore, profiles *profilecache.Cache, adminEmail string, secure bool) *Handlers {
	return &Handlers{provider: p, sessions: sm, users: us, profiles: profiles, adminEmail: adminEmail, secure: secure}
}

// OnLogout registers fn to run with the session key of every logout.
func (h *Handlers) OnLogout(fn func(sessionKey string)) {
	h.onLogout = append(h.onLogout, fn)
}

// Login initiates the OIDC authorization code flow with PKCE.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := GenerateState()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.setPreAuthCookie(w, cookieState, state)
	h.setPreAuthCookie(w, cookieCodeVerifier, verifier)
	h.setPreAuthCookie(w, cookieRedirect, localPath(r.URL.Query().Get("redirect")))

	http.Redirect(w, r, h.provider.AuthCodeURL(state, challenge), http.StatusFound)
}

// Callback handles the OIDC provider redirect after authentication. Users
// who have not chosen an account type are sent to onboarding.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(cookieState)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	verifierCookie, err := r.Cookie(cookieCodeVerifier)
	if err != nil {
		http.Error(w, "missing code verifier", http.StatusBadRequest)
		return
	}

	id, err := h.provider.Exchange(r.Context(), r.URL.Query().Get("code"), verifierCookie.Value)
	if err != nil {
		log.Printf("auth: callback: %v", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	user, err := h.users.Upsert(r.Context(), id.Issuer, id.Subject, id.Email, id.Name, h.adminEmail)
	if err != nil {
		log.Printf("auth: upsert user %s/%s: %v", id.Issuer, id.Subject, err)
		http.Error(w, "user record error", http.StatusInternalServerError)
		return
	}
	if h.profiles != nil {
		h.profiles.Invalidate(user.ID)
	}

	if err := h.sessions.RenewToken(r.Context()); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	h.sessions.Put(r.Context(), SessionUserIDKey, user.ID)
	h.sessions.Put(r.Context(), SessionKeyKey, uuid.NewString())

	clearCookie(w, cookieState)
	clearCookie(w, cookieCodeVerifier)

	redirect := "/dashboard"
	if c, err := r.Cookie(cookieRedirect); err == nil && c.Value != "" {
		redirect = localPath(c.Value)
	}
	clearCookie(w, cookieRedirect)
	if user.NeedsOnboarding() {
		redirect = "/onboarding"
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// Logout destroys the session and redirects to the landing page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	key := h.sessions.GetString(r.Context(), SessionKeyKey)
	if err := h.sessions.Destroy(r.Context()); err != nil {
		http.Error(w, "logout error", http.StatusInternalServerError)
		return
	}
	if key != "" {
		for _, fn := range h.onLogout {
			fn(key)
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// localPath keeps post-login redirects on this site.
func localPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/dashboard"
	}
	return p
}

func (h *Handlers) setPreAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   300, // 5 minutes
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
