package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/store"
)

// TokensPage is the template data for the API token settings page.
type TokensPage struct {
	BasePage
	Tokens   []*auth.TokenRecord
	NewToken string // plaintext shown once after creation; empty otherwise
	Error    string
}

// TokensHandler lets a user mint and revoke API tokens for the JSON API.
type TokensHandler struct {
	tokens auth.TokenStore
}

// NewTokensHandler creates a new TokensHandler.
func NewTokensHandler(ts auth.TokenStore) *TokensHandler {
	return &TokensHandler{tokens: ts}
}

// Index renders GET /dashboard/settings/tokens.
func (h *TokensHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "", "")
}

// Create handles POST /dashboard/settings/tokens. The plaintext is shown once.
func (h *TokensHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		h.renderList(w, r, "", "Token name is required.")
		return
	}
	var ttl time.Duration
	if exp := r.FormValue("expires_in"); exp != "" {
		d, err := time.ParseDuration(exp)
		if err != nil || d <= 0 {
			h.renderList(w, r, "", "Invalid expiry duration.")
			return
		}
		ttl = d
	}

	plaintext, _, err := auth.Issue(r.Context(), h.tokens, user.ID, name, ttl)
	if err != nil {
		h.renderList(w, r, "", "Failed to create token.")
		return
	}
	h.renderList(w, r, plaintext, "")
}

// Revoke handles DELETE /dashboard/settings/tokens/{id}.
func (h *TokensHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	err := h.tokens.Revoke(r.Context(), chi.URLParam(r, "id"), user.ID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "revoke failed", http.StatusInternalServerError)
		return
	}
	h.renderList(w, r, "", "")
}

func (h *TokensHandler) renderList(w http.ResponseWriter, r *http.Request, newToken, errMsg string) {
	user := auth.UserFromContext(r.Context())
	records, err := h.tokens.ListByUser(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "could not load tokens", http.StatusInternalServerError)
		return
	}
	data := TokensPage{
		BasePage: newBasePage(user),
		Tokens:   records,
		NewToken: newToken,
		Error:    errMsg,
	}
	if isHTMX(r) {
		renderFragment(w, "token_list", data)
		return
	}
	render(w, "tokens.html", data)
}
