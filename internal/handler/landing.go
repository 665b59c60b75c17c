package handler

import (
	"log"
	"net/http"

	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/store"
)

// LandingPage lists the creatives with public portfolios.
type LandingPage struct {
	BasePage
	Creatives []*store.User
}

// LandingHandler serves the public landing page.
type LandingHandler struct {
	users *store.UserStore
}

// NewLandingHandler creates a new LandingHandler.
func NewLandingHandler(us *store.UserStore) *LandingHandler { return &LandingHandler{users: us} }

// Index serves GET /. Authenticated users are redirected to /dashboard.
func (h *LandingHandler) Index(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	creatives, err := h.users.ListByAccountType(r.Context(), store.AccountCreative)
	if err != nil {
		log.Printf("handler: list creatives: %v", err)
	}
	render(w, "landing.html", LandingPage{BasePage: newBasePage(nil), Creatives: creatives})
}
