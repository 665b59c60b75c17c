package handler

import (
	"net/http"

	"github.com/joestump/folio/internal/auth"
)

// DashboardHandler routes a signed-in user to where they work.
type DashboardHandler struct{}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler() *DashboardHandler { return &DashboardHandler{} }

// Show handles GET /dashboard: onboarding first, then the user's own profile.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user.NeedsOnboarding() {
		http.Redirect(w, r, "/onboarding", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/u/"+user.Slug, http.StatusFound)
}
