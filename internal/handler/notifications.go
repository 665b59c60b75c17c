package handler

import (
	"net/http"

	"github.com/joestump/folio/internal/auth"
)

// NotificationsHandler drains the session inbox into toasts.
type NotificationsHandler struct {
	scope *sessionScope
}

// Poll handles GET /dashboard/notifications. An empty inbox answers 204 so
// HTMX leaves the page alone.
func (h *NotificationsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	pending := h.scope.inbox(r, user).Drain()
	if len(pending) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	renderFragment(w, "notifications", pending)
}
