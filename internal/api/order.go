package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
)

const (
	orderFailed         = "Failed to update order"
	orderInvalidBody    = "Invalid request body"
	orderInvalidItem    = "Invalid item structure"
	orderUpdatedMessage = "Order updated successfully"
)

type orderAPIHandler struct {
	items     *store.PortfolioStore
	persister ordering.Persister
}

// Save handles POST /api/savePortfolioOrder. The whole body is validated
//
// @Summary      Save portfolio order
// @Description  Sets the order of each listed portfolio item. Every entry is validated before any write. A failure lists the ids whose order did not save.
// @Tags         Portfolio
// @Accept       json
// @Produce      json
// @Param        body  body      []OrderEntry  true  "One entry per item"
// @Success      200   {object}  OrderSaved
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      500   {object}  ordering.SaveOrderFailure
// @Security     BearerToken
// @Router       /savePortfolioOrder [post]
func (h *orderAPIHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var entries []OrderEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeOrderFailure(w, http.StatusInternalServerError, orderInvalidBody, nil)
		return
	}

	updates, ok := validateOrderEntries(entries)
	if !ok {
		writeOrderFailure(w, http.StatusInternalServerError, orderInvalidItem, nil)
		return
	}

	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	if err := h.items.OwnedBy(r.Context(), user.ID, ids); err != nil {
		switch {
		case errors.Is(err, store.ErrNotOwner):
			writeError(w, http.StatusForbidden, "forbidden", "FORBIDDEN")
		case errors.Is(err, store.ErrNotFound):
			writeOrderFailure(w, http.StatusInternalServerError, err.Error(), ids)
		default:
			log.Printf("api: check order ownership for user %s: %v", user.ID, err)
			writeOrderFailure(w, http.StatusInternalServerError, "internal server error", ids)
		}
		return
	}

	res := ordering.PersistUpdates(r.Context(), h.persister, updates)
	if !res.OK() {
		log.Printf("api: save order for user %s: %v", user.ID, res.AsError())
		details := string(res.Outcome)
		if res.Err != nil {
			details = res.Err.Error()
		}
		writeOrderFailure(w, http.StatusInternalServerError, details, res.Failed)
		return
	}

	writeJSON(w, http.StatusOK, OrderSaved{Message: orderUpdatedMessage})
}

// validateOrderEntries converts the body to updates. It fails on a missing or
// empty id, a missing or negative order, or an id listed twice.
func validateOrderEntries(entries []OrderEntry) ([]store.OrderUpdate, bool) {
	updates := make([]store.OrderUpdate, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID == nil || *e.ID == "" || e.Order == nil || *e.Order < 0 {
			return nil, false
		}
		if seen[*e.ID] {
			return nil, false
		}
		seen[*e.ID] = true
		updates = append(updates, store.OrderUpdate{ID: *e.ID, Order: *e.Order})
	}
	return updates, true
}

func writeOrderFailure(w http.ResponseWriter, status int, details string, failed []string) {
	writeJSON(w, status, ordering.SaveOrderFailure{
		Error:   orderFailed,
		Details: details,
		Failed:  failed,
	})
}
