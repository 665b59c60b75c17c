package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/metrics"
	"github.com/joestump/folio/internal/store"
)

type portfolioAPIHandler struct {
	users *store.UserStore
	items *store.PortfolioStore
}

// ListPublic handles GET /api/users/{slug}/portfolio, optionally filtered by
// ?category=.
//
// @Summary      List a public portfolio
// @Tags         Portfolio
// @Produce      json
// @Param        slug      path      string  true   "Profile slug"
// @Param        category  query     string  false  "Only items in this category"
// @Success      200       {object}  PortfolioListResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{slug}/portfolio [get]
func (h *portfolioAPIHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	owner, err := h.users.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found", "NOT_FOUND")
		return
	}
	if err != nil {
		log.Printf("api: get user by slug: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}

	var items []*store.PortfolioItem
	if category := r.URL.Query().Get("category"); category != "" {
		items, err = h.items.ListByOwnerAndCategory(r.Context(), owner.ID, category)
	} else {
		items, err = h.items.ListByOwner(r.Context(), owner.ID)
	}
	if err != nil {
		log.Printf("api: list portfolio of %s: %v", owner.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, portfolioList(items))
}

// ListMine handles GET /api/portfolio.
//
// @Summary      List my portfolio
// @Tags         Portfolio
// @Produce      json
// @Success      200  {object}  PortfolioListResponse
// @Failure      401  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /portfolio [get]
func (h *portfolioAPIHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	items, err := h.items.ListByOwner(r.Context(), user.ID)
	if err != nil {
		log.Printf("api: list portfolio of %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, portfolioList(items))
}

// Create handles POST /api/portfolio. Only creatives have portfolios.
//
// @Summary      Add a portfolio item
// @Description  The new item goes to the end of the caller's portfolio.
// @Tags         Portfolio
// @Accept       json
// @Produce      json
// @Param        body  body      PortfolioItemRequest  true  "Item fields"
// @Success      201   {object}  PortfolioItemResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /portfolio [post]
func (h *portfolioAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if !user.IsCreative() {
		writeError(w, http.StatusForbidden, "only creative accounts have a portfolio", "FORBIDDEN")
		return
	}

	var req PortfolioItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}

	item, err := h.items.Create(r.Context(), store.NewPortfolioItem{
		UserID:              user.ID,
		PortfolioItemFields: req.fields(),
	})
	if err != nil {
		writeItemError(w, "create", err)
		return
	}
	metrics.PortfolioItemsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, toPortfolioItemResponse(item))
}

// Update handles PUT /api/portfolio/{id}.
//
// @Summary      Edit a portfolio item
// @Tags         Portfolio
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Item ID"
// @Param        body  body      PortfolioItemRequest  true  "Item fields"
// @Success      200   {object}  PortfolioItemResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /portfolio/{id} [put]
func (h *portfolioAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	var req PortfolioItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}

	updated, err := h.items.Update(r.Context(), item.ID, req.fields())
	if err != nil {
		writeItemError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, toPortfolioItemResponse(updated))
}

// Delete handles DELETE /api/portfolio/{id}.
//
// @Summary      Delete a portfolio item
// @Tags         Portfolio
// @Param        id   path  string  true  "Item ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /portfolio/{id} [delete]
func (h *portfolioAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), item.ID); err != nil {
		writeItemError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedItem loads {id} and checks that the caller owns it, writing the error
// response when it does not.
func (h *portfolioAPIHandler) ownedItem(w http.ResponseWriter, r *http.Request) (*store.PortfolioItem, bool) {
	user := auth.UserFromContext(r.Context())
	item, err := h.items.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "portfolio item not found", "NOT_FOUND")
		return nil, false
	}
	if err != nil {
		log.Printf("api: get portfolio item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return nil, false
	}
	if item.UserID != user.ID {
		writeError(w, http.StatusForbidden, "forbidden", "FORBIDDEN")
		return nil, false
	}
	return item, true
}

func writeItemError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrMissingField),
		errors.Is(err, store.ErrTooManyImages),
		errors.Is(err, store.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "portfolio item not found", "NOT_FOUND")
	default:
		log.Printf("api: %s portfolio item: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

func (req PortfolioItemRequest) fields() store.PortfolioItemFields {
	return store.PortfolioItemFields{
		Title:       req.Title,
		Brand:       req.Brand,
		Description: req.Description,
		Link:        req.Link,
		Categories:  req.Categories,
		ImageURLs:   req.ImageURLs,
	}
}

func toPortfolioItemResponse(p *store.PortfolioItem) PortfolioItemResponse {
	cats := p.Categories
	if cats == nil {
		cats = []string{}
	}
	urls := []string(p.ImageURLs)
	if urls == nil {
		urls = []string{}
	}
	return PortfolioItemResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Order:       p.Order,
		Title:       p.Title,
		Brand:       p.Brand,
		Description: p.Description,
		Link:        p.Link,
		Categories:  cats,
		ImageURLs:   urls,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func portfolioList(items []*store.PortfolioItem) PortfolioListResponse {
	out := make([]PortfolioItemResponse, len(items))
	for i, p := range items {
		out[i] = toPortfolioItemResponse(p)
	}
	return PortfolioListResponse{Items: out}
}
