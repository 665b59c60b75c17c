package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/store"
)

// PortfolioList is the data for the portfolio_list fragment. Only the owner's
// unfiltered view is sortable.
type PortfolioList struct {
	Items    []*store.PortfolioItem
	Sortable bool
}

// ProfilePage is the template data for the public profile page.
type ProfilePage struct {
	BasePage
	Profile    *store.User
	IsOwner    bool
	Portfolio  PortfolioList
	Categories []string
	Category   string
	Jobs       []*store.Job
}

// ProfileHandler serves public profile pages at /u/{slug}.
type ProfileHandler struct {
	users *store.UserStore
	items *store.PortfolioStore
	jobs  *store.JobStore
	scope *sessionScope
}

// Show renders GET /u/{slug}. Creatives show their portfolio, optionally
// narrowed by ?category=; companies show their jobs. The owner's portfolio
// comes from the session's manager, re-read from the store on a full page
// load so a stale divergence does not survive a refresh.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	viewer := auth.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	profile, err := h.users.GetBySlug(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, r, viewer, "u/"+slug)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	isOwner := viewer != nil && viewer.ID == profile.ID
	data := ProfilePage{
		BasePage:   newBasePage(viewer),
		Profile:    profile,
		IsOwner:    isOwner,
		Categories: store.Categories(),
		Category:   r.URL.Query().Get("category"),
	}

	switch {
	case profile.IsCreative() && isOwner:
		items, err := h.ownerItems(r, viewer, data.Category)
		if err != nil {
			log.Printf("handler: load portfolio of %s: %v", viewer.ID, err)
			http.Error(w, "could not load portfolio", http.StatusInternalServerError)
			return
		}
		data.Portfolio = PortfolioList{Items: items, Sortable: data.Category == ""}
	case profile.IsCreative():
		var items []*store.PortfolioItem
		if data.Category != "" {
			items, err = h.items.ListByOwnerAndCategory(r.Context(), profile.ID, data.Category)
		} else {
			items, err = h.items.ListByOwner(r.Context(), profile.ID)
		}
		if err != nil {
			http.Error(w, "could not load portfolio", http.StatusInternalServerError)
			return
		}
		data.Portfolio = PortfolioList{Items: items}
	case profile.IsCompany():
		jobs, err := h.jobs.ListByCompany(r.Context(), profile.ID)
		if err != nil {
			http.Error(w, "could not load jobs", http.StatusInternalServerError)
			return
		}
		for _, j := range jobs {
			if isOwner || j.IsPublished() {
				data.Jobs = append(data.Jobs, j)
			}
		}
	}

	renderPage(w, r, "profile.html", data)
}

func (h *ProfileHandler) ownerItems(r *http.Request, owner *store.User, category string) ([]*store.PortfolioItem, error) {
	load := h.scope.manager
	if !isHTMX(r) {
		load = h.scope.reload
	}
	m, err := load(r.Context(), r, owner)
	if err != nil {
		return nil, err
	}
	seq := m.Sequence()
	if category == "" {
		return seq, nil
	}
	var out []*store.PortfolioItem
	for _, it := range seq {
		if it.HasCategory(category) {
			out = append(out, it)
		}
	}
	return out, nil
}
