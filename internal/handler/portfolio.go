package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/metrics"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
)

// PortfolioForm holds form input values for creating or editing an item.
type PortfolioForm struct {
	Title       string
	Brand       string
	Description string
	Link        string
	ImageURL    string
	Categories  []string
}

// Has reports whether category c is checked.
func (f PortfolioForm) Has(c string) bool {
	for _, k := range f.Categories {
		if k == c {
			return true
		}
	}
	return false
}

func (f PortfolioForm) fields() store.PortfolioItemFields {
	var urls []string
	if f.ImageURL != "" {
		urls = []string{f.ImageURL}
	}
	return store.PortfolioItemFields{
		Title:       f.Title,
		Brand:       f.Brand,
		Description: f.Description,
		Link:        f.Link,
		Categories:  f.Categories,
		ImageURLs:   urls,
	}
}

func portfolioFormFromRequest(r *http.Request) PortfolioForm {
	return PortfolioForm{
		Title:       r.FormValue("title"),
		Brand:       r.FormValue("brand"),
		Description: r.FormValue("description"),
		Link:        r.FormValue("link"),
		ImageURL:    r.FormValue("image_url"),
		Categories:  r.Form["categories"],
	}
}

// PortfolioFormPage is the template data for the new/edit item forms.
type PortfolioFormPage struct {
	BasePage
	Item       *store.PortfolioItem // nil when creating
	Form       PortfolioForm
	Categories []string
	Error      string
}

// PortfolioHandler provides the creative's item CRUD and the reorder surface.
type PortfolioHandler struct {
	items *store.PortfolioStore
	scope *sessionScope
}

// New renders the create-item form.
func (h *PortfolioHandler) New(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	renderPage(w, r, "portfolio/form.html", PortfolioFormPage{
		BasePage:   newBasePage(user),
		Categories: store.Categories(),
	})
}

// Create handles POST /dashboard/portfolio. The new item goes last in the
// owner's collection and is appended to the session's sequence.
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := portfolioFormFromRequest(r)

	item, err := h.items.Create(r.Context(), store.NewPortfolioItem{UserID: user.ID, PortfolioItemFields: form.fields()})
	if err != nil {
		h.formError(w, r, user, nil, form, err)
		return
	}
	metrics.PortfolioItemsCreatedTotal.Inc()

	if m, err := h.scope.manager(r.Context(), r, user); err != nil {
		log.Printf("handler: load portfolio of %s: %v", user.ID, err)
	} else {
		m.Insert(item)
	}
	h.scope.inbox(r, user).Success("Portfolio item added successfully!")
	redirect(w, r, "/u/"+user.Slug)
}

// Edit renders the edit form for an item the caller owns.
func (h *PortfolioHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	item, ok := h.ownedItem(w, r, user)
	if !ok {
		return
	}
	renderPage(w, r, "portfolio/form.html", PortfolioFormPage{
		BasePage: newBasePage(user),
		Item:     item,
		Form: PortfolioForm{
			Title:       item.Title,
			Brand:       item.Brand,
			Description: item.Description,
			Link:        item.Link,
			ImageURL:    item.ImageURL(),
			Categories:  item.Categories,
		},
		Categories: store.Categories(),
	})
}

// Update handles PUT /dashboard/portfolio/{id}. The item keeps its position.
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	item, ok := h.ownedItem(w, r, user)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := portfolioFormFromRequest(r)

	updated, err := h.items.Update(r.Context(), item.ID, form.fields())
	if err != nil {
		h.formError(w, r, user, item, form, err)
		return
	}
	if m, err := h.scope.manager(r.Context(), r, user); err == nil {
		m.Replace(updated)
	}
	h.scope.inbox(r, user).Success("Portfolio item updated successfully!")
	redirect(w, r, "/u/"+user.Slug)
}

// Delete handles DELETE /dashboard/portfolio/{id}. Remaining items keep
// their persisted order values; only relative order matters.
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	item, ok := h.ownedItem(w, r, user)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), item.ID); err != nil {
		log.Printf("handler: delete portfolio item %s: %v", item.ID, err)
		h.scope.inbox(r, user).Error("Failed to delete portfolio item")
		redirect(w, r, "/u/"+user.Slug)
		return
	}
	if m, err := h.scope.manager(r.Context(), r, user); err == nil {
		m.Remove(item.ID)
	}
	h.scope.inbox(r, user).Success("Portfolio item deleted successfully!")
	redirect(w, r, "/u/"+user.Slug)
}

// Move handles POST /dashboard/portfolio/move with form fields source and
// target, sent when a drag ends over another item. The reordered list is
// returned at once; the new order is saved in the background and a failure
// shows up through the notification poll. A move naming an item the session
// no longer has re-renders the list unchanged.
func (h *PortfolioHandler) Move(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m, err := h.scope.manager(r.Context(), r, user)
	if err != nil {
		log.Printf("handler: load portfolio of %s: %v", user.ID, err)
		http.Error(w, "could not load portfolio", http.StatusInternalServerError)
		return
	}
	seq, err := m.Drop(r.Context(), r.FormValue("source"), r.FormValue("target"))
	if err != nil && !errors.Is(err, ordering.ErrInvalidReference) {
		http.Error(w, "move failed", http.StatusInternalServerError)
		return
	}
	renderFragment(w, "portfolio_list", PortfolioList{Items: seq, Sortable: true})
}

func (h *PortfolioHandler) ownedItem(w http.ResponseWriter, r *http.Request, user *store.User) (*store.PortfolioItem, bool) {
	item, err := h.items.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, r, user, "portfolio item")
		return nil, false
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if item.UserID != user.ID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return item, true
}

func (h *PortfolioHandler) formError(w http.ResponseWriter, r *http.Request, user *store.User, item *store.PortfolioItem, form PortfolioForm, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, store.ErrMissingField),
		errors.Is(err, store.ErrTooManyImages),
		errors.Is(err, store.ErrUnknownCategory):
		w.WriteHeader(http.StatusUnprocessableEntity)
	default:
		log.Printf("handler: save portfolio item for %s: %v", user.ID, err)
		msg = "Failed to save portfolio item"
		w.WriteHeader(http.StatusInternalServerError)
	}
	renderPage(w, r, "portfolio/form.html", PortfolioFormPage{
		BasePage:   newBasePage(user),
		Item:       item,
		Form:       form,
		Categories: store.Categories(),
		Error:      msg,
	})
}
