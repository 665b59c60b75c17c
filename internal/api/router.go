package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	APIAuth        *auth.APIAuth
	UserStore      *store.UserStore
	PortfolioStore *store.PortfolioStore
	JobStore       *store.JobStore
	FavoriteStore  *store.FavoriteStore
	// OrderPersister writes savePortfolioOrder batches.
	OrderPersister ordering.Persister
}

// NewAPIRouter creates the chi sub-router mounted at /api. Public profile
// reads are anonymous; everything else needs a bearer token or a session.
func NewAPIRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(jsonContentType)

	p := &portfolioAPIHandler{users: deps.UserStore, items: deps.PortfolioStore}
	o := &orderAPIHandler{items: deps.PortfolioStore, persister: deps.OrderPersister}
	j := &jobsAPIHandler{jobs: deps.JobStore, favorites: deps.FavoriteStore}

	r.Get("/users/{slug}/portfolio", p.ListPublic)

	r.Group(func(r chi.Router) {
		r.Use(deps.APIAuth.Authenticate)

		r.Post("/savePortfolioOrder", o.Save)

		r.Get("/portfolio", p.ListMine)
		r.Post("/portfolio", p.Create)
		r.Put("/portfolio/{id}", p.Update)
		r.Delete("/portfolio/{id}", p.Delete)

		r.Get("/jobs", j.Search)
		r.Get("/favorites", j.ListFavorites)
		r.Put("/favorites/{jobID}", j.AddFavorite)
		r.Delete("/favorites/{jobID}", j.RemoveFavorite)
	})

	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
