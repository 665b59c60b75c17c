package handler

import (
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/joestump/folio/docs/swagger"
	"github.com/joestump/folio/internal/api"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/notify"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/profilecache"
	"github.com/joestump/folio/internal/store"
	"github.com/joestump/folio/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	SessionManager *scs.SessionManager
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	UserStore      *store.UserStore
	PortfolioStore *store.PortfolioStore
	JobStore       *store.JobStore
	FavoriteStore  *store.FavoriteStore
	TokenStore     auth.TokenStore
	Profiles       *profilecache.Cache
	Managers       *ordering.Registry
	Inboxes        *notify.Hub
	// OrderPersister serves POST /api/savePortfolioOrder.
	OrderPersister ordering.Persister
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(deps.SessionManager.LoadAndSave)

	// Use fs.Sub so the file server sees css/app.css and js/reorder.js directly.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/auth/login", deps.AuthHandlers.Login)
	r.Get("/auth/callback", deps.AuthHandlers.Callback)
	r.Post("/auth/logout", deps.AuthHandlers.Logout)

	scope := &sessionScope{
		keyOf:    deps.AuthMiddleware.SessionKey,
		registry: deps.Managers,
		inboxes:  deps.Inboxes,
	}
	mw := deps.AuthMiddleware
	landing := NewLandingHandler(deps.UserStore)
	dashboard := NewDashboardHandler()
	profiles := &ProfileHandler{users: deps.UserStore, items: deps.PortfolioStore, jobs: deps.JobStore, scope: scope}
	account := &AccountHandler{users: deps.UserStore, profiles: deps.Profiles, scope: scope}
	portfolio := &PortfolioHandler{items: deps.PortfolioStore, scope: scope}
	jobs := &JobsHandler{jobs: deps.JobStore, favorites: deps.FavoriteStore, scope: scope}
	notifications := &NotificationsHandler{scope: scope}
	tokens := NewTokensHandler(deps.TokenStore)

	// Public pages; OptionalUser lets the owner see their own sortable list.
	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalUser)
		r.Get("/", landing.Index)
		r.Get("/u/{slug}", profiles.Show)
		r.Get("/jobs", jobs.Search)
		r.Get("/jobs/{id}", jobs.Detail)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)

		r.Get("/onboarding", account.Onboarding)
		r.Post("/onboarding", account.CompleteOnboarding)
		r.Get("/dashboard", dashboard.Show)
		r.Get("/dashboard/notifications", notifications.Poll)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireOnboarded)

			r.Get("/dashboard/profile", account.EditProfile)
			r.Post("/dashboard/profile", account.UpdateProfile)
			r.Post("/jobs/{id}/favorite", jobs.ToggleFavorite)

			r.Get("/dashboard/settings/tokens", tokens.Index)
			r.Post("/dashboard/settings/tokens", tokens.Create)
			r.Delete("/dashboard/settings/tokens/{id}", tokens.Revoke)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAccountType(store.AccountCreative))
				r.Post("/dashboard/portfolio/move", portfolio.Move)
				r.Get("/dashboard/portfolio/new", portfolio.New)
				r.Post("/dashboard/portfolio", portfolio.Create)
				r.Get("/dashboard/portfolio/{id}/edit", portfolio.Edit)
				r.Put("/dashboard/portfolio/{id}", portfolio.Update)
				r.Delete("/dashboard/portfolio/{id}", portfolio.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAccountType(store.AccountCompany))
				r.Get("/dashboard/jobs", jobs.Mine)
				r.Get("/dashboard/jobs/new", jobs.New)
				r.Post("/dashboard/jobs", jobs.Create)
				r.Get("/dashboard/jobs/{id}/edit", jobs.Edit)
				r.Put("/dashboard/jobs/{id}", jobs.Update)
				r.Delete("/dashboard/jobs/{id}", jobs.Delete)
			})
		})
	})

	r.Get("/api/docs/*", httpSwagger.WrapHandler)
	r.Mount("/api", api.NewAPIRouter(api.Deps{
		APIAuth:        auth.NewAPIAuth(deps.TokenStore, deps.Profiles, deps.SessionManager),
		UserStore:      deps.UserStore,
		PortfolioStore: deps.PortfolioStore,
		JobStore:       deps.JobStore,
		FavoriteStore:  deps.FavoriteStore,
		OrderPersister: deps.OrderPersister,
	}))

	return r
}
