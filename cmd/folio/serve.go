package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/config"
	"github.com/joestump/folio/internal/db"
	"github.com/joestump/folio/internal/handler"
	"github.com/joestump/folio/internal/notify"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/profilecache"
	"github.com/joestump/folio/internal/store"
	"github.com/spf13/cobra"
)

// sessionStateSize bounds the live per-session managers and inboxes.
const sessionStateSize = 4096

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateOIDC(); err != nil {
				return err
			}

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, cfg.SessionLifetime, !cfg.InsecureCookies)

			ctx := context.Background()
			oidcProvider, err := auth.NewProvider(ctx, cfg)
			if err != nil {
				return err
			}

			userStore := store.NewUserStore(database)
			portfolioStore := store.NewPortfolioStore(database)
			jobStore := store.NewJobStore(database)
			favoriteStore := store.NewFavoriteStore(database)
			tokenStore := auth.NewSQLTokenStore(database)
			profiles := profilecache.New(userStore, cfg.ProfileCache.Size, cfg.ProfileCache.TTL)

			persister := newPersister(cfg, portfolioStore)
			inboxes := notify.NewHub(sessionStateSize, cfg.Portfolio.ManagerTTL)
			managers := ordering.NewRegistry(sessionStateSize, cfg.Portfolio.ManagerTTL, func(sessionKey, userID string) *ordering.Manager {
				// Look the inbox up at notify time: it may have expired and
				// been replaced since the manager was built.
				return ordering.NewManager(userID, portfolioStore, persister, ordering.NotifierFunc(func(msg string, sev ordering.Severity) {
					inboxes.Inbox(sessionKey).Notify(msg, sev)
				}))
			})

			authHandlers := auth.NewHandlers(oidcProvider, sessionManager, userStore, profiles, cfg.AdminEmail, !cfg.InsecureCookies)
			authHandlers.OnLogout(managers.Forget)
			authHandlers.OnLogout(inboxes.Forget)
			authMiddleware := auth.NewMiddleware(sessionManager, profiles)

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				AuthHandlers:   authHandlers,
				AuthMiddleware: authMiddleware,
				UserStore:      userStore,
				PortfolioStore: portfolioStore,
				JobStore:       jobStore,
				FavoriteStore:  favoriteStore,
				TokenStore:     tokenStore,
				Profiles:       profiles,
				Managers:       managers,
				Inboxes:        inboxes,
				OrderPersister: persister,
			})

			log.Printf("listening on %s (order persistence: %s)", cfg.HTTP.Addr, cfg.Portfolio.PersistMode)
			return http.ListenAndServe(cfg.HTTP.Addr, router)
		},
	}
}

// newPersister picks the order persister named by portfolio.persist_mode.
func newPersister(cfg *config.Config, ps *store.PortfolioStore) ordering.Persister {
	if cfg.Portfolio.PersistMode == config.PersistFanout {
		return &ordering.FanoutPersister{Store: ps, Concurrency: cfg.Portfolio.PersistConcurrency}
	}
	return &ordering.BatchPersister{Store: ps}
}
