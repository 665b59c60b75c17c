package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joestump/folio/internal/api"
	"github.com/joestump/folio/internal/config"
	"github.com/joestump/folio/internal/db"
	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
	"github.com/spf13/cobra"
)

func newPortfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Inspect and reorder a creative's portfolio",
	}

	var endpoint, token string
	cmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "base URL of a folio server; talk to its API instead of the database")
	cmd.PersistentFlags().StringVar(&token, "token", "", "API token for --endpoint")

	cmd.AddCommand(&cobra.Command{
		Use:   "list <slug>",
		Short: "Print a portfolio in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPortfolio(cmd.Context(), endpoint, token, args[0], func(m *ordering.Manager) error {
				seq, err := m.Load(cmd.Context())
				if err != nil {
					return err
				}
				printSequence(cmd.OutOrStdout(), seq)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <slug> <source-id> <target-id>",
		Short: "Move source to target's position and save the new order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withPortfolio(ctx, endpoint, token, args[0], func(m *ordering.Manager) error {
				if _, err := m.Load(ctx); err != nil {
					return err
				}
				seq, err := m.Move(args[1], args[2])
				if err != nil {
					return err
				}
				if res := m.Persist(ctx); !res.OK() {
					return res.AsError()
				}
				printSequence(cmd.OutOrStdout(), seq)
				return nil
			})
		},
	})

	return cmd
}

// withPortfolio builds a Manager for slug, backed either by the configured
// database or, with an endpoint, by a remote server's API.
func withPortfolio(ctx context.Context, endpoint, token, slug string, fn func(m *ordering.Manager) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if endpoint != "" {
		client := &http.Client{Timeout: 30 * time.Second}
		lister := &remoteLister{baseURL: endpoint, slug: slug, client: client}
		persister := &ordering.HTTPPersister{BaseURL: endpoint, Token: token, Client: client}
		return fn(ordering.NewManager(slug, lister, persister, nil))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	owner, err := store.NewUserStore(database).GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("user %q: %w", slug, err)
	}
	ps := store.NewPortfolioStore(database)
	return fn(ordering.NewManager(owner.ID, ps, newPersister(cfg, ps), nil))
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func printSequence(w io.Writer, seq ordering.Sequence) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tID\tTITLE")
	for i, it := range seq {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, it.ID, it.Title)
	}
	_ = tw.Flush()
}

// remoteLister reads a public portfolio from GET /api/users/{slug}/portfolio.
type remoteLister struct {
	baseURL string
	slug    string
	client  *http.Client
}

func (l *remoteLister) ListByOwner(ctx context.Context, _ string) ([]*store.PortfolioItem, error) {
	u := strings.TrimRight(l.baseURL, "/") + "/api/users/" + url.PathEscape(l.slug) + "/portfolio"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list portfolio: %s", resp.Status)
	}

	var body api.PortfolioListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode portfolio: %w", err)
	}
	items := make([]*store.PortfolioItem, len(body.Items))
	for i, it := range body.Items {
		items[i] = &store.PortfolioItem{
			ID:          it.ID,
			UserID:      it.UserID,
			Order:       it.Order,
			Title:       it.Title,
			Brand:       it.Brand,
			Description: it.Description,
			Link:        it.Link,
			ImageURLs:   it.ImageURLs,
			Categories:  it.Categories,
			CreatedAt:   it.CreatedAt,
			UpdatedAt:   it.UpdatedAt,
		}
	}
	return items, nil
}
