package main

import (
	"fmt"
	"time"

	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/config"
	"github.com/joestump/folio/internal/store"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	var name string
	var expiresIn time.Duration
	create := &cobra.Command{
		Use:   "create <slug>",
		Short: "Mint an API token for a user and print it once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			ctx := cmd.Context()
			user, err := store.NewUserStore(database).GetBySlug(ctx, args[0])
			if err != nil {
				return fmt.Errorf("user %q: %w", args[0], err)
			}
			plaintext, rec, err := auth.Issue(ctx, auth.NewSQLTokenStore(database), user.ID, name, expiresIn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			if rec.ExpiresAt.Valid {
				fmt.Fprintf(cmd.ErrOrStderr(), "token %s expires %s\n", rec.ID, rec.ExpiresAt.Time.Format(time.RFC3339))
			}
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "cli", "token name")
	create.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime, e.g. 720h (0 never expires)")
	cmd.AddCommand(create)

	return cmd
}
