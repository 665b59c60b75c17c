package migrations

// Portfolio items carry long free-text columns. MySQL rejects defaults on TEXT
// and wants DATETIME(6) for sub-second ordering ties, PostgreSQL stores
// TIMESTAMPTZ, and SQLite needs the TIMESTAMP declared type so the driver
// scans values back into time.Time.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreatePortfolioItems, downCreatePortfolioItems)
}

func upCreatePortfolioItems(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range portfolioItemsUpStmts() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create portfolio tables: %w", err)
		}
	}
	return nil
}

func downCreatePortfolioItems(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS portfolio_item_categories`,
		`DROP TABLE IF EXISTS portfolio_items`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func portfolioItemsUpStmts() []string {
	switch dialect {
	case "postgres":
		return []string{
			`CREATE TABLE portfolio_items (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    sort_order  INTEGER NOT NULL DEFAULT 0,
    title       TEXT NOT NULL,
    brand       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL,
    link        TEXT NOT NULL DEFAULT '',
    image_urls  TEXT NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
)`,
			`CREATE INDEX idx_portfolio_items_owner_order ON portfolio_items (user_id, sort_order)`,
			`CREATE TABLE portfolio_item_categories (
    item_id  TEXT NOT NULL REFERENCES portfolio_items (id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    PRIMARY KEY (item_id, category)
)`,
		}
	case "mysql":
		return []string{
			`CREATE TABLE portfolio_items (
    id          VARCHAR(36) PRIMARY KEY,
    user_id     VARCHAR(36) NOT NULL,
    sort_order  INT NOT NULL DEFAULT 0,
    title       VARCHAR(255) NOT NULL,
    brand       VARCHAR(255) NOT NULL DEFAULT '',
    description TEXT NOT NULL,
    link        VARCHAR(2048) NOT NULL DEFAULT '',
    image_urls  TEXT NOT NULL,
    created_at  DATETIME(6) NOT NULL,
    updated_at  DATETIME(6) NOT NULL,
    INDEX idx_portfolio_items_owner_order (user_id, sort_order),
    CONSTRAINT fk_portfolio_items_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
)`,
			`CREATE TABLE portfolio_item_categories (
    item_id  VARCHAR(36) NOT NULL,
    category VARCHAR(64) NOT NULL,
    PRIMARY KEY (item_id, category),
    CONSTRAINT fk_portfolio_item_categories_item FOREIGN KEY (item_id) REFERENCES portfolio_items (id) ON DELETE CASCADE
)`,
		}
	default: // sqlite3
		return []string{
			`CREATE TABLE portfolio_items (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    sort_order  INTEGER NOT NULL DEFAULT 0,
    title       TEXT NOT NULL,
    brand       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL,
    link        TEXT NOT NULL DEFAULT '',
    image_urls  TEXT NOT NULL DEFAULT '[]',
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
)`,
			`CREATE INDEX idx_portfolio_items_owner_order ON portfolio_items (user_id, sort_order)`,
			`CREATE TABLE portfolio_item_categories (
    item_id  TEXT NOT NULL REFERENCES portfolio_items (id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    PRIMARY KEY (item_id, category)
)`,
		}
	}
}
