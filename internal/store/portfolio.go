package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MaxImageURLs is the number of images a portfolio item may carry.
const MaxImageURLs = 1

var (
	// ErrTooManyImages is returned when an item is given more than MaxImageURLs images.
	ErrTooManyImages = fmt.Errorf("a portfolio item holds at most %d image", MaxImageURLs)

	// ErrUnknownCategory is returned for a category outside Categories().
	ErrUnknownCategory = errors.New("unknown portfolio category")

	// ErrMissingField is returned when a required item field is blank.
	ErrMissingField = errors.New("title and description are required")
)

var categories = []string{
	"branding",
	"graphic-design",
	"web-dev",
	"contract-dev",
	"ui-ux-design",
	"social-media",
	"promotions",
	"photography",
	"misc",
}

// Categories returns the known portfolio categories in display order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// ValidateCategories normalizes cs (lowercase, trimmed, deduplicated, sorted)
// and rejects anything outside Categories().
func ValidateCategories(cs []string) ([]string, error) {
	seen := make(map[string]bool, len(cs))
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		if !isCategory(c) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func isCategory(c string) bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}

// StringList is a []string stored as a JSON array in a text column.
type StringList []string

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: cannot scan %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// PortfolioItem is one entry in a creative's portfolio. Order defines the
// display sequence ascending; only relative order matters.
type PortfolioItem struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Order       int        `db:"sort_order"`
	Title       string     `db:"title"`
	Brand       string     `db:"brand"`
	Description string     `db:"description"`
	Link        string     `db:"link"`
	ImageURLs   StringList `db:"image_urls"`
	Categories  []string   `db:"-"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// HasCategory reports whether the item is tagged with c.
func (p *PortfolioItem) HasCategory(c string) bool {
	for _, k := range p.Categories {
		if k == c {
			return true
		}
	}
	return false
}

// ImageURL returns the item's image, or "" when it has none.
func (p *PortfolioItem) ImageURL() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

// PortfolioItemFields holds the editable metadata of an item.
type PortfolioItemFields struct {
	Title       string
	Brand       string
	Description string
	Link        string
	Categories  []string
	ImageURLs   []string
}

// normalize trims fields and validates them.
func (f PortfolioItemFields) normalize() (PortfolioItemFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Brand = strings.TrimSpace(f.Brand)
	f.Description = strings.TrimSpace(f.Description)
	f.Link = strings.TrimSpace(f.Link)
	if f.Title == "" || f.Description == "" {
		return f, ErrMissingField
	}
	var urls []string
	for _, u := range f.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > MaxImageURLs {
		return f, ErrTooManyImages
	}
	f.ImageURLs = urls
	cs, err := ValidateCategories(f.Categories)
	if err != nil {
		return f, err
	}
	f.Categories = cs
	return f, nil
}

// NewPortfolioItem is the input to PortfolioStore.Create.
type NewPortfolioItem struct {
	UserID string
	PortfolioItemFields
}

// OrderUpdate sets one item's persisted order.
type OrderUpdate struct {
	ID    string
	Order int
}

// PortfolioStore is the sqlx-backed Item Store for portfolio items.
type PortfolioStore struct {
	db *sqlx.DB
}

func NewPortfolioStore(db *sqlx.DB) *PortfolioStore {
	return &PortfolioStore{db: db}
}

func (s *PortfolioStore) q(query string) string { return s.db.Rebind(query) }

// ListByOwner returns all of userID's items sorted by order. Ties (possible
// after a partial persist) fall back to creation time, then id.
func (s *PortfolioStore) ListByOwner(ctx context.Context, userID string) ([]*PortfolioItem, error) {
	var items []*PortfolioItem
	err := s.db.SelectContext(ctx, &items, s.q(`
		SELECT * FROM portfolio_items
		WHERE user_id = ?
		ORDER BY sort_order ASC, created_at ASC, id ASC
	`), userID)
	if err != nil {
		return nil, err
	}
	if err := s.loadCategories(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByOwnerAndCategory returns userID's items tagged with category, in order.
func (s *PortfolioStore) ListByOwnerAndCategory(ctx context.Context, userID, category string) ([]*PortfolioItem, error) {
	var items []*PortfolioItem
	err := s.db.SelectContext(ctx, &items, s.q(`
		SELECT p.* FROM portfolio_items p
		INNER JOIN portfolio_item_categories c ON c.item_id = p.id
		WHERE p.user_id = ? AND c.category = ?
		ORDER BY p.sort_order ASC, p.created_at ASC, p.id ASC
	`), userID, category)
	if err != nil {
		return nil, err
	}
	if err := s.loadCategories(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID returns the item with id, or ErrNotFound.
func (s *PortfolioStore) GetByID(ctx context.Context, id string) (*PortfolioItem, error) {
	var p PortfolioItem
	err := s.db.GetContext(ctx, &p, s.q(`SELECT * FROM portfolio_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadCategories(ctx, []*PortfolioItem{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new item at the end of its owner's collection: order is
// one past the owner's current maximum, or 0 for an empty collection.
func (s *PortfolioStore) Create(ctx context.Context, in NewPortfolioItem) (*PortfolioItem, error) {
	f, err := in.PortfolioItemFields.normalize()
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var maxOrder sql.NullInt64
	if err := tx.GetContext(ctx, &maxOrder, s.q(`SELECT MAX(sort_order) FROM portfolio_items WHERE user_id = ?`), in.UserID); err != nil {
		return nil, err
	}
	order := 0
	if maxOrder.Valid {
		order = int(maxOrder.Int64) + 1
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO portfolio_items (id, user_id, sort_order, title, brand, description, link, image_urls, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, in.UserID, order, f.Title, f.Brand, f.Description, f.Link, StringList(f.ImageURLs), now, now)
	if err != nil {
		return nil, err
	}
	if err := s.replaceCategories(ctx, tx, id, f.Categories); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Update replaces an item's metadata and categories. Order is untouched.
func (s *PortfolioStore) Update(ctx context.Context, id string, fields PortfolioItemFields) (*PortfolioItem, error) {
	f, err := fields.normalize()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE portfolio_items
		SET title = ?, brand = ?, description = ?, link = ?, image_urls = ?, updated_at = ?
		WHERE id = ?
	`), f.Title, f.Brand, f.Description, f.Link, StringList(f.ImageURLs), time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	if err := s.replaceCategories(ctx, tx, id, f.Categories); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// UpdateOrder writes a single item's order field. It returns ErrNotFound when
// no such item exists.
func (s *PortfolioStore) UpdateOrder(ctx context.Context, id string, order int) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE portfolio_items SET sort_order = ?, updated_at = ? WHERE id = ?`),
		order, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateOrders writes every update in one transaction. Either all rows
// change or none do; a missing id aborts the batch with ErrNotFound.
func (s *PortfolioStore) UpdateOrders(ctx context.Context, updates []OrderUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stmt, err := tx.PreparexContext(ctx, s.q(`UPDATE portfolio_items SET sort_order = ?, updated_at = ? WHERE id = ?`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Order, now, u.ID)
		if err != nil {
			return fmt.Errorf("update order of %s: %w", u.ID, err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("update order of %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes an item and its category rows.
func (s *PortfolioStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM portfolio_item_categories WHERE item_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM portfolio_items WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// OwnedBy checks that every id names an item belonging to userID. Unknown
// ids yield ErrNotFound; items owned by someone else yield ErrNotOwner.
func (s *PortfolioStore) OwnedBy(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`SELECT id, user_id FROM portfolio_items WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	var rows []struct {
		ID     string `db:"id"`
		UserID string `db:"user_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return err
	}
	owners := make(map[string]string, len(rows))
	for _, r := range rows {
		owners[r.ID] = r.UserID
	}
	for _, id := range ids {
		owner, ok := owners[id]
		if !ok {
			return fmt.Errorf("portfolio item %s: %w", id, ErrNotFound)
		}
		if owner != userID {
			return fmt.Errorf("portfolio item %s: %w", id, ErrNotOwner)
		}
	}
	return nil
}

func (s *PortfolioStore) replaceCategories(ctx context.Context, tx *sqlx.Tx, itemID string, cs []string) error {
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM portfolio_item_categories WHERE item_id = ?`), itemID); err != nil {
		return err
	}
	for _, c := range cs {
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO portfolio_item_categories (item_id, category) VALUES (?, ?)`), itemID, c); err != nil {
			return err
		}
	}
	return nil
}

// loadCategories fills Categories on items with one query.
func (s *PortfolioStore) loadCategories(ctx context.Context, items []*PortfolioItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	byID := make(map[string]*PortfolioItem, len(items))
	for i, it := range items {
		ids[i] = it.ID
		byID[it.ID] = it
		it.Categories = []string{}
	}
	query, args, err := sqlx.In(`
		SELECT item_id, category FROM portfolio_item_categories
		WHERE item_id IN (?)
		ORDER BY category ASC
	`, ids)
	if err != nil {
		return err
	}
	var rows []struct {
		ItemID   string `db:"item_id"`
		Category string `db:"category"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return err
	}
	for _, r := range rows {
		if it, ok := byID[r.ItemID]; ok {
			it.Categories = append(it.Categories, r.Category)
		}
	}
	return nil
}
