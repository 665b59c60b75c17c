package api

import "time"

// --- Order types ---

// OrderEntry is one element of the POST /api/savePortfolioOrder body. Both
// fields are pointers so that a missing key can be told apart from a zero
// value.
type OrderEntry struct {
	ID    *string `json:"id"`
	Order *int    `json:"order"`
}

// OrderSaved is the success body of POST /api/savePortfolioOrder.
type OrderSaved struct {
	Message string `json:"message"`
}

// --- Portfolio types ---

// PortfolioItemRequest is the request body for POST /api/portfolio and
// PUT /api/portfolio/{id}. Order is not accepted here; new items go last and
// reordering goes through savePortfolioOrder.
type PortfolioItemRequest struct {
	Title       string   `json:"title"`
	Brand       string   `json:"brand,omitempty"`
	Description string   `json:"description"`
	Link        string   `json:"link,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// PortfolioItemResponse is the JSON representation of a portfolio item.
type PortfolioItemResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Order       int       `json:"order"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Categories  []string  `json:"categories"`
	ImageURLs   []string  `json:"image_urls"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PortfolioListResponse lists items in display order.
type PortfolioListResponse struct {
	Items []PortfolioItemResponse `json:"items"`
}

// --- Job types ---

// JobResponse is the JSON representation of a job listing.
type JobResponse struct {
	ID             string     `json:"id"`
	CompanyID      string     `json:"company_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	EmploymentType string     `json:"employment_type"`
	Remote         bool       `json:"remote"`
	Status         string     `json:"status"`
	Favorite       bool       `json:"favorite"`
	PublishedAt    *time.Time `json:"published_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// JobListResponse is the response for job search and favorites.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}
