package ordering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joestump/folio/internal/store"
)

// SaveOrderPath is the bulk order endpoint served by the API.
const SaveOrderPath = "/api/savePortfolioOrder"

// OrderItem is one element of the save-order request body.
type OrderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// SaveOrderFailure is the 500 body of the save-order endpoint.
type SaveOrderFailure struct {
	Error   string   `json:"error"`
	Details string   `json:"details"`
	Failed  []string `json:"failed,omitempty"`
}

// HTTPPersister submits order updates to a remote folio server.
type HTTPPersister struct {
	BaseURL string
	Token   string // optional API token sent as a bearer credential
	Client  *http.Client
}

func (p *HTTPPersister) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// PersistOrder posts the whole assignment in one request. A 200 is success.
// A 500 naming failed ids is partial or total depending on how many failed;
// any other response, or no response, counts every update as failed.
func (p *HTTPPersister) PersistOrder(ctx context.Context, updates []store.OrderUpdate) PersistResult {
	body := make([]OrderItem, len(updates))
	for i, u := range updates {
		body[i] = OrderItem{ID: u.ID, Order: u.Order}
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return allFailed(updates, err)
	}

	url := strings.TrimRight(p.BaseURL, "/") + SaveOrderPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return allFailed(updates, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return allFailed(updates, fmt.Errorf("post %s: %w", SaveOrderPath, err))
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusOK:
		return PersistResult{Outcome: Success}
	case http.StatusInternalServerError:
		var f SaveOrderFailure
		if err := json.Unmarshal(raw, &f); err != nil {
			return allFailed(updates, fmt.Errorf("post %s: status 500: %s", SaveOrderPath, strings.TrimSpace(string(raw))))
		}
		cause := fmt.Errorf("post %s: %s: %s", SaveOrderPath, f.Error, f.Details)
		if len(f.Failed) == 0 {
			return allFailed(updates, cause)
		}
		return classify(len(updates), f.Failed, cause)
	default:
		return allFailed(updates, fmt.Errorf("post %s: unexpected status %d: %s", SaveOrderPath, resp.StatusCode, strings.TrimSpace(string(raw))))
	}
}
