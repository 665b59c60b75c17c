// Package notify holds per-session notification inboxes. Background work
// pushes messages; the page polls and drains them as toasts.
package notify

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/joestump/folio/internal/ordering"
)

// maxPending bounds an inbox; the oldest message is dropped on overflow.
const maxPending = 20

// Notification is one message waiting to be shown.
type Notification struct {
	Message  string
	Severity ordering.Severity
}

// IsError reports whether the notification should render as an error.
func (n Notification) IsError() bool { return n.Severity == ordering.SeverityError }

// Inbox is a FIFO of pending notifications for one session.
type Inbox struct {
	mu      sync.Mutex
	pending []Notification
}

// Notify implements ordering.Notifier.
func (in *Inbox) Notify(message string, severity ordering.Severity) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending = append(in.pending, Notification{Message: message, Severity: severity})
	if len(in.pending) > maxPending {
		in.pending = in.pending[len(in.pending)-maxPending:]
	}
}

// Success and Error are shorthands for Notify.
func (in *Inbox) Success(message string) { in.Notify(message, ordering.SeveritySuccess) }
func (in *Inbox) Error(message string)   { in.Notify(message, ordering.SeverityError) }

// Drain returns and clears every pending notification, oldest first.
func (in *Inbox) Drain() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.pending
	in.pending = nil
	return out
}

// Len returns the number of pending notifications.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending)
}

// Hub maps session keys to inboxes. Inboxes nobody has touched for ttl
// are dropped along with their messages.
type Hub struct {
	mu      sync.Mutex
	inboxes *expirable.LRU[string, *Inbox]
}

func NewHub(size int, ttl time.Duration) *Hub {
	return &Hub{inboxes: expirable.NewLRU[string, *Inbox](size, nil, ttl)}
}

// Inbox returns the session's inbox, creating it on first use.
func (h *Hub) Inbox(sessionKey string) *Inbox {
	h.mu.Lock()
	defer h.mu.Unlock()
	in, ok := h.inboxes.Get(sessionKey)
	if !ok {
		in = &Inbox{}
	}
	h.inboxes.Add(sessionKey, in) // refresh expiry
	return in
}

// Forget drops the session's inbox.
func (h *Hub) Forget(sessionKey string) {
	h.inboxes.Remove(sessionKey)
}
