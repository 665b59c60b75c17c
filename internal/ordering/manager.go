package ordering

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/joestump/folio/internal/metrics"
	"github.com/joestump/folio/internal/store"
)

// Severity of a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// FailureMessage is shown when a background persist does not fully confirm.
const FailureMessage = "Failed to save the new order"

// Notifier surfaces the outcome of an operation to the user.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, severity Severity)

func (f NotifierFunc) Notify(message string, severity Severity) { f(message, severity) }

// Manager owns one user's in-memory sequence for one session. Moves update
// the sequence immediately; persistence runs in the background and reports
// failures to the Notifier without rolling the sequence back.
type Manager struct {
	userID    string
	lister    Lister
	persister Persister
	notifier  Notifier

	mu     sync.Mutex
	seq    Sequence
	loaded bool

	inflight sync.WaitGroup
}

// NewManager returns a Manager for userID. A nil notifier drops notifications.
func NewManager(userID string, l Lister, p Persister, n Notifier) *Manager {
	if n == nil {
		n = NotifierFunc(func(string, Severity) {})
	}
	return &Manager{userID: userID, lister: l, persister: p, notifier: n}
}

// UserID returns the owner of the managed sequence.
func (m *Manager) UserID() string { return m.userID }

// Load replaces the in-memory sequence with the persisted one.
func (m *Manager) Load(ctx context.Context) (Sequence, error) {
	seq, err := Load(ctx, m.lister, m.userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = seq
	m.loaded = true
	return m.seq.Clone(), nil
}

// Loaded reports whether Load has succeeded at least once.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Sequence returns a copy of the current sequence.
func (m *Manager) Sequence() Sequence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq.Clone()
}

// Move applies one move to the current sequence. An invalid reference is
// logged and counted, and leaves the sequence unchanged.
func (m *Manager) Move(sourceID, targetID string) (Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.move(sourceID, targetID)
	return m.seq.Clone(), err
}

// move must be called with mu held. It reports whether the sequence changed.
func (m *Manager) move(sourceID, targetID string) (bool, error) {
	next, err := Move(m.seq, sourceID, targetID)
	switch {
	case errors.Is(err, ErrInvalidReference):
		metrics.ReorderMovesTotal.WithLabelValues("invalid_reference").Inc()
		log.Printf("ordering: user %s: ignoring stale move: %v", m.userID, err)
		return false, err
	case sourceID == targetID:
		metrics.ReorderMovesTotal.WithLabelValues("noop").Inc()
		return false, nil
	}
	metrics.ReorderMovesTotal.WithLabelValues("applied").Inc()
	m.seq = next
	return true, nil
}

// Persist synchronously writes the current sequence's order indices.
func (m *Manager) Persist(ctx context.Context) PersistResult {
	return Persist(ctx, m.persister, m.Sequence())
}

// Drop handles a completed drag-and-drop gesture: the move is applied at
// once and the returned sequence is what the surface should render. A
// background persist of the full sequence follows; a failure is reported
// through the Notifier. An invalid reference returns the unchanged sequence
// with ErrInvalidReference and issues no persist.
func (m *Manager) Drop(ctx context.Context, sourceID, targetID string) (Sequence, error) {
	m.mu.Lock()
	changed, err := m.move(sourceID, targetID)
	snapshot := m.seq.Clone()
	m.mu.Unlock()

	if err != nil || !changed {
		return snapshot, err
	}

	bg := context.WithoutCancel(ctx)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		res := Persist(bg, m.persister, snapshot)
		if res.OK() {
			return
		}
		log.Printf("ordering: user %s: persist %s, failed ids %v: %v", m.userID, res.Outcome, res.Failed, res.Err)
		m.notifier.Notify(FailureMessage, SeverityError)
	}()
	return snapshot, nil
}

// Wait blocks until every background persist started by Drop has finished.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Insert appends a newly created item, or replaces it if already present.
func (m *Manager) Insert(item *store.PortfolioItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.seq.Index(item.ID); i >= 0 {
		m.seq = m.seq.Clone()
		m.seq[i] = item
		return
	}
	next := make(Sequence, 0, len(m.seq)+1)
	next = append(next, m.seq...)
	m.seq = append(next, item)
}

// Replace swaps in an edited item at its current position. Unknown items
// are ignored.
func (m *Manager) Replace(item *store.PortfolioItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.seq.Index(item.ID)
	if i < 0 {
		return
	}
	m.seq = m.seq.Clone()
	m.seq[i] = item
}

// Remove drops a deleted item from the sequence.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.seq.Index(id)
	if i < 0 {
		return
	}
	next := make(Sequence, 0, len(m.seq)-1)
	next = append(next, m.seq[:i]...)
	m.seq = append(next, m.seq[i+1:]...)
}
