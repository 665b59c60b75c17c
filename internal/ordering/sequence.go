// Package ordering keeps a user's portfolio items in display order. It moves
// items within an in-memory sequence and writes the resulting dense order
// indices back to the item store.
package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/joestump/folio/internal/store"
)

// ErrInvalidReference is returned by Move when the source or target id is
// not in the sequence. It signals stale UI state and is never shown to users.
var ErrInvalidReference = errors.New("item is not in the sequence")

// Sequence is a user's portfolio in display order. The index of an item is
// its position; the items' Order fields are only rewritten on persist.
type Sequence []*store.PortfolioItem

// Index returns the position of id, or -1.
func (s Sequence) Index(id string) int {
	for i, it := range s {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the item ids in sequence order.
func (s Sequence) IDs() []string {
	ids := make([]string, len(s))
	for i, it := range s {
		ids[i] = it.ID
	}
	return ids
}

// Clone returns a shallow copy that can be reordered without touching s.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Updates derives the dense 0..N-1 order assignment for s.
func (s Sequence) Updates() []store.OrderUpdate {
	updates := make([]store.OrderUpdate, len(s))
	for i, it := range s {
		updates[i] = store.OrderUpdate{ID: it.ID, Order: i}
	}
	return updates
}

// Move returns a new sequence with sourceID removed and reinserted at the
// original index of targetID. Moving an item onto itself returns seq as is.
// If either id is missing, seq is returned unchanged with ErrInvalidReference.
func Move(seq Sequence, sourceID, targetID string) (Sequence, error) {
	if sourceID == targetID {
		return seq, nil
	}
	from, to := seq.Index(sourceID), seq.Index(targetID)
	if from < 0 {
		return seq, fmt.Errorf("move %q: source: %w", sourceID, ErrInvalidReference)
	}
	if to < 0 {
		return seq, fmt.Errorf("move %q onto %q: target: %w", sourceID, targetID, ErrInvalidReference)
	}

	moved := seq[from]
	out := make(Sequence, 0, len(seq))
	out = append(out, seq[:from]...)
	out = append(out, seq[from+1:]...)

	out = append(out, nil)
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out, nil
}

// Lister reads a user's items sorted by their persisted order.
type Lister interface {
	ListByOwner(ctx context.Context, userID string) ([]*store.PortfolioItem, error)
}

// Load fetches userID's items as a sequence in persisted order. The caller
// is responsible for userID naming an existing profile.
func Load(ctx context.Context, l Lister, userID string) (Sequence, error) {
	items, err := l.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio of %s: %w", userID, err)
	}
	return Sequence(items), nil
}
