package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joestump/folio/internal/metrics"
	"github.com/joestump/folio/internal/store"
	"golang.org/x/sync/errgroup"
)

// Outcome classifies a persist call.
type Outcome string

const (
	Success        Outcome = "success"
	PartialFailure Outcome = "partial_failure"
	TotalFailure   Outcome = "total_failure"
)

// PersistResult reports which order updates did not confirm. Failed lists
// ids in sequence order for both failure outcomes; Err is the first cause.
type PersistResult struct {
	Outcome Outcome
	Failed  []string
	Err     error
}

// OK reports whether every update was confirmed.
func (r PersistResult) OK() bool { return r.Outcome == Success }

// classify builds a result for total updates of which failed did not confirm.
func classify(total int, failed []string, err error) PersistResult {
	switch {
	case len(failed) == 0 && err == nil:
		return PersistResult{Outcome: Success}
	case len(failed) == 0 || len(failed) >= total:
		return PersistResult{Outcome: TotalFailure, Failed: failed, Err: err}
	default:
		return PersistResult{Outcome: PartialFailure, Failed: failed, Err: err}
	}
}

// allFailed is the result when nothing in updates confirmed.
func allFailed(updates []store.OrderUpdate, err error) PersistResult {
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	return PersistResult{Outcome: TotalFailure, Failed: ids, Err: err}
}

// Persister writes a full order assignment to some backing store.
type Persister interface {
	PersistOrder(ctx context.Context, updates []store.OrderUpdate) PersistResult
}

// Persist writes each item's index in seq as its order. It never reorders
// seq. The full sequence is always written, so the last persist to finish
// leaves a consistent ordering.
func Persist(ctx context.Context, p Persister, seq Sequence) PersistResult {
	return PersistUpdates(ctx, p, seq.Updates())
}

// PersistUpdates hands an explicit order assignment to p and records the
// outcome. The save-order endpoint uses it for client-supplied orders.
func PersistUpdates(ctx context.Context, p Persister, updates []store.OrderUpdate) PersistResult {
	if len(updates) == 0 {
		metrics.OrderPersistsTotal.WithLabelValues(string(Success)).Inc()
		return PersistResult{Outcome: Success}
	}
	start := time.Now()
	res := p.PersistOrder(ctx, updates)
	metrics.OrderPersistDuration.Observe(time.Since(start).Seconds())
	metrics.OrderPersistsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// OrderWriter is the single-item persistence primitive.
type OrderWriter interface {
	UpdateOrder(ctx context.Context, id string, order int) error
}

// FanoutPersister issues one UpdateOrder per item concurrently. Updates are
// independent: some may land while others fail, and every failed id is
// reported.
type FanoutPersister struct {
	Store       OrderWriter
	Concurrency int
}

func (p *FanoutPersister) PersistOrder(ctx context.Context, updates []store.OrderUpdate) PersistResult {
	errs := make([]error, len(updates))

	var g errgroup.Group
	if p.Concurrency > 0 {
		g.SetLimit(p.Concurrency)
	}
	for i, u := range updates {
		g.Go(func() error {
			errs[i] = p.Store.UpdateOrder(ctx, u.ID, u.Order)
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, updates[i].ID)
		if first == nil {
			first = fmt.Errorf("update order of %s: %w", updates[i].ID, err)
		}
	}
	return classify(len(updates), failed, first)
}

// BatchOrderWriter applies a whole order assignment atomically.
type BatchOrderWriter interface {
	UpdateOrders(ctx context.Context, updates []store.OrderUpdate) error
}

// BatchPersister writes all updates in one transaction, so the outcome is
// either Success or TotalFailure.
type BatchPersister struct {
	Store BatchOrderWriter
}

func (p *BatchPersister) PersistOrder(ctx context.Context, updates []store.OrderUpdate) PersistResult {
	if err := p.Store.UpdateOrders(ctx, updates); err != nil {
		return allFailed(updates, err)
	}
	return PersistResult{Outcome: Success}
}

// ErrPersistFailed wraps the cause carried by a failed PersistResult when it
// is reported as a plain error.
var ErrPersistFailed = errors.New("order persist failed")

// AsError converts a failed result into an error, or nil on success.
func (r PersistResult) AsError() error {
	if r.OK() {
		return nil
	}
	if r.Err == nil {
		return fmt.Errorf("%w (%s, %d items)", ErrPersistFailed, r.Outcome, len(r.Failed))
	}
	return fmt.Errorf("%w (%s, %d items): %w", ErrPersistFailed, r.Outcome, len(r.Failed), r.Err)
}
