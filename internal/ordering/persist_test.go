package ordering_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
	"github.com/joestump/folio/internal/testutil"
)

var errBoom = errors.New("boom")

// fakeStore is an in-memory item store that can be told to fail writes for
// particular ids.
type fakeStore struct {
	mu       sync.Mutex
	userID   string
	items    ordering.Sequence
	orders   map[string]int
	fail     map[string]bool
	writes   int
	listErrs error
}

func newFakeStore(ids ...string) *fakeStore {
	fs := &fakeStore{userID: "u1", items: seqOf(ids...), orders: map[string]int{}, fail: map[string]bool{}}
	for i, id := range ids {
		fs.orders[id] = i
	}
	return fs
}

func (f *fakeStore) ListByOwner(_ context.Context, userID string) ([]*store.PortfolioItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErrs != nil {
		return nil, f.listErrs
	}
	if userID != f.userID {
		return nil, nil
	}
	return f.items.Clone(), nil
}

func (f *fakeStore) UpdateOrder(_ context.Context, id string, order int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.fail[id] {
		return errBoom
	}
	f.orders[id] = order
	return nil
}

func (f *fakeStore) UpdateOrders(_ context.Context, updates []store.OrderUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for _, u := range updates {
		if f.fail[u.ID] {
			return fmt.Errorf("update order of %s: %w", u.ID, errBoom)
		}
	}
	for _, u := range updates {
		f.orders[u.ID] = u.Order
	}
	return nil
}

func (f *fakeStore) order(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func TestFanoutPersister(t *testing.T) {
	tests := []struct {
		name        string
		fail        []string
		wantOutcome ordering.Outcome
		wantFailed  []string
	}{
		{"all confirm", nil, ordering.Success, nil},
		{"one fails", []string{"B"}, ordering.PartialFailure, []string{"B"}},
		{"two fail", []string{"C", "A"}, ordering.PartialFailure, []string{"A", "C"}},
		{"all fail", []string{"A", "B", "C", "D"}, ordering.TotalFailure, []string{"A", "B", "C", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeStore("A", "B", "C", "D")
			for _, id := range tt.fail {
				fs.fail[id] = true
			}
			seq, _ := ordering.Move(seqOf("A", "B", "C", "D"), "D", "A") // DABC

			res := ordering.Persist(context.Background(), &ordering.FanoutPersister{Store: fs, Concurrency: 2}, seq)
			if res.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			// Failed ids follow sequence order (DABC).
			want := orderedBy(seq, tt.wantFailed)
			if !reflect.DeepEqual(res.Failed, want) {
				t.Errorf("Failed = %v, want %v", res.Failed, want)
			}
			if tt.wantOutcome != ordering.Success && !errors.Is(res.Err, errBoom) {
				t.Errorf("Err = %v, want errBoom", res.Err)
			}
			if fs.writeCount() != 4 {
				t.Errorf("writes = %d, want 4 independent writes", fs.writeCount())
			}
			// Updates that did not fail landed regardless of the others.
			for i, id := range seq.IDs() {
				if fs.fail[id] {
					continue
				}
				if got := fs.order(id); got != i {
					t.Errorf("order(%s) = %d, want %d", id, got, i)
				}
			}
		})
	}
}

// orderedBy filters seq's ids to those in subset, keeping sequence order.
func orderedBy(seq ordering.Sequence, subset []string) []string {
	if len(subset) == 0 {
		return nil
	}
	in := map[string]bool{}
	for _, id := range subset {
		in[id] = true
	}
	var out []string
	for _, id := range seq.IDs() {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func TestBatchPersister_AllOrNothing(t *testing.T) {
	fs := newFakeStore("A", "B", "C")
	fs.fail["B"] = true
	seq, _ := ordering.Move(seqOf("A", "B", "C"), "C", "A")

	res := ordering.Persist(context.Background(), &ordering.BatchPersister{Store: fs}, seq)
	if res.Outcome != ordering.TotalFailure {
		t.Errorf("Outcome = %s, want total_failure", res.Outcome)
	}
	if want := []string{"C", "A", "B"}; !reflect.DeepEqual(res.Failed, want) {
		t.Errorf("Failed = %v, want %v", res.Failed, want)
	}
	if fs.order("C") != 2 {
		t.Errorf("order(C) = %d, want untouched 2", fs.order("C"))
	}
	if err := res.AsError(); !errors.Is(err, ordering.ErrPersistFailed) || !errors.Is(err, errBoom) {
		t.Errorf("AsError = %v, want ErrPersistFailed wrapping errBoom", err)
	}

	delete(fs.fail, "B")
	res = ordering.Persist(context.Background(), &ordering.BatchPersister{Store: fs}, seq)
	if !res.OK() || res.AsError() != nil {
		t.Fatalf("Persist: %+v", res)
	}
}

func TestPersist_EmptySequence(t *testing.T) {
	fs := newFakeStore()
	res := ordering.Persist(context.Background(), &ordering.BatchPersister{Store: fs}, nil)
	if !res.OK() {
		t.Errorf("Persist(empty) = %+v, want success", res)
	}
	if fs.writeCount() != 0 {
		t.Errorf("writes = %d, want 0", fs.writeCount())
	}
}

// sqliteFixture creates A, B, C for one owner in a real store.
func sqliteFixture(t *testing.T) (*store.PortfolioStore, string) {
	t.Helper()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	u, err := store.NewUserStore(db).Upsert(ctx, "test", "sub", "c@example.com", "Creative", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	items := store.NewPortfolioStore(db)
	for _, title := range []string{"A", "B", "C"} {
		_, err := items.Create(ctx, store.NewPortfolioItem{
			UserID:              u.ID,
			PortfolioItemFields: store.PortfolioItemFields{Title: title, Description: title},
		})
		if err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}
	return items, u.ID
}

func storedOrders(t *testing.T, items *store.PortfolioStore, userID string) map[string]int {
	t.Helper()
	list, err := items.ListByOwner(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	out := map[string]int{}
	for _, it := range list {
		out[it.Title] = it.Order
	}
	return out
}

func TestLoadMovePersist_EndToEnd(t *testing.T) {
	persisters := map[string]func(*store.PortfolioStore) ordering.Persister{
		"batch":  func(s *store.PortfolioStore) ordering.Persister { return &ordering.BatchPersister{Store: s} },
		"fanout": func(s *store.PortfolioStore) ordering.Persister { return &ordering.FanoutPersister{Store: s, Concurrency: 4} },
	}
	for name, mk := range persisters {
		t.Run(name, func(t *testing.T) {
			items, userID := sqliteFixture(t)
			ctx := context.Background()

			seq, err := ordering.Load(ctx, items, userID)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			titlesBefore := make([]string, len(seq))
			for i, it := range seq {
				titlesBefore[i] = it.Title
			}
			if want := []string{"A", "B", "C"}; !reflect.DeepEqual(titlesBefore, want) {
				t.Fatalf("Load = %v, want %v", titlesBefore, want)
			}

			c, a := seq[2].ID, seq[0].ID
			seq, err = ordering.Move(seq, c, a)
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			res := ordering.Persist(ctx, mk(items), seq)
			if !res.OK() {
				t.Fatalf("Persist: %+v", res)
			}
			want := map[string]int{"C": 0, "A": 1, "B": 2}
			if got := storedOrders(t, items, userID); !reflect.DeepEqual(got, want) {
				t.Errorf("stored orders = %v, want %v", got, want)
			}

			// A second persist with no intervening move changes nothing.
			if res := ordering.Persist(ctx, mk(items), seq); !res.OK() {
				t.Fatalf("Persist again: %+v", res)
			}
			if got := storedOrders(t, items, userID); !reflect.DeepEqual(got, want) {
				t.Errorf("stored orders after second persist = %v, want %v", got, want)
			}
		})
	}
}

func TestLoad_PropagatesError(t *testing.T) {
	fs := newFakeStore("A")
	fs.listErrs = errBoom
	if _, err := ordering.Load(context.Background(), fs, "u1"); !errors.Is(err, errBoom) {
		t.Errorf("Load err = %v, want errBoom", err)
	}
}
