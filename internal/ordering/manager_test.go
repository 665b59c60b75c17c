package ordering_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joestump/folio/internal/ordering"
	"github.com/joestump/folio/internal/store"
)

type recordedNote struct {
	message  string
	severity ordering.Severity
}

type recorder struct {
	mu    sync.Mutex
	notes []recordedNote
}

func (r *recorder) Notify(message string, severity ordering.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, recordedNote{message, severity})
}

func (r *recorder) all() []recordedNote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedNote(nil), r.notes...)
}

// blockingPersister holds every persist until release is closed.
type blockingPersister struct {
	inner   ordering.Persister
	release chan struct{}
}

func (b *blockingPersister) PersistOrder(ctx context.Context, updates []store.OrderUpdate) ordering.PersistResult {
	<-b.release
	return b.inner.PersistOrder(ctx, updates)
}

func newLoadedManager(t *testing.T, fs *fakeStore, p ordering.Persister, n ordering.Notifier) *ordering.Manager {
	t.Helper()
	m := ordering.NewManager("u1", fs, p, n)
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestManagerDrop_OptimisticThenPersisted(t *testing.T) {
	fs := newFakeStore("A", "B", "C")
	bp := &blockingPersister{inner: &ordering.BatchPersister{Store: fs}, release: make(chan struct{})}
	rec := &recorder{}
	m := newLoadedManager(t, fs, bp, rec)

	seq, err := m.Drop(context.Background(), "C", "A")
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	// Visible before the persist completes.
	if join(seq) != "CAB" || join(m.Sequence()) != "CAB" {
		t.Errorf("sequence = %s / %s, want CAB", join(seq), join(m.Sequence()))
	}
	if fs.order("C") != 2 {
		t.Errorf("order(C) = %d before persist released, want 2", fs.order("C"))
	}

	close(bp.release)
	m.Wait()

	for i, id := range []string{"C", "A", "B"} {
		if got := fs.order(id); got != i {
			t.Errorf("order(%s) = %d, want %d", id, got, i)
		}
	}
	if notes := rec.all(); len(notes) != 0 {
		t.Errorf("notifications = %v, want none on success", notes)
	}
}

func TestManagerDrop_FailureNotifiesWithoutRollback(t *testing.T) {
	fs := newFakeStore("A", "B", "C")
	fs.fail["A"] = true
	rec := &recorder{}
	m := newLoadedManager(t, fs, &ordering.FanoutPersister{Store: fs, Concurrency: 3}, rec)

	if _, err := m.Drop(context.Background(), "C", "A"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	m.Wait()

	notes := rec.all()
	if len(notes) != 1 {
		t.Fatalf("notifications = %v, want exactly one", notes)
	}
	if notes[0].message != ordering.FailureMessage || notes[0].severity != ordering.SeverityError {
		t.Errorf("notification = %+v, want %q/error", notes[0], ordering.FailureMessage)
	}
	if join(m.Sequence()) != "CAB" {
		t.Errorf("sequence = %s, want optimistic CAB kept", join(m.Sequence()))
	}
}

func TestManagerDrop_InvalidReferenceIssuesNoPersist(t *testing.T) {
	fs := newFakeStore("A", "B")
	rec := &recorder{}
	m := newLoadedManager(t, fs, &ordering.BatchPersister{Store: fs}, rec)

	seq, err := m.Drop(context.Background(), "Z", "A")
	if !errors.Is(err, ordering.ErrInvalidReference) {
		t.Errorf("Drop err = %v, want ErrInvalidReference", err)
	}
	m.Wait()

	if join(seq) != "AB" || join(m.Sequence()) != "AB" {
		t.Errorf("sequence = %s, want unchanged AB", join(m.Sequence()))
	}
	if fs.writeCount() != 0 {
		t.Errorf("writes = %d, want no persist", fs.writeCount())
	}
	if len(rec.all()) != 0 {
		t.Errorf("invalid reference was surfaced to the user: %v", rec.all())
	}
}

func TestManagerDrop_SameIDIssuesNoPersist(t *testing.T) {
	fs := newFakeStore("A", "B")
	m := newLoadedManager(t, fs, &ordering.BatchPersister{Store: fs}, nil)

	if _, err := m.Drop(context.Background(), "A", "A"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	m.Wait()
	if fs.writeCount() != 0 {
		t.Errorf("writes = %d, want 0", fs.writeCount())
	}
}

func TestManagerDrop_RapidMovesApplyToLatestSequence(t *testing.T) {
	fs := newFakeStore("A", "B", "C", "D")
	bp := &blockingPersister{inner: &ordering.BatchPersister{Store: fs}, release: make(chan struct{})}
	m := newLoadedManager(t, fs, bp, nil)
	ctx := context.Background()

	if _, err := m.Drop(ctx, "D", "A"); err != nil {
		t.Fatalf("Drop 1: %v", err)
	}
	seq, err := m.Drop(ctx, "B", "D")
	if err != nil {
		t.Fatalf("Drop 2: %v", err)
	}
	want, _ := ordering.Move(seqOf("A", "B", "C", "D"), "D", "A")
	want, _ = ordering.Move(want, "B", "D")
	if join(seq) != join(want) {
		t.Errorf("after two drops = %s, want %s", join(seq), join(want))
	}

	close(bp.release)
	m.Wait()
	if fs.writeCount() != 2 {
		t.Errorf("writes = %d, want one full persist per drop", fs.writeCount())
	}
}

func TestManagerDrop_PersistOutlivesRequestContext(t *testing.T) {
	fs := newFakeStore("A", "B")
	bp := &blockingPersister{inner: &ordering.BatchPersister{Store: ctxCheckingStore{fs}}, release: make(chan struct{})}
	rec := &recorder{}
	m := newLoadedManager(t, fs, bp, rec)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := m.Drop(ctx, "B", "A"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	cancel()
	close(bp.release)

	done := make(chan struct{})
	go func() { m.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
	}
	if len(rec.all()) != 0 {
		t.Errorf("persist saw a cancelled context: %v", rec.all())
	}
	if fs.order("B") != 0 {
		t.Errorf("order(B) = %d, want 0", fs.order("B"))
	}
}

// ctxCheckingStore fails batch writes whose context is already done.
type ctxCheckingStore struct{ *fakeStore }

func (c ctxCheckingStore) UpdateOrders(ctx context.Context, updates []store.OrderUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fakeStore.UpdateOrders(ctx, updates)
}

func TestManager_InsertReplaceRemove(t *testing.T) {
	fs := newFakeStore("A", "B")
	m := newLoadedManager(t, fs, &ordering.BatchPersister{Store: fs}, nil)

	m.Insert(&store.PortfolioItem{ID: "C", Title: "C"})
	if join(m.Sequence()) != "ABC" {
		t.Errorf("after Insert = %s, want ABC", join(m.Sequence()))
	}
	m.Insert(&store.PortfolioItem{ID: "C", Title: "C2"})
	if join(m.Sequence()) != "ABC" {
		t.Errorf("re-Insert duplicated: %s", join(m.Sequence()))
	}

	m.Replace(&store.PortfolioItem{ID: "A", Title: "A2"})
	if got := m.Sequence()[0].Title; got != "A2" {
		t.Errorf("Replace: title = %q, want A2", got)
	}
	m.Replace(&store.PortfolioItem{ID: "Z"})
	if len(m.Sequence()) != 3 {
		t.Errorf("Replace of unknown item changed length to %d", len(m.Sequence()))
	}

	m.Remove("B")
	m.Remove("Z")
	if join(m.Sequence()) != "AC" {
		t.Errorf("after Remove = %s, want AC", join(m.Sequence()))
	}

	// A deleted item is no longer a valid drop reference.
	if _, err := m.Drop(context.Background(), "B", "A"); !errors.Is(err, ordering.ErrInvalidReference) {
		t.Errorf("Drop of removed item err = %v, want ErrInvalidReference", err)
	}
}

func TestManager_SequenceIsACopy(t *testing.T) {
	fs := newFakeStore("A", "B")
	m := newLoadedManager(t, fs, &ordering.BatchPersister{Store: fs}, nil)

	s := m.Sequence()
	s[0], s[1] = s[1], s[0]
	if join(m.Sequence()) != "AB" {
		t.Errorf("external mutation leaked into manager: %s", join(m.Sequence()))
	}
	if !m.Loaded() {
		t.Error("Loaded = false after Load")
	}
}

func TestManagerPersist_Synchronous(t *testing.T) {
	fs := newFakeStore("A", "B")
	m := newLoadedManager(t, fs, &ordering.BatchPersister{Store: fs}, nil)
	if _, err := m.Move("B", "A"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if fs.writeCount() != 0 {
		t.Fatal("Move alone must not persist")
	}
	if res := m.Persist(context.Background()); !res.OK() {
		t.Fatalf("Persist: %+v", res)
	}
	if fs.order("B") != 0 || fs.order("A") != 1 {
		t.Errorf("orders = B:%d A:%d, want B:0 A:1", fs.order("B"), fs.order("A"))
	}
}

func TestRegistry(t *testing.T) {
	fs := newFakeStore("A")
	built := 0
	r := ordering.NewRegistry(8, time.Minute, func(sessionKey, userID string) *ordering.Manager {
		built++
		return ordering.NewManager(userID, fs, &ordering.BatchPersister{Store: fs}, nil)
	})

	m1 := r.Get("session-1", "u1")
	if r.Get("session-1", "u1") != m1 {
		t.Error("same session returned a different manager")
	}
	if r.Get("session-2", "u1") == m1 {
		t.Error("different sessions share a manager")
	}
	if m := r.Get("session-1", "u2"); m == m1 || m.UserID() != "u2" {
		t.Error("session that switched users kept the old manager")
	}
	if built != 3 {
		t.Errorf("factory calls = %d, want 3", built)
	}

	r.Forget("session-2")
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}
