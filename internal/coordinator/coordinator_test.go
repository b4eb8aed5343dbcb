package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/x2605/taskgrid/pkg/detect"
	"github.com/x2605/taskgrid/pkg/layout"
	"github.com/x2605/taskgrid/pkg/model"
	"github.com/x2605/taskgrid/pkg/source"
	"github.com/x2605/taskgrid/pkg/verify"
)

func rec(id, title string, cats ...string) model.Record {
	return model.Record{ID: id, Title: title, Categories: cats}
}

// rowSink collects render calls.
type rowSink struct {
	mu    sync.Mutex
	calls [][]layout.Row
}

func (s *rowSink) render(rows []layout.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rows)
}

func (s *rowSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *rowSink) last() []layout.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

func newCoordinator(t *testing.T, store source.Store, opts ...Option) (*Coordinator, *rowSink, *verify.ManualScheduler) {
	t.Helper()
	sink := &rowSink{}
	sched := &verify.ManualScheduler{}
	base := []Option{
		WithRenderFunc(sink.render),
		WithVerifier(verify.New(verify.WithScheduler(sched))),
		WithVerifyBudget(time.Second, 100*time.Millisecond),
	}
	return New(store, append(base, opts...)...), sink, sched
}

func TestInitialBuildRendersRows(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"), rec("t2", "Beta", "Work"))
	c, sink, _ := newCoordinator(t, store)

	if err := c.detector.Prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	c.rebuild()

	rows := sink.last()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := c.Rows(); len(got) != 2 {
		t.Fatalf("Rows() = %d rows, want 2", len(got))
	}
}

func TestCycleNoChangeDoesNotRender(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, sink, _ := newCoordinator(t, store)

	if err := c.detector.Prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	c.cycle()
	if n := sink.count(); n != 0 {
		t.Fatalf("expected no renders for unchanged source, got %d", n)
	}
}

func TestCyclePicksUpExternalEdit(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, sink, _ := newCoordinator(t, store)

	if err := c.detector.Prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}

	store.SetRecords([]model.Record{rec("t1", "Alpha"), rec("t2", "Beta")})
	c.cycle()

	rows := sink.last()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after edit, got %d", len(rows))
	}
	// Applied, so a second cycle sees no change.
	c.cycle()
	if n := sink.count(); n != 1 {
		t.Fatalf("expected 1 render total, got %d", n)
	}
}

func TestCycleSkippedWhileOperationInProgress(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, sink, sched := newCoordinator(t, store)

	if err := c.detector.Prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Assign(context.Background(), "t1", "ann")
	}()
	waitFor(t, sched.Active)

	store.SetRecords([]model.Record{rec("t1", "Alpha"), rec("t2", "Beta")})
	c.cycle()
	if n := sink.count(); n != 0 {
		t.Fatalf("cycle should be suppressed during operation, got %d renders", n)
	}

	sched.Tick()
	if err := <-done; err != nil {
		t.Fatalf("assign: %v", err)
	}
}

func TestAssignVerifiesAndRequestsRefresh(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, _, sched := newCoordinator(t, store)

	done := make(chan error, 1)
	go func() {
		done <- c.Assign(context.Background(), "t1", "ann")
	}()
	waitFor(t, sched.Active)
	sched.Tick()
	if err := <-done; err != nil {
		t.Fatalf("assign: %v", err)
	}

	recs := store.Records()
	if recs[0].Assignee != "ann" {
		t.Fatalf("assignee = %q, want ann", recs[0].Assignee)
	}
	select {
	case <-c.refreshCh:
	default:
		t.Fatal("expected a pending refresh request after the operation")
	}
}

func TestDeleteVerifiesAbsence(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"), rec("t2", "Beta"))
	c, _, sched := newCoordinator(t, store)

	done := make(chan error, 1)
	go func() {
		done <- c.Delete(context.Background(), "t1")
	}()
	waitFor(t, sched.Active)
	sched.Tick()
	if err := <-done; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if recs := store.Records(); len(recs) != 1 || recs[0].ID != "t2" {
		t.Fatalf("unexpected records after delete: %+v", recs)
	}
}

func TestMutationTimesOutWhenSourceNeverReflects(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, _, sched := newCoordinator(t, store)

	done := make(chan error, 1)
	go func() {
		// Schedule on the store succeeds, but we poll for a different
		// date than the one written, so verification never passes.
		done <- c.verified(context.Background(), "schedule t1",
			func(context.Context) error {
				return store.Schedule("t1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			},
			c.recordMatches("t1", func(r model.Record) bool {
				return r.Due.Equal(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
			}))
	}()
	waitFor(t, sched.Active)
	for i := 0; i < 15; i++ {
		sched.Tick()
	}

	err := <-done
	var te *verify.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if c.InProgress() {
		t.Fatal("lock should be released after timeout")
	}
}

func TestMutationActionErrorReturned(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, _, _ := newCoordinator(t, store)

	err := c.Assign(context.Background(), "missing", "ann")
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if c.InProgress() {
		t.Fatal("lock should be released after action failure")
	}
}

func TestShowCompletedFiltersRows(t *testing.T) {
	done := rec("t2", "Done")
	done.Completed = true
	store := source.NewMemoryStore(rec("t1", "Open"), done)
	c, sink, _ := newCoordinator(t, store)

	if err := c.detector.Prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	c.rebuild()
	if rows := sink.last(); len(rows) != 1 {
		t.Fatalf("expected completed row hidden, got %d rows", len(rows))
	}

	c.SetShowCompleted(true)
	if rows := sink.last(); len(rows) != 2 {
		t.Fatalf("expected 2 rows with completed shown, got %d", len(rows))
	}
	if !c.ShowCompleted() {
		t.Fatal("ShowCompleted should report true")
	}
}

func TestRunRespondsToNotifier(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	notifier := &fakeNotifier{}
	c, sink, _ := newCoordinator(t, store,
		WithNotifier(notifier),
		WithDetectorConfig(detect.Config{ForceRefreshAfter: time.Hour, MaxChangedRecords: 50}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	waitFor(t, func() bool { return sink.count() >= 1 })

	store.SetRecords([]model.Record{rec("t1", "Alpha"), rec("t2", "Beta")})
	notifier.fire()
	waitFor(t, func() bool { return sink.count() >= 2 })

	cancel()
	if err := <-runDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestRefreshRequestsCoalesce(t *testing.T) {
	store := source.NewMemoryStore(rec("t1", "Alpha"))
	c, _, _ := newCoordinator(t, store)

	for i := 0; i < 10; i++ {
		c.RequestRefresh()
	}
	if len(c.refreshCh) != 1 {
		t.Fatalf("expected coalesced single pending request, got %d", len(c.refreshCh))
	}
}

type fakeNotifier struct {
	mu sync.Mutex
	fn func()
}

func (f *fakeNotifier) OnPossibleChange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func (f *fakeNotifier) fire() {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
