// Package coordinator wires the taskgrid engine together: change
// notifications feed the detector, detector recommendations drive re-layout,
// and user mutations run through the verifier. All session state lives on
// one Coordinator instance; there are no package-level caches.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/detect"
	"github.com/x2605/taskgrid/pkg/layout"
	"github.com/x2605/taskgrid/pkg/model"
	"github.com/x2605/taskgrid/pkg/snapshot"
	"github.com/x2605/taskgrid/pkg/source"
	"github.com/x2605/taskgrid/pkg/verify"
	"github.com/x2605/taskgrid/pkg/watcher"
)

// RenderFunc receives the freshly-computed table rows after each refresh.
type RenderFunc func([]layout.Row)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier attaches a change-notification source. Without one, only the
// staleness ticker and explicit RequestRefresh calls trigger cycles.
func WithNotifier(n watcher.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithRenderFunc sets the row consumer.
func WithRenderFunc(fn RenderFunc) Option {
	return func(c *Coordinator) { c.render = fn }
}

// WithMaxDepth sets how many category levels the layout renders.
func WithMaxDepth(n int) Option {
	return func(c *Coordinator) { c.maxDepth = n }
}

// WithShowCompleted includes completed tasks in the table.
func WithShowCompleted(show bool) Option {
	return func(c *Coordinator) { c.showCompleted = show }
}

// WithDetectorConfig overrides the detection thresholds.
func WithDetectorConfig(cfg detect.Config) Option {
	return func(c *Coordinator) { c.detectCfg = cfg }
}

// WithVerifier replaces the operation verifier, mainly so tests can inject
// a deterministic scheduler.
func WithVerifier(v *verify.Verifier) Option {
	return func(c *Coordinator) { c.verifier = v }
}

// WithVerifyBudget sets the timeout and poll cadence for verified
// operations.
func WithVerifyBudget(timeout, pollInterval time.Duration) Option {
	return func(c *Coordinator) {
		c.verifyTimeout = timeout
		c.verifyPoll = pollInterval
	}
}

// WithOnError receives errors from background refresh cycles. Mutation
// errors are returned to the caller instead.
func WithOnError(fn func(error)) Option {
	return func(c *Coordinator) { c.onError = fn }
}

// Coordinator owns one session of the sync-and-present loop.
type Coordinator struct {
	store     source.Store
	extractor *snapshot.Extractor
	detector  *detect.Detector
	verifier  *verify.Verifier
	notifier  watcher.Notifier

	detectCfg     detect.Config
	maxDepth      int
	verifyTimeout time.Duration
	verifyPoll    time.Duration

	render  RenderFunc
	onError func(error)

	refreshCh chan struct{}

	mu            sync.Mutex
	showCompleted bool
	lastRows      []layout.Row
}

// New creates a coordinator over the given store.
func New(store source.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:         store,
		detectCfg:     detect.DefaultConfig(),
		maxDepth:      2,
		verifyTimeout: 10 * time.Second,
		verifyPoll:    200 * time.Millisecond,
		render:        func([]layout.Row) {},
		onError:       func(error) {},
		refreshCh:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.extractor = snapshot.NewExtractor(store)
	c.detector = detect.New(c.extractor, c.detectCfg)
	if c.verifier == nil {
		c.verifier = verify.New()
	}
	return c
}

// Verifier exposes the operation verifier, e.g. for UI lock hooks.
func (c *Coordinator) Verifier() *verify.Verifier { return c.verifier }

// Run drives the refresh loop until the context is canceled. One goroutine
// consumes refresh requests; a second ticks at half the staleness window so
// the timeout rule fires even when no notification ever arrives.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.notifier != nil {
		c.notifier.OnPossibleChange(c.RequestRefresh)
	}

	// Initial build so the table is populated before the first change.
	if err := c.detector.Prime(); err != nil {
		c.onError(err)
	} else {
		c.rebuild()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.refreshCh:
				c.cycle()
			}
		}
	})

	g.Go(func() error {
		interval := c.detectCfg.ForceRefreshAfter / 2
		if interval <= 0 {
			interval = detect.DefaultConfig().ForceRefreshAfter / 2
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				c.RequestRefresh()
			}
		}
	})

	return g.Wait()
}

// RequestRefresh schedules a detection cycle. Requests arriving while one
// is pending coalesce.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// cycle runs one detect/apply/render pass. Cycles are suppressed entirely
// while a verified operation holds the lock; racing a render against an
// in-flight external mutation would present half-applied state.
func (c *Coordinator) cycle() {
	if c.verifier.InProgress() {
		debug.Log("coordinator: skipping cycle, operation in progress")
		return
	}

	res := c.detector.Detect()
	if res.ChangeType == detect.ChangeNone {
		return
	}
	debug.Log("coordinator: %s (reason=%s)", res.ChangeType, res.Reason)

	if err := c.detector.Apply(res); err != nil {
		c.onError(fmt.Errorf("applying detection result: %w", err))
		return
	}
	c.rebuild()
}

// rebuild re-extracts the full records and recomputes the layout from
// scratch. Spans are never patched incrementally.
func (c *Coordinator) rebuild() {
	recs, err := c.extractor.Full()
	if err != nil {
		c.onError(fmt.Errorf("extracting records: %w", err))
		return
	}

	c.mu.Lock()
	show := c.showCompleted
	c.mu.Unlock()
	if !show {
		kept := recs[:0]
		for _, r := range recs {
			if !r.Completed {
				kept = append(kept, r)
			}
		}
		recs = kept
	}

	rows := layout.Compute(recs, c.maxDepth)

	c.mu.Lock()
	c.lastRows = rows
	c.mu.Unlock()
	c.render(rows)
}

// Rows returns the most recently rendered rows.
func (c *Coordinator) Rows() []layout.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRows
}

// SetShowCompleted toggles completed-task visibility and re-renders.
func (c *Coordinator) SetShowCompleted(show bool) {
	c.mu.Lock()
	c.showCompleted = show
	c.mu.Unlock()
	c.rebuild()
}

// ShowCompleted reports the current visibility toggle.
func (c *Coordinator) ShowCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showCompleted
}

// InProgress reports whether a verified operation currently holds the lock.
func (c *Coordinator) InProgress() bool {
	return c.verifier.InProgress()
}

// Assign assigns a task and verifies the source reflects it.
func (c *Coordinator) Assign(ctx context.Context, id, assignee string) error {
	return c.verified(ctx, "assign "+id,
		func(context.Context) error { return c.store.Assign(id, assignee) },
		c.recordMatches(id, func(r model.Record) bool { return r.Assignee == assignee }))
}

// Schedule sets a task's due date and verifies the source reflects it.
func (c *Coordinator) Schedule(ctx context.Context, id string, due time.Time) error {
	return c.verified(ctx, "schedule "+id,
		func(context.Context) error { return c.store.Schedule(id, due) },
		c.recordMatches(id, func(r model.Record) bool { return r.Due.Equal(due) }))
}

// SetCompleted flips a task's done flag and verifies the source reflects
// it.
func (c *Coordinator) SetCompleted(ctx context.Context, id string, done bool) error {
	return c.verified(ctx, "complete "+id,
		func(context.Context) error { return c.store.SetCompleted(id, done) },
		c.recordMatches(id, func(r model.Record) bool { return r.Completed == done }))
}

// Delete removes a task and verifies it is gone from the source.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	return c.verified(ctx, "delete "+id,
		func(context.Context) error { return c.store.Delete(id) },
		c.recordAbsent(id))
}

// verified runs one lock-and-verify operation and re-extracts afterward no
// matter how it ended; a timed-out mutation may still have partially
// applied.
func (c *Coordinator) verified(ctx context.Context, op string, action func(context.Context) error, predicate func() (bool, error)) error {
	defer c.RequestRefresh()
	return c.verifier.LockAndVerify(ctx, action, predicate, verify.Options{
		Op:           op,
		Timeout:      c.verifyTimeout,
		PollInterval: c.verifyPoll,
	})
}

// recordMatches builds a predicate checking the current source state of one
// record.
func (c *Coordinator) recordMatches(id string, match func(model.Record) bool) func() (bool, error) {
	return func() (bool, error) {
		handles, err := c.store.List()
		if err != nil {
			return false, err
		}
		for _, h := range handles {
			if h.ID() != id {
				continue
			}
			rec, err := h.Record()
			if err != nil {
				return false, nil
			}
			return match(rec), nil
		}
		return false, nil
	}
}

// recordAbsent builds a predicate that is true once the record disappears.
func (c *Coordinator) recordAbsent(id string) func() (bool, error) {
	return func() (bool, error) {
		handles, err := c.store.List()
		if err != nil {
			return false, err
		}
		for _, h := range handles {
			if h.ID() == id {
				return false, nil
			}
		}
		return true, nil
	}
}
