// Package verify implements the lock-and-verify protocol for external
// mutations: lock the UI, perform the mutation, poll until the external
// source observably reflects it, then unlock and report. Exactly one of
// success or failure is delivered per call, and the lock is released on
// every exit path.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/metrics"
)

// State is the verifier's position in the operation lifecycle.
type State int32

const (
	StateIdle State = iota
	StateLocked
	StateAwaitingAction
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocked:
		return "locked"
	case StateAwaitingAction:
		return "awaiting_action"
	case StatePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// ErrBusy is returned when LockAndVerify is called while an operation is
// already locked. Callers should check InProgress first; the sentinel keeps
// the single-operation invariant local even when they don't.
var ErrBusy = errors.New("an operation is already in progress")

// TimeoutError means the predicate never became true within the budget. The
// external mutation may still have partially succeeded, so callers should
// re-extract afterward regardless.
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("verification of %q timed out after %v", e.Op, e.Elapsed)
}

// Options bound one verified operation.
type Options struct {
	// Op names the operation for errors and logs.
	Op string
	// Timeout is the maximum time to keep polling. Default 10s.
	Timeout time.Duration
	// PollInterval is the predicate check cadence. Default 200ms.
	PollInterval time.Duration
}

// DefaultOptions returns the standard operation budget.
func DefaultOptions(op string) Options {
	return Options{Op: op, Timeout: 10 * time.Second, PollInterval: 200 * time.Millisecond}
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithScheduler replaces the polling scheduler, for deterministic tests.
func WithScheduler(s Scheduler) Option {
	return func(v *Verifier) { v.sched = s }
}

// WithLockHooks sets callbacks invoked when the UI lock is acquired and
// released. Both run on the calling goroutine of LockAndVerify.
func WithLockHooks(onLock, onUnlock func()) Option {
	return func(v *Verifier) {
		v.onLock = onLock
		v.onUnlock = onUnlock
	}
}

// Verifier runs one verified operation at a time.
type Verifier struct {
	sched    Scheduler
	onLock   func()
	onUnlock func()

	mu    sync.Mutex
	state State
}

// New creates a verifier with the production scheduler.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		sched:    TickerScheduler{},
		onLock:   func() {},
		onUnlock: func() {},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// InProgress reports whether an operation is currently locked. Callers must
// check this before starting a mutation and must suppress background
// re-renders while it reports true.
func (v *Verifier) InProgress() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state != StateIdle
}

// CurrentState returns the verifier's lifecycle state.
func (v *Verifier) CurrentState() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// LockAndVerify acquires the operation lock, invokes action, then polls
// predicate until it returns true, errors, or the timeout budget elapses.
// The lock is released on every exit path and exactly one outcome is
// returned per call. A call while locked fails immediately with ErrBusy
// without touching the lock.
func (v *Verifier) LockAndVerify(ctx context.Context, action func(context.Context) error, predicate func() (bool, error), opts Options) error {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}

	v.mu.Lock()
	if v.state != StateIdle {
		v.mu.Unlock()
		return ErrBusy
	}
	v.state = StateLocked
	v.mu.Unlock()
	v.onLock()
	debug.Log("verify: %s locked", opts.Op)

	defer func() {
		v.setState(StateIdle)
		v.onUnlock()
		debug.Log("verify: %s unlocked", opts.Op)
	}()

	v.setState(StateAwaitingAction)
	if err := action(ctx); err != nil {
		return fmt.Errorf("action for %q failed: %w", opts.Op, err)
	}

	v.setState(StatePolling)
	return v.poll(ctx, predicate, opts)
}

// poll checks the predicate on scheduler ticks. Elapsed time is counted in
// whole ticks, so the timeout lands within one poll interval of the budget.
func (v *Verifier) poll(ctx context.Context, predicate func() (bool, error), opts Options) error {
	result := make(chan error, 1)
	var ticks int64

	cancel := v.sched.Repeat(opts.PollInterval, func() {
		defer metrics.Timer(metrics.VerifyPoll)()

		ok, err := checkPredicate(predicate)
		ticks++
		elapsed := time.Duration(ticks) * opts.PollInterval

		var outcome error
		switch {
		case err != nil:
			outcome = fmt.Errorf("verification predicate for %q failed: %w", opts.Op, err)
		case ok:
			outcome = nil
		case elapsed >= opts.Timeout:
			outcome = &TimeoutError{Op: opts.Op, Elapsed: elapsed}
		default:
			return
		}
		select {
		case result <- outcome:
		default:
		}
	})
	defer cancel()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("verification of %q canceled: %w", opts.Op, ctx.Err())
	}
}

// checkPredicate shields the poll loop from a panicking predicate; a panic
// is a verification failure, not a crash, and the lock still releases.
func checkPredicate(predicate func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return predicate()
}

func (v *Verifier) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}
