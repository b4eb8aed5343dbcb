package verify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// startOp runs LockAndVerify on its own goroutine and waits until polling
// has registered with the manual scheduler (or the op already finished).
func startOp(t *testing.T, v *Verifier, sched *ManualScheduler, action func(context.Context) error, predicate func() (bool, error), opts Options) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- v.LockAndVerify(context.Background(), action, predicate, opts)
	}()

	deadline := time.After(2 * time.Second)
	for !sched.Active() {
		select {
		case err := <-done:
			done <- err
			return done
		case <-deadline:
			t.Fatal("polling never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	return done
}

func opts() Options {
	return Options{Op: "test", Timeout: time.Second, PollInterval: 200 * time.Millisecond}
}

func noAction(context.Context) error { return nil }

func TestVerifySucceedsOnFirstTick(t *testing.T) {
	sched := &ManualScheduler{}
	var locks, unlocks atomic.Int64
	v := New(
		WithScheduler(sched),
		WithLockHooks(func() { locks.Add(1) }, func() { unlocks.Add(1) }),
	)

	done := startOp(t, v, sched, noAction, func() (bool, error) { return true, nil }, opts())
	if !v.InProgress() {
		t.Error("operation should be in progress while polling")
	}

	sched.Tick()
	if err := <-done; err != nil {
		t.Fatalf("LockAndVerify() error = %v, want nil", err)
	}
	if locks.Load() != 1 || unlocks.Load() != 1 {
		t.Errorf("locks=%d unlocks=%d, want exactly one each", locks.Load(), unlocks.Load())
	}
	if v.InProgress() {
		t.Error("verifier must be idle after success")
	}
}

func TestVerifyTimesOut(t *testing.T) {
	sched := &ManualScheduler{}
	var unlocks atomic.Int64
	v := New(WithScheduler(sched), WithLockHooks(func() {}, func() { unlocks.Add(1) }))

	done := startOp(t, v, sched, noAction, func() (bool, error) { return false, nil }, opts())

	// 1s budget at 200ms per tick: the 5th tick crosses the budget.
	for i := 0; i < 5; i++ {
		sched.Tick()
	}

	err := <-done
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("LockAndVerify() error = %v, want TimeoutError", err)
	}
	if te.Elapsed < time.Second {
		t.Errorf("Elapsed = %v, want >= timeout", te.Elapsed)
	}
	if unlocks.Load() != 1 {
		t.Errorf("unlocks = %d, want exactly 1", unlocks.Load())
	}
	if v.InProgress() {
		t.Error("verifier must be idle after timeout")
	}
}

func TestVerifyActionFailureSkipsPolling(t *testing.T) {
	sched := &ManualScheduler{}
	var unlocks atomic.Int64
	v := New(WithScheduler(sched), WithLockHooks(func() {}, func() { unlocks.Add(1) }))

	actionErr := errors.New("mutation rejected")
	polled := false
	err := v.LockAndVerify(context.Background(),
		func(context.Context) error { return actionErr },
		func() (bool, error) { polled = true; return true, nil },
		opts())

	if !errors.Is(err, actionErr) {
		t.Fatalf("LockAndVerify() error = %v, want wrapped action error", err)
	}
	if polled {
		t.Error("predicate must not be polled when the action fails")
	}
	if sched.Active() {
		t.Error("no poll registration should remain")
	}
	if unlocks.Load() != 1 {
		t.Errorf("unlocks = %d, want exactly 1", unlocks.Load())
	}
}

func TestVerifyPredicateError(t *testing.T) {
	sched := &ManualScheduler{}
	v := New(WithScheduler(sched))

	predErr := errors.New("source unreadable")
	done := startOp(t, v, sched, noAction, func() (bool, error) { return false, predErr }, opts())

	sched.Tick()
	if err := <-done; !errors.Is(err, predErr) {
		t.Fatalf("LockAndVerify() error = %v, want wrapped predicate error", err)
	}
	if v.InProgress() {
		t.Error("verifier must be idle after predicate error")
	}
}

func TestVerifyPredicatePanic(t *testing.T) {
	sched := &ManualScheduler{}
	v := New(WithScheduler(sched))

	done := startOp(t, v, sched, noAction, func() (bool, error) { panic("boom") }, opts())

	sched.Tick()
	err := <-done
	if err == nil {
		t.Fatal("a panicking predicate must fail the operation")
	}
	if v.InProgress() {
		t.Error("the lock must release even when the predicate panics")
	}
}

func TestVerifyRejectsConcurrentOperation(t *testing.T) {
	sched := &ManualScheduler{}
	v := New(WithScheduler(sched))

	done := startOp(t, v, sched, noAction, func() (bool, error) { return false, nil }, opts())

	if err := v.LockAndVerify(context.Background(), noAction, func() (bool, error) { return true, nil }, opts()); !errors.Is(err, ErrBusy) {
		t.Errorf("second call error = %v, want ErrBusy", err)
	}

	sched.Tick() // still polling; first op unaffected
	for i := 0; i < 5; i++ {
		sched.Tick()
	}
	<-done
}

func TestVerifyContextCancel(t *testing.T) {
	sched := &ManualScheduler{}
	v := New(WithScheduler(sched))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- v.LockAndVerify(ctx, noAction, func() (bool, error) { return false, nil }, opts())
	}()
	for !sched.Active() {
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("LockAndVerify() error = %v, want context.Canceled", err)
	}
	if v.InProgress() {
		t.Error("verifier must be idle after cancellation")
	}
}

func TestVerifyRealSchedulerEndToEnd(t *testing.T) {
	v := New()

	var calls atomic.Int64
	err := v.LockAndVerify(context.Background(), noAction,
		func() (bool, error) { return calls.Add(1) >= 2, nil },
		Options{Op: "real", Timeout: 2 * time.Second, PollInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("LockAndVerify() error = %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("predicate polled %d times, want >= 2", calls.Load())
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StatePolling.String() != "polling" {
		t.Error("unexpected state names")
	}
}
