package verify

import (
	"sync"
	"time"
)

// Scheduler abstracts repeated timer callbacks so polling can run against a
// deterministic clock in tests. Repeat invokes fn on every interval until
// the returned cancel function is called; once cancel returns, fn will not
// fire again.
type Scheduler interface {
	Repeat(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler is the production Scheduler on top of time.Ticker.
type TickerScheduler struct{}

// Repeat starts a goroutine ticking at the given interval. Cancel stops the
// ticker and waits for any in-flight callback, so no callback can fire after
// cancel returns.
func (TickerScheduler) Repeat(interval time.Duration, fn func()) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// ManualScheduler is a deterministic Scheduler for tests: callbacks fire
// only when Tick is called explicitly.
type ManualScheduler struct {
	mu sync.Mutex
	fn func()
}

// Repeat registers fn. The interval is ignored; ticks are manual.
func (m *ManualScheduler) Repeat(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.fn = nil
		m.mu.Unlock()
	}
}

// Tick fires the registered callback once, if any registration is live.
func (m *ManualScheduler) Tick() {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Active reports whether a repeat registration is currently live.
func (m *ManualScheduler) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}
