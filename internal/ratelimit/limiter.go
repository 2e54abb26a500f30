// file: internal/ratelimit/limiter.go
// version: 1.0.0
// guid: bb7c3330-add2-441c-92b3-0ca5050aef9d

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinInterval enforces a minimum spacing between calls to an externally
// rate-limited API. It is shared by every caller of that API and safe for
// concurrent use: the check-wait-record sequence runs under the limiter's lock.
type MinInterval struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	waits    int64
	onWait   func(time.Duration)
}

// NewMinInterval creates a limiter allowing one call per interval.
// A non-positive interval disables limiting.
func NewMinInterval(interval time.Duration) *MinInterval {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &MinInterval{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// OnWait registers a callback invoked whenever Acquire had to delay.
func (m *MinInterval) OnWait(fn func(time.Duration)) {
	m.mu.Lock()
	m.onWait = fn
	m.mu.Unlock()
}

// Acquire blocks until a call may proceed or ctx is done.
func (m *MinInterval) Acquire(ctx context.Context) error {
	r := m.limiter.Reserve()
	if !r.OK() {
		return context.DeadlineExceeded
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	m.mu.Lock()
	m.waits++
	onWait := m.onWait
	m.mu.Unlock()
	if onWait != nil {
		onWait(delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Interval returns the configured minimum spacing.
func (m *MinInterval) Interval() time.Duration {
	return m.interval
}

// Waits returns how many Acquire calls had to delay.
func (m *MinInterval) Waits() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waits
}
