package utils

import (
	"context"
	"sync"
	"time"
)

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer enforces a minimum interval between consecutive calls sharing a key.
// It is safe for concurrent use; callers with different keys never wait on
// each other.
type Pacer struct {
	mu    sync.Mutex
	last  map[string]time.Time
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewPacer returns a Pacer backed by the wall clock.
func NewPacer() *Pacer {
	return &Pacer{
		last:  make(map[string]time.Time),
		now:   time.Now,
		sleep: WaitFor,
	}
}

// WithClock replaces the time source and the wait function.
func (p *Pacer) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Pacer {
	p.now = now
	p.sleep = sleep
	return p
}

// Wait blocks until at least interval has passed since the previous call for
// key, then records the current call.
func (p *Pacer) Wait(ctx context.Context, key string, interval time.Duration) error {
	p.mu.Lock()
	last, seen := p.last[key]
	p.mu.Unlock()

	if seen && interval > 0 {
		if remaining := interval - p.now().Sub(last); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	p.mu.Lock()
	p.last[key] = p.now()
	p.mu.Unlock()

	return ctx.Err()
}
