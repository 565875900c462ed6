package extensions

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces rapid-fire triggers into one run after a quiet
// period. Scheduling replaces any pending run and cancels the context of
// the previous run immediately, so an in-flight task observes cancellation
// before it can commit.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arranges for fn to run once the quiet period elapses. The
// context handed to fn is derived from parent and is cancelled by any
// later Schedule or Stop call.
func (d *Debouncer) Schedule(parent context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		fn(ctx)
	})
}

// Stop cancels the pending run, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
