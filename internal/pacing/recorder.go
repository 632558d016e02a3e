package pacing

import (
	"context"
	"sync"
	"time"
)

// Recorder is a SleepFunc source that remembers requested waits and returns
// immediately. It honours cancellation so callers still observe ctx errors.
type Recorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()

	return ctx.Err()
}

// Waits returns a copy of the recorded waits in call order.
func (r *Recorder) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]time.Duration, len(r.waits))
	copy(out, r.waits)
	return out
}

// Total returns the sum of all recorded waits.
func (r *Recorder) Total() time.Duration {
	var total time.Duration
	for _, w := range r.Waits() {
		total += w
	}
	return total
}
