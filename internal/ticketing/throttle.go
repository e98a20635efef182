package ticketing

import (
	"context"
	"fmt"
	"time"
)

// Throttle enforces a minimum interval between external requests. The
// provider enforces a per-second request ceiling, so the refresh job owns one
// Throttle value and calls Wait before every request instead of relying on
// shared global state.
type Throttle struct {
	last        time.Time
	minInterval time.Duration
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

// NewThrottle creates a throttle with the given minimum interval between
// requests. A zero or negative interval disables throttling.
func NewThrottle(minInterval time.Duration) *Throttle {
	return &Throttle{
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Wait blocks until the minimum interval since the previous request has
// elapsed, or the context is canceled.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.minInterval <= 0 {
		return nil
	}

	now := t.now()
	if !t.last.IsZero() {
		if remaining := t.minInterval - now.Sub(t.last); remaining > 0 {
			if err := t.sleep(ctx, remaining); err != nil {
				return err
			}
			now = t.now()
		}
	}
	t.last = now
	return nil
}

// Reset clears the throttle state so a fresh run is not penalized for a
// previous run's last request.
func (t *Throttle) Reset() {
	t.last = time.Time{}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("throttle canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
