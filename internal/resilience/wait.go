package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// WaitFor polls fn until it returns a non-nil value, up to maxAttempts with
// a fixed delay between attempts. It exists for reads racing a decoupled
// writer: the row may legitimately not exist yet. A nil value with a nil
// error means "not there yet"; errors abort immediately.
func WaitFor[T any](ctx context.Context, maxAttempts int, delay time.Duration, what string, fn func(ctx context.Context) (*T, error)) (*T, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		val, err := fn(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "wait: %s", what)
		}
		if val != nil {
			return val, nil
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrapf(ctx.Err(), "wait: %s", what)
		case <-timer.C:
		}
	}

	return nil, eris.Errorf("wait: %s not available after %d attempts", what, maxAttempts)
}
