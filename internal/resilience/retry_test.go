package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		JitterFraction: 0,
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(eris.New("try again"), 503)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(5), func(ctx context.Context) error {
		calls++
		return eris.New("bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, NewTransientError(eris.New("still down"), 502)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoValReturnsValue(t *testing.T) {
	got, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastRetry(10), func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(eris.New("down"), 503)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("validation failed")))
	assert.True(t, IsTransient(NewTransientError(eris.New("x"), 429)))
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(eris.New("x"), 500), "calling api")))
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}

func TestWaitForReturnsOnceAvailable(t *testing.T) {
	calls := 0
	got, err := WaitFor(context.Background(), 5, time.Millisecond, "thing", func(ctx context.Context) (*string, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		s := "ready"
		return &s, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ready", *got)
	assert.Equal(t, 3, calls)
}

func TestWaitForGivesUp(t *testing.T) {
	_, err := WaitFor(context.Background(), 2, time.Millisecond, "thing", func(ctx context.Context) (*string, error) {
		return nil, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available after 2 attempts")
}

func TestWaitForAbortsOnError(t *testing.T) {
	calls := 0
	_, err := WaitFor(context.Background(), 5, time.Millisecond, "thing", func(ctx context.Context) (*string, error) {
		calls++
		return nil, eris.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
