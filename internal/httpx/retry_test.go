package httpx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: NoBackoff()}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUpToMaxAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: NoBackoff()}
	boom := errors.New("boom")

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoRecoversMidway(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: NoBackoff()}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoPermanentShortCircuits(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, Backoff: NoBackoff()}
	boom := errors.New("rejected")

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(boom)
	})

	assert.Equal(t, boom, err, "the original error comes back unwrapped")
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: LinearBackoff(time.Hour)}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestLinearBackoffGrowsWithAttempt(t *testing.T) {
	backoff := LinearBackoff(1000 * time.Millisecond)

	assert.Equal(t, 1000*time.Millisecond, backoff(1))
	assert.Equal(t, 2000*time.Millisecond, backoff(2))
	assert.Equal(t, 3000*time.Millisecond, backoff(3))
}

func TestNewRetryPolicyClampsAttempts(t *testing.T) {
	policy := NewRetryPolicy(0, time.Second)
	assert.Equal(t, 1, policy.MaxAttempts)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
