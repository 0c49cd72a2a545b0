package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	t.Run("SuccessfulRetry", func(t *testing.T) {
		attempts := 0
		op := func(_ context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary error")
			}
			return nil
		}

		err := Retry(context.Background(), op, NewExponentialBackoffPolicy(time.Millisecond), nil)

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("NonRetriableError", func(t *testing.T) {
		permanentErr := errors.New("permanent error")
		attempts := 0
		op := func(_ context.Context) error {
			attempts++
			return permanentErr
		}
		isRetriable := func(err error) bool {
			return !errors.Is(err, permanentErr)
		}

		err := Retry(context.Background(), op, NewExponentialBackoffPolicy(time.Millisecond), isRetriable)

		assert.ErrorIs(t, err, permanentErr)
		assert.Equal(t, 1, attempts)
	})

	t.Run("RetriesExhaustedReturnsOperationError", func(t *testing.T) {
		opErr := errors.New("still failing")
		attempts := 0
		op := func(_ context.Context) error {
			attempts++
			return opErr
		}
		policy := NewExponentialBackoffPolicy(time.Millisecond)
		policy.MaxRetries = 2

		err := Retry(context.Background(), op, policy, nil)

		assert.ErrorIs(t, err, opErr)
		assert.Equal(t, 3, attempts)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Retry(ctx, func(context.Context) error { return nil }, NewExponentialBackoffPolicy(time.Millisecond), nil)

		assert.Equal(t, context.Canceled, err)
	})
}

func TestExponentialBackoffPolicy(t *testing.T) {
	t.Parallel()

	policy := NewExponentialBackoffPolicy(100 * time.Millisecond)
	policy.MaxInterval = 300 * time.Millisecond
	policy.MaxRetries = 4

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}
	for i, want := range expected {
		got, err := policy.ComputeNextInterval(i, 0, nil)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := policy.ComputeNextInterval(4, 0, nil)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestWithJitter(t *testing.T) {
	t.Parallel()

	base := NewExponentialBackoffPolicy(50 * time.Millisecond)
	policy := WithJitter(base, FullJitter)

	for i := range 20 {
		got, err := policy.ComputeNextInterval(1, 0, nil)
		assert.NoError(t, err, "iteration %d", i)
		assert.GreaterOrEqual(t, got, time.Duration(0))
		assert.LessOrEqual(t, got, 100*time.Millisecond)
	}
}
