package vision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to capacity", func(t *testing.T) {
		rl := newRateLimiter(5)
		defer rl.Close()

		for i := 0; i < 5; i++ {
			assert.True(t, rl.tryAcquire(), "attempt %d should succeed", i+1)
		}
		assert.False(t, rl.tryAcquire())
		assert.Equal(t, 0, rl.available())
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := newRateLimiter(600) // one token every 100ms
		defer rl.Close()

		for rl.tryAcquire() {
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, rl.wait(ctx))
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		defer rl.Close()

		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- rl.wait(ctx)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		err := <-done
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "rate limiter canceled")
	})

	t.Run("default capacity", func(t *testing.T) {
		rl := newRateLimiter(0)
		defer rl.Close()
		assert.Equal(t, 60, rl.available())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		rl := newRateLimiter(10)
		assert.NotPanics(t, func() {
			rl.Close()
			rl.Close()
		})
	})
}
