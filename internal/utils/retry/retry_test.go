package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when budget is spent", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
			calls++
			return errors.New("still down")
		})
		assert.EqualError(t, err, "still down")
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		sentinel := errors.New("not found")
		calls := 0
		err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
			calls++
			return backoff.Permanent(sentinel)
		})
		assert.Equal(t, sentinel, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), Policy{}, func(context.Context) error {
			calls++
			return errors.New("down")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := Policy{Attempts: 3, Backoff: time.Hour}
		calls := 0
		err := Do(ctx, p, func(context.Context) error {
			calls++
			cancel()
			return errors.New("boom")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestPolicy_BackOff(t *testing.T) {
	p := Policy{Attempts: 4, Backoff: 100 * time.Millisecond, MaxBackoff: 250 * time.Millisecond}
	b := p.BackOff(context.Background())
	b.Reset()

	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 250*time.Millisecond, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
