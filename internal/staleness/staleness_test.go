// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package staleness_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/internal/staleness"
)

// counter returns sequential values, fails while fail is set.
type counter struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (c *counter) fetch(context.Context) (int64, error) {
	if c.fail.Load() {
		return 0, errors.New("source unavailable")
	}

	return c.calls.Add(1), nil
}

func TestCache(t *testing.T) {
	var (
		ctx   = context.Background()
		start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	)

	t.Run("fresh value is cached", func(t *testing.T) {
		testClock := clock.NewTestClock(start)
		src := new(counter)
		cache := staleness.New("fee-rate", src.fetch, time.Minute, testClock)

		_, ok := cache.Age()
		require.False(t, ok)

		value, err := cache.Get(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, value)

		testClock.SetTime(start.Add(time.Minute))
		value, err = cache.Get(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, value)

		age, ok := cache.Age()
		require.True(t, ok)
		require.Equal(t, time.Minute, age)
	})

	t.Run("refetch after bound", func(t *testing.T) {
		testClock := clock.NewTestClock(start)
		src := new(counter)
		cache := staleness.New("fee-rate", src.fetch, time.Minute, testClock)

		_, err := cache.Get(ctx)
		require.NoError(t, err)

		testClock.SetTime(start.Add(time.Minute + time.Second))
		value, err := cache.Get(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, value)
	})

	t.Run("stale value rejected", func(t *testing.T) {
		testClock := clock.NewTestClock(start)
		src := new(counter)
		cache := staleness.New("configuration", src.fetch, 0, testClock)

		_, err := cache.Get(ctx)
		require.NoError(t, err)

		src.fail.Store(true)
		testClock.SetTime(start.Add(staleness.DefaultMaxAge - time.Second))
		value, err := cache.Get(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, value)

		testClock.SetTime(start.Add(staleness.DefaultMaxAge + time.Second))
		_, err = cache.Get(ctx)
		require.ErrorIs(t, err, staleness.ErrStale)

		src.fail.Store(false)
		value, err = cache.Get(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, value)
	})

	t.Run("first fetch failure is not stale", func(t *testing.T) {
		src := new(counter)
		src.fail.Store(true)
		cache := staleness.New("configuration", src.fetch, time.Minute, clock.NewTestClock(start))

		_, err := cache.Get(ctx)
		require.Error(t, err)
		require.NotErrorIs(t, err, staleness.ErrStale)
	})

	t.Run("poll", func(t *testing.T) {
		src := new(counter)
		cache := staleness.New("fee-rate", src.fetch, time.Hour, clock.NewTestClock(start))
		forceTicker := ticker.NewForce(time.Hour)

		pollCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			cache.Poll(pollCtx, forceTicker)
			close(done)
		}()

		forceTicker.Force <- start
		require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

		forceTicker.Force <- start
		require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 10*time.Millisecond)

		cancel()
		<-done
	})
}
