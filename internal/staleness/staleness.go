// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package staleness provides polled value cache with bounded age.
package staleness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxAge defines maximum age of cached value if not configured.
const DefaultMaxAge = 3 * time.Minute

// ErrStale defines that cached value is older than allowed and could not be refreshed.
var ErrStale = errors.New("cached value is stale")

// FetchFunc loads fresh value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache holds last fetched value and refetches it once it is older than max age.
// Safe for concurrent use.
type Cache[T any] struct {
	name   string
	fetch  FetchFunc[T]
	maxAge time.Duration
	clock  clock.Clock

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	loaded    bool
}

// New is a constructor for Cache. Uses DefaultMaxAge if maxAge is not positive.
func New[T any](name string, fetch FetchFunc[T], maxAge time.Duration, clk clock.Clock) *Cache[T] {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	return &Cache[T]{
		name:   name,
		fetch:  fetch,
		maxAge: maxAge,
		clock:  clk,
	}
}

// Get returns cached value if it is fresh enough, otherwise fetches a new one.
// Returns ErrStale joined with fetch error when refetch of an outdated value fails.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && c.clock.Now().Sub(c.fetchedAt) <= c.maxAge {
		return c.value, nil
	}

	if err := c.refresh(ctx); err != nil {
		var empty T
		if c.loaded {
			return empty, errors.Join(ErrStale, err)
		}

		return empty, err
	}

	return c.value, nil
}

// Refresh fetches value regardless of its age.
func (c *Cache[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refresh(ctx)
}

// Age returns time passed since the last successful fetch, false if nothing was fetched yet.
func (c *Cache[T]) Age() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return 0, false
	}

	return c.clock.Now().Sub(c.fetchedAt), true
}

// Poll refreshes value on every tick until context is done.
// Failed refreshes are logged, the previous value keeps aging.
func (c *Cache[T]) Poll(ctx context.Context, t ticker.Ticker) {
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Ticks():
			if err := c.Refresh(ctx); err != nil {
				log.WithError(err).WithField("cache", c.name).Warn("could not refresh cached value")
			}
		}
	}
}

func (c *Cache[T]) refresh(ctx context.Context) error {
	value, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	c.value = value
	c.fetchedAt = c.clock.Now()
	c.loaded = true

	return nil
}
