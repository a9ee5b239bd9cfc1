package block

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TimeFetcher reads the timestamp of a block from the chain
type TimeFetcher interface {
	FetchBlockTime(ctx context.Context, number uint64) (time.Time, error)
}

// TimeFetcherFunc adapts a plain function to TimeFetcher
type TimeFetcherFunc func(ctx context.Context, number uint64) (time.Time, error)

func (f TimeFetcherFunc) FetchBlockTime(ctx context.Context, number uint64) (time.Time, error) {
	return f(ctx, number)
}

// TimestampCache keeps block timestamps in a bounded LRU. Timestamps of
// mined blocks never change so entries carry no expiry.
type TimestampCache struct {
	fetcher TimeFetcher
	cache   *lru.Cache[uint64, time.Time]
}

// NewTimestampCache creates a TimestampCache holding at most size blocks
func NewTimestampCache(fetcher TimeFetcher, size int) (*TimestampCache, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[uint64, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create block time cache: %w", err)
	}
	return &TimestampCache{fetcher: fetcher, cache: cache}, nil
}

// BlockTime returns the timestamp of the given block
func (c *TimestampCache) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	if ts, ok := c.cache.Get(number); ok {
		return ts, nil
	}

	ts, err := c.fetcher.FetchBlockTime(ctx, number)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to fetch timestamp for block %d: %w", number, err)
	}
	c.cache.Add(number, ts)
	return ts, nil
}

// Len returns the number of cached timestamps
func (c *TimestampCache) Len() int {
	return c.cache.Len()
}
