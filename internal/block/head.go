package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

// Head is the last observed chain head
type Head struct {
	Number     uint64
	ObservedAt time.Time
}

// HeadProvider serves the chain head with a short-lived cache so that
// polling loops and back-fills don't hit the endpoint on every tick.
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=HeadProvider=MockHeadProvider,Fetcher=MockBlockFetcher
type HeadProvider interface {
	// LatestBlock returns the latest block number, potentially from cache
	LatestBlock(ctx context.Context) (uint64, error)
	// Reset drops the cached head
	Reset()
}

// Fetcher reads the current head from the chain
type Fetcher interface {
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// FetcherFunc adapts a plain function to Fetcher
type FetcherFunc func(ctx context.Context) (uint64, error)

func (f FetcherFunc) FetchLatestBlock(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// Config holds configuration for the HeadProvider
type Config struct {
	// TTL is how long a fetched head is served without refetching
	TTL time.Duration

	// StaleWindow is how long a cached head may stand in when a fetch fails
	StaleWindow time.Duration
}

type headProvider struct {
	fetcher Fetcher
	config  Config
	clock   adapter.Clock

	mu   sync.RWMutex
	head *Head
}

// NewHeadProvider creates a HeadProvider backed by fetcher
func NewHeadProvider(fetcher Fetcher, config Config, clock adapter.Clock) HeadProvider {
	return &headProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

func (p *headProvider) LatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && now.Sub(cached.ObservedAt) < p.config.TTL {
		return cached.Number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.ObservedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Serving stale chain head", zap.Uint64("block_number", cached.Number), zap.Error(err))
			return cached.Number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no usable cached head: %w", err)
	}

	p.mu.Lock()
	// never move the head backwards when a lagging endpoint answers
	if p.head == nil || number >= p.head.Number {
		p.head = &Head{Number: number, ObservedAt: now}
	} else {
		number = p.head.Number
		p.head.ObservedAt = now
	}
	p.mu.Unlock()

	return number, nil
}

func (p *headProvider) Reset() {
	p.mu.Lock()
	p.head = nil
	p.mu.Unlock()
}
