package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/config"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

// ErrClosed is returned by Request after Close
var ErrClosed = errors.New("rate limit proxy is closed")

const healthCheckInterval = 10 * time.Second

// RequestFunc performs one RPC round trip
type RequestFunc func(ctx context.Context) (any, error)

type requestResult struct {
	value any
	err   error
}

// Proxy throttles RPC calls against the configured requests-per-second budget.
// With Redis configured the budget is shared by every replica using the same key;
// otherwise, or while Redis is unreachable, a local limiter takes over.
//
//go:generate mockgen -source=proxy.go -destination=../mocks/ratelimit_proxy.go -package=mocks -mock_names=Proxy=MockRateLimitProxy
type Proxy interface {
	// Request runs fn once a token is acquired
	Request(ctx context.Context, fn RequestFunc) (any, error)

	// Close drains in-flight requests and closes Redis
	Close() error
}

type proxy struct {
	config config.RateLimiterConfig
	key    string
	pool   pond.ResultPool[*requestResult]
	redis  adapter.RedisClient
	clock  adapter.Clock

	distributed adapter.RedisRateLimiter
	local       *rate.Limiter
	preFilter   *rate.Limiter

	redisAvailable atomic.Bool
	closed         atomic.Bool
	closeOnce      sync.Once
	done           chan struct{}
}

// NewProxy creates a proxy keyed by key (usually the chain id). rc may be nil
// for a purely local limiter.
func NewProxy(cfg config.RateLimiterConfig, key string, rc adapter.RedisClient, clock adapter.Clock) (Proxy, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid rate limiter configuration: %w", err)
	}

	localRate := max(float64(cfg.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)

	p := &proxy{
		config:    cfg,
		key:       cfg.RedisKeyPrefix + key,
		redis:     rc,
		clock:     clock,
		local:     rate.NewLimiter(rate.Limit(localRate), cfg.Burst),
		preFilter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		pool: pond.NewResultPool[*requestResult](
			cfg.MaxWorkers,
			pond.WithQueueSize(cfg.MaxQueueSize),
		),
		done: make(chan struct{}),
	}

	if rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("Redis unavailable, using local rate limiter", zap.Error(err))
		}
		p.redisAvailable.Store(err == nil)
		p.distributed = rc.NewRateLimiter()
		go p.monitorRedisHealth()
	} else {
		// plain local limiter at the full configured rate
		p.local = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	logger.Info("Rate limit proxy initialized",
		zap.String("key", p.key),
		zap.Int("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Bool("distributed", rc != nil),
	)

	return p, nil
}

// Request runs fn through p and returns its typed result. A nil proxy runs fn directly.
func Request[T any](ctx context.Context, p Proxy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}

	var zero T
	result, err := p.Request(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(T), nil
}

func (p *proxy) Request(ctx context.Context, fn RequestFunc) (any, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	queueCtx, cancel := context.WithTimeout(ctx, p.config.MaxQueueTime)
	defer cancel()

	task := p.pool.Submit(func() *requestResult {
		if err := p.acquireToken(queueCtx); err != nil {
			return &requestResult{err: err}
		}
		// the call itself runs under the caller's context, not the queue deadline
		value, err := fn(ctx)
		return &requestResult{value: value, err: err}
	})

	result, err := task.Wait()
	if err != nil {
		return nil, err
	}
	return result.value, result.err
}

// acquireToken blocks until a token is available or ctx ends
func (p *proxy) acquireToken(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p.distributed == nil || !p.redisAvailable.Load() {
			return p.local.Wait(ctx)
		}

		allowed, retryAfter, err := p.tryDistributed(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.redisAvailable.Store(false)
			logger.Warn("Redis rate limiter error, falling back to local", zap.Error(err))
		case allowed:
			return nil
		default:
			// 50-150% of retryAfter spreads replicas apart
			jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(jitter):
			}
		}
	}
}

func (p *proxy) tryDistributed(ctx context.Context) (bool, time.Duration, error) {
	if err := p.preFilter.Wait(ctx); err != nil {
		return false, 0, err
	}

	res, err := p.distributed.Allow(ctx, p.key, redis_rate.Limit{
		Rate:   p.config.RequestsPerSecond,
		Burst:  p.config.Burst,
		Period: time.Second,
	})
	if err != nil {
		return false, 0, err
	}
	if res.Allowed == 0 {
		retryAfter := res.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 50 * time.Millisecond
		}
		logger.Debug("Rate limit token unavailable, waiting",
			zap.String("key", p.key),
			zap.Duration("retry_after", retryAfter),
		)
		return false, retryAfter, nil
	}
	return true, 0, nil
}

func (p *proxy) monitorRedisHealth() {
	ticker := p.clock.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := p.redis.Ping(ctx)
		cancel()

		wasAvailable := p.redisAvailable.Swap(err == nil)
		if !wasAvailable && err == nil {
			logger.Info("Redis connection restored", zap.String("key", p.key))
		}
	}
}

func (p *proxy) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.done)

		if errTasks := p.pool.Stop().Wait(); errTasks != nil {
			logger.Warn("Error waiting for rate limited requests", zap.Error(errTasks))
			err = errTasks
		}

		if p.redis != nil {
			if closeErr := p.redis.Close(); closeErr != nil {
				logger.Warn("Error closing Redis connection", zap.Error(closeErr))
				err = closeErr
			}
		}
	})
	return err
}

// validateConfig validates cfg and fills in defaults
func validateConfig(cfg *config.RateLimiterConfig) error {
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
	if cfg.MaxQueueTime <= 0 {
		cfg.MaxQueueTime = 2 * time.Minute
	}
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "ff:asset-syncer:limiter:"
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU() * 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 10000
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}
	return nil
}
