package adapter

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisClient defines the Redis operations used by the RPC rate limiter
//
//go:generate mockgen -source=redis.go -destination=../mocks/redis.go -package=mocks -mock_names=RedisClient=MockRedisClient,RedisRateLimiter=MockRedisRateLimiter
type RedisClient interface {
	// Ping checks if Redis is reachable
	Ping(ctx context.Context) error

	// NewRateLimiter creates a GCRA rate limiter sharing this connection
	NewRateLimiter() RedisRateLimiter

	// Close closes the Redis connection
	Close() error
}

// RedisRateLimiter is a distributed limiter shared by every replica that talks to the same RPC provider
type RedisRateLimiter interface {
	// Allow checks if a request is allowed under the given limit
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

type realRedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) RedisClient {
	return &realRedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *realRedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *realRedisClient) NewRateLimiter() RedisRateLimiter {
	return redis_rate.NewLimiter(r.client)
}

func (r *realRedisClient) Close() error {
	return r.client.Close()
}
