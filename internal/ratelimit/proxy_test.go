package ratelimit_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis_rate/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/config"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/mocks"
	"github.com/feral-file/ff-asset-syncer/internal/ratelimit"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type testProxyMocks struct {
	ctrl             *gomock.Controller
	redisClient      *mocks.MockRedisClient
	redisRateLimiter *mocks.MockRedisRateLimiter
	clock            *mocks.MockClock
}

func setupTestProxy(t *testing.T) *testProxyMocks {
	ctrl := gomock.NewController(t)
	return &testProxyMocks{
		ctrl:             ctrl,
		redisClient:      mocks.NewMockRedisClient(ctrl),
		redisRateLimiter: mocks.NewMockRedisRateLimiter(ctrl),
		clock:            mocks.NewMockClock(ctrl),
	}
}

func tearDownTestProxy(tm *testProxyMocks) {
	tm.ctrl.Finish()
}

func testConfig() config.RateLimiterConfig {
	return config.RateLimiterConfig{
		Enabled:                 true,
		RequestsPerSecond:       100,
		Burst:                   100,
		MaxQueueTime:            time.Second,
		MaxWorkers:              4,
		MaxQueueSize:            100,
		RedisKeyPrefix:          "test:limiter:",
		LocalFallbackMultiplier: 0.5,
	}
}

// newDistributedProxy builds a proxy over the redis mocks. The returned ticker never fires during a test.
func newDistributedProxy(t *testing.T, tm *testProxyMocks, pingErr error) ratelimit.Proxy {
	tm.redisClient.EXPECT().Ping(gomock.Any()).Return(pingErr)
	tm.redisClient.EXPECT().NewRateLimiter().Return(tm.redisRateLimiter)

	ticker := time.NewTicker(time.Hour)
	t.Cleanup(ticker.Stop)
	tm.clock.EXPECT().NewTicker(10 * time.Second).Return(ticker)

	p, err := ratelimit.NewProxy(testConfig(), "eip155:1", tm.redisClient, tm.clock)
	require.NoError(t, err)

	tm.redisClient.EXPECT().Close().Return(nil)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNewProxy_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerSecond = 0

	p, err := ratelimit.NewProxy(cfg, "eip155:1", nil, adapter.NewClock())

	assert.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "requests_per_second must be positive")
}

func TestProxy_LocalOnly(t *testing.T) {
	p, err := ratelimit.NewProxy(testConfig(), "eip155:1", nil, adapter.NewClock())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	ctx := context.Background()

	value, err := ratelimit.Request(ctx, p, func(ctx context.Context) (uint64, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), value)

	callErr := errors.New("execution reverted")
	_, err = ratelimit.Request(ctx, p, func(ctx context.Context) (uint64, error) {
		return 0, callErr
	})
	assert.ErrorIs(t, err, callErr)
}

func TestProxy_Request_NilProxyRunsDirectly(t *testing.T) {
	value, err := ratelimit.Request(context.Background(), nil, func(ctx context.Context) (string, error) {
		return "direct", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "direct", value)
}

func TestProxy_Request_AfterClose(t *testing.T) {
	p, err := ratelimit.NewProxy(testConfig(), "eip155:1", nil, adapter.NewClock())
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Request(context.Background(), func(ctx context.Context) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ratelimit.ErrClosed)
}

func TestProxy_Request_ContextCanceled(t *testing.T) {
	p, err := ratelimit.NewProxy(testConfig(), "eip155:1", nil, adapter.NewClock())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err = p.Request(ctx, func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestProxy_Distributed_Allowed(t *testing.T) {
	tm := setupTestProxy(t)
	defer tearDownTestProxy(tm)

	p := newDistributedProxy(t, tm, nil)

	tm.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), "test:limiter:eip155:1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, limit redis_rate.Limit) (*redis_rate.Result, error) {
			assert.Equal(t, 100, limit.Rate)
			assert.Equal(t, time.Second, limit.Period)
			return &redis_rate.Result{Allowed: 1, Remaining: 99}, nil
		})

	value, err := ratelimit.Request(context.Background(), p, func(ctx context.Context) (int, error) {
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, value)
}

func TestProxy_Distributed_RetriesAfterLimit(t *testing.T) {
	tm := setupTestProxy(t)
	defer tearDownTestProxy(tm)

	p := newDistributedProxy(t, tm, nil)

	gomock.InOrder(
		tm.redisRateLimiter.EXPECT().
			Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 0, RetryAfter: 20 * time.Millisecond}, nil),
		tm.redisRateLimiter.EXPECT().
			Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 1}, nil),
	)
	fired := make(chan time.Time, 1)
	fired <- time.Now()
	tm.clock.EXPECT().After(gomock.Any()).Return(fired)

	_, err := p.Request(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
}

func TestProxy_Distributed_FallsBackToLocalOnRedisError(t *testing.T) {
	tm := setupTestProxy(t)
	defer tearDownTestProxy(tm)

	p := newDistributedProxy(t, tm, nil)

	// after the first failure the local limiter serves every request
	tm.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset")).
		Times(1)

	for range 3 {
		_, err := p.Request(context.Background(), func(ctx context.Context) (any, error) {
			return nil, nil
		})
		assert.NoError(t, err)
	}
}

func TestProxy_Distributed_RedisDownAtStartup(t *testing.T) {
	tm := setupTestProxy(t)
	defer tearDownTestProxy(tm)

	p := newDistributedProxy(t, tm, errors.New("connection refused"))

	_, err := p.Request(context.Background(), func(ctx context.Context) (any, error) {
		return nil, nil
	})
	assert.NoError(t, err)
}

func TestProxy_Miniredis_Concurrent(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := adapter.NewRedisClient(mr.Addr(), "", 0)

	p, err := ratelimit.NewProxy(testConfig(), "eip155:11155111", rc, adapter.NewClock())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	var calls atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Request(context.Background(), func(ctx context.Context) (any, error) {
				calls.Add(1)
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), calls.Load())
}
