package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/block"
	"github.com/feral-file/ff-asset-syncer/internal/config"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
	"github.com/feral-file/ff-asset-syncer/internal/ratelimit"
)

// LogHandler receives every log delivered by a subscription, in block order
type LogHandler func(ctx context.Context, log types.Log)

// Gateway owns the connection to the chain. It fails over across the configured
// endpoints and hides pagination, reconnects and push/poll differences from callers.
//
//go:generate mockgen -source=gateway.go -destination=../mocks/gateway.go -package=mocks -mock_names=Gateway=MockGateway
type Gateway interface {
	// Connection returns a live client, acquiring a new one when needed
	Connection(ctx context.Context) (adapter.EthClient, error)

	// Invalidate drops client if it is still the cached one
	Invalidate(client adapter.EthClient)

	// CallContract executes a read-only contract call
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// HeaderByNumber returns a block header, nil for the latest
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)

	// CodeAt returns the code deployed at account
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)

	// LatestBlock returns the chain head, briefly cached
	LatestBlock(ctx context.Context) (uint64, error)

	// FilterLogs returns the logs matching query, paging through the range
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// Subscribe delivers logs matching query from query.FromBlock (the head when nil)
	// onwards until ctx is done
	Subscribe(ctx context.Context, query ethereum.FilterQuery, handler LogHandler) error

	// Close closes the cached connection
	Close()
}

type connection struct {
	client   adapter.EthClient
	endpoint string
	probedAt time.Time
}

type gateway struct {
	endpoints []string
	config    config.GatewayConfig
	dialer    adapter.EthClientDialer
	clock     adapter.Clock
	limiter   ratelimit.Proxy
	head      block.HeadProvider

	mu       sync.Mutex
	current  *connection
	pollOnly map[string]bool
}

// New creates a Gateway over endpoints. limiter may be nil.
func New(endpoints []string, cfg config.GatewayConfig, dialer adapter.EthClientDialer, clock adapter.Clock, limiter ratelimit.Proxy) (Gateway, error) {
	if len(endpoints) == 0 {
		return nil, domain.ErrNoEndpoints
	}
	if cfg.LogRangeLimit == 0 {
		cfg.LogRangeLimit = 2000
	}
	if cfg.MinLogRange == 0 || cfg.MinLogRange > cfg.LogRangeLimit {
		cfg.MinLogRange = 1
	}

	g := &gateway{
		endpoints: endpoints,
		config:    cfg,
		dialer:    dialer,
		clock:     clock,
		limiter:   limiter,
		pollOnly:  make(map[string]bool),
	}
	g.head = block.NewHeadProvider(block.FetcherFunc(g.fetchHead), block.Config{
		TTL:         cfg.BlockHeadTTL,
		StaleWindow: 5 * cfg.BlockHeadTTL,
	}, clock)

	return g, nil
}

func (g *gateway) Connection(ctx context.Context) (adapter.EthClient, error) {
	conn, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.client, nil
}

// acquire returns the cached connection when it is fresh or still answers a probe,
// otherwise walks the endpoints in order with exponential backoff between rounds.
func (g *gateway) acquire(ctx context.Context) (*connection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c := g.current; c != nil {
		if g.clock.Since(c.probedAt) < g.config.ProbeInterval {
			return c, nil
		}
		err := g.probe(ctx, c.client)
		if err == nil {
			c.probedAt = g.clock.Now()
			return c, nil
		}
		logger.WarnCtx(ctx, "Cached chain connection failed liveness probe",
			zap.String("endpoint", c.endpoint), zap.Error(err))
		c.client.Close()
		g.current = nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.config.InitialBackoff
	bo.MaxInterval = g.config.MaxBackoff
	bo.MaxElapsedTime = 0

	var (
		attempts int
		lastErr  error
		acquired *connection
	)
	operation := func() error {
		attempts++
		for _, endpoint := range g.endpoints {
			client, err := g.dial(ctx, endpoint)
			if err != nil {
				lastErr = err
				logger.DebugCtx(ctx, "Chain endpoint unavailable", zap.String("endpoint", endpoint), zap.Error(err))
				continue
			}
			acquired = &connection{client: client, endpoint: endpoint, probedAt: g.clock.Now()}
			return nil
		}
		return lastErr
	}
	notify := func(err error, d time.Duration) {
		logger.WarnCtx(ctx, "No chain endpoint reachable, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("retry_in", d),
			zap.Error(err))
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(max(g.config.MaxRetries, 0))), ctx), notify)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.GatewayConnectionErrors.Inc()
		return nil, &domain.ConnectionError{Endpoints: g.endpoints, Attempts: attempts, Err: lastErr}
	}

	metrics.GatewayFailovers.WithLabelValues(acquired.endpoint).Inc()
	logger.InfoCtx(ctx, "Acquired chain connection", zap.String("endpoint", acquired.endpoint))
	g.current = acquired
	return acquired, nil
}

// dial connects to endpoint and checks it answers eth_blockNumber within the probe timeout
func (g *gateway) dial(ctx context.Context, endpoint string) (adapter.EthClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, g.config.ProbeTimeout)
	defer cancel()

	client, err := g.dialer.Dial(dialCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	if _, err := client.HeaderByNumber(dialCtx, nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("liveness probe of %s failed: %w", endpoint, err)
	}
	return client, nil
}

func (g *gateway) probe(ctx context.Context, client adapter.EthClient) error {
	probeCtx, cancel := context.WithTimeout(ctx, g.config.ProbeTimeout)
	defer cancel()
	_, err := client.HeaderByNumber(probeCtx, nil)
	return err
}

func (g *gateway) Invalidate(client adapter.EthClient) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current != nil && g.current.client == client {
		logger.Warn("Discarding chain connection", zap.String("endpoint", g.current.endpoint))
		g.current.client.Close()
		g.current = nil
		g.head.Reset()
	}
}

func (g *gateway) endpointPollOnly(endpoint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pollOnly[endpoint]
}

func (g *gateway) markPollOnly(endpoint string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollOnly[endpoint] = true
}

func (g *gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current != nil {
		g.current.client.Close()
		g.current = nil
	}
}

// call runs fn against the cached connection through the rate limiter. A transport
// failure discards the connection and fn is retried once on a fresh one.
func call[T any](ctx context.Context, g *gateway, fn func(ctx context.Context, client adapter.EthClient) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		client, err := g.Connection(ctx)
		if err != nil {
			return zero, err
		}

		result, err := ratelimit.Request(ctx, g.limiter, func(ctx context.Context) (T, error) {
			return fn(ctx, client)
		})
		if err == nil {
			return result, nil
		}
		if !isTransportError(ctx, err) {
			return zero, err
		}

		g.Invalidate(client)
		if attempt > 0 {
			return zero, err
		}
	}
}

func (g *gateway) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, g, func(ctx context.Context, client adapter.EthClient) ([]byte, error) {
		return client.CallContract(ctx, msg, blockNumber)
	})
}

func (g *gateway) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return call(ctx, g, func(ctx context.Context, client adapter.EthClient) (*types.Header, error) {
		return client.HeaderByNumber(ctx, number)
	})
}

func (g *gateway) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, g, func(ctx context.Context, client adapter.EthClient) ([]byte, error) {
		return client.CodeAt(ctx, account, blockNumber)
	})
}

func (g *gateway) LatestBlock(ctx context.Context) (uint64, error) {
	return g.head.LatestBlock(ctx)
}

func (g *gateway) fetchHead(ctx context.Context) (uint64, error) {
	header, err := g.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

func (g *gateway) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if query.FromBlock == nil {
		return nil, fmt.Errorf("filter query requires a from block")
	}
	from := query.FromBlock.Uint64()

	var to uint64
	if query.ToBlock != nil {
		to = query.ToBlock.Uint64()
	} else {
		head, err := g.LatestBlock(ctx)
		if err != nil {
			return nil, err
		}
		to = head
	}

	step := g.config.LogRangeLimit
	var all []types.Log
	for start := from; start <= to; {
		end := min(start+step-1, to)

		chunk := query
		chunk.FromBlock = new(big.Int).SetUint64(start)
		chunk.ToBlock = new(big.Int).SetUint64(end)

		logs, err := call(ctx, g, func(ctx context.Context, client adapter.EthClient) ([]types.Log, error) {
			return client.FilterLogs(ctx, chunk)
		})
		if err == nil {
			all = append(all, logs...)
			start = end + 1
			continue
		}

		if !isRangeLimitError(err) {
			return nil, fmt.Errorf("failed to filter logs in blocks %d-%d: %w", start, end, err)
		}
		if step <= g.config.MinLogRange {
			return nil, &domain.RangeLimitError{FromBlock: start, ToBlock: end, Err: err}
		}

		next := max(step/2, g.config.MinLogRange)
		logger.WarnCtx(ctx, "Log range rejected, reducing step size",
			zap.Uint64("old_step", step),
			zap.Uint64("new_step", next),
			zap.Uint64("from_block", start),
			zap.Uint64("to_block", end))
		step = next
	}

	return all, nil
}

// isRangeLimitError reports whether the node rejected a log query for its size
func isRangeLimitError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "query returned more than") ||
		strings.Contains(msg, "query timeout exceeded") ||
		strings.Contains(msg, "too many results") ||
		strings.Contains(msg, "exceeded maximum") ||
		strings.Contains(msg, "block range") ||
		strings.Contains(msg, "range is too large")
}

// isTransportError reports whether err came from the connection rather than the node's
// answer. JSON-RPC errors (reverts, bad params, range limits) leave the connection usable.
func isTransportError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ethereum.NotFound) || errors.Is(err, ratelimit.ErrClosed) {
		return false
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		// 4xx other than rate limiting means a bad request, not a dead endpoint
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	return true
}
