package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
)

const subscriptionBufferSize = 1024

var errSubscriptionClosed = errors.New("log subscription closed by server")

// Subscribe keeps a log stream open until ctx is done. A dropped stream is
// reopened after the reconnect delay and resumes from the last block seen, so
// logs of that block may be delivered twice.
func (g *gateway) Subscribe(ctx context.Context, query ethereum.FilterQuery, handler LogHandler) error {
	var next uint64
	if query.FromBlock != nil {
		next = query.FromBlock.Uint64()
	} else {
		head, err := g.LatestBlock(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve subscription start block: %w", err)
		}
		next = head
	}

	for {
		resume, err := g.stream(ctx, query, next, handler)
		next = resume
		if ctx.Err() != nil {
			return nil
		}

		metrics.SubscriptionReconnects.Inc()
		logger.WarnCtx(ctx, "Log subscription interrupted, reconnecting",
			zap.Uint64("resume_block", next),
			zap.Duration("delay", g.config.ReconnectDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-g.clock.After(g.config.ReconnectDelay):
		}
	}
}

// stream runs one subscription session starting at from and returns the block
// to resume from when it ends.
func (g *gateway) stream(ctx context.Context, query ethereum.FilterQuery, from uint64, handler LogHandler) (uint64, error) {
	conn, err := g.acquire(ctx)
	if err != nil {
		return from, err
	}

	if g.config.ForcePolling || isHTTPEndpoint(conn.endpoint) || g.endpointPollOnly(conn.endpoint) {
		return g.poll(ctx, query, from, handler)
	}

	live := query
	live.FromBlock = nil
	live.ToBlock = nil
	ch := make(chan types.Log, subscriptionBufferSize)

	sub, err := conn.client.SubscribeFilterLogs(ctx, live, ch)
	if err != nil {
		if errors.Is(err, rpc.ErrNotificationsUnsupported) {
			logger.InfoCtx(ctx, "Endpoint has no subscriptions, falling back to polling",
				zap.String("endpoint", conn.endpoint))
			g.markPollOnly(conn.endpoint)
			return g.poll(ctx, query, from, handler)
		}
		if isTransportError(ctx, err) {
			g.Invalidate(conn.client)
		}
		return from, fmt.Errorf("failed to subscribe to logs: %w", err)
	}
	defer sub.Unsubscribe()

	// the stream is open before the back-fill so nothing mined in between is lost
	header, err := g.HeaderByNumber(ctx, nil)
	if err != nil {
		return from, fmt.Errorf("failed to read head for back-fill: %w", err)
	}
	head := header.Number.Uint64()

	next := from
	if next <= head {
		if err := g.backfill(ctx, query, next, head, handler); err != nil {
			return next, err
		}
		next = head + 1
	}

	logger.InfoCtx(ctx, "Log subscription established",
		zap.String("endpoint", conn.endpoint),
		zap.Uint64("from_block", from),
		zap.Uint64("live_from_block", next))

	for {
		select {
		case <-ctx.Done():
			return next, nil
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			if isTransportError(ctx, err) {
				g.Invalidate(conn.client)
			}
			return next, err
		case vLog := <-ch:
			if vLog.Removed {
				logger.WarnCtx(ctx, "Ignoring log removed by reorg",
					zap.String("tx_hash", vLog.TxHash.Hex()),
					zap.Uint64("block_number", vLog.BlockNumber))
				continue
			}
			if vLog.BlockNumber < next {
				// already delivered by the back-fill
				continue
			}
			handler(ctx, vLog)
			next = vLog.BlockNumber
			metrics.LastDeliveredBlock.Set(float64(vLog.BlockNumber))
		}
	}
}

// poll filters [next, head] on every tick of the poll interval
func (g *gateway) poll(ctx context.Context, query ethereum.FilterQuery, from uint64, handler LogHandler) (uint64, error) {
	ticker := g.clock.NewTicker(g.config.PollInterval)
	defer ticker.Stop()

	logger.InfoCtx(ctx, "Polling for logs", zap.Uint64("from_block", from), zap.Duration("interval", g.config.PollInterval))

	next := from
	for {
		head, err := g.LatestBlock(ctx)
		if err != nil {
			return next, err
		}
		if head >= next {
			if err := g.backfill(ctx, query, next, head, handler); err != nil {
				return next, err
			}
			next = head + 1
		}

		select {
		case <-ctx.Done():
			return next, nil
		case <-ticker.C:
		}
	}
}

func (g *gateway) backfill(ctx context.Context, query ethereum.FilterQuery, from, to uint64, handler LogHandler) error {
	q := query
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(to)

	logs, err := g.FilterLogs(ctx, q)
	if err != nil {
		return err
	}
	for _, vLog := range logs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if vLog.Removed {
			continue
		}
		handler(ctx, vLog)
	}
	metrics.LastDeliveredBlock.Set(float64(to))
	return nil
}

func isHTTPEndpoint(endpoint string) bool {
	e := strings.ToLower(endpoint)
	return strings.HasPrefix(e, "http://") || strings.HasPrefix(e, "https://")
}
