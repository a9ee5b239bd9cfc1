package listener

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/gateway"
	"github.com/feral-file/ff-asset-syncer/internal/handlers"
	"github.com/feral-file/ff-asset-syncer/internal/keyqueue"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/store"
)

const (
	tokenKeyCacheSize = 4096
	cursorRetries     = 3

	dispatchRetryInterval       = 500 * time.Millisecond
	defaultDispatchRetryTimeout = 2 * time.Minute
)

// Config holds the configuration for the event listener
type Config struct {
	ChainID              domain.Chain
	AssetContract        string
	FactoryContract      string
	// StartBlock overrides both the persisted cursor and the block passed to Run
	StartBlock           uint64
	CursorSaveFreq       uint64        // Save cursor every N blocks
	CursorSaveDelay      time.Duration // Or save cursor every N seconds
	DispatchRetryTimeout time.Duration // Bound on backoff retries of a transiently failing event
}

// Listener subscribes to the registry, factory and every watched token and
// feeds decoded events to the dispatcher through the per-asset queue.
//
//go:generate mockgen -source=listener.go -destination=../mocks/listener.go -package=mocks -mock_names=Listener=MockListener
type Listener interface {
	// Run streams events from fromBlock (the head when zero) until ctx is done.
	// A persisted cursor takes precedence when it is lower.
	Run(ctx context.Context, fromBlock uint64) error
}

type listener struct {
	config     Config
	gateway    gateway.Gateway
	client     ethereum.Client
	store      store.Store
	queue      keyqueue.Queue
	dispatcher handlers.Dispatcher
	watchlist  *Watchlist
	clock      adapter.Clock

	// tokenKeys maps a token address to the serialization key of its asset
	tokenKeys *lru.Cache[string, string]

	mu             sync.Mutex
	lastBlock      uint64
	lastSavedBlock uint64
	lastSaveTime   time.Time
	inflight       map[uint64]int // queued or running events per block
	failedBlock    uint64         // lowest block with an event that exhausted its retries

	replay chan struct{}
}

// New creates a Listener
func New(
	cfg Config,
	gw gateway.Gateway,
	client ethereum.Client,
	st store.Store,
	queue keyqueue.Queue,
	dispatcher handlers.Dispatcher,
	watchlist *Watchlist,
	clock adapter.Clock,
) (Listener, error) {
	tokenKeys, err := lru.New[string, string](tokenKeyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token key cache: %w", err)
	}
	if cfg.DispatchRetryTimeout <= 0 {
		cfg.DispatchRetryTimeout = defaultDispatchRetryTimeout
	}
	return &listener{
		config:     cfg,
		gateway:    gw,
		client:     client,
		store:      st,
		queue:      queue,
		dispatcher: dispatcher,
		watchlist:  watchlist,
		clock:      clock,
		tokenKeys:  tokenKeys,
		inflight:   make(map[uint64]int),
		replay:     make(chan struct{}, 1),
	}, nil
}

func (l *listener) Run(ctx context.Context, fromBlock uint64) error {
	start, err := l.startBlock(ctx, fromBlock)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.lastSaveTime = l.clock.Now()
	// a failure from an earlier run is replayed from the persisted cursor
	l.failedBlock = 0
	l.mu.Unlock()

	for {
		query := l.query(start)
		logger.InfoCtx(ctx, "Starting event subscription",
			zap.String("chain", string(l.config.ChainID)),
			zap.Int("addresses", len(query.Addresses)),
			zap.Uint64p("from_block", blockOf(query.FromBlock)))

		sessionCtx, cancel := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func() {
			errCh <- l.gateway.Subscribe(sessionCtx, query, l.handleLog)
		}()

		select {
		case <-ctx.Done():
			cancel()
			<-errCh
			l.stop(ctx)
			return nil

		case err := <-errCh:
			cancel()
			if ctx.Err() != nil {
				l.stop(ctx)
				return nil
			}
			if err != nil {
				return fmt.Errorf("event subscription failed: %w", err)
			}

		case <-l.watchlist.Changed():
			cancel()
			<-errCh
			// resume at the last delivered block so nothing mined meanwhile is missed
			if last := l.lastDelivered(); last > 0 {
				start = last
			}
			logger.InfoCtx(ctx, "Watchlist changed, restarting subscription", zap.Uint64("from_block", start))

		case <-l.replay:
			cancel()
			<-errCh
			l.mu.Lock()
			if l.failedBlock > 0 {
				start = l.failedBlock
			}
			l.failedBlock = 0
			l.mu.Unlock()
			logger.WarnCtx(ctx, "Replaying events from failed block", zap.Uint64("from_block", start))
		}
	}
}

func (l *listener) stop(ctx context.Context) {
	l.flushCursor(context.WithoutCancel(ctx))
	logger.InfoCtx(ctx, "Event listener stopped")
}

// startBlock picks the first block to stream: the configured override, else the
// lower of the persisted cursor and fromBlock, else the head (zero).
func (l *listener) startBlock(ctx context.Context, fromBlock uint64) (uint64, error) {
	if l.config.StartBlock > 0 {
		logger.InfoCtx(ctx, "Starting from configured block", zap.Uint64("block", l.config.StartBlock))
		return l.config.StartBlock, nil
	}

	cursor, err := l.store.GetBlockCursor(ctx, string(l.config.ChainID))
	if err != nil {
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}
	if cursor > 0 && (fromBlock == 0 || cursor+1 < fromBlock) {
		logger.InfoCtx(ctx, "Resuming from last processed block", zap.Uint64("block", cursor+1))
		return cursor + 1, nil
	}
	if fromBlock > 0 {
		logger.InfoCtx(ctx, "Starting from recovery barrier", zap.Uint64("block", fromBlock))
	}
	return fromBlock, nil
}

func (l *listener) query(start uint64) goethereum.FilterQuery {
	addresses := []common.Address{common.HexToAddress(l.config.AssetContract)}
	if l.config.FactoryContract != "" {
		addresses = append(addresses, common.HexToAddress(l.config.FactoryContract))
	}
	for _, token := range l.watchlist.Tokens() {
		addresses = append(addresses, common.HexToAddress(token))
	}

	query := goethereum.FilterQuery{
		Addresses: addresses,
		Topics:    [][]common.Hash{ethereum.EventTopics()},
	}
	if start > 0 {
		query.FromBlock = new(big.Int).SetUint64(start)
	}
	return query
}

func (l *listener) handleLog(ctx context.Context, vLog types.Log) {
	l.mu.Lock()
	if vLog.BlockNumber > l.lastBlock {
		l.lastBlock = vLog.BlockNumber
	}
	l.mu.Unlock()
	metrics.LastDeliveredBlock.Set(float64(vLog.BlockNumber))

	event, err := l.client.ParseEventLog(ctx, vLog)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEvent) {
			logger.DebugCtx(ctx, "Skipping unknown log", zap.Error(err))
		} else {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to parse log: %w", err),
				zap.String("tx_hash", vLog.TxHash.Hex()),
				zap.Uint("log_index", vLog.Index))
		}
	} else if event != nil {
		key := l.aggregateKey(ctx, event)
		block := vLog.BlockNumber
		l.track(block)
		l.queue.Submit(key, func(ctx context.Context) error {
			err := l.dispatch(ctx, event)
			l.finish(block, err)
			return err
		})
	}

	// every block below this one was delivered in full; pending events cap the cursor further
	if vLog.BlockNumber > 0 {
		l.maybeSaveCursor(ctx, vLog.BlockNumber-1)
	}
}

// dispatch applies event, retrying transient failures with backoff
func (l *listener) dispatch(ctx context.Context, event *domain.ChainEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = dispatchRetryInterval
	b.MaxElapsedTime = l.config.DispatchRetryTimeout

	operation := func() error {
		err := l.dispatcher.Dispatch(ctx, event)
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Event dispatch failed, retrying",
			zap.String("event_id", event.ID()),
			zap.Error(err),
			zap.Duration("next_retry_in", next))
	}
	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}

func (l *listener) track(block uint64) {
	l.mu.Lock()
	l.inflight[block]++
	l.mu.Unlock()
}

// finish releases block. An event that still fails transiently, or was cut short by
// shutdown, pins the cursor below its block and schedules a replay.
func (l *listener) finish(block uint64, err error) {
	hold := err != nil &&
		(domain.IsRetryable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))

	l.mu.Lock()
	if n := l.inflight[block]; n > 1 {
		l.inflight[block] = n - 1
	} else {
		delete(l.inflight, block)
	}
	if hold && (l.failedBlock == 0 || block < l.failedBlock) {
		l.failedBlock = block
	}
	l.mu.Unlock()

	if hold {
		metrics.EventsHeld.Inc()
		select {
		case l.replay <- struct{}{}:
		default:
		}
	}
}

// cursorCeiling caps block below every event still queued, running or failed.
// Callers hold mu.
func (l *listener) cursorCeiling(block uint64) uint64 {
	for b := range l.inflight {
		if b > 0 && b-1 < block {
			block = b - 1
		}
	}
	if l.failedBlock > 0 && l.failedBlock-1 < block {
		block = l.failedBlock - 1
	}
	return block
}

// aggregateKey returns the serialization key of the asset an event belongs to
func (l *listener) aggregateKey(ctx context.Context, event *domain.ChainEvent) string {
	if event.AssetTokenID != nil {
		return domain.AssetKey(event.AssetTokenID.String())
	}
	if event.TokenAddress == "" {
		return "tx:" + strings.ToLower(event.TxHash)
	}

	token := strings.ToLower(event.TokenAddress)
	if key, ok := l.tokenKeys.Get(token); ok {
		return key
	}
	asset, err := l.store.GetAssetByTokenAddress(ctx, event.TokenAddress)
	if err != nil || asset == nil || asset.TokenID == nil {
		// not cached yet; the handler reports it
		return "token:" + token
	}
	key := domain.AssetKey(asset.TokenIDString())
	l.tokenKeys.Add(token, key)
	return key
}

func (l *listener) lastDelivered() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastBlock
}

// maybeSaveCursor persists block every CursorSaveFreq blocks or CursorSaveDelay
func (l *listener) maybeSaveCursor(ctx context.Context, block uint64) {
	l.mu.Lock()
	block = l.cursorCeiling(block)
	shouldSave := block > l.lastSavedBlock &&
		(block-l.lastSavedBlock >= l.config.CursorSaveFreq || l.clock.Since(l.lastSaveTime) >= l.config.CursorSaveDelay)
	l.mu.Unlock()
	if !shouldSave {
		return
	}
	l.saveCursor(ctx, block)
}

func (l *listener) flushCursor(ctx context.Context) {
	last := l.lastDelivered()
	if last <= 1 {
		return
	}
	l.mu.Lock()
	saved := l.lastSavedBlock
	// the last block may still have logs in flight, so stop one short of it
	target := l.cursorCeiling(last - 1)
	l.mu.Unlock()
	if target > saved {
		l.saveCursor(ctx, target)
	}
}

func (l *listener) saveCursor(ctx context.Context, block uint64) {
	operation := func() error {
		return l.store.SetBlockCursor(ctx, string(l.config.ChainID), block)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cursorRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to save block cursor: %w", err), zap.Uint64("block", block))
		return
	}

	l.mu.Lock()
	l.lastSavedBlock = block
	l.lastSaveTime = l.clock.Now()
	l.mu.Unlock()
	logger.DebugCtx(ctx, "Saved block cursor", zap.Uint64("block", block))
}

func blockOf(n *big.Int) *uint64 {
	if n == nil {
		return nil
	}
	v := n.Uint64()
	return &v
}
