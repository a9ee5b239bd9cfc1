package sweeper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/keyqueue"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

const (
	DEFAULT_SYNC_INTERVAL = 5 * time.Minute // Time to sleep between sync cycles
)

// RevenueSyncConfig holds configuration for the revenue syncer
type RevenueSyncConfig struct {
	Interval       time.Duration // Time between cycles
	WorkerPoolSize int           // Concurrent assets per cycle
}

// revenueSyncer refreshes the cached revenue totals of every fractionalized asset
// from the token contracts, covering events the listener missed
type revenueSyncer struct {
	config    *RevenueSyncConfig
	client    ethereum.Client
	store     store.Store
	queue     keyqueue.Queue
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewRevenueSyncer creates a new revenue syncer
func NewRevenueSyncer(
	config *RevenueSyncConfig,
	client ethereum.Client,
	st store.Store,
	queue keyqueue.Queue,
	clock adapter.Clock,
) Sweeper {
	if config.Interval <= 0 {
		config.Interval = DEFAULT_SYNC_INTERVAL
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 1
	}
	return &revenueSyncer{
		config:    config,
		client:    client,
		store:     st,
		queue:     queue,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *revenueSyncer) Name() string {
	return "revenue-syncer"
}

// Start runs a sync cycle every interval until stopped
func (s *revenueSyncer) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting revenue syncer",
		zap.Duration("interval", s.config.Interval),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Revenue syncer stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Revenue syncer stop requested")
			return nil
		default:
			if err := s.runSyncCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			s.sleep(ctx, s.config.Interval)
		}
	}
}

// Stop signals the loop and waits for it to exit, respecting ctx
func (s *revenueSyncer) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	select {
	case <-s.stopChan:
	default:
		logger.InfoCtx(ctx, "Stopping revenue syncer")
		close(s.stopChan)
	}

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Revenue syncer stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Revenue syncer stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSyncCycle refreshes every fractionalized asset once
func (s *revenueSyncer) runSyncCycle(ctx context.Context) error {
	startTime := s.clock.Now()

	assets, err := s.store.ListFractionalizedAssets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list fractionalized assets: %w", err)
	}
	if len(assets) == 0 {
		logger.DebugCtx(ctx, "No fractionalized assets to sync")
		return nil
	}

	var updatedCount, failedCount atomic.Int32

	pool := pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(len(assets)),
		pond.WithContext(ctx),
	)
	for _, asset := range assets {
		pool.Submit(func() {
			updated, err := s.syncAsset(ctx, &asset)
			if err != nil {
				failedCount.Add(1)
				logger.WarnCtx(ctx, "Failed to sync revenue totals",
					zap.Uint64("asset_id", asset.ID),
					zap.Error(err),
				)
				return
			}
			if updated {
				updatedCount.Add(1)
			}
		})
	}
	pool.StopAndWait()

	logger.InfoCtx(ctx, "Revenue sync cycle completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int("total_checked", len(assets)),
		zap.Int32("updated", updatedCount.Load()),
		zap.Int32("failed", failedCount.Load()),
	)
	return ctx.Err()
}

// syncAsset reads the revenue totals and writes them when they differ from the cache.
// The read happens inside the asset's lane so a handler cannot land between read and write.
func (s *revenueSyncer) syncAsset(ctx context.Context, asset *schema.Asset) (bool, error) {
	updated := false
	err := s.queue.Do(ctx, domain.AssetKey(asset.TokenIDString()), func(ctx context.Context) error {
		current, err := s.store.GetAssetByID(ctx, asset.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		recorded, distributed, err := s.client.RevenueTotals(ctx, current.TokenAddressValue())
		if err != nil {
			return err
		}

		var input store.UpdateAssetInput
		if v, changed := changedAmount(current.TotalRevenueRecorded, recorded); changed {
			input.TotalRevenueRecorded = &v
		}
		if v, changed := changedAmount(current.TotalRevenueDistributed, distributed); changed {
			input.TotalRevenueDistributed = &v
		}
		if input.IsEmpty() {
			return nil
		}
		if err := s.store.UpdateAsset(ctx, current.ID, input); err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}

// changedAmount formats chain when it differs from the cached value
func changedAmount(cached string, chain *big.Int) (string, bool) {
	if chain == nil || domain.MustParseAmount(cached).Cmp(chain) == 0 {
		return "", false
	}
	return domain.FormatAmount(chain), true
}

// sleep sleeps for the given duration but can be interrupted by context cancellation
// Returns true if sleep completed normally, false if interrupted
func (s *revenueSyncer) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
