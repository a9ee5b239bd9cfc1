package recovery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/handlers"
	"github.com/feral-file/ff-asset-syncer/internal/holders"
	"github.com/feral-file/ff-asset-syncer/internal/keyqueue"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

type outcome string

const (
	outcomeCreated outcome = "created"
	outcomeResumed outcome = "resumed"
	outcomeSkipped outcome = "skipped"
	outcomeFailed  outcome = "failed"
)

// Config holds the configuration for cold-start recovery
type Config struct {
	// ItemDelay is waited between assets to stay under the RPC rate limit
	ItemDelay time.Duration
}

// Result summarizes one recovery run
type Result struct {
	RunID       string
	TotalAssets uint64
	Created     int
	// Resumed counts cached fractionalized assets whose holders were never rebuilt
	Resumed int
	Skipped int
	Failed  int
	// FailedTokenIDs lists the assets that could not be recovered
	FailedTokenIDs []string
	// FinishedAtBlock is the head recorded before the scan; the listener starts there
	FinishedAtBlock uint64
}

// Recovery rebuilds the cache from the asset registry when the process starts
//
//go:generate mockgen -source=recovery.go -destination=../mocks/recovery.go -package=mocks -mock_names=Recovery=MockRecovery
type Recovery interface {
	// Run walks every registry asset and caches the missing ones
	Run(ctx context.Context) (*Result, error)
}

type recovery struct {
	config    Config
	client    ethereum.Client
	store     store.Store
	rebuilder holders.Rebuilder
	watcher   handlers.TokenWatcher
	queue     keyqueue.Queue
	clock     adapter.Clock
}

// New creates a Recovery
func New(
	cfg Config,
	client ethereum.Client,
	st store.Store,
	rebuilder holders.Rebuilder,
	watcher handlers.TokenWatcher,
	queue keyqueue.Queue,
	clock adapter.Clock,
) Recovery {
	return &recovery{
		config:    cfg,
		client:    client,
		store:     st,
		rebuilder: rebuilder,
		watcher:   watcher,
		queue:     queue,
		clock:     clock,
	}
}

func (r *recovery) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: ulid.Make().String()}
	ctx = logger.WithFields(ctx, zap.String("run_id", result.RunID))

	head, err := r.client.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record recovery barrier: %w", err)
	}
	result.FinishedAtBlock = head

	count, err := r.client.TotalAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset count: %w", err)
	}
	result.TotalAssets = count
	start := r.clock.Now()
	logger.InfoCtx(ctx, "Starting cold-start recovery",
		zap.Uint64("assets", count),
		zap.Uint64("barrier_block", head))

	for id := uint64(1); id <= count; id++ {
		tokenID := new(big.Int).SetUint64(id)

		var out outcome
		err := r.queue.Do(ctx, domain.AssetKey(tokenID.String()), func(ctx context.Context) error {
			var err error
			out, err = r.recoverAsset(ctx, tokenID)
			return err
		})
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err != nil {
			out = outcomeFailed
			result.FailedTokenIDs = append(result.FailedTokenIDs, tokenID.String())
			logger.ErrorCtx(ctx, fmt.Errorf("failed to recover asset %s: %w", tokenID, err))
		}
		metrics.RecoveryItems.WithLabelValues(string(out)).Inc()

		switch out {
		case outcomeCreated:
			result.Created++
		case outcomeResumed:
			result.Resumed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}

		if id < count && r.config.ItemDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-r.clock.After(r.config.ItemDelay):
			}
		}
	}

	logger.InfoCtx(ctx, "Cold-start recovery finished",
		zap.Int("created", result.Created),
		zap.Int("resumed", result.Resumed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", r.clock.Since(start)))
	return result, nil
}

// recoverAsset caches one registry asset. It runs on the asset's queue lane.
func (r *recovery) recoverAsset(ctx context.Context, tokenID *big.Int) (outcome, error) {
	existing, err := r.store.GetAssetByTokenID(ctx, tokenID)
	if err != nil {
		return outcomeFailed, err
	}
	if existing != nil {
		if !existing.IsFractionalized() {
			return outcomeSkipped, nil
		}
		r.watcher.Watch(ctx, existing.TokenAddressValue())
		// a deploy block is only recorded by a completed rebuild
		if existing.TokenDeployBlock != nil {
			return outcomeSkipped, nil
		}
		if err := r.activate(ctx, existing); err != nil {
			return outcomeFailed, err
		}
		return outcomeResumed, nil
	}

	onChain, err := r.client.GetAsset(ctx, tokenID)
	if err != nil {
		return outcomeFailed, err
	}
	row := handlers.AssetFromChain(onChain)
	created, err := r.store.CreateAsset(ctx, row)
	if err != nil {
		return outcomeFailed, err
	}
	if !created {
		return outcomeSkipped, nil
	}
	logger.InfoCtx(ctx, "Recovered asset",
		zap.String("token_id", tokenID.String()),
		zap.Uint64("asset_id", row.ID),
		zap.Bool("fractionalized", row.IsFractionalized()))

	if row.IsFractionalized() {
		r.watcher.Watch(ctx, row.TokenAddressValue())
		if err := r.activate(ctx, row); err != nil {
			return outcomeFailed, err
		}
	}
	return outcomeCreated, nil
}

// activate loads token state and rebuilds the holders of a fractionalized asset
func (r *recovery) activate(ctx context.Context, asset *schema.Asset) error {
	info, err := r.client.TokenInfo(ctx, asset.TokenAddressValue())
	if err != nil {
		return err
	}
	update := handlers.TokenInfoUpdate(info)
	if err := r.store.UpdateAsset(ctx, asset.ID, update); err != nil {
		return err
	}
	update.ApplyTo(asset)

	_, err = r.rebuilder.Rebuild(ctx, asset)
	return err
}
