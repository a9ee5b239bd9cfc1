package holders

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/alitto/pond/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

const defaultConcurrency = 8

// Result summarizes one holder refresh
type Result struct {
	AssetID uint64
	// CreationBlock and ScannedToBlock bound the transfer scan of a full rebuild
	CreationBlock  uint64
	ScannedToBlock uint64
	// Checked is the number of addresses whose balance was read
	Checked int
	Upserted int
	Removed  int
	// Failed lists addresses whose balance could not be read; their rows were left as they were
	Failed      []string
	TotalSupply *big.Int
	TokensSold  *big.Int
}

// Rebuilder derives the holder set of a fractional token from chain history, since the
// token has no on-chain holder registry, and writes live balances to the cache.
//
//go:generate mockgen -source=rebuilder.go -destination=../mocks/holders.go -package=mocks -mock_names=Rebuilder=MockHolderRebuilder
type Rebuilder interface {
	// Rebuild scans every transfer since the token's creation and refreshes the balance of
	// every participant, the asset owner, the extra addresses and every cached holder
	Rebuild(ctx context.Context, asset *schema.Asset, extra ...string) (*Result, error)

	// RefreshAddresses refreshes the balances of addrs only, then recomputes tokens sold from the cache
	RefreshAddresses(ctx context.Context, asset *schema.Asset, addrs ...string) (*Result, error)
}

type rebuilder struct {
	client      ethereum.Client
	store       store.Store
	clock       adapter.Clock
	concurrency int
}

// NewRebuilder creates a Rebuilder reading balances with up to concurrency calls in flight
func NewRebuilder(client ethereum.Client, st store.Store, clock adapter.Clock, concurrency int) Rebuilder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &rebuilder{
		client:      client,
		store:       st,
		clock:       clock,
		concurrency: concurrency,
	}
}

func (r *rebuilder) Rebuild(ctx context.Context, asset *schema.Asset, extra ...string) (*Result, error) {
	if !asset.IsFractionalized() {
		return nil, fmt.Errorf("failed to rebuild holders of asset %d: %w", asset.ID, domain.ErrTokenNotFractionalized)
	}
	start := r.clock.Now()
	token := asset.TokenAddressValue()
	ctx = logger.WithFields(ctx, zap.Uint64("asset_id", asset.ID), zap.String("token", token))

	var knownBlock uint64
	if asset.TokenDeployBlock != nil {
		knownBlock = *asset.TokenDeployBlock
	}
	creation, err := r.client.FindCreationBlock(ctx, token, knownBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to find creation block: %w", err)
	}
	head, err := r.client.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read head: %w", err)
	}

	participants, err := r.client.TransferParticipants(ctx, token, creation, head)
	if err != nil {
		return nil, err
	}

	cached, err := r.store.ListTokenHolders(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	addresses := mapset.NewThreadUnsafeSet[string]()
	add := func(addr string) {
		if addr == "" || domain.IsZeroAddress(addr) {
			return
		}
		addresses.Add(domain.NormalizeAddress(addr))
	}
	for addr := range participants.Iter() {
		add(addr)
	}
	add(asset.OwnerAddress)
	for _, addr := range extra {
		add(addr)
	}
	for _, h := range cached {
		add(h.Address)
	}

	update := store.UpdateAssetInput{}
	if knownBlock == 0 {
		update.TokenDeployBlock = &creation
	}

	result, err := r.apply(ctx, asset, addresses, cached, update)
	if err != nil {
		return nil, err
	}
	result.CreationBlock = creation
	result.ScannedToBlock = head

	metrics.HolderRebuildDuration.Observe(r.clock.Since(start).Seconds())
	logger.InfoCtx(ctx, "Rebuilt token holders",
		zap.Uint64("from_block", creation),
		zap.Uint64("to_block", head),
		zap.Int("checked", result.Checked),
		zap.Int("upserted", result.Upserted),
		zap.Int("removed", result.Removed),
		zap.Int("failed", len(result.Failed)),
		zap.String("tokens_sold", result.TokensSold.String()))

	return result, nil
}

func (r *rebuilder) RefreshAddresses(ctx context.Context, asset *schema.Asset, addrs ...string) (*Result, error) {
	if !asset.IsFractionalized() {
		return nil, fmt.Errorf("failed to refresh holders of asset %d: %w", asset.ID, domain.ErrTokenNotFractionalized)
	}
	ctx = logger.WithFields(ctx, zap.Uint64("asset_id", asset.ID), zap.String("token", asset.TokenAddressValue()))

	addresses := mapset.NewThreadUnsafeSet[string]()
	for _, addr := range addrs {
		if addr != "" && !domain.IsZeroAddress(addr) {
			addresses.Add(domain.NormalizeAddress(addr))
		}
	}
	if addresses.IsEmpty() {
		return &Result{AssetID: asset.ID, TotalSupply: domain.MustParseAmount(asset.TotalTokenSupply), TokensSold: domain.MustParseAmount(asset.TokensSold)}, nil
	}

	cached, err := r.store.ListTokenHolders(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	result, err := r.apply(ctx, asset, addresses, cached, store.UpdateAssetInput{})
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Refreshed token holders",
		zap.Strings("addresses", addresses.ToSlice()),
		zap.String("tokens_sold", result.TokensSold.String()))
	return result, nil
}

// apply reads supply and the balances of addresses, then writes holder rows and asset totals
func (r *rebuilder) apply(ctx context.Context, asset *schema.Asset, addresses mapset.Set[string], cached []schema.TokenHolder, update store.UpdateAssetInput) (*Result, error) {
	token := asset.TokenAddressValue()

	supply, err := r.client.TotalSupply(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}

	addrs := addresses.ToSlice()
	sort.Strings(addrs)
	balances, failed, err := r.fetchBalances(ctx, token, addrs)
	if err != nil {
		return nil, err
	}

	owner := ""
	if asset.OwnerAddress != "" {
		owner = domain.NormalizeAddress(asset.OwnerAddress)
	}

	// failed addresses keep their cached balance in the totals
	final := make(map[string]*big.Int, len(cached)+len(balances))
	for _, h := range cached {
		final[domain.NormalizeAddress(h.Address)] = domain.MustParseAmount(h.Balance)
	}

	snapshot := store.HolderSnapshotInput{AssetID: asset.ID}
	for _, addr := range addrs {
		balance, ok := balances[addr]
		if !ok {
			continue
		}
		if balance.Sign() == 0 && addr != owner {
			snapshot.Deletes = append(snapshot.Deletes, addr)
			delete(final, addr)
			continue
		}
		final[addr] = balance
		snapshot.Upserts = append(snapshot.Upserts, schema.TokenHolder{
			AssetID:    asset.ID,
			Address:    addr,
			Balance:    domain.FormatAmount(balance),
			Percentage: domain.Percentage(balance, supply),
		})
	}

	sold := new(big.Int)
	for addr, balance := range final {
		if addr != owner {
			sold.Add(sold, balance)
		}
	}

	update.TotalTokenSupply = ptr(domain.FormatAmount(supply))
	update.TokensSold = ptr(domain.FormatAmount(sold))
	snapshot.Asset = update

	if err := r.store.SaveHolderSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save holders of asset %d: %w", asset.ID, err)
	}

	return &Result{
		AssetID:     asset.ID,
		Checked:     len(addrs),
		Upserted:    len(snapshot.Upserts),
		Removed:     len(snapshot.Deletes),
		Failed:      failed,
		TotalSupply: supply,
		TokensSold:  sold,
	}, nil
}

type balanceResult struct {
	address string
	balance *big.Int
	err     error
}

// fetchBalances reads balanceOf for every address on a bounded pool. A failed read is
// logged and reported in failed; only cancellation aborts.
func (r *rebuilder) fetchBalances(ctx context.Context, token string, addrs []string) (map[string]*big.Int, []string, error) {
	pool := pond.NewResultPool[balanceResult](r.concurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()

	waits := make([]func() (balanceResult, error), 0, len(addrs))
	for _, addr := range addrs {
		task := pool.Submit(func() balanceResult {
			balance, err := r.client.BalanceOf(ctx, token, addr)
			return balanceResult{address: addr, balance: balance, err: err}
		})
		waits = append(waits, task.Wait)
	}

	balances := make(map[string]*big.Int, len(addrs))
	var failed []string
	for _, wait := range waits {
		res, err := wait()
		if err != nil {
			return nil, nil, fmt.Errorf("balance fetch interrupted: %w", err)
		}
		if res.err != nil {
			logger.WarnCtx(ctx, "Failed to read holder balance, keeping cached value",
				zap.String("address", res.address),
				zap.Error(res.err))
			failed = append(failed, res.address)
			continue
		}
		if res.balance == nil {
			res.balance = new(big.Int)
		}
		balances[res.address] = res.balance
	}

	return balances, failed, nil
}

func ptr[T any](v T) *T {
	return &v
}
