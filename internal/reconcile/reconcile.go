package reconcile

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/keyqueue"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

const defaultConcurrency = 4

// Severity ranks a validation issue
type Severity string

const (
	// SeverityCritical marks a cached supply that cannot be right
	SeverityCritical Severity = "critical"
	// SeverityHigh marks a supply or sold mismatch beyond tolerance
	SeverityHigh Severity = "high"
	// SeverityMedium marks an asset whose chain state could not be read
	SeverityMedium Severity = "medium"
)

// Field names used in issues, changes and metrics
const (
	FieldTotalTokenSupply        = "totalTokenSupply"
	FieldTokensSold              = "tokensSold"
	FieldTotalRevenueRecorded    = "totalRevenueRecorded"
	FieldTotalRevenueDistributed = "totalRevenueDistributed"
	FieldChainState              = "chainState"
)

// Config holds the validation thresholds, in whole tokens
type Config struct {
	Tolerance      decimal.Decimal
	NearZeroSupply decimal.Decimal
	// Concurrency bounds the assets read from the chain at once
	Concurrency int
}

// Issue is one divergence between the cache and the chain
type Issue struct {
	AssetID   uint64
	AssetName string
	TokenID   string
	Field     string
	Issue     string
	Severity  Severity
}

// ValidationReport is the outcome of Validate
type ValidationReport struct {
	RunID       string
	TotalAssets int
	Issues      []Issue
}

// IssuesFound returns the number of issues in the report
func (r *ValidationReport) IssuesFound() int {
	return len(r.Issues)
}

// CountBySeverity counts the issues of one severity
func (r *ValidationReport) CountBySeverity(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

// Change is one overwritten cache field
type Change struct {
	Field  string
	Before string
	After  string
}

// String renders the change as "field: before -> after"
func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, c.Before, c.After)
}

// AssetRepair lists the changes written for one asset
type AssetRepair struct {
	AssetID   uint64
	AssetName string
	TokenID   string
	Changes   []Change
}

// RepairReport is the outcome of Repair
type RepairReport struct {
	RunID        string
	TotalChecked int
	Repaired     []AssetRepair
	// Failed counts assets whose chain state could not be read or written
	Failed int
}

// TotalRepaired returns the number of assets with at least one change
func (r *RepairReport) TotalRepaired() int {
	return len(r.Repaired)
}

// Engine compares cached fractionalized assets with the chain
//
//go:generate mockgen -source=reconcile.go -destination=../mocks/reconcile.go -package=mocks -mock_names=Engine=MockReconcileEngine
type Engine interface {
	// Validate reports divergence without writing to the cache
	Validate(ctx context.Context) (*ValidationReport, error)

	// Repair overwrites every cached field that differs from the chain
	Repair(ctx context.Context) (*RepairReport, error)
}

type engine struct {
	config Config
	client ethereum.Client
	store  store.Store
	queue  keyqueue.Queue
}

// New creates an Engine. Repairs of one asset are serialized with its event handlers through queue.
func New(cfg Config, client ethereum.Client, st store.Store, queue keyqueue.Queue) Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &engine{
		config: cfg,
		client: client,
		store:  st,
		queue:  queue,
	}
}

// chainTruth is the chain state of one fractional token, in the smallest unit
type chainTruth struct {
	supply       *big.Int
	ownerBalance *big.Int
	sold         *big.Int
	recorded     *big.Int
	distributed  *big.Int
}

// fetchTruth reads supply and owner balance, plus revenue totals when withRevenue is set
func (e *engine) fetchTruth(ctx context.Context, asset *schema.Asset, withRevenue bool) (*chainTruth, error) {
	token := asset.TokenAddressValue()
	truth := &chainTruth{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		supply, err := e.client.TotalSupply(gCtx, token)
		if err != nil {
			return fmt.Errorf("failed to read total supply: %w", err)
		}
		truth.supply = supply
		return nil
	})
	g.Go(func() error {
		balance, err := e.client.BalanceOf(gCtx, token, asset.OwnerAddress)
		if err != nil {
			return fmt.Errorf("failed to read owner balance: %w", err)
		}
		truth.ownerBalance = balance
		return nil
	})
	if withRevenue {
		g.Go(func() error {
			recorded, distributed, err := e.client.RevenueTotals(gCtx, token)
			if err != nil {
				return fmt.Errorf("failed to read revenue totals: %w", err)
			}
			truth.recorded = recorded
			truth.distributed = distributed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if truth.supply == nil {
		truth.supply = new(big.Int)
	}
	if truth.ownerBalance == nil {
		truth.ownerBalance = new(big.Int)
	}
	truth.sold = new(big.Int).Sub(truth.supply, truth.ownerBalance)
	if truth.sold.Sign() < 0 {
		truth.sold.SetInt64(0)
	}
	return truth, nil
}

type truthResult struct {
	asset schema.Asset
	truth *chainTruth
	err   error
}

// collect reads chain truth for every asset on a bounded pool, in asset order
func (e *engine) collect(ctx context.Context, assets []schema.Asset) ([]truthResult, error) {
	pool := pond.NewResultPool[truthResult](e.config.Concurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()

	waits := make([]func() (truthResult, error), 0, len(assets))
	for _, asset := range assets {
		task := pool.Submit(func() truthResult {
			truth, err := e.fetchTruth(ctx, &asset, false)
			return truthResult{asset: asset, truth: truth, err: err}
		})
		waits = append(waits, task.Wait)
	}

	results := make([]truthResult, 0, len(assets))
	for _, wait := range waits {
		res, err := wait()
		if err != nil {
			return nil, fmt.Errorf("chain reads interrupted: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Validate diffs every cached fractionalized asset against the chain
func (e *engine) Validate(ctx context.Context) (*ValidationReport, error) {
	report := &ValidationReport{RunID: ulid.Make().String()}
	ctx = logger.WithFields(ctx, zap.String("run_id", report.RunID))

	assets, err := e.store.ListFractionalizedAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fractionalized assets: %w", err)
	}
	report.TotalAssets = len(assets)

	results, err := e.collect(ctx, assets)
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		if res.err != nil {
			logger.WarnCtx(ctx, "Failed to fetch chain state for validation",
				zap.Uint64("asset_id", res.asset.ID),
				zap.Error(res.err))
			report.Issues = append(report.Issues, newIssue(&res.asset, FieldChainState, SeverityMedium,
				fmt.Sprintf("failed to fetch chain state: %v", res.err)))
			continue
		}
		report.Issues = append(report.Issues, e.diff(&res.asset, res.truth)...)
	}

	for _, severity := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium} {
		metrics.ReconcileIssues.WithLabelValues(string(severity)).Set(float64(report.CountBySeverity(severity)))
	}
	logger.InfoCtx(ctx, "Validation completed",
		zap.Int("total_assets", report.TotalAssets),
		zap.Int("issues", report.IssuesFound()))

	return report, nil
}

// diff compares the cached supply and sold with the chain in whole tokens
func (e *engine) diff(asset *schema.Asset, truth *chainTruth) []Issue {
	var issues []Issue

	rawSupply, err := domain.ParseAmount(asset.TotalTokenSupply)
	if err != nil {
		issues = append(issues, newIssue(asset, FieldTotalTokenSupply, SeverityHigh,
			fmt.Sprintf("cached total supply is unreadable: %v", err)))
	}
	rawSold, err := domain.ParseAmount(asset.TokensSold)
	if err != nil {
		issues = append(issues, newIssue(asset, FieldTokensSold, SeverityHigh,
			fmt.Sprintf("cached tokens sold is unreadable: %v", err)))
	}

	chainSupply := domain.ToTokenUnits(truth.supply)
	if rawSupply != nil {
		cachedSupply := domain.ToTokenUnits(rawSupply)
		switch {
		case cachedSupply.LessThan(e.config.NearZeroSupply) && !chainSupply.LessThan(e.config.NearZeroSupply):
			issues = append(issues, newIssue(asset, FieldTotalTokenSupply, SeverityCritical,
				fmt.Sprintf("cached total supply %s is implausibly small, chain reports %s", cachedSupply, chainSupply)))
		case e.beyondTolerance(cachedSupply, chainSupply):
			issues = append(issues, newIssue(asset, FieldTotalTokenSupply, SeverityHigh,
				fmt.Sprintf("total supply mismatch: cached %s, chain %s", cachedSupply, chainSupply)))
		}
	}

	if rawSold != nil {
		cachedSold := domain.ToTokenUnits(rawSold)
		chainSold := domain.ToTokenUnits(truth.sold)
		if e.beyondTolerance(cachedSold, chainSold) {
			issues = append(issues, newIssue(asset, FieldTokensSold, SeverityHigh,
				fmt.Sprintf("tokens sold mismatch: cached %s, chain %s", cachedSold, chainSold)))
		}
	}

	return issues
}

func (e *engine) beyondTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(e.config.Tolerance)
}

func newIssue(asset *schema.Asset, field string, severity Severity, message string) Issue {
	return Issue{
		AssetID:   asset.ID,
		AssetName: asset.Name,
		TokenID:   asset.TokenIDString(),
		Field:     field,
		Issue:     message,
		Severity:  severity,
	}
}

// Repair overwrites cached supply, sold and revenue totals that differ from the chain
func (e *engine) Repair(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{RunID: ulid.Make().String()}
	ctx = logger.WithFields(ctx, zap.String("run_id", report.RunID))

	assets, err := e.store.ListFractionalizedAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fractionalized assets: %w", err)
	}
	report.TotalChecked = len(assets)

	pool := pond.NewResultPool[repairResult](e.config.Concurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()

	waits := make([]func() (repairResult, error), 0, len(assets))
	for _, asset := range assets {
		task := pool.Submit(func() repairResult {
			res := repairResult{asset: asset}
			// chain reads and the write share the asset's lane so handlers cannot interleave
			res.err = e.queue.Do(ctx, domain.AssetKey(asset.TokenIDString()), func(ctx context.Context) error {
				var err error
				res.changes, err = e.repairAsset(ctx, asset.ID)
				return err
			})
			return res
		})
		waits = append(waits, task.Wait)
	}

	for _, wait := range waits {
		res, err := wait()
		if err != nil {
			return report, fmt.Errorf("repair interrupted: %w", err)
		}
		if res.err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.WarnCtx(ctx, "Failed to repair asset",
				zap.Uint64("asset_id", res.asset.ID),
				zap.Error(res.err))
			report.Failed++
			continue
		}
		if len(res.changes) == 0 {
			continue
		}

		for _, c := range res.changes {
			metrics.ReconcileRepairs.WithLabelValues(c.Field).Inc()
		}
		report.Repaired = append(report.Repaired, AssetRepair{
			AssetID:   res.asset.ID,
			AssetName: res.asset.Name,
			TokenID:   res.asset.TokenIDString(),
			Changes:   res.changes,
		})
	}

	logger.InfoCtx(ctx, "Repair completed",
		zap.Int("total_checked", report.TotalChecked),
		zap.Int("total_repaired", report.TotalRepaired()),
		zap.Int("failed", report.Failed))

	return report, nil
}

type repairResult struct {
	asset   schema.Asset
	changes []Change
	err     error
}

// repairAsset reloads the asset, reads the chain and writes the differing fields.
// It runs inside the asset's queue lane.
func (e *engine) repairAsset(ctx context.Context, assetID uint64) ([]Change, error) {
	asset, err := e.store.GetAssetByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload asset: %w", err)
	}
	if asset == nil {
		return nil, domain.ErrAssetNotFound
	}

	truth, err := e.fetchTruth(ctx, asset, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain state: %w", err)
	}

	var input store.UpdateAssetInput
	var changes []Change
	compare := func(field, cached string, chain *big.Int, target **string) {
		if chain == nil {
			return
		}
		before := domain.MustParseAmount(cached)
		if before.Cmp(chain) == 0 {
			return
		}
		value := domain.FormatAmount(chain)
		*target = &value
		changes = append(changes, Change{
			Field:  field,
			Before: domain.ToTokenUnits(before).String(),
			After:  domain.ToTokenUnits(chain).String(),
		})
	}
	compare(FieldTotalTokenSupply, asset.TotalTokenSupply, truth.supply, &input.TotalTokenSupply)
	compare(FieldTokensSold, asset.TokensSold, truth.sold, &input.TokensSold)
	compare(FieldTotalRevenueRecorded, asset.TotalRevenueRecorded, truth.recorded, &input.TotalRevenueRecorded)
	compare(FieldTotalRevenueDistributed, asset.TotalRevenueDistributed, truth.distributed, &input.TotalRevenueDistributed)

	if input.IsEmpty() {
		return nil, nil
	}
	if err := e.store.UpdateAsset(ctx, asset.ID, input); err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}

	logger.InfoCtx(ctx, "Repaired cached asset",
		zap.Uint64("asset_id", asset.ID),
		zap.Int("changes", len(changes)))
	return changes, nil
}
