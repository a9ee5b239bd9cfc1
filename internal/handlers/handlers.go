package handlers

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/holders"
	"github.com/feral-file/ff-asset-syncer/internal/ledger"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

// TokenWatcher adds fractional token contracts to the live event subscription
//
//go:generate mockgen -source=handlers.go -destination=../mocks/token_watcher.go -package=mocks -mock_names=TokenWatcher=MockTokenWatcher
type TokenWatcher interface {
	// Watch starts delivering events of tokenAddress; watching twice is a no-op
	Watch(ctx context.Context, tokenAddress string)
}

// Deps holds the collaborators of the standard handlers
type Deps struct {
	Client    ethereum.Client
	Store     store.Store
	Ledger    ledger.Ledger
	Rebuilder holders.Rebuilder
	Watcher   TokenWatcher
}

type eventHandlers struct {
	client    ethereum.Client
	store     store.Store
	rebuilder holders.Rebuilder
	watcher   TokenWatcher
}

func newEventHandlers(deps Deps) *eventHandlers {
	return &eventHandlers{
		client:    deps.Client,
		store:     deps.Store,
		rebuilder: deps.Rebuilder,
		watcher:   deps.Watcher,
	}
}

func (h *eventHandlers) all() map[domain.EventKind]Handler {
	return map[domain.EventKind]Handler{
		domain.EventKindAssetMinted:                 h.assetMinted,
		domain.EventKindAssetFractionalized:         h.tokenCreated,
		domain.EventKindFractionalTokenCreated:      h.tokenCreated,
		domain.EventKindVerificationFulfilled:       h.verificationFulfilled,
		domain.EventKindTokenTransfer:               h.tokenTransfer,
		domain.EventKindOperatingRevenueRecorded:    h.revenueRecorded,
		domain.EventKindOperatingRevenueDistributed: h.revenueDistributed(domain.DistributionSourceOperating),
		domain.EventKindAutomatedRevenueRequested:   h.automatedRevenueRequested,
		domain.EventKindAutomatedRevenueDistributed: h.revenueDistributed(domain.DistributionSourceAutomated),
	}
}

// ensureAsset returns the cached asset of tokenID, creating it from the registry when missing
func (h *eventHandlers) ensureAsset(ctx context.Context, tokenID *big.Int) (*schema.Asset, bool, error) {
	if tokenID == nil {
		return nil, false, fmt.Errorf("event carries no asset token id")
	}

	asset, err := h.store.GetAssetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, false, err
	}
	if asset != nil {
		return asset, false, nil
	}

	onChain, err := h.client.GetAsset(ctx, tokenID)
	if err != nil {
		return nil, false, err
	}
	row := AssetFromChain(onChain)
	created, err := h.store.CreateAsset(ctx, row)
	if err != nil {
		return nil, false, err
	}

	// a concurrent writer may have inserted it first
	asset, err = h.store.GetAssetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, false, err
	}
	if asset == nil {
		return nil, false, fmt.Errorf("asset %s was not created: %w", tokenID, domain.ErrAssetNotFound)
	}
	if created {
		logger.InfoCtx(ctx, "Cached asset from registry",
			zap.Uint64("asset_id", asset.ID),
			zap.String("token_id", tokenID.String()))
	}
	return asset, created, nil
}

// assetByToken returns the asset owning a fractional token
func (h *eventHandlers) assetByToken(ctx context.Context, tokenAddress string) (*schema.Asset, error) {
	asset, err := h.store.GetAssetByTokenAddress(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("no asset for token %s: %w", tokenAddress, domain.ErrAssetNotFound)
	}
	return asset, nil
}

// activateToken loads token state, rebuilds its holders and subscribes to its events
func (h *eventHandlers) activateToken(ctx context.Context, asset *schema.Asset) error {
	token := asset.TokenAddressValue()
	info, err := h.client.TokenInfo(ctx, token)
	if err != nil {
		return err
	}
	if err := h.store.UpdateAsset(ctx, asset.ID, TokenInfoUpdate(info)); err != nil {
		return err
	}

	h.watcher.Watch(ctx, token)

	asset, err = h.store.GetAssetByID(ctx, asset.ID)
	if err != nil {
		return err
	}
	if asset == nil {
		return domain.ErrAssetNotFound
	}
	_, err = h.rebuilder.Rebuild(ctx, asset)
	return err
}

func (h *eventHandlers) assetMinted(ctx context.Context, event *domain.ChainEvent) error {
	asset, created, err := h.ensureAsset(ctx, event.AssetTokenID)
	if err != nil {
		return err
	}

	owner := domain.NormalizeAddress(event.OwnerAddress)
	status := asset.Status.Advance(domain.AssetStatusMinted)
	if err := h.store.UpdateAsset(ctx, asset.ID, store.UpdateAssetInput{
		OwnerAddress: &owner,
		Status:       &status,
	}); err != nil {
		return err
	}

	// the registry already reported a fractional token for a row we just created
	if created && asset.IsFractionalized() {
		return h.activateToken(ctx, asset)
	}
	return nil
}

func (h *eventHandlers) tokenCreated(ctx context.Context, event *domain.ChainEvent) error {
	if event.TokenAddress == "" || domain.IsZeroAddress(event.TokenAddress) {
		return fmt.Errorf("event carries no token address: %w", domain.ErrTokenNotFractionalized)
	}

	asset, _, err := h.ensureAsset(ctx, event.AssetTokenID)
	if err != nil {
		return err
	}

	token := domain.NormalizeAddress(event.TokenAddress)
	status := asset.Status.Advance(domain.AssetStatusFragmented)
	update := store.UpdateAssetInput{
		TokenAddress: &token,
		Status:       &status,
	}
	if asset.TokenDeployBlock == nil || *asset.TokenDeployBlock > event.BlockNumber {
		update.TokenDeployBlock = &event.BlockNumber
	}
	if err := h.store.UpdateAsset(ctx, asset.ID, update); err != nil {
		return err
	}
	update.ApplyTo(asset)

	return h.activateToken(ctx, asset)
}

func (h *eventHandlers) verificationFulfilled(ctx context.Context, event *domain.ChainEvent) error {
	if event.AssetTokenID == nil {
		return fmt.Errorf("event carries no asset token id")
	}
	tokenID := event.AssetTokenID.String()
	owner := domain.NormalizeAddress(event.OwnerAddress)

	pending, err := h.store.GetAssetByRequestID(ctx, event.RequestID)
	if err != nil {
		return err
	}

	existing, err := h.store.GetAssetByTokenID(ctx, event.AssetTokenID)
	if err != nil {
		return err
	}

	if pending != nil && (existing == nil || existing.ID == pending.ID) {
		status := pending.Status.Advance(domain.AssetStatusMinted)
		return h.store.UpdateAsset(ctx, pending.ID, store.UpdateAssetInput{
			TokenID:      &tokenID,
			OwnerAddress: &owner,
			Status:       &status,
		})
	}

	if pending != nil {
		// the mint was cached first; fold the pending row into it
		if err := h.store.DeleteAsset(ctx, pending.ID); err != nil {
			return err
		}
		logger.InfoCtx(ctx, "Merged pending asset into minted asset",
			zap.Uint64("pending_id", pending.ID),
			zap.Uint64("asset_id", existing.ID))
	}

	asset, _, err := h.ensureAsset(ctx, event.AssetTokenID)
	if err != nil {
		return err
	}
	status := asset.Status.Advance(domain.AssetStatusMinted)
	return h.store.UpdateAsset(ctx, asset.ID, store.UpdateAssetInput{
		VerificationRequestID: &event.RequestID,
		OwnerAddress:          &owner,
		Status:                &status,
	})
}

func (h *eventHandlers) tokenTransfer(ctx context.Context, event *domain.ChainEvent) error {
	if domain.IsZeroAddress(event.FromAddress) || domain.IsZeroAddress(event.ToAddress) {
		logger.DebugCtx(ctx, "Ignoring mint or burn transfer",
			zap.String("from", event.FromAddress),
			zap.String("to", event.ToAddress))
		return nil
	}

	asset, err := h.assetByToken(ctx, event.TokenAddress)
	if err != nil {
		return err
	}

	result, err := h.rebuilder.RefreshAddresses(ctx, asset, event.FromAddress, event.ToAddress)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("failed to read balances of %v: %w", result.Failed, domain.ErrIncompleteRead)
	}
	return nil
}

func (h *eventHandlers) revenueRecorded(ctx context.Context, event *domain.ChainEvent) error {
	asset, err := h.assetByToken(ctx, event.TokenAddress)
	if err != nil {
		return err
	}
	return h.store.UpdateAsset(ctx, asset.ID, store.UpdateAssetInput{
		TotalRevenueRecorded: ptr(domain.FormatAmount(event.CumulativeTotal)),
	})
}

func (h *eventHandlers) automatedRevenueRequested(ctx context.Context, event *domain.ChainEvent) error {
	asset, err := h.assetByToken(ctx, event.TokenAddress)
	if err != nil {
		return err
	}

	requestedAt := event.Timestamp
	update := store.UpdateAssetInput{LastAutomationRequestAt: &requestedAt}
	if event.CumulativeTotal != nil {
		update.TotalRevenueRecorded = ptr(domain.FormatAmount(event.CumulativeTotal))
	}
	return h.store.UpdateAsset(ctx, asset.ID, update)
}

func (h *eventHandlers) revenueDistributed(source domain.DistributionSource) Handler {
	return func(ctx context.Context, event *domain.ChainEvent) error {
		asset, err := h.assetByToken(ctx, event.TokenAddress)
		if err != nil {
			return err
		}

		supply := domain.MustParseAmount(asset.TotalTokenSupply)
		if supply.Sign() == 0 {
			supply, err = h.client.TotalSupply(ctx, asset.TokenAddressValue())
			if err != nil {
				return err
			}
		}

		amount := event.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		created, err := h.store.CreateRevenueDistribution(ctx, &schema.RevenueDistribution{
			AssetID:        asset.ID,
			Source:         source,
			TotalAmount:    domain.ToTokenUnits(amount).String(),
			TotalAmountRaw: domain.FormatAmount(amount),
			PerTokenAmount: domain.FormatAmount(domain.PerTokenAmount(amount, supply)),
			TxHash:         event.TxHash,
			EventID:        event.ID(),
			DistributedAt:  event.Timestamp,
		})
		if err != nil {
			return err
		}
		if !created {
			logger.DebugCtx(ctx, "Revenue distribution already recorded")
		}

		update := store.UpdateAssetInput{
			TotalRevenueDistributed: ptr(domain.FormatAmount(event.CumulativeTotal)),
		}
		if source == domain.DistributionSourceAutomated {
			distributedAt := event.Timestamp
			update.LastAutomationDistributionAt = &distributedAt
		}
		return h.store.UpdateAsset(ctx, asset.ID, update)
	}
}
