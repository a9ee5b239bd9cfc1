package store

import (
	"context"
	"math/big"
	"time"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

// Store defines the interface for database operations.
// Getters return nil, nil when the row does not exist.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CursorStore

	// GetAssetByID retrieves an asset by its internal ID
	GetAssetByID(ctx context.Context, id uint64) (*schema.Asset, error)
	// GetAssetByTokenID retrieves an asset by its on-chain token id
	GetAssetByTokenID(ctx context.Context, tokenID *big.Int) (*schema.Asset, error)
	// GetAssetByTokenAddress retrieves an asset by its fractional token address
	GetAssetByTokenAddress(ctx context.Context, tokenAddress string) (*schema.Asset, error)
	// GetAssetByRequestID retrieves a pending asset by its verification request id
	GetAssetByRequestID(ctx context.Context, requestID string) (*schema.Asset, error)
	// ListAssets lists every cached asset ordered by ID
	ListAssets(ctx context.Context) ([]schema.Asset, error)
	// ListFractionalizedAssets lists assets that have a fractional token, ordered by ID
	ListFractionalizedAssets(ctx context.Context) ([]schema.Asset, error)
	// CreateAsset inserts an asset unless one with the same token id, request id or token address exists.
	// It reports whether a row was inserted.
	CreateAsset(ctx context.Context, asset *schema.Asset) (bool, error)
	// UpdateAsset writes the non-nil fields of input
	UpdateAsset(ctx context.Context, id uint64, input UpdateAssetInput) error
	// DeleteAsset deletes an asset with its holders and distributions
	DeleteAsset(ctx context.Context, id uint64) error

	// GetTokenHolder retrieves one holder row
	GetTokenHolder(ctx context.Context, assetID uint64, address string) (*schema.TokenHolder, error)
	// ListTokenHolders lists the holders of an asset, largest balance first
	ListTokenHolders(ctx context.Context, assetID uint64) ([]schema.TokenHolder, error)
	// UpsertTokenHolder inserts or updates a holder row keyed by (asset, address)
	UpsertTokenHolder(ctx context.Context, holder *schema.TokenHolder) error
	// DeleteTokenHolder deletes a holder row
	DeleteTokenHolder(ctx context.Context, assetID uint64, address string) error
	// SaveHolderSnapshot applies holder upserts and deletes together with the asset totals in one transaction
	SaveHolderSnapshot(ctx context.Context, input HolderSnapshotInput) error

	// CreateRevenueDistribution appends a distribution unless its event was already recorded.
	// It reports whether a row was inserted.
	CreateRevenueDistribution(ctx context.Context, distribution *schema.RevenueDistribution) (bool, error)
	// ListRevenueDistributions lists the distributions of an asset, oldest first
	ListRevenueDistributions(ctx context.Context, assetID uint64) ([]schema.RevenueDistribution, error)

	// IsEventProcessed checks the idempotency ledger
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkEventProcessed records an event in the ledger and reports whether it was new
	MarkEventProcessed(ctx context.Context, event *schema.ProcessedEvent) (bool, error)
}

// UpdateAssetInput lists asset columns to overwrite; nil fields are left as they are
type UpdateAssetInput struct {
	TokenID                      *string
	VerificationRequestID        *string
	Name                         *string
	AssetType                    *string
	Description                  *string
	ImageURI                     *string
	EstimatedValue               *string
	Status                       *domain.AssetStatus
	OwnerAddress                 *string
	TokenAddress                 *string
	TokenName                    *string
	TokenSymbol                  *string
	TokenDeployBlock             *uint64
	TotalTokenSupply             *string
	TokensSold                   *string
	PricePerToken                *string
	TotalRevenueRecorded         *string
	TotalRevenueDistributed      *string
	LastAutomationRequestAt      *time.Time
	LastAutomationDistributionAt *time.Time
}

// Columns returns the column assignments for the non-nil fields
func (u UpdateAssetInput) Columns() map[string]any {
	cols := make(map[string]any)
	set := func(name string, ok bool, value any) {
		if ok {
			cols[name] = value
		}
	}
	set("token_id", u.TokenID != nil, deref(u.TokenID))
	set("verification_request_id", u.VerificationRequestID != nil, deref(u.VerificationRequestID))
	set("name", u.Name != nil, deref(u.Name))
	set("asset_type", u.AssetType != nil, deref(u.AssetType))
	set("description", u.Description != nil, deref(u.Description))
	set("image_uri", u.ImageURI != nil, deref(u.ImageURI))
	set("estimated_value", u.EstimatedValue != nil, deref(u.EstimatedValue))
	set("owner_address", u.OwnerAddress != nil, deref(u.OwnerAddress))
	set("token_address", u.TokenAddress != nil, deref(u.TokenAddress))
	set("token_name", u.TokenName != nil, deref(u.TokenName))
	set("token_symbol", u.TokenSymbol != nil, deref(u.TokenSymbol))
	set("total_token_supply", u.TotalTokenSupply != nil, deref(u.TotalTokenSupply))
	set("tokens_sold", u.TokensSold != nil, deref(u.TokensSold))
	set("price_per_token", u.PricePerToken != nil, deref(u.PricePerToken))
	set("total_revenue_recorded", u.TotalRevenueRecorded != nil, deref(u.TotalRevenueRecorded))
	set("total_revenue_distributed", u.TotalRevenueDistributed != nil, deref(u.TotalRevenueDistributed))
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	if u.TokenDeployBlock != nil {
		cols["token_deploy_block"] = *u.TokenDeployBlock
	}
	if u.LastAutomationRequestAt != nil {
		cols["last_automation_request_at"] = *u.LastAutomationRequestAt
	}
	if u.LastAutomationDistributionAt != nil {
		cols["last_automation_distribution_at"] = *u.LastAutomationDistributionAt
	}
	return cols
}

// IsEmpty reports whether the input changes nothing
func (u UpdateAssetInput) IsEmpty() bool {
	return len(u.Columns()) == 0
}

// ApplyTo copies the non-nil fields onto asset
func (u UpdateAssetInput) ApplyTo(asset *schema.Asset) {
	if u.TokenID != nil {
		asset.TokenID = ptr(*u.TokenID)
	}
	if u.VerificationRequestID != nil {
		asset.VerificationRequestID = ptr(*u.VerificationRequestID)
	}
	apply(&asset.Name, u.Name)
	apply(&asset.AssetType, u.AssetType)
	apply(&asset.Description, u.Description)
	apply(&asset.ImageURI, u.ImageURI)
	apply(&asset.EstimatedValue, u.EstimatedValue)
	apply(&asset.OwnerAddress, u.OwnerAddress)
	if u.TokenAddress != nil {
		asset.TokenAddress = ptr(*u.TokenAddress)
	}
	apply(&asset.TokenName, u.TokenName)
	apply(&asset.TokenSymbol, u.TokenSymbol)
	apply(&asset.TotalTokenSupply, u.TotalTokenSupply)
	apply(&asset.TokensSold, u.TokensSold)
	apply(&asset.PricePerToken, u.PricePerToken)
	apply(&asset.TotalRevenueRecorded, u.TotalRevenueRecorded)
	apply(&asset.TotalRevenueDistributed, u.TotalRevenueDistributed)
	apply(&asset.Status, u.Status)
	if u.TokenDeployBlock != nil {
		asset.TokenDeployBlock = ptr(*u.TokenDeployBlock)
	}
	if u.LastAutomationRequestAt != nil {
		asset.LastAutomationRequestAt = ptr(*u.LastAutomationRequestAt)
	}
	if u.LastAutomationDistributionAt != nil {
		asset.LastAutomationDistributionAt = ptr(*u.LastAutomationDistributionAt)
	}
}

// HolderSnapshotInput is the outcome of a holder refresh for one asset
type HolderSnapshotInput struct {
	AssetID uint64
	// Upserts are written with their balance and percentage
	Upserts []schema.TokenHolder
	// Deletes are addresses whose rows are removed
	Deletes []string
	// Asset carries the recomputed totals
	Asset UpdateAssetInput
}

func apply[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func ptr[T any](v T) *T {
	return &v
}
