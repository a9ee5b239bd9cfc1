package handlers

import (
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

// AssetFromChain builds the cache row of a registry asset. A fractionalized
// asset starts as fragmented with its token address set.
func AssetFromChain(a *domain.OnChainAsset) *schema.Asset {
	tokenID := a.TokenID.String()
	asset := &schema.Asset{
		TokenID:          &tokenID,
		Name:             a.Name,
		AssetType:        a.AssetType,
		Description:      a.Description,
		ImageURI:         a.ImageURI,
		EstimatedValue:   domain.FormatAmount(a.EstimatedValue),
		Status:           domain.AssetStatusMinted,
		OwnerAddress:     domain.NormalizeAddress(a.Owner),
		TotalTokenSupply: "0",
		TokensSold:       "0",
		PricePerToken:    "0",

		TotalRevenueRecorded:    "0",
		TotalRevenueDistributed: "0",
	}
	if a.IsFractionalized() {
		token := domain.NormalizeAddress(a.TokenAddress)
		asset.TokenAddress = &token
		asset.Status = domain.AssetStatusFragmented
	}
	return asset
}

// TokenInfoUpdate returns the asset columns carried by a fractional token read
func TokenInfoUpdate(info *domain.TokenInfo) store.UpdateAssetInput {
	update := store.UpdateAssetInput{
		TokenName:               &info.Name,
		TokenSymbol:             &info.Symbol,
		TotalTokenSupply:        ptr(domain.FormatAmount(info.TotalSupply)),
		PricePerToken:           ptr(domain.FormatAmount(info.PricePerToken)),
		TotalRevenueRecorded:    ptr(domain.FormatAmount(info.TotalRevenueRecorded)),
		TotalRevenueDistributed: ptr(domain.FormatAmount(info.TotalRevenueDistributed)),
	}
	return update
}

func ptr[T any](v T) *T {
	return &v
}
