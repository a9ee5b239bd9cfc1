package schema

import (
	"math/big"
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
)

// Asset represents the assets table - the cached projection of one registry asset and its fractional token
type Asset struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID is the on-chain asset token id (nil while a verification request is pending)
	TokenID *string `gorm:"column:token_id;type:numeric(78,0);uniqueIndex"`
	// VerificationRequestID is the oracle request that will mint this asset
	VerificationRequestID *string `gorm:"column:verification_request_id;type:text;uniqueIndex"`
	// Name is the asset name from the registry
	Name string `gorm:"column:name;not null;type:text"`
	// AssetType is the free-form asset category from the registry
	AssetType string `gorm:"column:asset_type;not null;type:text"`
	// Description is the asset description from the registry
	Description string `gorm:"column:description;not null;type:text"`
	// ImageURI points at the asset image
	ImageURI string `gorm:"column:image_uri;not null;type:text"`
	// EstimatedValue is the registry valuation in the smallest unit
	EstimatedValue string `gorm:"column:estimated_value;not null;type:numeric(78,0);default:0"`
	// Status is the lifecycle status; it only moves forward
	Status domain.AssetStatus `gorm:"column:status;not null;type:text;default:pending"`
	// OwnerAddress is the checksummed address of the asset owner
	OwnerAddress string `gorm:"column:owner_address;not null;type:text"`

	// TokenAddress is the fractional token contract (nil until fractionalized)
	TokenAddress *string `gorm:"column:token_address;type:text;uniqueIndex"`
	// TokenName is the ERC20 name of the fractional token
	TokenName string `gorm:"column:token_name;not null;type:text"`
	// TokenSymbol is the ERC20 symbol of the fractional token
	TokenSymbol string `gorm:"column:token_symbol;not null;type:text"`
	// TokenDeployBlock is the block the fractional token was created in, once known
	TokenDeployBlock *uint64 `gorm:"column:token_deploy_block"`
	// TotalTokenSupply is the fractional token supply in the smallest unit
	TotalTokenSupply string `gorm:"column:total_token_supply;not null;type:numeric(78,0);default:0"`
	// TokensSold is the sum of non-owner balances in the smallest unit
	TokensSold string `gorm:"column:tokens_sold;not null;type:numeric(78,0);default:0"`
	// PricePerToken is the listed price of one whole token in the smallest unit
	PricePerToken string `gorm:"column:price_per_token;not null;type:numeric(78,0);default:0"`

	// TotalRevenueRecorded is the cumulative revenue recorded on the token contract
	TotalRevenueRecorded string `gorm:"column:total_revenue_recorded;not null;type:numeric(78,0);default:0"`
	// TotalRevenueDistributed is the cumulative revenue distributed to holders
	TotalRevenueDistributed string `gorm:"column:total_revenue_distributed;not null;type:numeric(78,0);default:0"`

	// AutomationEnabled reports whether revenue distribution is automated for this asset
	AutomationEnabled bool `gorm:"column:automation_enabled;not null;default:false"`
	// AutomationConfig holds the operator's automation settings
	AutomationConfig datatypes.JSON `gorm:"column:automation_config;type:jsonb"`
	// LastAutomationRequestAt is the block time of the last automated revenue request
	LastAutomationRequestAt *time.Time `gorm:"column:last_automation_request_at;type:timestamptz"`
	// LastAutomationDistributionAt is the block time of the last automated distribution
	LastAutomationDistributionAt *time.Time `gorm:"column:last_automation_distribution_at;type:timestamptz"`

	// CreatedAt is the timestamp when this record was first cached
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last written
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Holders       []TokenHolder         `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
	Distributions []RevenueDistribution `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}

// IsFractionalized reports whether the asset has a fractional token
func (a *Asset) IsFractionalized() bool {
	return a.TokenAddress != nil && *a.TokenAddress != "" && !domain.IsZeroAddress(*a.TokenAddress)
}

// OnChainTokenID returns the on-chain token id, nil while pending
func (a *Asset) OnChainTokenID() *big.Int {
	if a.TokenID == nil {
		return nil
	}
	return domain.MustParseAmount(*a.TokenID)
}

// TokenAddressValue returns the fractional token address or an empty string
func (a *Asset) TokenAddressValue() string {
	if a.TokenAddress == nil {
		return ""
	}
	return *a.TokenAddress
}

// TokenIDString renders the on-chain token id for logs and responses
func (a *Asset) TokenIDString() string {
	if a.TokenID == nil {
		return ""
	}
	return *a.TokenID
}
