package schema

import (
	"time"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
)

// RevenueDistribution represents the revenue_distributions table - append-only history of payouts
type RevenueDistribution struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AssetID references the asset that distributed revenue
	AssetID uint64 `gorm:"column:asset_id;not null;index"`
	// Source tells whether the payout was operating or automated
	Source domain.DistributionSource `gorm:"column:source;not null;type:text"`
	// TotalAmount is the distributed amount in whole token units
	TotalAmount string `gorm:"column:total_amount;not null;type:numeric(78,18)"`
	// TotalAmountRaw is the distributed amount in the smallest unit
	TotalAmountRaw string `gorm:"column:total_amount_raw;not null;type:numeric(78,0)"`
	// PerTokenAmount is the share of one whole token in the smallest unit
	PerTokenAmount string `gorm:"column:per_token_amount;not null;type:numeric(78,0)"`
	// TxHash is the distributing transaction
	TxHash string `gorm:"column:tx_hash;not null;type:text"`
	// EventID is the idempotency key of the distribution log
	EventID string `gorm:"column:event_id;not null;type:text;uniqueIndex"`
	// DistributedAt is the block time of the distribution
	DistributedAt time.Time `gorm:"column:distributed_at;not null;type:timestamptz"`
	// CreatedAt is the timestamp when this record was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RevenueDistribution model
func (RevenueDistribution) TableName() string {
	return "revenue_distributions"
}
