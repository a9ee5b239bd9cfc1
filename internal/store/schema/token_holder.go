package schema

import (
	"time"
)

// TokenHolder represents the token_holders table - one cached fractional-token balance per address
type TokenHolder struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AssetID references the asset whose fractional token is held
	AssetID uint64 `gorm:"column:asset_id;not null;uniqueIndex:idx_token_holders_asset_address,priority:1"`
	// Address is the checksummed holder address
	Address string `gorm:"column:address;not null;type:text;uniqueIndex:idx_token_holders_asset_address,priority:2"`
	// Balance is the holder balance in the smallest unit (never negative)
	Balance string `gorm:"column:balance;not null;type:numeric(78,0)"`
	// Percentage is the share of total supply with two decimals ("90.00")
	Percentage string `gorm:"column:percentage;not null;type:numeric(5,2)"`
	// CreatedAt is the timestamp when this holder was first cached
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this balance was last written
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TokenHolder model
func (TokenHolder) TableName() string {
	return "token_holders"
}
