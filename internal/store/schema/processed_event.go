package schema

import (
	"time"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
)

// ProcessedEvent represents the processed_events table - the idempotency ledger
type ProcessedEvent struct {
	// EventID is the lower-case tx hash and log index joined by a dash
	EventID string `gorm:"column:event_id;primaryKey;type:text"`
	// Kind is the decoded event kind
	Kind domain.EventKind `gorm:"column:kind;not null;type:text"`
	// TxHash is the transaction that emitted the log
	TxHash string `gorm:"column:tx_hash;not null;type:text"`
	// LogIndex is the position of the log in its block
	LogIndex uint `gorm:"column:log_index;not null"`
	// BlockNumber is the block the log was mined in
	BlockNumber uint64 `gorm:"column:block_number;not null"`
	// ProcessedAt is when the handler finished applying the event
	ProcessedAt time.Time `gorm:"column:processed_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ProcessedEvent model
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
