package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

type pgStore struct {
	CursorStore
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{
		CursorStore: NewCursorStore(db),
		db:          db,
	}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize computes the batch size for bulk inserts that stays under
// PostgreSQL's limit of 65535 parameters per statement.
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000 // timestamps, ON CONFLICT parameters and other batch-level overhead

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

func (s *pgStore) firstAsset(ctx context.Context, query string, args ...any) (*schema.Asset, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).Where(query, args...).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// GetAssetByID retrieves an asset by its internal ID
func (s *pgStore) GetAssetByID(ctx context.Context, id uint64) (*schema.Asset, error) {
	return s.firstAsset(ctx, "id = ?", id)
}

// GetAssetByTokenID retrieves an asset by its on-chain token id
func (s *pgStore) GetAssetByTokenID(ctx context.Context, tokenID *big.Int) (*schema.Asset, error) {
	if tokenID == nil {
		return nil, nil
	}
	return s.firstAsset(ctx, "token_id = ?", tokenID.String())
}

// GetAssetByTokenAddress retrieves an asset by its fractional token address
func (s *pgStore) GetAssetByTokenAddress(ctx context.Context, tokenAddress string) (*schema.Asset, error) {
	if tokenAddress == "" {
		return nil, nil
	}
	return s.firstAsset(ctx, "LOWER(token_address) = LOWER(?)", tokenAddress)
}

// GetAssetByRequestID retrieves a pending asset by its verification request id
func (s *pgStore) GetAssetByRequestID(ctx context.Context, requestID string) (*schema.Asset, error) {
	if requestID == "" {
		return nil, nil
	}
	return s.firstAsset(ctx, "LOWER(verification_request_id) = LOWER(?)", requestID)
}

// ListAssets lists every cached asset ordered by ID
func (s *pgStore) ListAssets(ctx context.Context) ([]schema.Asset, error) {
	var assets []schema.Asset
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// ListFractionalizedAssets lists assets that have a fractional token, ordered by ID
func (s *pgStore) ListFractionalizedAssets(ctx context.Context) ([]schema.Asset, error) {
	var assets []schema.Asset
	err := s.db.WithContext(ctx).
		Where("token_address IS NOT NULL AND token_address <> ''").
		Order("id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list fractionalized assets: %w", err)
	}
	return assets, nil
}

// CreateAsset inserts an asset unless it conflicts with an existing one
func (s *pgStore) CreateAsset(ctx context.Context, asset *schema.Asset) (bool, error) {
	result := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(asset)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create asset: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateAsset writes the non-nil fields of input
func (s *pgStore) UpdateAsset(ctx context.Context, id uint64, input UpdateAssetInput) error {
	cols := input.Columns()
	if len(cols) == 0 {
		return nil
	}
	return s.updateAsset(s.db.WithContext(ctx), id, cols)
}

func (s *pgStore) updateAsset(tx *gorm.DB, id uint64, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()

	result := tx.Model(&schema.Asset{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update asset %d: %w", id, domain.ErrAssetNotFound)
	}
	return nil
}

// DeleteAsset deletes an asset; holders and distributions cascade
func (s *pgStore) DeleteAsset(ctx context.Context, id uint64) error {
	if err := s.db.WithContext(ctx).Delete(&schema.Asset{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// GetTokenHolder retrieves one holder row
func (s *pgStore) GetTokenHolder(ctx context.Context, assetID uint64, address string) (*schema.TokenHolder, error) {
	var holder schema.TokenHolder
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND address = ?", assetID, domain.NormalizeAddress(address)).
		First(&holder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token holder: %w", err)
	}
	return &holder, nil
}

// ListTokenHolders lists the holders of an asset, largest balance first
func (s *pgStore) ListTokenHolders(ctx context.Context, assetID uint64) ([]schema.TokenHolder, error) {
	var holders []schema.TokenHolder
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("balance DESC, address ASC").
		Find(&holders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list token holders: %w", err)
	}
	return holders, nil
}

var holderConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "asset_id"}, {Name: "address"}},
	DoUpdates: clause.AssignmentColumns([]string{"balance", "percentage", "updated_at"}),
}

// UpsertTokenHolder inserts or updates a holder row keyed by (asset, address)
func (s *pgStore) UpsertTokenHolder(ctx context.Context, holder *schema.TokenHolder) error {
	holder.Address = domain.NormalizeAddress(holder.Address)
	holder.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Clauses(holderConflict).Create(holder).Error; err != nil {
		return fmt.Errorf("failed to upsert token holder: %w", err)
	}
	return nil
}

// DeleteTokenHolder deletes a holder row
func (s *pgStore) DeleteTokenHolder(ctx context.Context, assetID uint64, address string) error {
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND address = ?", assetID, domain.NormalizeAddress(address)).
		Delete(&schema.TokenHolder{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete token holder: %w", err)
	}
	return nil
}

// SaveHolderSnapshot applies holder upserts, deletes and the asset totals in one transaction
func (s *pgStore) SaveHolderSnapshot(ctx context.Context, input HolderSnapshotInput) error {
	now := time.Now().UTC()
	upserts := make([]schema.TokenHolder, len(input.Upserts))
	for i, h := range input.Upserts {
		h.AssetID = input.AssetID
		h.Address = domain.NormalizeAddress(h.Address)
		h.UpdatedAt = now
		upserts[i] = h
	}
	deletes := make([]string, len(input.Deletes))
	for i, addr := range input.Deletes {
		deletes[i] = domain.NormalizeAddress(addr)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(upserts) > 0 {
			// asset_id, address, balance, percentage, created_at, updated_at
			batchSize := calculateSafeBatchSize(len(upserts), 6)
			if err := tx.Clauses(holderConflict).CreateInBatches(&upserts, batchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert token holders: %w", err)
			}
		}

		if len(deletes) > 0 {
			err := tx.Where("asset_id = ? AND address IN ?", input.AssetID, deletes).
				Delete(&schema.TokenHolder{}).Error
			if err != nil {
				return fmt.Errorf("failed to delete token holders: %w", err)
			}
		}

		cols := input.Asset.Columns()
		if len(cols) == 0 {
			return nil
		}
		return s.updateAsset(tx, input.AssetID, cols)
	})
}

// CreateRevenueDistribution appends a distribution unless its event was already recorded
func (s *pgStore) CreateRevenueDistribution(ctx context.Context, distribution *schema.RevenueDistribution) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(distribution)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create revenue distribution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		logger.DebugCtx(ctx, "Revenue distribution already recorded", zap.String("event_id", distribution.EventID))
	}
	return result.RowsAffected > 0, nil
}

// ListRevenueDistributions lists the distributions of an asset, oldest first
func (s *pgStore) ListRevenueDistributions(ctx context.Context, assetID uint64) ([]schema.RevenueDistribution, error) {
	var distributions []schema.RevenueDistribution
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("distributed_at ASC, id ASC").
		Find(&distributions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list revenue distributions: %w", err)
	}
	return distributions, nil
}

// IsEventProcessed checks the idempotency ledger
func (s *pgStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return count > 0, nil
}

// MarkEventProcessed records an event in the ledger and reports whether it was new
func (s *pgStore) MarkEventProcessed(ctx context.Context, event *schema.ProcessedEvent) (bool, error) {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
