package mocks

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

type holderKey struct {
	assetID uint64
	address string
}

// MemoryStore is an in-memory store.Store for tests that exercise several
// components together. It mirrors the PostgreSQL constraints the engine relies on.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        uint64
	assets        map[uint64]*schema.Asset
	holders       map[holderKey]schema.TokenHolder
	distributions []schema.RevenueDistribution
	events        map[string]schema.ProcessedEvent
	cursors       map[string]uint64
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:  make(map[uint64]*schema.Asset),
		holders: make(map[holderKey]schema.TokenHolder),
		events:  make(map[string]schema.ProcessedEvent),
		cursors: make(map[string]uint64),
	}
}

func copyAsset(a *schema.Asset) *schema.Asset {
	c := *a
	c.Holders = nil
	c.Distributions = nil
	return &c
}

func (s *MemoryStore) findAsset(match func(a *schema.Asset) bool) *schema.Asset {
	for _, a := range s.assets {
		if match(a) {
			return copyAsset(a)
		}
	}
	return nil
}

func (s *MemoryStore) GetAssetByID(_ context.Context, id uint64) (*schema.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.assets[id]; ok {
		return copyAsset(a), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetAssetByTokenID(_ context.Context, tokenID *big.Int) (*schema.Asset, error) {
	if tokenID == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findAsset(func(a *schema.Asset) bool {
		return a.TokenID != nil && *a.TokenID == tokenID.String()
	}), nil
}

func (s *MemoryStore) GetAssetByTokenAddress(_ context.Context, tokenAddress string) (*schema.Asset, error) {
	if tokenAddress == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findAsset(func(a *schema.Asset) bool {
		return a.TokenAddress != nil && strings.EqualFold(*a.TokenAddress, tokenAddress)
	}), nil
}

func (s *MemoryStore) GetAssetByRequestID(_ context.Context, requestID string) (*schema.Asset, error) {
	if requestID == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findAsset(func(a *schema.Asset) bool {
		return a.VerificationRequestID != nil && strings.EqualFold(*a.VerificationRequestID, requestID)
	}), nil
}

func (s *MemoryStore) listAssets(match func(a *schema.Asset) bool) []schema.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := make([]schema.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		if match(a) {
			assets = append(assets, *copyAsset(a))
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	return assets
}

func (s *MemoryStore) ListAssets(_ context.Context) ([]schema.Asset, error) {
	return s.listAssets(func(*schema.Asset) bool { return true }), nil
}

func (s *MemoryStore) ListFractionalizedAssets(_ context.Context) ([]schema.Asset, error) {
	return s.listAssets(func(a *schema.Asset) bool { return a.TokenAddress != nil && *a.TokenAddress != "" }), nil
}

func (s *MemoryStore) CreateAsset(_ context.Context, asset *schema.Asset) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.assets {
		if conflicts(a.TokenID, asset.TokenID) ||
			conflicts(a.VerificationRequestID, asset.VerificationRequestID) ||
			conflicts(a.TokenAddress, asset.TokenAddress) {
			return false, nil
		}
	}

	s.nextID++
	asset.ID = s.nextID
	if asset.Status == "" {
		asset.Status = domain.AssetStatusPending
	}
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	s.assets[asset.ID] = copyAsset(asset)
	return true, nil
}

func conflicts(a, b *string) bool {
	return a != nil && b != nil && strings.EqualFold(*a, *b)
}

func (s *MemoryStore) UpdateAsset(_ context.Context, id uint64, input store.UpdateAssetInput) error {
	if input.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateAsset(id, input)
}

func (s *MemoryStore) updateAsset(id uint64, input store.UpdateAssetInput) error {
	a, ok := s.assets[id]
	if !ok {
		return fmt.Errorf("failed to update asset %d: %w", id, domain.ErrAssetNotFound)
	}
	input.ApplyTo(a)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteAsset(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.assets, id)
	for k := range s.holders {
		if k.assetID == id {
			delete(s.holders, k)
		}
	}
	kept := s.distributions[:0]
	for _, d := range s.distributions {
		if d.AssetID != id {
			kept = append(kept, d)
		}
	}
	s.distributions = kept
	return nil
}

func (s *MemoryStore) GetTokenHolder(_ context.Context, assetID uint64, address string) (*schema.TokenHolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holders[holderKey{assetID, domain.NormalizeAddress(address)}]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *MemoryStore) ListTokenHolders(_ context.Context, assetID uint64) ([]schema.TokenHolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var holders []schema.TokenHolder
	for k, h := range s.holders {
		if k.assetID == assetID {
			holders = append(holders, h)
		}
	}
	sort.Slice(holders, func(i, j int) bool {
		bi, bj := domain.MustParseAmount(holders[i].Balance), domain.MustParseAmount(holders[j].Balance)
		if c := bi.Cmp(bj); c != 0 {
			return c > 0
		}
		return holders[i].Address < holders[j].Address
	})
	return holders, nil
}

func (s *MemoryStore) upsertHolder(h schema.TokenHolder) error {
	if _, ok := s.assets[h.AssetID]; !ok {
		return fmt.Errorf("failed to upsert token holder: %w", domain.ErrAssetNotFound)
	}
	if domain.MustParseAmount(h.Balance).Sign() < 0 {
		return fmt.Errorf("failed to upsert token holder: negative balance %s", h.Balance)
	}
	h.Address = domain.NormalizeAddress(h.Address)
	key := holderKey{h.AssetID, h.Address}
	now := time.Now().UTC()
	if existing, ok := s.holders[key]; ok {
		h.ID = existing.ID
		h.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		h.ID = s.nextID
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	s.holders[key] = h
	return nil
}

func (s *MemoryStore) UpsertTokenHolder(_ context.Context, holder *schema.TokenHolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertHolder(*holder)
}

func (s *MemoryStore) DeleteTokenHolder(_ context.Context, assetID uint64, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.holders, holderKey{assetID, domain.NormalizeAddress(address)})
	return nil
}

func (s *MemoryStore) SaveHolderSnapshot(_ context.Context, input store.HolderSnapshotInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[input.AssetID]; !ok {
		return fmt.Errorf("failed to save holder snapshot for asset %d: %w", input.AssetID, domain.ErrAssetNotFound)
	}
	for _, h := range input.Upserts {
		h.AssetID = input.AssetID
		if err := s.upsertHolder(h); err != nil {
			return err
		}
	}
	for _, addr := range input.Deletes {
		delete(s.holders, holderKey{input.AssetID, domain.NormalizeAddress(addr)})
	}
	if input.Asset.IsEmpty() {
		return nil
	}
	return s.updateAsset(input.AssetID, input.Asset)
}

func (s *MemoryStore) CreateRevenueDistribution(_ context.Context, distribution *schema.RevenueDistribution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.distributions {
		if d.EventID == distribution.EventID {
			return false, nil
		}
	}
	s.nextID++
	distribution.ID = s.nextID
	distribution.CreatedAt = time.Now().UTC()
	s.distributions = append(s.distributions, *distribution)
	return true, nil
}

func (s *MemoryStore) ListRevenueDistributions(_ context.Context, assetID uint64) ([]schema.RevenueDistribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var distributions []schema.RevenueDistribution
	for _, d := range s.distributions {
		if d.AssetID == assetID {
			distributions = append(distributions, d)
		}
	}
	sort.SliceStable(distributions, func(i, j int) bool {
		return distributions[i].DistributedAt.Before(distributions[j].DistributedAt)
	})
	return distributions, nil
}

func (s *MemoryStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.events[eventID]
	return ok, nil
}

func (s *MemoryStore) MarkEventProcessed(_ context.Context, event *schema.ProcessedEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.EventID]; ok {
		return false, nil
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}
	s.events[event.EventID] = *event
	return true, nil
}

func (s *MemoryStore) GetBlockCursor(_ context.Context, chain string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursors[chain], nil
}

func (s *MemoryStore) SetBlockCursor(_ context.Context, chain string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[chain] = blockNumber
	return nil
}

// ProcessedEventCount returns the number of ledger entries
func (s *MemoryStore) ProcessedEventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.events)
}
