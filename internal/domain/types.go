package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainBaseMainnet     Chain = "eip155:8453"
	ChainBaseSepolia     Chain = "eip155:84532"
	ChainLocalDevnet     Chain = "eip155:31337"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	switch chain {
	case ChainEthereumMainnet, ChainEthereumSepolia, ChainBaseMainnet, ChainBaseSepolia, ChainLocalDevnet:
		return true
	}
	return false
}

// AssetStatus represents the lifecycle status of a cached asset
type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "pending"
	AssetStatusMinted     AssetStatus = "minted"
	AssetStatusFragmented AssetStatus = "fragmented"
	AssetStatusActive     AssetStatus = "active"
)

var assetStatusRank = map[AssetStatus]int{
	AssetStatusPending:    0,
	AssetStatusMinted:     1,
	AssetStatusFragmented: 2,
	AssetStatusActive:     3,
}

// Advance returns the later of the two statuses in the lifecycle.
// Unknown statuses never win over known ones.
func (s AssetStatus) Advance(next AssetStatus) AssetStatus {
	cur, ok := assetStatusRank[s]
	if !ok {
		return next
	}
	n, ok := assetStatusRank[next]
	if !ok || n <= cur {
		return s
	}
	return next
}

// DistributionSource tells where a revenue distribution came from
type DistributionSource string

const (
	DistributionSourceOperating DistributionSource = "operating"
	DistributionSourceAutomated DistributionSource = "automated"
)

// EventKind is the closed set of contract events the engine reacts to
type EventKind string

const (
	EventKindAssetMinted                 EventKind = "asset_minted"
	EventKindAssetFractionalized         EventKind = "asset_fractionalized"
	EventKindFractionalTokenCreated      EventKind = "fractional_token_created"
	EventKindVerificationFulfilled       EventKind = "verification_fulfilled"
	EventKindTokenTransfer               EventKind = "token_transfer"
	EventKindOperatingRevenueRecorded    EventKind = "operating_revenue_recorded"
	EventKindOperatingRevenueDistributed EventKind = "operating_revenue_distributed"
	EventKindAutomatedRevenueRequested   EventKind = "automated_revenue_requested"
	EventKindAutomatedRevenueDistributed EventKind = "automated_revenue_distributed"
)

// AllEventKinds returns every event kind. Handler registries are checked against it.
func AllEventKinds() []EventKind {
	return []EventKind{
		EventKindAssetMinted,
		EventKindAssetFractionalized,
		EventKindFractionalTokenCreated,
		EventKindVerificationFulfilled,
		EventKindTokenTransfer,
		EventKindOperatingRevenueRecorded,
		EventKindOperatingRevenueDistributed,
		EventKindAutomatedRevenueRequested,
		EventKindAutomatedRevenueDistributed,
	}
}

// IsTokenEvent reports whether the event is emitted by a fractional token contract
// rather than by the asset registry or factory.
func (k EventKind) IsTokenEvent() bool {
	switch k {
	case EventKindTokenTransfer,
		EventKindOperatingRevenueRecorded,
		EventKindOperatingRevenueDistributed,
		EventKindAutomatedRevenueRequested,
		EventKindAutomatedRevenueDistributed:
		return true
	}
	return false
}

// ChainEvent is a decoded contract log.
// Only the payload fields relevant to Kind are populated.
type ChainEvent struct {
	Kind            EventKind `json:"kind"`
	Chain           Chain     `json:"chain"`
	ContractAddress string    `json:"contract_address"` // emitting contract
	TxHash          string    `json:"tx_hash"`
	LogIndex        uint      `json:"log_index"`
	BlockNumber     uint64    `json:"block_number"`
	Timestamp       time.Time `json:"timestamp"`

	AssetTokenID    *big.Int `json:"asset_token_id,omitempty"`
	TokenAddress    string   `json:"token_address,omitempty"` // fractional token
	OwnerAddress    string   `json:"owner_address,omitempty"`
	FromAddress     string   `json:"from_address,omitempty"`
	ToAddress       string   `json:"to_address,omitempty"`
	Amount          *big.Int `json:"amount,omitempty"`
	CumulativeTotal *big.Int `json:"cumulative_total,omitempty"`
	TotalSupply     *big.Int `json:"total_supply,omitempty"`
	RequestID       string   `json:"request_id,omitempty"`
}

// ID returns the stable idempotency key of the event
func (e *ChainEvent) ID() string {
	return EventID(e.TxHash, e.LogIndex)
}

// EventID derives the idempotency key from a transaction hash and log index
func EventID(txHash string, logIndex uint) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(txHash), logIndex)
}

// OnChainAsset is the asset record as read from the asset registry contract
type OnChainAsset struct {
	TokenID        *big.Int
	Name           string
	AssetType      string
	Description    string
	ImageURI       string
	EstimatedValue *big.Int
	Owner          string
	TokenAddress   string // zero address when not fractionalized
}

// IsFractionalized reports whether a fractional token exists for the asset
func (a *OnChainAsset) IsFractionalized() bool {
	return a.TokenAddress != "" && !IsZeroAddress(a.TokenAddress)
}

// TokenInfo is the state of a fractional token contract
type TokenInfo struct {
	Address                 string
	Name                    string
	Symbol                  string
	TotalSupply             *big.Int
	PricePerToken           *big.Int
	TotalRevenueRecorded    *big.Int
	TotalRevenueDistributed *big.Int
	Owner                   string
}

// AssetKey is the serialization key of every write to one asset, derived from its on-chain token id
func AssetKey(tokenID string) string {
	return "asset:" + tokenID
}
