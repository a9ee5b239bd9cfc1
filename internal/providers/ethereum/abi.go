package ethereum

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
)

// Event signatures
var (
	// AssetMinted(uint256 indexed tokenId, address indexed owner)
	assetMintedEventSignature = crypto.Keccak256Hash([]byte("AssetMinted(uint256,address)"))

	// AssetFractionalized(uint256 indexed tokenId, address indexed tokenAddress, uint256 totalSupply)
	assetFractionalizedEventSignature = crypto.Keccak256Hash([]byte("AssetFractionalized(uint256,address,uint256)"))

	// FractionalTokenCreated(uint256 indexed assetTokenId, address indexed tokenAddress, uint256 totalSupply), emitted by the factory
	fractionalTokenCreatedEventSignature = crypto.Keccak256Hash([]byte("FractionalTokenCreated(uint256,address,uint256)"))

	// VerificationFulfilled(bytes32 indexed requestId, uint256 indexed tokenId, address indexed owner)
	verificationFulfilledEventSignature = crypto.Keccak256Hash([]byte("VerificationFulfilled(bytes32,uint256,address)"))

	// Transfer(address indexed from, address indexed to, uint256 value)
	// ERC721 shares the signature with a 4th indexed topic
	transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// OperatingRevenueRecorded(uint256 amount, uint256 totalRecorded)
	operatingRevenueRecordedEventSignature = crypto.Keccak256Hash([]byte("OperatingRevenueRecorded(uint256,uint256)"))

	// OperatingRevenueDistributed(uint256 amount, uint256 totalDistributed)
	operatingRevenueDistributedEventSignature = crypto.Keccak256Hash([]byte("OperatingRevenueDistributed(uint256,uint256)"))

	// AutomatedRevenueRequested(bytes32 indexed requestId, uint256 amount, uint256 totalRecorded)
	automatedRevenueRequestedEventSignature = crypto.Keccak256Hash([]byte("AutomatedRevenueRequested(bytes32,uint256,uint256)"))

	// AutomatedRevenueDistributed(uint256 amount, uint256 totalDistributed)
	automatedRevenueDistributedEventSignature = crypto.Keccak256Hash([]byte("AutomatedRevenueDistributed(uint256,uint256)"))
)

var eventKinds = map[common.Hash]domain.EventKind{
	assetMintedEventSignature:                 domain.EventKindAssetMinted,
	assetFractionalizedEventSignature:         domain.EventKindAssetFractionalized,
	fractionalTokenCreatedEventSignature:      domain.EventKindFractionalTokenCreated,
	verificationFulfilledEventSignature:       domain.EventKindVerificationFulfilled,
	transferEventSignature:                    domain.EventKindTokenTransfer,
	operatingRevenueRecordedEventSignature:    domain.EventKindOperatingRevenueRecorded,
	operatingRevenueDistributedEventSignature: domain.EventKindOperatingRevenueDistributed,
	automatedRevenueRequestedEventSignature:   domain.EventKindAutomatedRevenueRequested,
	automatedRevenueDistributedEventSignature: domain.EventKindAutomatedRevenueDistributed,
}

// EventTopics returns the topic0 of every event the engine handles
func EventTopics() []common.Hash {
	return []common.Hash{
		assetMintedEventSignature,
		assetFractionalizedEventSignature,
		fractionalTokenCreatedEventSignature,
		verificationFulfilledEventSignature,
		transferEventSignature,
		operatingRevenueRecordedEventSignature,
		operatingRevenueDistributedEventSignature,
		automatedRevenueRequestedEventSignature,
		automatedRevenueDistributedEventSignature,
	}
}

// EventSignature returns the topic0 for kind
func EventSignature(kind domain.EventKind) common.Hash {
	for sig, k := range eventKinds {
		if k == kind {
			return sig
		}
	}
	return common.Hash{}
}

const assetRegistryABIJSON = `[
	{"constant":true,"inputs":[],"name":"totalAssets","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getAsset","outputs":[
		{"name":"name","type":"string"},
		{"name":"assetType","type":"string"},
		{"name":"description","type":"string"},
		{"name":"imageURI","type":"string"},
		{"name":"estimatedValue","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"fractionalToken","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const fractionalTokenABIJSON = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"pricePerToken","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalRevenueRecorded","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalRevenueDistributed","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var (
	assetRegistryABI   = mustParseABI(assetRegistryABIJSON)
	fractionalTokenABI = mustParseABI(fractionalTokenABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}

// assetRecord mirrors the getAsset return tuple
type assetRecord struct {
	Name           string
	AssetType      string
	Description    string
	ImageURI       string
	EstimatedValue *big.Int
}
