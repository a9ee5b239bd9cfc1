package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

func (c *client) ParseEventLog(ctx context.Context, vLog types.Log) (*domain.ChainEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, fmt.Errorf("%w: log without topics in tx %s", domain.ErrUnknownEvent, vLog.TxHash.Hex())
	}

	kind, ok := eventKinds[vLog.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: signature %s", domain.ErrUnknownEvent, vLog.Topics[0].Hex())
	}

	if kind == domain.EventKindTokenTransfer && len(vLog.Topics) == 4 {
		logger.DebugCtx(ctx, "Skipping ERC721 transfer event",
			zap.String("contract", vLog.Address.Hex()),
			zap.String("tx_hash", vLog.TxHash.Hex()))
		return nil, nil
	}

	event := &domain.ChainEvent{
		Kind:            kind,
		Chain:           c.config.ChainID,
		ContractAddress: vLog.Address.Hex(),
		TxHash:          vLog.TxHash.Hex(),
		LogIndex:        vLog.Index,
		BlockNumber:     vLog.BlockNumber,
	}
	if err := decodePayload(event, vLog); err != nil {
		return nil, err
	}

	ts, err := c.blockTimes.BlockTime(ctx, vLog.BlockNumber)
	if err != nil {
		return nil, err
	}
	event.Timestamp = ts

	return event, nil
}

// decodePayload fills the kind specific fields of event from the log topics and data
func decodePayload(event *domain.ChainEvent, vLog types.Log) error {
	switch event.Kind {
	case domain.EventKindAssetMinted:
		// AssetMinted(uint256 indexed tokenId, address indexed owner)
		if err := expectLayout(vLog, 3, 0); err != nil {
			return err
		}
		event.AssetTokenID = topicUint(vLog.Topics[1])
		event.OwnerAddress = topicAddress(vLog.Topics[2])

	case domain.EventKindAssetFractionalized, domain.EventKindFractionalTokenCreated:
		// (uint256 indexed tokenId, address indexed tokenAddress, uint256 totalSupply)
		if err := expectLayout(vLog, 3, 1); err != nil {
			return err
		}
		event.AssetTokenID = topicUint(vLog.Topics[1])
		event.TokenAddress = topicAddress(vLog.Topics[2])
		event.TotalSupply = dataWord(vLog.Data, 0)

	case domain.EventKindVerificationFulfilled:
		// VerificationFulfilled(bytes32 indexed requestId, uint256 indexed tokenId, address indexed owner)
		if err := expectLayout(vLog, 4, 0); err != nil {
			return err
		}
		event.RequestID = vLog.Topics[1].Hex()
		event.AssetTokenID = topicUint(vLog.Topics[2])
		event.OwnerAddress = topicAddress(vLog.Topics[3])

	case domain.EventKindTokenTransfer:
		// Transfer(address indexed from, address indexed to, uint256 value)
		if err := expectLayout(vLog, 3, 1); err != nil {
			return err
		}
		event.TokenAddress = vLog.Address.Hex()
		event.FromAddress = topicAddress(vLog.Topics[1])
		event.ToAddress = topicAddress(vLog.Topics[2])
		event.Amount = dataWord(vLog.Data, 0)

	case domain.EventKindOperatingRevenueRecorded,
		domain.EventKindOperatingRevenueDistributed,
		domain.EventKindAutomatedRevenueDistributed:
		// (uint256 amount, uint256 cumulativeTotal)
		if err := expectLayout(vLog, 1, 2); err != nil {
			return err
		}
		event.TokenAddress = vLog.Address.Hex()
		event.Amount = dataWord(vLog.Data, 0)
		event.CumulativeTotal = dataWord(vLog.Data, 1)

	case domain.EventKindAutomatedRevenueRequested:
		// AutomatedRevenueRequested(bytes32 indexed requestId, uint256 amount, uint256 totalRecorded)
		if err := expectLayout(vLog, 2, 2); err != nil {
			return err
		}
		event.TokenAddress = vLog.Address.Hex()
		event.RequestID = vLog.Topics[1].Hex()
		event.Amount = dataWord(vLog.Data, 0)
		event.CumulativeTotal = dataWord(vLog.Data, 1)

	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, event.Kind)
	}
	return nil
}

func expectLayout(vLog types.Log, topics, words int) error {
	if len(vLog.Topics) != topics {
		return fmt.Errorf("invalid %s log in tx %s: expected %d topics, got %d",
			vLog.Topics[0].Hex(), vLog.TxHash.Hex(), topics, len(vLog.Topics))
	}
	if len(vLog.Data) < words*32 {
		return fmt.Errorf("invalid %s log in tx %s: expected %d data words, got %d bytes",
			vLog.Topics[0].Hex(), vLog.TxHash.Hex(), words, len(vLog.Data))
	}
	return nil
}

func topicUint(topic common.Hash) *big.Int {
	return new(big.Int).SetBytes(topic.Bytes())
}

func topicAddress(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()).Hex()
}

func dataWord(data []byte, i int) *big.Int {
	return new(big.Int).SetBytes(data[i*32 : (i+1)*32])
}
