package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/feral-file/ff-asset-syncer/internal/block"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/gateway"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

var errEmptyResult = errors.New("empty call result")

// Config holds the contract addresses and search bounds of the reader
type Config struct {
	ChainID         domain.Chain
	AssetContract   string
	FactoryContract string
	// DeployBlock is the lowest block any token search goes back to
	DeployBlock        uint64
	SearchChunkSize    uint64
	MaxLookbackBlocks  uint64
	BlockTimeCacheSize int
}

// Client reads asset registry and fractional token state and decodes their logs
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=Client=MockEthereumClient
type Client interface {
	// TotalAssets reads the registry's asset counter
	TotalAssets(ctx context.Context) (uint64, error)

	// GetAsset reads metadata, owner and fractional token of one asset
	GetAsset(ctx context.Context, tokenID *big.Int) (*domain.OnChainAsset, error)

	// TokenInfo reads the state of a fractional token contract
	TokenInfo(ctx context.Context, tokenAddress string) (*domain.TokenInfo, error)

	// TotalSupply reads totalSupply of a fractional token
	TotalSupply(ctx context.Context, tokenAddress string) (*big.Int, error)

	// BalanceOf reads the balance of holder
	BalanceOf(ctx context.Context, tokenAddress, holder string) (*big.Int, error)

	// RevenueTotals reads the cumulative recorded and distributed revenue
	RevenueTotals(ctx context.Context, tokenAddress string) (recorded *big.Int, distributed *big.Int, err error)

	// TokenOwner reads the owner of a fractional token contract
	TokenOwner(ctx context.Context, tokenAddress string) (string, error)

	// FindCreationBlock returns knownBlock when set, otherwise searches backwards
	// for the earliest mint transfer of the token
	FindCreationBlock(ctx context.Context, tokenAddress string, knownBlock uint64) (uint64, error)

	// TransferParticipants collects every sender and receiver of token transfers in [fromBlock, toBlock]
	TransferParticipants(ctx context.Context, tokenAddress string, fromBlock, toBlock uint64) (mapset.Set[string], error)

	// ParseEventLog decodes a log; it returns nil without error for logs that share a
	// signature but are not handled (ERC721 transfers)
	ParseEventLog(ctx context.Context, vLog types.Log) (*domain.ChainEvent, error)

	// LatestBlock returns the current chain head
	LatestBlock(ctx context.Context) (uint64, error)
}

type client struct {
	config        Config
	gateway       gateway.Gateway
	assetContract common.Address
	blockTimes    *block.TimestampCache
}

// NewClient creates a Client reading through gw
func NewClient(cfg Config, gw gateway.Gateway) (Client, error) {
	if !common.IsHexAddress(cfg.AssetContract) {
		return nil, fmt.Errorf("invalid asset contract address: %q", cfg.AssetContract)
	}
	if cfg.SearchChunkSize == 0 {
		cfg.SearchChunkSize = 50000
	}

	blockTimes, err := block.NewTimestampCache(NewBlockTimeFetcher(gw), cfg.BlockTimeCacheSize)
	if err != nil {
		return nil, err
	}

	return &client{
		config:        cfg,
		gateway:       gw,
		assetContract: common.HexToAddress(cfg.AssetContract),
		blockTimes:    blockTimes,
	}, nil
}

// call packs method, executes it against contract and unpacks into out
func (c *client) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, out interface{}, args ...interface{}) error {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return &domain.ContractCallError{Contract: contract.Hex(), Method: method, Err: fmt.Errorf("failed to pack data: %w", err)}
	}

	result, err := c.gateway.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
	if err != nil {
		var connErr *domain.ConnectionError
		if errors.As(err, &connErr) || ctx.Err() != nil {
			return err
		}
		return &domain.ContractCallError{Contract: contract.Hex(), Method: method, Err: err}
	}
	if len(result) == 0 {
		return &domain.ContractCallError{Contract: contract.Hex(), Method: method, Err: errEmptyResult}
	}

	if err := parsed.UnpackIntoInterface(out, method, result); err != nil {
		return &domain.ContractCallError{Contract: contract.Hex(), Method: method, Err: fmt.Errorf("failed to unpack result: %w", err)}
	}
	return nil
}

func (c *client) TotalAssets(ctx context.Context) (uint64, error) {
	var count *big.Int
	if err := c.call(ctx, c.assetContract, assetRegistryABI, "totalAssets", &count); err != nil {
		return 0, err
	}
	if !count.IsUint64() {
		return 0, &domain.ContractCallError{Contract: c.assetContract.Hex(), Method: "totalAssets", Err: fmt.Errorf("counter out of range: %s", count)}
	}
	return count.Uint64(), nil
}

func (c *client) GetAsset(ctx context.Context, tokenID *big.Int) (*domain.OnChainAsset, error) {
	var (
		record       assetRecord
		owner        common.Address
		tokenAddress common.Address
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.call(gCtx, c.assetContract, assetRegistryABI, "getAsset", &record, tokenID)
	})
	g.Go(func() error {
		return c.call(gCtx, c.assetContract, assetRegistryABI, "ownerOf", &owner, tokenID)
	})
	g.Go(func() error {
		return c.call(gCtx, c.assetContract, assetRegistryABI, "fractionalToken", &tokenAddress, tokenID)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", tokenID, err)
	}

	return &domain.OnChainAsset{
		TokenID:        new(big.Int).Set(tokenID),
		Name:           record.Name,
		AssetType:      record.AssetType,
		Description:    record.Description,
		ImageURI:       record.ImageURI,
		EstimatedValue: record.EstimatedValue,
		Owner:          owner.Hex(),
		TokenAddress:   tokenAddress.Hex(),
	}, nil
}

func (c *client) TokenInfo(ctx context.Context, tokenAddress string) (*domain.TokenInfo, error) {
	token := common.HexToAddress(tokenAddress)
	info := &domain.TokenInfo{Address: token.Hex()}

	var owner common.Address
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.call(gCtx, token, fractionalTokenABI, "name", &info.Name)
	})
	g.Go(func() error {
		return c.call(gCtx, token, fractionalTokenABI, "symbol", &info.Symbol)
	})
	g.Go(func() error {
		return c.call(gCtx, token, fractionalTokenABI, "totalSupply", &info.TotalSupply)
	})
	// the remaining getters are not part of ERC20; a token without them still indexes
	g.Go(func() error {
		c.optionalCall(gCtx, token, "pricePerToken", &info.PricePerToken)
		return nil
	})
	g.Go(func() error {
		c.optionalCall(gCtx, token, "totalRevenueRecorded", &info.TotalRevenueRecorded)
		return nil
	})
	g.Go(func() error {
		c.optionalCall(gCtx, token, "totalRevenueDistributed", &info.TotalRevenueDistributed)
		return nil
	})
	g.Go(func() error {
		c.optionalCall(gCtx, token, "owner", &owner)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read token %s: %w", token.Hex(), err)
	}

	if owner != (common.Address{}) {
		info.Owner = owner.Hex()
	}
	for _, v := range []**big.Int{&info.PricePerToken, &info.TotalRevenueRecorded, &info.TotalRevenueDistributed} {
		if *v == nil {
			*v = new(big.Int)
		}
	}
	return info, nil
}

func (c *client) optionalCall(ctx context.Context, token common.Address, method string, out interface{}) {
	if err := c.call(ctx, token, fractionalTokenABI, method, out); err != nil {
		logger.WarnCtx(ctx, "Optional token getter failed",
			zap.String("token", token.Hex()),
			zap.String("method", method),
			zap.Error(err))
	}
}

func (c *client) TotalSupply(ctx context.Context, tokenAddress string) (*big.Int, error) {
	var supply *big.Int
	if err := c.call(ctx, common.HexToAddress(tokenAddress), fractionalTokenABI, "totalSupply", &supply); err != nil {
		return nil, err
	}
	return supply, nil
}

func (c *client) BalanceOf(ctx context.Context, tokenAddress, holder string) (*big.Int, error) {
	var balance *big.Int
	if err := c.call(ctx, common.HexToAddress(tokenAddress), fractionalTokenABI, "balanceOf", &balance, common.HexToAddress(holder)); err != nil {
		return nil, err
	}
	return balance, nil
}

func (c *client) RevenueTotals(ctx context.Context, tokenAddress string) (*big.Int, *big.Int, error) {
	token := common.HexToAddress(tokenAddress)

	var recorded, distributed *big.Int
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.call(gCtx, token, fractionalTokenABI, "totalRevenueRecorded", &recorded)
	})
	g.Go(func() error {
		return c.call(gCtx, token, fractionalTokenABI, "totalRevenueDistributed", &distributed)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return recorded, distributed, nil
}

func (c *client) TokenOwner(ctx context.Context, tokenAddress string) (string, error) {
	var owner common.Address
	if err := c.call(ctx, common.HexToAddress(tokenAddress), fractionalTokenABI, "owner", &owner); err != nil {
		return "", err
	}
	return owner.Hex(), nil
}

func (c *client) LatestBlock(ctx context.Context) (uint64, error) {
	return c.gateway.LatestBlock(ctx)
}

// mintQuery matches Transfer(0x0, *, value) logs of token
func mintQuery(token common.Address, from, to uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{token},
		Topics: [][]common.Hash{
			{transferEventSignature},
			{common.Hash{}},
		},
	}
}

func (c *client) FindCreationBlock(ctx context.Context, tokenAddress string, knownBlock uint64) (uint64, error) {
	if knownBlock > 0 {
		return knownBlock, nil
	}

	head, err := c.gateway.LatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read head: %w", err)
	}

	floor := c.config.DeployBlock
	if c.config.MaxLookbackBlocks > 0 && head > c.config.MaxLookbackBlocks {
		floor = max(floor, head-c.config.MaxLookbackBlocks)
	}
	floor = min(floor, head)

	token := common.HexToAddress(tokenAddress)
	chunk := c.config.SearchChunkSize

	var (
		earliest uint64
		found    bool
		lo       uint64
	)
	for hi := head; ; hi = lo - 1 {
		lo = floor
		if hi-floor+1 > chunk {
			lo = hi - chunk + 1
		}

		logs, err := c.gateway.FilterLogs(ctx, mintQuery(token, lo, hi))
		if err != nil {
			return 0, fmt.Errorf("failed to search mint transfers in blocks %d-%d: %w", lo, hi, err)
		}
		for _, l := range logs {
			if !found || l.BlockNumber < earliest {
				earliest = l.BlockNumber
				found = true
			}
		}

		if lo == floor {
			break
		}
		// early stop only; pruned nodes cannot serve historical code
		code, err := c.gateway.CodeAt(ctx, token, new(big.Int).SetUint64(lo-1))
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			logger.WarnCtx(ctx, "Failed to read historical contract code, continuing search",
				zap.String("token", token.Hex()),
				zap.Uint64("block", lo-1),
				zap.Error(err))
			continue
		}
		if len(code) == 0 {
			// the contract did not exist before this window
			break
		}
	}

	if !found {
		logger.WarnCtx(ctx, "No mint transfer found, scanning from search floor",
			zap.String("token", token.Hex()),
			zap.Uint64("block", lo))
		return lo, nil
	}
	return earliest, nil
}

func (c *client) TransferParticipants(ctx context.Context, tokenAddress string, fromBlock, toBlock uint64) (mapset.Set[string], error) {
	participants := mapset.NewThreadUnsafeSet[string]()
	if fromBlock > toBlock {
		return participants, nil
	}

	logs, err := c.gateway.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(tokenAddress)},
		Topics:    [][]common.Hash{{transferEventSignature}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfers of %s: %w", tokenAddress, err)
	}

	for _, l := range logs {
		if len(l.Topics) != 3 || l.Removed {
			continue
		}
		participants.Add(common.BytesToAddress(l.Topics[1].Bytes()).Hex())
		participants.Add(common.BytesToAddress(l.Topics[2].Bytes()).Hex())
	}
	return participants, nil
}
