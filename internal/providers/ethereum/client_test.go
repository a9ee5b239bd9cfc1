package ethereum_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	provider "github.com/feral-file/ff-asset-syncer/internal/providers/ethereum"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/mocks"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

var (
	assetContract = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenContract = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	ownerAddress  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	buyerAddress  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type testClientMocks struct {
	ctrl    *gomock.Controller
	gateway *mocks.MockGateway
	client  provider.Client
}

func setupTest(t *testing.T) *testClientMocks {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	c, err := provider.NewClient(provider.Config{
		ChainID:           domain.ChainEthereumSepolia,
		AssetContract:     assetContract.Hex(),
		DeployBlock:       100,
		SearchChunkSize:   1000,
		MaxLookbackBlocks: 1_000_000,
	}, gw)
	require.NoError(t, err)

	return &testClientMocks{ctrl: ctrl, gateway: gw, client: c}
}

func tearDownTest(tm *testClientMocks) {
	tm.ctrl.Finish()
}

// packOutputs abi-encodes the return values of method
func packOutputs(t *testing.T, parsed abi.ABI, method string, values ...interface{}) []byte {
	t.Helper()
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

// respondByMethod answers CallContract by the 4-byte selector of the call
func respondByMethod(t *testing.T, parsed abi.ABI, answers map[string][]byte, failures map[string]error) func(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return func(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
		method, err := parsed.MethodById(msg.Data[:4])
		require.NoError(t, err)
		if err, ok := failures[method.Name]; ok {
			return nil, err
		}
		return answers[method.Name], nil
	}
}

func TestNewClient_InvalidAssetContract(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := provider.NewClient(provider.Config{AssetContract: "not-an-address"}, mocks.NewMockGateway(ctrl))
	assert.Error(t, err)
}

func TestClient_TotalAssets(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.gateway.EXPECT().
		CallContract(ctx, gomock.Any(), nil).
		DoAndReturn(func(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			assert.Equal(t, assetContract, *msg.To)
			assert.Equal(t, provider.AssetRegistryABI.Methods["totalAssets"].ID, msg.Data[:4])
			return packOutputs(t, provider.AssetRegistryABI, "totalAssets", big.NewInt(3)), nil
		})

	count, err := tm.client.TotalAssets(ctx)

	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestClient_TotalAssets_Errors(t *testing.T) {
	tests := []struct {
		name      string
		result    []byte
		callErr   error
		checkType func(*testing.T, error)
	}{
		{
			name:    "revert becomes contract call error",
			callErr: errors.New("execution reverted"),
			checkType: func(t *testing.T, err error) {
				var callErr *domain.ContractCallError
				require.ErrorAs(t, err, &callErr)
				assert.Equal(t, "totalAssets", callErr.Method)
			},
		},
		{
			name:   "empty result becomes contract call error",
			result: []byte{},
			checkType: func(t *testing.T, err error) {
				var callErr *domain.ContractCallError
				require.ErrorAs(t, err, &callErr)
				assert.ErrorIs(t, err, provider.ErrEmptyResult)
			},
		},
		{
			name:    "connection error passes through",
			callErr: &domain.ConnectionError{Endpoints: []string{"ws://a"}, Attempts: 3, Err: errors.New("dial tcp")},
			checkType: func(t *testing.T, err error) {
				var connErr *domain.ConnectionError
				require.ErrorAs(t, err, &connErr)
				assert.True(t, domain.IsRetryable(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTest(t)
			defer tearDownTest(tm)

			tm.gateway.EXPECT().CallContract(gomock.Any(), gomock.Any(), nil).Return(tt.result, tt.callErr)

			_, err := tm.client.TotalAssets(context.Background())

			require.Error(t, err)
			tt.checkType(t, err)
		})
	}
}

func TestClient_GetAsset(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	answers := map[string][]byte{
		"getAsset":        packOutputs(t, provider.AssetRegistryABI, "getAsset", "Harbour Loft", "real_estate", "Two bedrooms", "ipfs://Qm1", big.NewInt(250000)),
		"ownerOf":         packOutputs(t, provider.AssetRegistryABI, "ownerOf", ownerAddress),
		"fractionalToken": packOutputs(t, provider.AssetRegistryABI, "fractionalToken", tokenContract),
	}
	tm.gateway.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), nil).
		DoAndReturn(respondByMethod(t, provider.AssetRegistryABI, answers, nil)).
		Times(3)

	asset, err := tm.client.GetAsset(context.Background(), big.NewInt(7))

	require.NoError(t, err)
	assert.Equal(t, "7", asset.TokenID.String())
	assert.Equal(t, "Harbour Loft", asset.Name)
	assert.Equal(t, "real_estate", asset.AssetType)
	assert.Equal(t, "Two bedrooms", asset.Description)
	assert.Equal(t, "ipfs://Qm1", asset.ImageURI)
	assert.Equal(t, "250000", asset.EstimatedValue.String())
	assert.Equal(t, ownerAddress.Hex(), asset.Owner)
	assert.Equal(t, tokenContract.Hex(), asset.TokenAddress)
	assert.True(t, asset.IsFractionalized())
}

func TestClient_GetAsset_OwnerRevert(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	answers := map[string][]byte{
		"getAsset":        packOutputs(t, provider.AssetRegistryABI, "getAsset", "A", "t", "d", "i", big.NewInt(1)),
		"fractionalToken": packOutputs(t, provider.AssetRegistryABI, "fractionalToken", common.Address{}),
	}
	failures := map[string]error{"ownerOf": errors.New("execution reverted: nonexistent token")}
	tm.gateway.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), nil).
		DoAndReturn(respondByMethod(t, provider.AssetRegistryABI, answers, failures)).
		MaxTimes(3)

	asset, err := tm.client.GetAsset(context.Background(), big.NewInt(9))

	assert.Nil(t, asset)
	var callErr *domain.ContractCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "ownerOf", callErr.Method)
}

func TestClient_TokenInfo(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	supply, _ := new(big.Int).SetString("1000000000000000000000", 10)
	answers := map[string][]byte{
		"name":                    packOutputs(t, provider.FractionalTokenABI, "name", "Harbour Loft Shares"),
		"symbol":                  packOutputs(t, provider.FractionalTokenABI, "symbol", "HLS"),
		"totalSupply":             packOutputs(t, provider.FractionalTokenABI, "totalSupply", supply),
		"pricePerToken":           packOutputs(t, provider.FractionalTokenABI, "pricePerToken", big.NewInt(5000)),
		"totalRevenueRecorded":    packOutputs(t, provider.FractionalTokenABI, "totalRevenueRecorded", big.NewInt(12)),
		"totalRevenueDistributed": packOutputs(t, provider.FractionalTokenABI, "totalRevenueDistributed", big.NewInt(10)),
	}
	// owner() is optional and may be missing on older tokens
	failures := map[string]error{"owner": errors.New("execution reverted")}
	tm.gateway.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), nil).
		DoAndReturn(respondByMethod(t, provider.FractionalTokenABI, answers, failures)).
		Times(7)

	info, err := tm.client.TokenInfo(context.Background(), tokenContract.Hex())

	require.NoError(t, err)
	assert.Equal(t, tokenContract.Hex(), info.Address)
	assert.Equal(t, "Harbour Loft Shares", info.Name)
	assert.Equal(t, "HLS", info.Symbol)
	assert.Equal(t, supply.String(), info.TotalSupply.String())
	assert.Equal(t, "5000", info.PricePerToken.String())
	assert.Equal(t, "12", info.TotalRevenueRecorded.String())
	assert.Equal(t, "10", info.TotalRevenueDistributed.String())
	assert.Empty(t, info.Owner)
}

func TestClient_BalanceOf(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.gateway.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), nil).
		DoAndReturn(func(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			args, err := provider.FractionalTokenABI.Methods["balanceOf"].Inputs.Unpack(msg.Data[4:])
			require.NoError(t, err)
			assert.Equal(t, buyerAddress, args[0])
			return packOutputs(t, provider.FractionalTokenABI, "balanceOf", big.NewInt(42)), nil
		})

	balance, err := tm.client.BalanceOf(context.Background(), tokenContract.Hex(), buyerAddress.Hex())

	require.NoError(t, err)
	assert.Equal(t, "42", balance.String())
}

func TestClient_RevenueTotals(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	answers := map[string][]byte{
		"totalRevenueRecorded":    packOutputs(t, provider.FractionalTokenABI, "totalRevenueRecorded", big.NewInt(30)),
		"totalRevenueDistributed": packOutputs(t, provider.FractionalTokenABI, "totalRevenueDistributed", big.NewInt(20)),
	}
	tm.gateway.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), nil).
		DoAndReturn(respondByMethod(t, provider.FractionalTokenABI, answers, nil)).
		Times(2)

	recorded, distributed, err := tm.client.RevenueTotals(context.Background(), tokenContract.Hex())

	require.NoError(t, err)
	assert.Equal(t, "30", recorded.String())
	assert.Equal(t, "20", distributed.String())
}

func mintLog(blockNumber uint64, to common.Address) types.Log {
	return types.Log{
		Address:     tokenContract,
		BlockNumber: blockNumber,
		Topics: []common.Hash{
			provider.EventSignature(domain.EventKindTokenTransfer),
			common.Hash{},
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(1).Bytes(), 32),
	}
}

func TestClient_FindCreationBlock_Known(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	block, err := tm.client.FindCreationBlock(context.Background(), tokenContract.Hex(), 4242)

	require.NoError(t, err)
	assert.Equal(t, uint64(4242), block)
}

func TestClient_FindCreationBlock_BackwardSearch(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.gateway.EXPECT().LatestBlock(ctx).Return(uint64(5000), nil)

	windows := map[uint64][]types.Log{
		4001: nil,
		3001: {mintLog(3500, ownerAddress)},
		2001: {mintLog(2100, ownerAddress), mintLog(2500, buyerAddress)},
	}
	tm.gateway.EXPECT().
		FilterLogs(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			assert.Equal(t, []common.Address{tokenContract}, q.Addresses)
			assert.Equal(t, common.Hash{}, q.Topics[1][0])
			assert.Equal(t, q.FromBlock.Uint64()+999, q.ToBlock.Uint64())
			return windows[q.FromBlock.Uint64()], nil
		}).
		Times(3)

	// code exists before 4001 and 3001 but not before 2001
	tm.gateway.EXPECT().CodeAt(ctx, tokenContract, big.NewInt(4000)).Return([]byte{0x60}, nil)
	tm.gateway.EXPECT().CodeAt(ctx, tokenContract, big.NewInt(3000)).Return([]byte{0x60}, nil)
	tm.gateway.EXPECT().CodeAt(ctx, tokenContract, big.NewInt(2000)).Return(nil, nil)

	block, err := tm.client.FindCreationBlock(ctx, tokenContract.Hex(), 0)

	require.NoError(t, err)
	assert.Equal(t, uint64(2100), block)
}

func TestClient_FindCreationBlock_PrunedNode(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.gateway.EXPECT().LatestBlock(ctx).Return(uint64(3000), nil)

	windows := map[uint64][]types.Log{
		2001: nil,
		1001: {mintLog(1500, ownerAddress)},
		100:  nil,
	}
	tm.gateway.EXPECT().
		FilterLogs(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			return windows[q.FromBlock.Uint64()], nil
		}).
		Times(3)

	// historical state is gone, so the search runs down to the deploy block
	missing := errors.New("missing trie node")
	tm.gateway.EXPECT().CodeAt(ctx, tokenContract, big.NewInt(2000)).Return(nil, missing)
	tm.gateway.EXPECT().CodeAt(ctx, tokenContract, big.NewInt(1000)).Return(nil, missing)

	block, err := tm.client.FindCreationBlock(ctx, tokenContract.Hex(), 0)

	require.NoError(t, err)
	assert.Equal(t, uint64(1500), block)
}

func TestClient_FindCreationBlock_StopsAtDeployBlock(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.gateway.EXPECT().LatestBlock(ctx).Return(uint64(600), nil)
	// one window [100, 600] bounded by the deploy block, no code lookups needed
	tm.gateway.EXPECT().
		FilterLogs(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			assert.Equal(t, uint64(100), q.FromBlock.Uint64())
			assert.Equal(t, uint64(600), q.ToBlock.Uint64())
			return nil, nil
		})

	block, err := tm.client.FindCreationBlock(ctx, tokenContract.Hex(), 0)

	require.NoError(t, err)
	assert.Equal(t, uint64(100), block)
}

func TestClient_TransferParticipants(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	transfer := types.Log{
		Address: tokenContract,
		Topics: []common.Hash{
			provider.EventSignature(domain.EventKindTokenTransfer),
			common.BytesToHash(ownerAddress.Bytes()),
			common.BytesToHash(buyerAddress.Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(5).Bytes(), 32),
	}
	tm.gateway.EXPECT().
		FilterLogs(ctx, gomock.Any()).
		Return([]types.Log{mintLog(10, ownerAddress), transfer, transfer}, nil)

	participants, err := tm.client.TransferParticipants(ctx, tokenContract.Hex(), 10, 20)

	require.NoError(t, err)
	assert.Equal(t, 3, participants.Cardinality())
	assert.True(t, participants.Contains(ownerAddress.Hex()))
	assert.True(t, participants.Contains(buyerAddress.Hex()))
	assert.True(t, participants.Contains(common.Address{}.Hex()))
}

func TestClient_TransferParticipants_EmptyRange(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	participants, err := tm.client.TransferParticipants(context.Background(), tokenContract.Hex(), 20, 10)

	require.NoError(t, err)
	assert.Equal(t, 0, participants.Cardinality())
}
