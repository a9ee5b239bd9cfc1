package holders_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/holders"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/mocks"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

var (
	tokenAddr = domain.NormalizeAddress("0x00000000000000000000000000000000000000f1")
	ownerAddr = domain.NormalizeAddress("0x1111111111111111111111111111111111111111")
	buyerAddr = domain.NormalizeAddress("0x2222222222222222222222222222222222222222")
	otherAddr = domain.NormalizeAddress("0x3333333333333333333333333333333333333333")
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

// tokens returns n whole tokens in the smallest unit
func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type testRebuilderMocks struct {
	ctrl   *gomock.Controller
	client *mocks.MockEthereumClient
	store  *mocks.MemoryStore
}

func setupTest(t *testing.T) (*testRebuilderMocks, holders.Rebuilder) {
	ctrl := gomock.NewController(t)
	tm := &testRebuilderMocks{
		ctrl:   ctrl,
		client: mocks.NewMockEthereumClient(ctrl),
		store:  mocks.NewMemoryStore(),
	}
	return tm, holders.NewRebuilder(tm.client, tm.store, adapter.NewClock(), 4)
}

func tearDownTest(tm *testRebuilderMocks) {
	tm.ctrl.Finish()
}

func seedAsset(t *testing.T, st *mocks.MemoryStore, deployBlock *uint64) *schema.Asset {
	t.Helper()
	id := "7"
	token := tokenAddr
	asset := &schema.Asset{
		TokenID:          &id,
		Name:             "Vineyard",
		Status:           domain.AssetStatusFragmented,
		OwnerAddress:     ownerAddr,
		TokenAddress:     &token,
		TokenDeployBlock: deployBlock,
		TotalTokenSupply: "0",
		TokensSold:       "0",
	}
	created, err := st.CreateAsset(context.Background(), asset)
	require.NoError(t, err)
	require.True(t, created)
	return asset
}

func participants(addrs ...string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(addrs...)
}

func expectBalances(client *mocks.MockEthereumClient, balances map[string]*big.Int) {
	client.EXPECT().
		BalanceOf(gomock.Any(), tokenAddr, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, holder string) (*big.Int, error) {
			if b, ok := balances[holder]; ok {
				return b, nil
			}
			return new(big.Int), nil
		}).
		AnyTimes()
}

func holderMap(t *testing.T, st *mocks.MemoryStore, assetID uint64) map[string]schema.TokenHolder {
	t.Helper()
	rows, err := st.ListTokenHolders(context.Background(), assetID)
	require.NoError(t, err)
	m := make(map[string]schema.TokenHolder, len(rows))
	for _, r := range rows {
		m[r.Address] = r
	}
	return m
}

func TestRebuild_TwoHolderSplit(t *testing.T) {
	tm, r := setupTest(t)
	defer tearDownTest(tm)

	deployBlock := uint64(100)
	asset := seedAsset(t, tm.store, &deployBlock)
	ctx := context.Background()

	tm.client.EXPECT().FindCreationBlock(gomock.Any(), tokenAddr, uint64(100)).Return(uint64(100), nil)
	tm.client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(500), nil)
	tm.client.EXPECT().
		TransferParticipants(gomock.Any(), tokenAddr, uint64(100), uint64(500)).
		Return(participants(domain.ETHEREUM_ZERO_ADDRESS, ownerAddr, buyerAddr), nil)
	tm.client.EXPECT().TotalSupply(gomock.Any(), tokenAddr).Return(tokens(1000), nil)
	expectBalances(tm.client, map[string]*big.Int{
		ownerAddr: tokens(900),
		buyerAddr: tokens(100),
	})

	result, err := r.Rebuild(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 2, result.Upserted)
	assert.Empty(t, result.Failed)
	assert.Equal(t, uint64(100), result.CreationBlock)
	assert.Equal(t, uint64(500), result.ScannedToBlock)
	assert.Equal(t, 0, result.TokensSold.Cmp(tokens(100)))

	rows := holderMap(t, tm.store, asset.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "90.00", rows[ownerAddr].Percentage)
	assert.Equal(t, "10.00", rows[buyerAddr].Percentage)
	assert.Equal(t, tokens(900).String(), rows[ownerAddr].Balance)

	got, err := tm.store.GetAssetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, tokens(100).String(), got.TokensSold)
	assert.Equal(t, tokens(1000).String(), got.TotalTokenSupply)
}

func TestRebuild_HolderSumMatchesSupplyAfterBurn(t *testing.T) {
	tm, r := setupTest(t)
	defer tearDownTest(tm)

	asset := seedAsset(t, tm.store, nil)
	ctx := context.Background()

	// 1000 minted, 50 burned by the buyer
	supply := tokens(950)
	balances := map[string]*big.Int{
		ownerAddr: tokens(700),
		buyerAddr: tokens(50),
		otherAddr: tokens(200),
	}

	tm.client.EXPECT().FindCreationBlock(gomock.Any(), tokenAddr, uint64(0)).Return(uint64(42), nil)
	tm.client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(900), nil)
	tm.client.EXPECT().
		TransferParticipants(gomock.Any(), tokenAddr, uint64(42), uint64(900)).
		Return(participants(domain.ETHEREUM_ZERO_ADDRESS, ownerAddr, buyerAddr, otherAddr), nil)
	tm.client.EXPECT().TotalSupply(gomock.Any(), tokenAddr).Return(supply, nil)
	expectBalances(tm.client, balances)

	_, err := r.Rebuild(ctx, asset)
	require.NoError(t, err)

	rows := holderMap(t, tm.store, asset.ID)
	require.Len(t, rows, 3)

	sum := new(big.Int)
	percentSum := decimal.Zero
	for _, h := range rows {
		sum.Add(sum, domain.MustParseAmount(h.Balance))
		percentSum = percentSum.Add(decimal.RequireFromString(h.Percentage))
	}
	assert.Equal(t, 0, sum.Cmp(supply), "holder sum %s != supply %s", sum, supply)

	drift := percentSum.Sub(decimal.NewFromInt(100)).Abs()
	assert.True(t, drift.LessThanOrEqual(decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(len(rows))))), "percentages sum to %s", percentSum)

	// the creation block found by the search is remembered
	got, err := tm.store.GetAssetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TokenDeployBlock)
	assert.Equal(t, uint64(42), *got.TokenDeployBlock)
	assert.Equal(t, tokens(250).String(), got.TokensSold)
}

func TestRebuild_RemovesEmptiedHoldersButKeepsOwner(t *testing.T) {
	tm, r := setupTest(t)
	defer tearDownTest(tm)

	deployBlock := uint64(1)
	asset := seedAsset(t, tm.store, &deployBlock)
	ctx := context.Background()

	// a stale row from an earlier rebuild
	require.NoError(t, tm.store.UpsertTokenHolder(ctx, &schema.TokenHolder{
		AssetID: asset.ID, Address: otherAddr, Balance: tokens(5).String(), Percentage: "0.50",
	}))

	tm.client.EXPECT().FindCreationBlock(gomock.Any(), tokenAddr, uint64(1)).Return(uint64(1), nil)
	tm.client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(10), nil)
	tm.client.EXPECT().
		TransferParticipants(gomock.Any(), tokenAddr, uint64(1), uint64(10)).
		Return(participants(buyerAddr), nil)
	tm.client.EXPECT().TotalSupply(gomock.Any(), tokenAddr).Return(tokens(1000), nil)
	expectBalances(tm.client, map[string]*big.Int{buyerAddr: tokens(1000)})

	result, err := r.Rebuild(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	rows := holderMap(t, tm.store, asset.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "0", rows[ownerAddr].Balance)
	assert.Equal(t, "0.00", rows[ownerAddr].Percentage)
	assert.Equal(t, "100.00", rows[buyerAddr].Percentage)
	_, stale := rows[otherAddr]
	assert.False(t, stale)
}

func TestRebuild_FailedBalanceKeepsCachedRow(t *testing.T) {
	tm, r := setupTest(t)
	defer tearDownTest(tm)

	deployBlock := uint64(1)
	asset := seedAsset(t, tm.store, &deployBlock)
	ctx := context.Background()
	require.NoError(t, tm.store.UpsertTokenHolder(ctx, &schema.TokenHolder{
		AssetID: asset.ID, Address: otherAddr, Balance: tokens(30).String(), Percentage: "3.00",
	}))

	tm.client.EXPECT().FindCreationBlock(gomock.Any(), tokenAddr, uint64(1)).Return(uint64(1), nil)
	tm.client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(10), nil)
	tm.client.EXPECT().
		TransferParticipants(gomock.Any(), tokenAddr, uint64(1), uint64(10)).
		Return(participants(ownerAddr, buyerAddr, otherAddr), nil)
	tm.client.EXPECT().TotalSupply(gomock.Any(), tokenAddr).Return(tokens(1000), nil)
	tm.client.EXPECT().
		BalanceOf(gomock.Any(), tokenAddr, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, holder string) (*big.Int, error) {
			switch holder {
			case ownerAddr:
				return tokens(900), nil
			case buyerAddr:
				return tokens(70), nil
			default:
				return nil, &domain.ContractCallError{Method: "balanceOf", Err: errors.New("execution reverted")}
			}
		}).
		Times(3)

	result, err := r.Rebuild(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, []string{otherAddr}, result.Failed)
	// 70 read from chain plus 30 cached
	assert.Equal(t, 0, result.TokensSold.Cmp(tokens(100)))

	rows := holderMap(t, tm.store, asset.ID)
	assert.Equal(t, "3.00", rows[otherAddr].Percentage)
	assert.Equal(t, tokens(30).String(), rows[otherAddr].Balance)
}

func TestRebuild_Errors(t *testing.T) {
	t.Run("not fractionalized", func(t *testing.T) {
		tm, r := setupTest(t)
		defer tearDownTest(tm)

		_, err := r.Rebuild(context.Background(), &schema.Asset{ID: 1})
		assert.ErrorIs(t, err, domain.ErrTokenNotFractionalized)
	})

	t.Run("supply read fails", func(t *testing.T) {
		tm, r := setupTest(t)
		defer tearDownTest(tm)

		deployBlock := uint64(1)
		asset := seedAsset(t, tm.store, &deployBlock)
		connErr := &domain.ConnectionError{Endpoints: []string{"wss://a"}, Attempts: 3, Err: errors.New("refused")}

		tm.client.EXPECT().FindCreationBlock(gomock.Any(), tokenAddr, uint64(1)).Return(uint64(1), nil)
		tm.client.EXPECT().LatestBlock(gomock.Any()).Return(uint64(10), nil)
		tm.client.EXPECT().TransferParticipants(gomock.Any(), tokenAddr, uint64(1), uint64(10)).Return(participants(), nil)
		tm.client.EXPECT().TotalSupply(gomock.Any(), tokenAddr).Return(nil, connErr)

		_, err := r.Rebuild(context.Background(), asset)
		assert.True(t, domain.IsRetryable(err))
	})
}

func TestRefreshAddresses(t *testing.T) {
	tm, r := setupTest(t)
	defer tearDownTest(tm)

	deployBlock := uint64(1)
	asset := seedAsset(t, tm.store, &deployBlock)
	ctx := context.Background()
	for addr, balance := range map[string]*big.Int{ownerAddr: tokens(900), buyerAddr: tokens(100)} {
		require.NoError(t, tm.store.UpsertTokenHolder(ctx, &schema.TokenHolder{
			AssetID: asset.ID, Address: addr, Balance: balance.String(), Percentage: domain.Percentage(balance, tokens(1000)),
		}))
	}

	// buyer sends 40 to a new holder; only the two parties are read
	tm.client.EXPECT().TotalSupply(gomock.Any(), tokenAddr).Return(tokens(1000), nil)
	tm.client.EXPECT().BalanceOf(gomock.Any(), tokenAddr, buyerAddr).Return(tokens(60), nil)
	tm.client.EXPECT().BalanceOf(gomock.Any(), tokenAddr, otherAddr).Return(tokens(40), nil)

	result, err := r.RefreshAddresses(ctx, asset, "0x2222222222222222222222222222222222222222", otherAddr, domain.ETHEREUM_ZERO_ADDRESS)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 0, result.TokensSold.Cmp(tokens(100)))

	rows := holderMap(t, tm.store, asset.ID)
	require.Len(t, rows, 3)
	assert.Equal(t, "6.00", rows[buyerAddr].Percentage)
	assert.Equal(t, "4.00", rows[otherAddr].Percentage)
	assert.Equal(t, "90.00", rows[ownerAddr].Percentage)

	t.Run("no addresses is a no-op", func(t *testing.T) {
		result, err := r.RefreshAddresses(ctx, asset, domain.ETHEREUM_ZERO_ADDRESS)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Checked)
	})
}
