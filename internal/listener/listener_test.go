package listener_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-asset-syncer/internal/adapter"
	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/gateway"
	"github.com/feral-file/ff-asset-syncer/internal/keyqueue"
	"github.com/feral-file/ff-asset-syncer/internal/listener"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/mocks"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

var (
	registryAddr = domain.NormalizeAddress("0x00000000000000000000000000000000000000a1")
	factoryAddr  = domain.NormalizeAddress("0x00000000000000000000000000000000000000b1")
	tokenAddr    = domain.NormalizeAddress("0x00000000000000000000000000000000000000f1")
	strayToken   = domain.NormalizeAddress("0x00000000000000000000000000000000000000f9")
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

type testListenerMocks struct {
	ctrl       *gomock.Controller
	gateway    *mocks.MockGateway
	client     *mocks.MockEthereumClient
	queue      *mocks.MockKeyQueue
	dispatcher *mocks.MockDispatcher
	store      *mocks.MemoryStore
	watchlist  *listener.Watchlist

	mu   sync.Mutex
	keys []string
}

func setupTest(t *testing.T) *testListenerMocks {
	ctrl := gomock.NewController(t)
	tm := &testListenerMocks{
		ctrl:       ctrl,
		gateway:    mocks.NewMockGateway(ctrl),
		client:     mocks.NewMockEthereumClient(ctrl),
		queue:      mocks.NewMockKeyQueue(ctrl),
		dispatcher: mocks.NewMockDispatcher(ctrl),
		store:      mocks.NewMemoryStore(),
		watchlist:  listener.NewWatchlist(),
	}

	// run queued tasks inline and remember their keys
	tm.queue.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Do(func(key string, fn keyqueue.Task) {
			tm.mu.Lock()
			tm.keys = append(tm.keys, key)
			tm.mu.Unlock()
			_ = fn(context.Background())
		}).
		AnyTimes()
	return tm
}

func tearDownTest(tm *testListenerMocks) {
	tm.ctrl.Finish()
}

func (tm *testListenerMocks) newListener(t *testing.T, cfg listener.Config) listener.Listener {
	l, err := listener.New(cfg, tm.gateway, tm.client, tm.store, tm.queue, tm.dispatcher, tm.watchlist, adapter.NewClock())
	require.NoError(t, err)
	return l
}

func (tm *testListenerMocks) submittedKeys() []string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return append([]string(nil), tm.keys...)
}

func testConfig() listener.Config {
	return listener.Config{
		ChainID:         domain.ChainEthereumSepolia,
		AssetContract:   registryAddr,
		FactoryContract: factoryAddr,
		CursorSaveFreq:  10,
		CursorSaveDelay: time.Hour,
	}
}

func testLog(block uint64, index uint, address string) types.Log {
	return types.Log{
		Address:     common.HexToAddress(address),
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Topics:      []common.Hash{common.HexToHash("0x01")},
	}
}

// deliver returns a Subscribe implementation that hands logs to the listener,
// then waits for the session to end
func deliver(t *testing.T, logs []types.Log, after func()) func(context.Context, goethereum.FilterQuery, gateway.LogHandler) error {
	return func(ctx context.Context, _ goethereum.FilterQuery, handler gateway.LogHandler) error {
		for _, l := range logs {
			handler(ctx, l)
		}
		if after != nil {
			after()
		}
		<-ctx.Done()
		return nil
	}
}

func runListener(t *testing.T, l listener.Listener, ctx context.Context, from uint64) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, from) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestRun_RoutesEventsByAsset(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tokenID := "7"
	token := tokenAddr
	_, err := tm.store.CreateAsset(context.Background(), &schema.Asset{TokenID: &tokenID, TokenAddress: &token, Status: domain.AssetStatusFragmented})
	require.NoError(t, err)

	events := map[uint]*domain.ChainEvent{
		0: {Kind: domain.EventKindAssetMinted, TxHash: "0x1", LogIndex: 0, AssetTokenID: big.NewInt(9)},
		1: {Kind: domain.EventKindTokenTransfer, TxHash: "0x1", LogIndex: 1, TokenAddress: tokenAddr},
		2: {Kind: domain.EventKindOperatingRevenueRecorded, TxHash: "0x1", LogIndex: 2, TokenAddress: strayToken},
	}
	tm.client.EXPECT().
		ParseEventLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, vLog types.Log) (*domain.ChainEvent, error) {
			switch vLog.Index {
			case 3:
				return nil, domain.ErrUnknownEvent
			case 4:
				// ERC721 transfer
				return nil, nil
			case 5:
				return nil, errors.New("bad payload")
			}
			return events[vLog.Index], nil
		}).
		Times(6)

	var dispatched []*domain.ChainEvent
	tm.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *domain.ChainEvent) error {
			dispatched = append(dispatched, e)
			return nil
		}).
		Times(3)

	ctx, cancel := context.WithCancel(context.Background())
	logs := []types.Log{
		testLog(100, 0, registryAddr),
		testLog(100, 1, tokenAddr),
		testLog(100, 2, strayToken),
		testLog(101, 3, registryAddr),
		testLog(101, 4, registryAddr),
		testLog(101, 5, registryAddr),
	}
	tm.gateway.EXPECT().
		Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(sctx context.Context, q goethereum.FilterQuery, h gateway.LogHandler) error {
			assert.Nil(t, q.FromBlock)
			assert.Equal(t, []common.Address{common.HexToAddress(registryAddr), common.HexToAddress(factoryAddr)}, q.Addresses)
			if assert.Len(t, q.Topics, 1) {
				assert.NotEmpty(t, q.Topics[0])
			}
			return deliver(t, logs, cancel)(sctx, q, h)
		})

	runListener(t, tm.newListener(t, testConfig()), ctx, 0)

	assert.Equal(t, []string{"asset:9", "asset:7", "token:" + "0x00000000000000000000000000000000000000f9"}, tm.submittedKeys())
	assert.Len(t, dispatched, 3)
}

func TestRun_StartBlock(t *testing.T) {
	tests := []struct {
		name     string
		cursor   uint64
		override uint64
		from     uint64
		expected *big.Int
	}{
		{name: "recovery barrier", from: 300, expected: big.NewInt(300)},
		{name: "lower cursor wins", cursor: 150, from: 300, expected: big.NewInt(151)},
		{name: "higher cursor ignored", cursor: 400, from: 300, expected: big.NewInt(300)},
		{name: "cursor without barrier", cursor: 150, expected: big.NewInt(151)},
		{name: "override", cursor: 150, override: 42, from: 300, expected: big.NewInt(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTest(t)
			defer tearDownTest(tm)

			cfg := testConfig()
			cfg.StartBlock = tt.override
			if tt.cursor > 0 {
				require.NoError(t, tm.store.SetBlockCursor(context.Background(), string(cfg.ChainID), tt.cursor))
			}

			ctx, cancel := context.WithCancel(context.Background())
			tm.gateway.EXPECT().
				Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(sctx context.Context, q goethereum.FilterQuery, h gateway.LogHandler) error {
					assert.Equal(t, tt.expected, q.FromBlock)
					return deliver(t, nil, cancel)(sctx, q, h)
				})

			runListener(t, tm.newListener(t, cfg), ctx, tt.from)
		})
	}
}

func TestRun_SavesCursor(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.client.EXPECT().ParseEventLog(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	chain := string(domain.ChainEthereumSepolia)
	var midway uint64
	logs := []types.Log{
		testLog(100, 0, registryAddr),
		testLog(105, 0, registryAddr),
		testLog(112, 0, registryAddr),
		testLog(115, 0, registryAddr),
	}
	tm.gateway.EXPECT().
		Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(deliver(t, logs, func() {
			midway, _ = tm.store.GetBlockCursor(context.Background(), chain)
			cancel()
		}))

	runListener(t, tm.newListener(t, testConfig()), ctx, 100)

	// 99 on the first block, then 111 once ten blocks passed
	assert.Equal(t, uint64(111), midway)
	// shutdown flushes up to the block before the last one seen
	cursor, err := tm.store.GetBlockCursor(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(114), cursor)
}

func assetEvent(vLog types.Log) *domain.ChainEvent {
	return &domain.ChainEvent{
		Kind:         domain.EventKindAssetMinted,
		TxHash:       vLog.TxHash.Hex(),
		LogIndex:     vLog.Index,
		BlockNumber:  vLog.BlockNumber,
		AssetTokenID: big.NewInt(7),
	}
}

func TestRun_RetriesTransientDispatchFailure(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.client.EXPECT().
		ParseEventLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, vLog types.Log) (*domain.ChainEvent, error) {
			return assetEvent(vLog), nil
		}).
		AnyTimes()

	var applied []uint64
	gomock.InOrder(
		tm.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("failed to handle event: %w", &domain.ConnectionError{Attempts: 3, Err: errors.New("refused")})),
		tm.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e *domain.ChainEvent) error {
				applied = append(applied, e.BlockNumber)
				return nil
			}).
			Times(2),
	)

	cfg := testConfig()
	cfg.CursorSaveFreq = 1
	cfg.DispatchRetryTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	tm.gateway.EXPECT().
		Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(deliver(t, []types.Log{testLog(5, 0, registryAddr), testLog(20, 0, registryAddr)}, cancel))

	runListener(t, tm.newListener(t, cfg), ctx, 5)

	assert.Equal(t, []uint64{5, 20}, applied)
	cursor, err := tm.store.GetBlockCursor(context.Background(), string(cfg.ChainID))
	require.NoError(t, err)
	assert.Equal(t, uint64(19), cursor)
}

func TestRun_FailedEventHoldsCursorAndReplays(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.client.EXPECT().
		ParseEventLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, vLog types.Log) (*domain.ChainEvent, error) {
			return assetEvent(vLog), nil
		}).
		AnyTimes()

	var (
		mu       sync.Mutex
		sessions int
		applied  []uint64
	)
	tm.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *domain.ChainEvent) error {
			mu.Lock()
			defer mu.Unlock()
			if sessions == 1 && e.BlockNumber == 5 {
				return &domain.ConnectionError{Attempts: 3, Err: errors.New("refused")}
			}
			applied = append(applied, e.BlockNumber)
			return nil
		}).
		AnyTimes()

	cfg := testConfig()
	cfg.CursorSaveFreq = 1
	cfg.DispatchRetryTimeout = time.Millisecond
	chain := string(cfg.ChainID)
	logs := []types.Log{testLog(5, 0, registryAddr), testLog(20, 0, registryAddr)}

	ctx, cancel := context.WithCancel(context.Background())
	var held uint64
	gomock.InOrder(
		tm.gateway.EXPECT().
			Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(sctx context.Context, q goethereum.FilterQuery, h gateway.LogHandler) error {
				mu.Lock()
				sessions++
				mu.Unlock()
				return deliver(t, logs, func() {
					held, _ = tm.store.GetBlockCursor(context.Background(), chain)
				})(sctx, q, h)
			}),
		tm.gateway.EXPECT().
			Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(sctx context.Context, q goethereum.FilterQuery, h gateway.LogHandler) error {
				assert.Equal(t, big.NewInt(5), q.FromBlock)
				mu.Lock()
				sessions++
				mu.Unlock()
				return deliver(t, logs, cancel)(sctx, q, h)
			}),
	)

	runListener(t, tm.newListener(t, cfg), ctx, 5)

	// block 20 was applied, but the cursor stayed below the failed block
	assert.Equal(t, uint64(4), held)
	assert.Equal(t, []uint64{20, 5, 20}, applied)

	cursor, err := tm.store.GetBlockCursor(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(19), cursor)
}

func TestRun_WatchRestartsSubscription(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.client.EXPECT().ParseEventLog(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	gomock.InOrder(
		tm.gateway.EXPECT().
			Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(sctx context.Context, q goethereum.FilterQuery, h gateway.LogHandler) error {
				assert.Len(t, q.Addresses, 2)
				return deliver(t, []types.Log{testLog(120, 0, registryAddr)}, func() {
					tm.watchlist.Watch(sctx, tokenAddr)
				})(sctx, q, h)
			}),
		tm.gateway.EXPECT().
			Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(sctx context.Context, q goethereum.FilterQuery, h gateway.LogHandler) error {
				assert.Contains(t, q.Addresses, common.HexToAddress(tokenAddr))
				assert.Equal(t, big.NewInt(120), q.FromBlock)
				return deliver(t, nil, cancel)(sctx, q, h)
			}),
	)

	runListener(t, tm.newListener(t, testConfig()), ctx, 110)
}

func TestRun_SubscribeError(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.gateway.EXPECT().
		Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("failed to resolve subscription start block"))

	l := tm.newListener(t, testConfig())
	err := l.Run(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event subscription failed")
}

func TestWatchlist(t *testing.T) {
	w := listener.NewWatchlist(tokenAddr, domain.ETHEREUM_ZERO_ADDRESS, "")
	assert.Equal(t, []string{tokenAddr}, w.Tokens())

	ctx := context.Background()

	// already watched, no signal
	w.Watch(ctx, "0x00000000000000000000000000000000000000F1")
	select {
	case <-w.Changed():
		t.Fatal("unexpected change signal")
	default:
	}

	w.Watch(ctx, strayToken)
	w.Watch(ctx, "0x00000000000000000000000000000000000000aa")
	w.Watch(ctx, domain.ETHEREUM_ZERO_ADDRESS)

	// coalesced into one signal
	select {
	case <-w.Changed():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-w.Changed():
		t.Fatal("signals should coalesce")
	default:
	}

	assert.Len(t, w.Tokens(), 3)
	assert.True(t, w.Contains("0x00000000000000000000000000000000000000f9"))
}
