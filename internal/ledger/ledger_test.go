package ledger_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/ledger"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/mocks"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
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

func transferEvent(logIndex uint) *domain.ChainEvent {
	return &domain.ChainEvent{
		Kind:        domain.EventKindTokenTransfer,
		TxHash:      "0xABCDEF",
		LogIndex:    logIndex,
		BlockNumber: 42,
	}
}

func TestLedger_MarkThenIsProcessed(t *testing.T) {
	st := mocks.NewMemoryStore()
	l, err := ledger.New(st, 0)
	require.NoError(t, err)
	ctx := context.Background()

	processed, err := l.IsProcessed(ctx, transferEvent(1))
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, l.MarkProcessed(ctx, transferEvent(1)))
	require.NoError(t, l.MarkProcessed(ctx, transferEvent(1)))

	processed, err = l.IsProcessed(ctx, transferEvent(1))
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = l.IsProcessed(ctx, transferEvent(2))
	require.NoError(t, err)
	assert.False(t, processed)

	assert.Equal(t, 1, st.ProcessedEventCount())
}

func TestLedger_SurvivesRestart(t *testing.T) {
	st := mocks.NewMemoryStore()
	ctx := context.Background()

	first, err := ledger.New(st, 10)
	require.NoError(t, err)
	require.NoError(t, first.MarkProcessed(ctx, transferEvent(3)))

	// a fresh ledger has a cold cache and must consult the store
	second, err := ledger.New(st, 10)
	require.NoError(t, err)
	processed, err := second.IsProcessed(ctx, transferEvent(3))
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestLedger_CachesPositiveLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	l, err := ledger.New(st, 10)
	require.NoError(t, err)
	ctx := context.Background()
	event := transferEvent(4)

	st.EXPECT().IsEventProcessed(gomock.Any(), "0xabcdef-4").Return(false, nil)
	st.EXPECT().
		MarkEventProcessed(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, pe *schema.ProcessedEvent) (bool, error) {
			assert.Equal(t, "0xabcdef-4", pe.EventID)
			assert.Equal(t, domain.EventKindTokenTransfer, pe.Kind)
			assert.Equal(t, uint64(42), pe.BlockNumber)
			return true, nil
		})

	processed, err := l.IsProcessed(ctx, event)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, l.MarkProcessed(ctx, event))

	// served from cache, no further store call
	processed, err = l.IsProcessed(ctx, event)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestLedger_StoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	l, err := ledger.New(st, 10)
	require.NoError(t, err)
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	st.EXPECT().IsEventProcessed(gomock.Any(), gomock.Any()).Return(false, dbErr)
	_, err = l.IsProcessed(ctx, transferEvent(5))
	assert.ErrorIs(t, err, dbErr)

	st.EXPECT().MarkEventProcessed(gomock.Any(), gomock.Any()).Return(false, dbErr)
	assert.ErrorIs(t, l.MarkProcessed(ctx, transferEvent(5)), dbErr)

	// a failed mark is not cached
	st.EXPECT().IsEventProcessed(gomock.Any(), "0xabcdef-5").Return(false, nil)
	processed, err := l.IsProcessed(ctx, transferEvent(5))
	require.NoError(t, err)
	assert.False(t, processed)
}
