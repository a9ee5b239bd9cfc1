package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func useObserver(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })
	return logs
}

func TestWithFields_AttachesToCtxCalls(t *testing.T) {
	logs := useObserver(t)

	ctx := WithFields(context.Background(), zap.String("event_id", "0xabc-1"))
	ctx = WithFields(ctx, zap.String("asset", "7"))
	InfoCtx(ctx, "applied")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "0xabc-1", fields["event_id"])
	assert.Equal(t, "7", fields["asset"])
}

func TestWithFields_NoFieldsReturnsSameContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithFields(ctx))
}

func TestError_Messages(t *testing.T) {
	logs := useObserver(t)

	Error(errors.New("boom"), zap.Int("attempt", 2))
	ErrorCtx(context.Background(), nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "boom", entries[0].Message)
	assert.Equal(t, "error occurred", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestInitialize_WithoutSentry(t *testing.T) {
	prev := log
	t.Cleanup(func() { log = prev })

	err := Initialize(Config{Debug: true, Tags: map[string]string{"service": "asset-syncer"}})
	require.NoError(t, err)
	assert.NotNil(t, Default())
	assert.True(t, Default().Core().Enabled(zapcore.DebugLevel))
}
