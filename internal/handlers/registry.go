package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/ledger"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/metrics"
)

const (
	resultApplied   = "applied"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

// Handler applies one decoded chain event to the cache
type Handler func(ctx context.Context, event *domain.ChainEvent) error

// Dispatcher routes chain events to their handler
//
//go:generate mockgen -source=registry.go -destination=../mocks/dispatcher.go -package=mocks -mock_names=Dispatcher=MockDispatcher
type Dispatcher interface {
	// Dispatch applies event once; replays of an applied event are skipped
	Dispatch(ctx context.Context, event *domain.ChainEvent) error
}

// Registry maps every event kind to its handler and guards them with the ledger
type Registry struct {
	ledger   ledger.Ledger
	handlers map[domain.EventKind]Handler
}

// NewRegistry creates a Registry from an explicit handler map.
// It fails when a kind of domain.AllEventKinds has no handler.
func NewRegistry(l ledger.Ledger, handlers map[domain.EventKind]Handler) (*Registry, error) {
	for _, kind := range domain.AllEventKinds() {
		if handlers[kind] == nil {
			return nil, fmt.Errorf("no handler registered for event kind %s", kind)
		}
	}

	hs := make(map[domain.EventKind]Handler, len(handlers))
	for kind, h := range handlers {
		hs[kind] = h
	}
	return &Registry{ledger: l, handlers: hs}, nil
}

// New creates a Registry with the standard handler of every event kind
func New(deps Deps) (*Registry, error) {
	return NewRegistry(deps.Ledger, newEventHandlers(deps).all())
}

func (r *Registry) Dispatch(ctx context.Context, event *domain.ChainEvent) error {
	handler, ok := r.handlers[event.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, event.Kind)
	}

	id := event.ID()
	ctx = logger.WithFields(ctx,
		zap.String("event_id", id),
		zap.String("kind", string(event.Kind)),
		zap.Uint64("block", event.BlockNumber))

	processed, err := r.ledger.IsProcessed(ctx, event)
	if err != nil {
		metrics.EventsDispatched.WithLabelValues(string(event.Kind), resultFailed).Inc()
		return err
	}
	if processed {
		metrics.EventsDispatched.WithLabelValues(string(event.Kind), resultDuplicate).Inc()
		logger.DebugCtx(ctx, "Skipping processed event")
		return nil
	}

	if err := handler(ctx, event); err != nil {
		metrics.EventsDispatched.WithLabelValues(string(event.Kind), resultFailed).Inc()
		return fmt.Errorf("failed to handle event %s: %w", id, err)
	}

	if err := r.ledger.MarkProcessed(ctx, event); err != nil {
		metrics.EventsDispatched.WithLabelValues(string(event.Kind), resultFailed).Inc()
		return err
	}

	metrics.EventsDispatched.WithLabelValues(string(event.Kind), resultApplied).Inc()
	logger.InfoCtx(ctx, "Applied event", zap.String("tx_hash", event.TxHash))
	return nil
}
