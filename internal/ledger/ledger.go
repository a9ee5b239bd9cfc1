package ledger

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/store"
	"github.com/feral-file/ff-asset-syncer/internal/store/schema"
)

const defaultCacheSize = 10000

// Ledger records which chain events have been applied so replays are skipped.
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger
type Ledger interface {
	// IsProcessed reports whether the event was already applied
	IsProcessed(ctx context.Context, event *domain.ChainEvent) (bool, error)

	// MarkProcessed records the event as applied. Marking twice is a no-op.
	MarkProcessed(ctx context.Context, event *domain.ChainEvent) error
}

type ledger struct {
	store store.Store
	// seen caches positive lookups only; a miss always goes to the store
	seen *lru.Cache[string, struct{}]
}

// New creates a Ledger backed by the processed_events table
func New(st store.Store, cacheSize int) (Ledger, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	seen, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger cache: %w", err)
	}
	return &ledger{store: st, seen: seen}, nil
}

func (l *ledger) IsProcessed(ctx context.Context, event *domain.ChainEvent) (bool, error) {
	id := event.ID()
	if l.seen.Contains(id) {
		return true, nil
	}

	processed, err := l.store.IsEventProcessed(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger for %s: %w", id, err)
	}
	if processed {
		l.seen.Add(id, struct{}{})
	}
	return processed, nil
}

func (l *ledger) MarkProcessed(ctx context.Context, event *domain.ChainEvent) error {
	id := event.ID()
	_, err := l.store.MarkEventProcessed(ctx, &schema.ProcessedEvent{
		EventID:     id,
		Kind:        event.Kind,
		TxHash:      event.TxHash,
		LogIndex:    event.LogIndex,
		BlockNumber: event.BlockNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to record %s in ledger: %w", id, err)
	}
	l.seen.Add(id, struct{}{})
	return nil
}
