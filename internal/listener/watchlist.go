package listener

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/domain"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

// Watchlist is the set of fractional token contracts whose events are subscribed.
// It implements handlers.TokenWatcher.
type Watchlist struct {
	tokens  mapset.Set[string]
	changed chan struct{}
}

// NewWatchlist creates a Watchlist seeded with tokens
func NewWatchlist(tokens ...string) *Watchlist {
	w := &Watchlist{
		tokens:  mapset.NewSet[string](),
		changed: make(chan struct{}, 1),
	}
	for _, t := range tokens {
		if t != "" && !domain.IsZeroAddress(t) {
			w.tokens.Add(domain.NormalizeAddress(t))
		}
	}
	return w
}

// Watch adds a token. Adding a new token signals Changed.
func (w *Watchlist) Watch(ctx context.Context, tokenAddress string) {
	if tokenAddress == "" || domain.IsZeroAddress(tokenAddress) {
		return
	}
	token := domain.NormalizeAddress(tokenAddress)
	if !w.tokens.Add(token) {
		return
	}

	logger.InfoCtx(ctx, "Watching fractional token", zap.String("token", token))
	select {
	case w.changed <- struct{}{}:
	default:
		// a restart is already pending and will pick this token up
	}
}

// Contains reports whether tokenAddress is watched
func (w *Watchlist) Contains(tokenAddress string) bool {
	return w.tokens.Contains(domain.NormalizeAddress(tokenAddress))
}

// Tokens returns the watched tokens in a stable order
func (w *Watchlist) Tokens() []string {
	tokens := w.tokens.ToSlice()
	sort.Strings(tokens)
	return tokens
}

// Changed fires after tokens were added
func (w *Watchlist) Changed() <-chan struct{} {
	return w.changed
}
