package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/feral-file/ff-asset-syncer/internal/block"
	"github.com/feral-file/ff-asset-syncer/internal/gateway"
)

type blockTimeFetcher struct {
	gateway gateway.Gateway
}

// NewBlockTimeFetcher returns a block.TimeFetcher reading headers through gw
func NewBlockTimeFetcher(gw gateway.Gateway) block.TimeFetcher {
	return &blockTimeFetcher{gateway: gw}
}

// FetchBlockTime fetches the timestamp of a block
func (f *blockTimeFetcher) FetchBlockTime(ctx context.Context, number uint64) (time.Time, error) {
	header, err := f.gateway.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get header %d: %w", number, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil //nolint:gosec,G115
}
