package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoEndpoints is returned when the gateway is configured without candidates
	ErrNoEndpoints = errors.New("no chain endpoints configured")

	// ErrAssetNotFound is returned when an event references an asset that is not cached
	ErrAssetNotFound = errors.New("asset not found")

	// ErrTokenNotFractionalized is returned when a token operation targets an asset without a fractional token
	ErrTokenNotFractionalized = errors.New("asset is not fractionalized")

	// ErrUnknownEvent is returned when a log does not match any known event signature
	ErrUnknownEvent = errors.New("unknown event")

	// ErrIncompleteRead is returned when some chain reads of an operation failed and its result is partial
	ErrIncompleteRead = errors.New("incomplete chain read")
)

// ConnectionError means no chain endpoint could be reached. Callers should retry later.
type ConnectionError struct {
	Endpoints []string
	Attempts  int
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("no reachable chain endpoint among [%s] after %d attempts: %v",
		strings.Join(e.Endpoints, ", "), e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ContractCallError means a contract call reverted or its result did not match the ABI
type ContractCallError struct {
	Contract string
	Method   string
	Err      error
}

func (e *ContractCallError) Error() string {
	return fmt.Sprintf("contract call %s.%s failed: %v", e.Contract, e.Method, e.Err)
}

func (e *ContractCallError) Unwrap() error {
	return e.Err
}

// RangeLimitError means the upstream refused a log range even at the smallest step
type RangeLimitError struct {
	FromBlock uint64
	ToBlock   uint64
	Err       error
}

func (e *RangeLimitError) Error() string {
	return fmt.Sprintf("log range %d-%d exceeds upstream limit: %v", e.FromBlock, e.ToBlock, e.Err)
}

func (e *RangeLimitError) Unwrap() error {
	return e.Err
}

// DataInconsistencyError means a cached field diverges from chain truth beyond tolerance
type DataInconsistencyError struct {
	AssetID uint64
	Field   string
	Cached  string
	Chain   string
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("asset %d: %s cached=%s chain=%s", e.AssetID, e.Field, e.Cached, e.Chain)
}

// IsRetryable reports whether the error is transient and the operation can be retried
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	var rangeErr *RangeLimitError
	if errors.As(err, &rangeErr) {
		return true
	}
	return errors.Is(err, ErrIncompleteRead)
}
