package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

var tokenUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(TOKEN_DECIMALS), nil)

// NormalizeAddress returns the EIP-55 checksummed form of an address
func NormalizeAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// IsZeroAddress reports whether the address is the null address
func IsZeroAddress(addr string) bool {
	return common.HexToAddress(addr) == (common.Address{})
}

// SameAddress compares two addresses case-insensitively
func SameAddress(a, b string) bool {
	return strings.EqualFold(NormalizeAddress(a), NormalizeAddress(b))
}

// ParseAmount parses a base-10 integer quantity. An empty string is zero.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	// numeric columns may come back with a fractional part of zeros
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.Trim(s[i+1:], "0") != "" {
			return nil, fmt.Errorf("invalid integer amount: %s", s)
		}
		s = s[:i]
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount: %s", s)
	}
	return v, nil
}

// MustParseAmount is ParseAmount for values that were written by this service.
// A malformed value is logged and read as zero.
func MustParseAmount(s string) *big.Int {
	v, err := ParseAmount(s)
	if err != nil {
		logger.Warn("Malformed cached amount, reading as zero", zap.String("value", s), zap.Error(err))
		return new(big.Int)
	}
	return v
}

// FormatAmount renders an integer quantity for a numeric(78,0) column
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// BasisPoints returns balance*10000/supply using integer division.
// A non-positive supply yields zero.
func BasisPoints(balance, supply *big.Int) int64 {
	if balance == nil || supply == nil || supply.Sign() <= 0 {
		return 0
	}
	bp := new(big.Int).Mul(balance, big.NewInt(BASIS_POINTS_SCALE))
	bp.Quo(bp, supply)
	return bp.Int64()
}

// FormatBasisPoints renders basis points as a percentage with two decimals ("90.00")
func FormatBasisPoints(bp int64) string {
	return fmt.Sprintf("%d.%02d", bp/100, bp%100)
}

// Percentage computes the holder percentage string of balance over supply
func Percentage(balance, supply *big.Int) string {
	return FormatBasisPoints(BasisPoints(balance, supply))
}

// ToTokenUnits converts a smallest-unit quantity into whole token units
func ToTokenUnits(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -TOKEN_DECIMALS)
}

// FromTokenUnits converts whole token units into the smallest unit, truncating extra precision
func FromTokenUnits(d decimal.Decimal) *big.Int {
	return d.Shift(TOKEN_DECIMALS).Truncate(0).BigInt()
}

// PerTokenAmount returns the share of amount owed to one whole token, in the smallest unit.
// totalSupply is in the smallest unit as well.
func PerTokenAmount(amount, totalSupply *big.Int) *big.Int {
	if amount == nil || totalSupply == nil || totalSupply.Sign() <= 0 {
		return new(big.Int)
	}
	share := new(big.Int).Mul(amount, tokenUnit)
	return share.Quo(share, totalSupply)
}
