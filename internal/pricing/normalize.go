// Package pricing turns raw pool reserves into decimal-adjusted prices and
// composes them through a reference pool.
package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/model"
)

const (
	// DefaultPrecision is the number of significant digits kept in every
	// quotient and product.
	DefaultPrecision int32 = 28
	// MinPrecision keeps displayed ratios exact to well past 8 fractional digits.
	MinPrecision int32 = 18
)

// ClampPrecision maps a configured precision into the supported range.
func ClampPrecision(precision int32) int32 {
	if precision <= 0 {
		return DefaultPrecision
	}
	if precision < MinPrecision {
		return MinPrecision
	}
	return precision
}

// AdjustReserve scales a raw reserve by 10^-decimals. The result is exact.
func AdjustReserve(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// Normalize derives both directional prices of a pool. info0 and info1 must
// describe state.Token0 and state.Token1 respectively.
func Normalize(state model.PoolState, info0, info1 model.TokenMeta, precision int32) (model.PriceRatio, error) {
	precision = ClampPrecision(precision)

	reserve0 := AdjustReserve(state.Reserve0, info0.Decimals)
	reserve1 := AdjustReserve(state.Reserve1, info1.Decimals)
	if reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return model.PriceRatio{}, fmt.Errorf("%w: pool %s adjusted reserves %s/%s",
			apperrors.ErrEmptyPool, state.Address.Hex(), reserve0.String(), reserve1.String())
	}

	return model.PriceRatio{
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		Price0In1: quo(reserve1, reserve0, precision),
		Price1In0: quo(reserve0, reserve1, precision),
	}, nil
}

// magnitude returns the power of ten of d's leading digit. d must be non-zero.
func magnitude(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent() - 1
}

// quo divides num by den keeping at least digits significant digits, however
// small or large the quotient is.
func quo(num, den decimal.Decimal, digits int32) decimal.Decimal {
	places := digits - (magnitude(num) - magnitude(den))
	if places < 0 {
		places = 0
	}
	return num.DivRound(den, places)
}

// roundSignificant rounds d to digits significant digits.
func roundSignificant(d decimal.Decimal, digits int32) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	return d.Round(digits - magnitude(d) - 1)
}
