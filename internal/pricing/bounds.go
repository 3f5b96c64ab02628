package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// Reserve-fraction ceilings and pool-creation bounds mirroring the ranges
// the pool contract accepts. Checked before any ledger call so invalid
// parameters fail without a network round trip.
var (
	// MaxReserveFraction caps a single swap leg or single-sided liquidity
	// change at a quarter of the relevant reserve.
	MaxReserveFraction = decimal.RequireFromString("0.25")

	maxBuyDivisor = decimal.NewFromInt(3)
	maxSwapFee    = decimal.RequireFromString("0.1")
	minDataAmount = decimal.NewFromInt(2)
	minDataWeight = decimal.NewFromInt(1)
	maxDataWeight = decimal.NewFromInt(9)
	totalWeight   = decimal.NewFromInt(10)
)

var (
	ErrZeroSupply          = errors.New("pricing: pool share supply is zero")
	ErrFeeTooHigh          = errors.New("pricing: swap fee above 10%")
	ErrAmountTooLow        = errors.New("pricing: data token amount below minimum")
	ErrWeightOutOfBounds   = errors.New("pricing: data token weight outside [1, 9]")
	ErrExceedsReserveLimit = errors.New("pricing: amount exceeds reserve fraction limit")
)

// MaxSwapAmount returns the largest single swap input or output allowed
// against a reserve. Zero when the reserve is empty.
func MaxSwapAmount(reserve decimal.Decimal) decimal.Decimal {
	if !reserve.IsPositive() {
		return decimal.Zero
	}
	return reserve.Mul(MaxReserveFraction)
}

// MaxAddLiquidity returns the largest single-sided deposit allowed against
// a reserve.
func MaxAddLiquidity(reserve decimal.Decimal) decimal.Decimal {
	return MaxSwapAmount(reserve)
}

// MaxRemoveLiquidity returns the largest single-sided withdrawal allowed
// against a reserve.
func MaxRemoveLiquidity(reserve decimal.Decimal) decimal.Decimal {
	return MaxSwapAmount(reserve)
}

// MaxBuyQuantity returns the preview ceiling for buy quotes (reserve/3).
func MaxBuyQuantity(reserve decimal.Decimal) decimal.Decimal {
	if !reserve.IsPositive() {
		return decimal.Zero
	}
	return reserve.Div(maxBuyDivisor)
}

// CheckReserveLimit rejects amounts above a quarter of the reserve.
func CheckReserveLimit(amount, reserve decimal.Decimal) error {
	if amount.GreaterThan(MaxSwapAmount(reserve)) {
		return ErrExceedsReserveLimit
	}
	return nil
}

// CheckPoolCreation validates pool-creation parameters: fee at most 10%,
// initial data amount at least 2 units, data weight in [1, 9].
func CheckPoolCreation(fee, dataAmount, dataWeight decimal.Decimal) error {
	if fee.GreaterThan(maxSwapFee) {
		return ErrFeeTooHigh
	}
	if dataAmount.LessThan(minDataAmount) {
		return ErrAmountTooLow
	}
	if dataWeight.LessThan(minDataWeight) || dataWeight.GreaterThan(maxDataWeight) {
		return ErrWeightOutOfBounds
	}
	return nil
}

// BaseWeight derives the paired-asset weight from the data-asset weight;
// denormalized weights always sum to 10.
func BaseWeight(dataWeight decimal.Decimal) decimal.Decimal {
	return totalWeight.Sub(dataWeight)
}

// TokensReceived computes the pro-rata token amounts implied by spending
// poolShares out of totalSupply.
func TokensReceived(poolShares, totalSupply, dataReserve, baseReserve decimal.Decimal) (model.TokensReceived, error) {
	if totalSupply.IsZero() {
		return model.TokensReceived{}, ErrZeroSupply
	}
	fraction := poolShares.Div(totalSupply)
	return model.TokensReceived{
		DataAmount: fraction.Mul(dataReserve),
		BaseAmount: fraction.Mul(baseReserve),
	}, nil
}
