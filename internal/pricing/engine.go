// Package pricing reproduces the weighted-pool bonding-curve formulas
// off-chain so callers can preview a transaction before submitting it. All
// functions are pure and route every intermediate step through bmath; native
// floating point would drift from the contract's fixed-point arithmetic.
package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
)

var (
	ErrInvalidWeight       = errors.New("pricing: weight must be positive")
	ErrInsufficientReserve = errors.New("pricing: amount exceeds available reserve")
)

func toFixed(values ...decimal.Decimal) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		f, err := bmath.FromDecimal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func checkWeights(weights ...decimal.Decimal) error {
	for _, w := range weights {
		if !w.IsPositive() {
			return ErrInvalidWeight
		}
	}
	return nil
}

// reserveErr maps fixed-point underflow onto the reserve error so callers
// get one diagnostic for "asked for more than the pool holds".
func reserveErr(err error) error {
	if errors.Is(err, bmath.ErrNegative) {
		return ErrInsufficientReserve
	}
	return err
}

// SpotPrice returns (balanceIn/weightIn) / (balanceOut/weightOut) / (1-fee).
func SpotPrice(balanceIn, weightIn, balanceOut, weightOut, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weightIn, weightOut); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balanceIn, weightIn, balanceOut, weightOut, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bi, wi, bo, wo, f := v[0], v[1], v[2], v[3], v[4]

	numer, err := bmath.Div(bi, wi)
	if err != nil {
		return decimal.Zero, err
	}
	denom, err := bmath.Div(bo, wo)
	if err != nil {
		return decimal.Zero, err
	}
	ratio, err := bmath.Div(numer, denom)
	if err != nil {
		return decimal.Zero, err
	}
	feeComplement, err := bmath.Sub(bmath.Bone, f)
	if err != nil {
		return decimal.Zero, fmt.Errorf("swap fee above one: %w", err)
	}
	scale, err := bmath.Div(bmath.Bone, feeComplement)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := bmath.Mul(ratio, scale)
	if err != nil {
		return decimal.Zero, err
	}
	return bmath.ToDecimal(price), nil
}

// OutGivenIn returns the amount leaving the pool for a given amount entering:
// balanceOut * (1 - (balanceIn / (balanceIn + amountIn*(1-fee)))^(wIn/wOut)).
func OutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weightIn, weightOut); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balanceIn, weightIn, balanceOut, weightOut, amountIn, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bi, wi, bo, wo, in, f := v[0], v[1], v[2], v[3], v[4], v[5]

	weightRatio, err := bmath.Div(wi, wo)
	if err != nil {
		return decimal.Zero, err
	}
	feeComplement, err := bmath.Sub(bmath.Bone, f)
	if err != nil {
		return decimal.Zero, err
	}
	adjustedIn, err := bmath.Mul(in, feeComplement)
	if err != nil {
		return decimal.Zero, err
	}
	newBalanceIn, err := bmath.Add(bi, adjustedIn)
	if err != nil {
		return decimal.Zero, err
	}
	y, err := bmath.Div(bi, newBalanceIn)
	if err != nil {
		return decimal.Zero, err
	}
	foo, err := bmath.Pow(y, weightRatio)
	if err != nil {
		return decimal.Zero, err
	}
	bar, err := bmath.Sub(bmath.Bone, foo)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	out, err := bmath.Mul(bo, bar)
	if err != nil {
		return decimal.Zero, err
	}
	if out.Cmp(bo) > 0 {
		return decimal.Zero, ErrInsufficientReserve
	}
	return bmath.ToDecimal(out), nil
}

// InGivenOut solves the inverse of OutGivenIn: the input required to receive
// an exact output amount.
func InGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weightIn, weightOut); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balanceIn, weightIn, balanceOut, weightOut, amountOut, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bi, wi, bo, wo, out, f := v[0], v[1], v[2], v[3], v[4], v[5]

	weightRatio, err := bmath.Div(wo, wi)
	if err != nil {
		return decimal.Zero, err
	}
	diff, err := bmath.Sub(bo, out)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	if diff.Sign() == 0 {
		return decimal.Zero, ErrInsufficientReserve
	}
	y, err := bmath.Div(bo, diff)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	foo, err := bmath.Pow(y, weightRatio)
	if err != nil {
		return decimal.Zero, err
	}
	foo, err = bmath.Sub(foo, bmath.Bone)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	feeComplement, err := bmath.Sub(bmath.Bone, f)
	if err != nil {
		return decimal.Zero, err
	}
	numer, err := bmath.Mul(bi, foo)
	if err != nil {
		return decimal.Zero, err
	}
	in, err := bmath.Div(numer, feeComplement)
	if err != nil {
		return decimal.Zero, err
	}
	return bmath.ToDecimal(in), nil
}

// PoolOutGivenSingleIn returns the pool shares minted for a single-asset
// deposit.
func PoolOutGivenSingleIn(balance, weight, poolSupply, totalWeight, amountIn, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weight, totalWeight); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balance, weight, poolSupply, totalWeight, amountIn, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bal, w, supply, tw, in, f := v[0], v[1], v[2], v[3], v[4], v[5]

	normalizedWeight, err := bmath.Div(w, tw)
	if err != nil {
		return decimal.Zero, err
	}
	complement, err := bmath.Sub(bmath.Bone, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	zaz, err := bmath.Mul(complement, f)
	if err != nil {
		return decimal.Zero, err
	}
	afterFeeScale, err := bmath.Sub(bmath.Bone, zaz)
	if err != nil {
		return decimal.Zero, err
	}
	inAfterFee, err := bmath.Mul(in, afterFeeScale)
	if err != nil {
		return decimal.Zero, err
	}
	newBalance, err := bmath.Add(bal, inAfterFee)
	if err != nil {
		return decimal.Zero, err
	}
	ratio, err := bmath.Div(newBalance, bal)
	if err != nil {
		return decimal.Zero, err
	}
	poolRatio, err := bmath.Pow(ratio, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	newSupply, err := bmath.Mul(poolRatio, supply)
	if err != nil {
		return decimal.Zero, err
	}
	minted, err := bmath.Sub(newSupply, supply)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	return bmath.ToDecimal(minted), nil
}

// SingleInGivenPoolOut returns the single-asset deposit required to mint an
// exact number of pool shares.
func SingleInGivenPoolOut(balance, weight, poolSupply, totalWeight, poolAmountOut, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weight, totalWeight); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balance, weight, poolSupply, totalWeight, poolAmountOut, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bal, w, supply, tw, out, f := v[0], v[1], v[2], v[3], v[4], v[5]

	normalizedWeight, err := bmath.Div(w, tw)
	if err != nil {
		return decimal.Zero, err
	}
	newSupply, err := bmath.Add(supply, out)
	if err != nil {
		return decimal.Zero, err
	}
	poolRatio, err := bmath.Div(newSupply, supply)
	if err != nil {
		return decimal.Zero, err
	}
	boo, err := bmath.Div(bmath.Bone, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	tokenInRatio, err := bmath.Pow(poolRatio, boo)
	if err != nil {
		return decimal.Zero, err
	}
	newBalance, err := bmath.Mul(tokenInRatio, bal)
	if err != nil {
		return decimal.Zero, err
	}
	inAfterFee, err := bmath.Sub(newBalance, bal)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	complement, err := bmath.Sub(bmath.Bone, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	zar, err := bmath.Mul(complement, f)
	if err != nil {
		return decimal.Zero, err
	}
	divisor, err := bmath.Sub(bmath.Bone, zar)
	if err != nil {
		return decimal.Zero, err
	}
	in, err := bmath.Div(inAfterFee, divisor)
	if err != nil {
		return decimal.Zero, err
	}
	return bmath.ToDecimal(in), nil
}

// SingleOutGivenPoolIn returns the single-asset amount received for burning
// an exact number of pool shares.
func SingleOutGivenPoolIn(balance, weight, poolSupply, totalWeight, poolAmountIn, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weight, totalWeight); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balance, weight, poolSupply, totalWeight, poolAmountIn, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bal, w, supply, tw, in, f := v[0], v[1], v[2], v[3], v[4], v[5]

	normalizedWeight, err := bmath.Div(w, tw)
	if err != nil {
		return decimal.Zero, err
	}
	newSupply, err := bmath.Sub(supply, in)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	poolRatio, err := bmath.Div(newSupply, supply)
	if err != nil {
		return decimal.Zero, err
	}
	exponent, err := bmath.Div(bmath.Bone, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	tokenOutRatio, err := bmath.Pow(poolRatio, exponent)
	if err != nil {
		return decimal.Zero, err
	}
	newBalance, err := bmath.Mul(tokenOutRatio, bal)
	if err != nil {
		return decimal.Zero, err
	}
	outBeforeFee, err := bmath.Sub(bal, newBalance)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	complement, err := bmath.Sub(bmath.Bone, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	zaz, err := bmath.Mul(complement, f)
	if err != nil {
		return decimal.Zero, err
	}
	afterFeeScale, err := bmath.Sub(bmath.Bone, zaz)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := bmath.Mul(outBeforeFee, afterFeeScale)
	if err != nil {
		return decimal.Zero, err
	}
	return bmath.ToDecimal(out), nil
}

// PoolInGivenSingleOut returns the pool shares that must be burned to
// withdraw an exact single-asset amount.
func PoolInGivenSingleOut(balance, weight, poolSupply, totalWeight, amountOut, fee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkWeights(weight, totalWeight); err != nil {
		return decimal.Zero, err
	}
	v, err := toFixed(balance, weight, poolSupply, totalWeight, amountOut, fee)
	if err != nil {
		return decimal.Zero, err
	}
	bal, w, supply, tw, out, f := v[0], v[1], v[2], v[3], v[4], v[5]

	normalizedWeight, err := bmath.Div(w, tw)
	if err != nil {
		return decimal.Zero, err
	}
	complement, err := bmath.Sub(bmath.Bone, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	zar, err := bmath.Mul(complement, f)
	if err != nil {
		return decimal.Zero, err
	}
	divisor, err := bmath.Sub(bmath.Bone, zar)
	if err != nil {
		return decimal.Zero, err
	}
	outBeforeFee, err := bmath.Div(out, divisor)
	if err != nil {
		return decimal.Zero, err
	}
	newBalance, err := bmath.Sub(bal, outBeforeFee)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	tokenOutRatio, err := bmath.Div(newBalance, bal)
	if err != nil {
		return decimal.Zero, err
	}
	poolRatio, err := bmath.Pow(tokenOutRatio, normalizedWeight)
	if err != nil {
		return decimal.Zero, err
	}
	newSupply, err := bmath.Mul(poolRatio, supply)
	if err != nil {
		return decimal.Zero, err
	}
	burned, err := bmath.Sub(supply, newSupply)
	if err != nil {
		return decimal.Zero, reserveErr(err)
	}
	return bmath.ToDecimal(burned), nil
}
