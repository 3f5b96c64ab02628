// Package bmath implements the 10^18 fixed-point arithmetic used by the
// weighted pool contract. Every value is an unsigned 256-bit integer scaled
// by Bone; operations fail exactly where the contract would revert so that
// off-chain previews match on-chain results.
package bmath

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

const decimals = 18

var (
	// Bone is one unit in fixed-point representation (10^18).
	Bone = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)

	// PowPrecision is the series cutoff for the fractional exponent
	// expansion (Bone / 10^10).
	PowPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	minPowBase = big.NewInt(1)
	maxPowBase = new(big.Int).Sub(new(big.Int).Mul(big.NewInt(2), Bone), big.NewInt(1))
)

var (
	ErrOverflow  = errors.New("bmath: overflow")
	ErrDivZero   = errors.New("bmath: division by zero")
	ErrNegative  = errors.New("bmath: negative result")
	ErrPowBase   = errors.New("bmath: pow base out of range")
	ErrPrecision = errors.New("bmath: value not representable in 18 decimals")
)

func checked(c *big.Int) (*big.Int, error) {
	if c.Cmp(maxUint256) > 0 {
		return nil, ErrOverflow
	}
	return c, nil
}

// Add returns a + b.
func Add(a, b *big.Int) (*big.Int, error) {
	return checked(new(big.Int).Add(a, b))
}

// Sub returns a - b, failing when b > a.
func Sub(a, b *big.Int) (*big.Int, error) {
	if b.Cmp(a) > 0 {
		return nil, ErrNegative
	}
	return new(big.Int).Sub(a, b), nil
}

// subSign returns |a-b| and whether the difference is negative.
func subSign(a, b *big.Int) (*big.Int, bool) {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Sub(a, b), false
	}
	return new(big.Int).Sub(b, a), true
}

// Mul returns a * b / Bone, rounding half up as the contract does.
func Mul(a, b *big.Int) (*big.Int, error) {
	c0 := new(big.Int).Mul(a, b)
	if _, err := checked(c0); err != nil {
		return nil, err
	}
	c1 := new(big.Int).Add(c0, new(big.Int).Rsh(Bone, 1))
	if _, err := checked(c1); err != nil {
		return nil, err
	}
	return c1.Div(c1, Bone), nil
}

// Div returns a * Bone / b, rounding half up.
func Div(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivZero
	}
	c0 := new(big.Int).Mul(a, Bone)
	if _, err := checked(c0); err != nil {
		return nil, err
	}
	c1 := new(big.Int).Add(c0, new(big.Int).Rsh(b, 1))
	if _, err := checked(c1); err != nil {
		return nil, err
	}
	return c1.Div(c1, b), nil
}

// Floor truncates a fixed-point value to its integer part.
func Floor(a *big.Int) *big.Int {
	c := new(big.Int).Div(a, Bone)
	return c.Mul(c, Bone)
}

// Toi converts a fixed-point value to its unscaled integer part.
func Toi(a *big.Int) *big.Int {
	return new(big.Int).Div(a, Bone)
}

// Powi raises a fixed-point base to an unscaled integer exponent by
// repeated squaring.
func Powi(a *big.Int, n *big.Int) (*big.Int, error) {
	z := new(big.Int).Set(Bone)
	if new(big.Int).Mod(n, big.NewInt(2)).Sign() != 0 {
		z.Set(a)
	}

	base := new(big.Int).Set(a)
	n = new(big.Int).Div(n, big.NewInt(2))
	for ; n.Sign() != 0; n.Div(n, big.NewInt(2)) {
		var err error
		base, err = Mul(base, base)
		if err != nil {
			return nil, err
		}
		if new(big.Int).Mod(n, big.NewInt(2)).Sign() != 0 {
			z, err = Mul(z, base)
			if err != nil {
				return nil, err
			}
		}
	}
	return z, nil
}

// Pow raises base to a fractional fixed-point exponent. The base must lie
// in [1 wei, 2*Bone-1], the contract's convergence window.
func Pow(base, exp *big.Int) (*big.Int, error) {
	if base.Cmp(minPowBase) < 0 || base.Cmp(maxPowBase) > 0 {
		return nil, ErrPowBase
	}

	whole := Floor(exp)
	remain := new(big.Int).Sub(exp, whole)

	wholePow, err := Powi(base, Toi(whole))
	if err != nil {
		return nil, err
	}
	if remain.Sign() == 0 {
		return wholePow, nil
	}

	partial, err := powApprox(base, remain, PowPrecision)
	if err != nil {
		return nil, err
	}
	return Mul(wholePow, partial)
}

// powApprox expands base^exp as a binomial series around 1, stopping once
// the term drops below precision. Mirrors the contract's approximation,
// including its alternating-sign bookkeeping.
func powApprox(base, exp, precision *big.Int) (*big.Int, error) {
	a := new(big.Int).Set(exp)
	x, xneg := subSign(base, Bone)
	term := new(big.Int).Set(Bone)
	sum := new(big.Int).Set(term)
	negative := false

	for i := int64(1); term.Cmp(precision) >= 0; i++ {
		bigK := new(big.Int).Mul(big.NewInt(i), Bone)
		c, cneg := subSign(a, new(big.Int).Sub(bigK, Bone))

		t, err := Mul(term, c)
		if err != nil {
			return nil, err
		}
		t, err = Mul(t, x)
		if err != nil {
			return nil, err
		}
		term, err = Div(t, bigK)
		if err != nil {
			return nil, err
		}
		if term.Sign() == 0 {
			break
		}

		if xneg {
			negative = !negative
		}
		if cneg {
			negative = !negative
		}
		if negative {
			if sum.Cmp(term) < 0 {
				return nil, ErrNegative
			}
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
	}
	return sum, nil
}

// FromDecimal converts a human-unit amount into its fixed-point
// representation, truncating anything beyond 18 fractional digits.
func FromDecimal(d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegative
	}
	wei := d.Shift(decimals).Truncate(0).BigInt()
	return checked(wei)
}

// ToDecimal converts a fixed-point value back into human units.
func ToDecimal(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -decimals)
}
