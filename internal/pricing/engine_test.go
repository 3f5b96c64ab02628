package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSpotPrice(t *testing.T) {
	// Equal weights, no fee: price is simply balanceIn/balanceOut.
	price, err := SpotPrice(d("100"), d("5"), d("50"), d("5"), d("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d("2")) {
		t.Fatalf("spot price = %s, want 2", price)
	}
}

func TestSpotPriceFeeScalesUp(t *testing.T) {
	base, err := SpotPrice(d("100"), d("5"), d("50"), d("5"), d("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	withFee, err := SpotPrice(d("100"), d("5"), d("50"), d("5"), d("0.1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !withFee.GreaterThan(base) {
		t.Fatalf("fee should raise the effective price: %s <= %s", withFee, base)
	}
}

func TestSpotPriceMonotonic(t *testing.T) {
	mid, err := SpotPrice(d("100"), d("5"), d("50"), d("5"), d("0.01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moreOut, err := SpotPrice(d("100"), d("5"), d("60"), d("5"), d("0.01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moreOut.GreaterThan(mid) {
		t.Fatalf("price should increase in balanceOut: %s <= %s", moreOut, mid)
	}

	moreIn, err := SpotPrice(d("120"), d("5"), d("50"), d("5"), d("0.01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moreIn.LessThan(mid) {
		t.Fatalf("price should decrease in balanceIn: %s >= %s", moreIn, mid)
	}
}

func TestOutGivenInEqualWeightsNoFee(t *testing.T) {
	// Constant product with equal weights: out = bo*in/(bi+in).
	out, err := OutGivenIn(d("100"), d("5"), d("100"), d("5"), d("25"), d("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Sub(d("20")).Abs().GreaterThan(d("0.000001")) {
		t.Fatalf("outGivenIn = %s, want ~20", out)
	}
}

func TestInGivenOutRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		bi, wi   string
		bo, wo   string
		amountIn string
		fee      string
	}{
		{"equal weights no fee", "1000", "5", "500", "5", "10", "0"},
		{"skewed weights", "1000", "9", "500", "1", "25", "0"},
		{"with fee", "1000", "3", "2000", "7", "50", "0.01"},
	}

	tolerance := d("0.0001")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := OutGivenIn(d(tc.bi), d(tc.wi), d(tc.bo), d(tc.wo), d(tc.amountIn), d(tc.fee))
			if err != nil {
				t.Fatalf("OutGivenIn: %v", err)
			}
			back, err := InGivenOut(d(tc.bi), d(tc.wi), d(tc.bo), d(tc.wo), out, d(tc.fee))
			if err != nil {
				t.Fatalf("InGivenOut: %v", err)
			}
			if back.Sub(d(tc.amountIn)).Abs().GreaterThan(tolerance) {
				t.Fatalf("round trip drift: in=%s back=%s", tc.amountIn, back)
			}
		})
	}
}

func TestInvalidWeight(t *testing.T) {
	if _, err := SpotPrice(d("100"), d("0"), d("50"), d("5"), d("0")); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}
	if _, err := OutGivenIn(d("100"), d("5"), d("50"), d("-1"), d("1"), d("0")); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}
}

func TestInGivenOutExceedsReserve(t *testing.T) {
	if _, err := InGivenOut(d("100"), d("5"), d("50"), d("5"), d("50"), d("0")); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}
}

func TestPoolJoinExitRoundTrip(t *testing.T) {
	shares, err := PoolOutGivenSingleIn(d("1000"), d("5"), d("100"), d("10"), d("50"), d("0"))
	if err != nil {
		t.Fatalf("PoolOutGivenSingleIn: %v", err)
	}
	if !shares.IsPositive() {
		t.Fatalf("expected positive share mint, got %s", shares)
	}

	in, err := SingleInGivenPoolOut(d("1000"), d("5"), d("100"), d("10"), shares, d("0"))
	if err != nil {
		t.Fatalf("SingleInGivenPoolOut: %v", err)
	}
	if in.Sub(d("50")).Abs().GreaterThan(d("0.001")) {
		t.Fatalf("join round trip drift: want ~50, got %s", in)
	}
}

func TestPoolWithdrawRoundTrip(t *testing.T) {
	out, err := SingleOutGivenPoolIn(d("1000"), d("5"), d("100"), d("10"), d("5"), d("0.001"))
	if err != nil {
		t.Fatalf("SingleOutGivenPoolIn: %v", err)
	}
	if !out.IsPositive() {
		t.Fatalf("expected positive withdrawal, got %s", out)
	}

	burned, err := PoolInGivenSingleOut(d("1000"), d("5"), d("100"), d("10"), out, d("0.001"))
	if err != nil {
		t.Fatalf("PoolInGivenSingleOut: %v", err)
	}
	if burned.Sub(d("5")).Abs().GreaterThan(d("0.001")) {
		t.Fatalf("withdraw round trip drift: want ~5, got %s", burned)
	}
}
