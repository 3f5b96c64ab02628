package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrZeroPrice = errors.New("pricing: initial spot price is zero")

var hundred = decimal.NewFromInt(100)

// Slippage reports the percentage move of the spot price caused by a
// hypothetical reserve shift: (newPrice/initialPrice - 1) * 100. A buy that
// raises the price of the purchased asset yields a positive percent. No
// clamping; callers apply their own thresholds.
func Slippage(balanceIn, weightIn, balanceOut, weightOut, newBalanceIn, newBalanceOut, fee decimal.Decimal) (decimal.Decimal, error) {
	initial, err := SpotPrice(balanceIn, weightIn, balanceOut, weightOut, fee)
	if err != nil {
		return decimal.Zero, err
	}
	if initial.IsZero() {
		return decimal.Zero, ErrZeroPrice
	}
	updated, err := SpotPrice(newBalanceIn, weightIn, newBalanceOut, weightOut, fee)
	if err != nil {
		return decimal.Zero, err
	}
	return updated.Div(initial).Sub(decimal.NewFromInt(1)).Mul(hundred), nil
}

// BuySlippage estimates the price impact of spending exactly baseAmountIn of
// the base asset to buy the data asset.
func BuySlippage(baseReserve, baseWeight, dataReserve, dataWeight, baseAmountIn, fee decimal.Decimal) (decimal.Decimal, error) {
	dataReceived, err := OutGivenIn(baseReserve, baseWeight, dataReserve, dataWeight, baseAmountIn, fee)
	if err != nil {
		return decimal.Zero, err
	}
	newBaseReserve := baseReserve.Add(baseAmountIn)
	newDataReserve := dataReserve.Sub(dataReceived)
	return Slippage(baseReserve, baseWeight, dataReserve, dataWeight, newBaseReserve, newDataReserve, fee)
}

// SellSlippage estimates the price impact of selling exactly dataAmountIn of
// the data asset for the base asset.
func SellSlippage(dataReserve, dataWeight, baseReserve, baseWeight, dataAmountIn, fee decimal.Decimal) (decimal.Decimal, error) {
	baseReceived, err := OutGivenIn(dataReserve, dataWeight, baseReserve, baseWeight, dataAmountIn, fee)
	if err != nil {
		return decimal.Zero, err
	}
	newDataReserve := dataReserve.Add(dataAmountIn)
	newBaseReserve := baseReserve.Sub(baseReceived)
	return Slippage(dataReserve, dataWeight, baseReserve, baseWeight, newDataReserve, newBaseReserve, fee)
}
