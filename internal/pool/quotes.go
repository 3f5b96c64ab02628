package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
	"github.com/solbody-protocol/solbody-protocol/internal/pricing"
)

// DataTokenPrice quotes the spot price of the data token in base token units.
func (s *Service) DataTokenPrice(ctx context.Context, pool common.Address) (decimal.Decimal, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.SpotPrice(p.BaseReserve, p.BaseWeight, p.DataReserve, p.DataWeight, p.SwapFee)
}

// BuyQuote returns the base token amount needed to receive exactly
// dataAmountOut data tokens.
func (s *Service) BuyQuote(ctx context.Context, pool common.Address, dataAmountOut decimal.Decimal) (decimal.Decimal, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.InGivenOut(p.BaseReserve, p.BaseWeight, p.DataReserve, p.DataWeight, dataAmountOut, p.SwapFee)
}

// SellQuote returns the base token amount received for selling exactly
// dataAmountIn data tokens.
func (s *Service) SellQuote(ctx context.Context, pool common.Address, dataAmountIn decimal.Decimal) (decimal.Decimal, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.OutGivenIn(p.DataReserve, p.DataWeight, p.BaseReserve, p.BaseWeight, dataAmountIn, p.SwapFee)
}

// MaxBuyQuantity returns the largest data token purchase the pool allows.
func (s *Service) MaxBuyQuantity(ctx context.Context, pool common.Address) (decimal.Decimal, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.MaxBuyQuantity(p.DataReserve), nil
}

// MaxAddLiquidity returns the largest single-sided deposit of token the pool
// allows.
func (s *Service) MaxAddLiquidity(ctx context.Context, pool, token common.Address) (decimal.Decimal, error) {
	reserve, err := s.Reserve(ctx, pool, token)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.MaxAddLiquidity(reserve), nil
}

// MaxRemoveLiquidity returns the largest single-sided withdrawal of token the
// pool allows.
func (s *Service) MaxRemoveLiquidity(ctx context.Context, pool, token common.Address) (decimal.Decimal, error) {
	reserve, err := s.Reserve(ctx, pool, token)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.MaxRemoveLiquidity(reserve), nil
}

// SharesRequiredToRemove returns the pool shares that must be burned to
// withdraw exactly amount of token single-sided.
func (s *Service) SharesRequiredToRemove(ctx context.Context, pool, token common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	reserve, err := s.Reserve(ctx, pool, token)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reserve: %w", err)
	}
	weight, err := s.DenormWeight(ctx, pool, token)
	if err != nil {
		return decimal.Zero, fmt.Errorf("weight: %w", err)
	}
	totalWeight, err := s.TotalDenormWeight(ctx, pool)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total weight: %w", err)
	}
	supply, err := s.TotalShares(ctx, pool)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total shares: %w", err)
	}
	fee, err := s.SwapFee(ctx, pool)
	if err != nil {
		return decimal.Zero, fmt.Errorf("swap fee: %w", err)
	}
	return pricing.PoolInGivenSingleOut(reserve, weight, supply, totalWeight, amount, fee)
}

// BuySlippage estimates the spot price move, in percent, of buying
// dataAmountOut data tokens.
func (s *Service) BuySlippage(ctx context.Context, pool common.Address, dataAmountOut decimal.Decimal) (decimal.Decimal, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}
	baseIn, err := pricing.InGivenOut(p.BaseReserve, p.BaseWeight, p.DataReserve, p.DataWeight, dataAmountOut, p.SwapFee)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.BuySlippage(p.BaseReserve, p.BaseWeight, p.DataReserve, p.DataWeight, baseIn, p.SwapFee)
}

// SellSlippage estimates the spot price move, in percent, of selling
// dataAmountIn data tokens.
func (s *Service) SellSlippage(ctx context.Context, pool common.Address, dataAmountIn decimal.Decimal) (decimal.Decimal, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.SellSlippage(p.DataReserve, p.DataWeight, p.BaseReserve, p.BaseWeight, dataAmountIn, p.SwapFee)
}

// TokensReceivedFor computes the pro-rata token amounts implied by spending
// poolShares pool shares.
func (s *Service) TokensReceivedFor(ctx context.Context, pool common.Address, poolShares decimal.Decimal) (model.TokensReceived, error) {
	p, err := s.Snapshot(ctx, pool)
	if err != nil {
		return model.TokensReceived{}, err
	}
	supply, err := s.TotalShares(ctx, pool)
	if err != nil {
		return model.TokensReceived{}, fmt.Errorf("total shares: %w", err)
	}
	return pricing.TokensReceived(poolShares, supply, p.DataReserve, p.BaseReserve)
}
