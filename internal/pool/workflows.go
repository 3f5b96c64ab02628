package pool

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/pricing"
	"github.com/solbody-protocol/solbody-protocol/internal/progress"
)

// shareTightening shaves the exact-balance share amount so exitPool never
// reverts on rounding. Carried over from the contract's known exit rounding
// behavior.
var shareTightening = decimal.RequireFromString("0.9999")

// noPriceCap is the swap price bound used when the caller sets none.
var noPriceCap = new(big.Int).Lsh(big.NewInt(1), 255)

// CreateParams describes a new pool.
type CreateParams struct {
	DataToken  common.Address
	DataAmount decimal.Decimal
	DataWeight decimal.Decimal
	BaseAmount decimal.Decimal
	SwapFee    decimal.Decimal
}

// Create runs the full pool creation workflow: deploy, two approvals, setup.
// The returned task yields the new pool address. A failed stage aborts the
// workflow; earlier transactions stay on chain.
func (s *Service) Create(ctx context.Context, p CreateParams) *progress.Task[Step, common.Address] {
	return progress.Run(func(emit func(Step)) (common.Address, error) {
		var zero common.Address

		if err := pricing.CheckPoolCreation(p.SwapFee, p.DataAmount, p.DataWeight); err != nil {
			return zero, err
		}

		dataAmount, err := bmath.FromDecimal(p.DataAmount)
		if err != nil {
			return zero, fmt.Errorf("data amount: %w", err)
		}
		dataWeight, err := bmath.FromDecimal(p.DataWeight)
		if err != nil {
			return zero, fmt.Errorf("data weight: %w", err)
		}
		baseAmount, err := bmath.FromDecimal(p.BaseAmount)
		if err != nil {
			return zero, fmt.Errorf("base amount: %w", err)
		}
		baseWeight, err := bmath.FromDecimal(pricing.BaseWeight(p.DataWeight))
		if err != nil {
			return zero, fmt.Errorf("base weight: %w", err)
		}
		swapFee, err := bmath.FromDecimal(p.SwapFee)
		if err != nil {
			return zero, fmt.Errorf("swap fee: %w", err)
		}

		emit(StepCreatingPool)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     s.cfg.Factory,
			ABI:    s.factoryABI,
			Method: "newBPool",
		})
		if err != nil {
			return zero, fmt.Errorf("create pool: %w", err)
		}
		poolAddr, err := s.poolFromReceipt(receipt)
		if err != nil {
			return zero, err
		}
		s.log.Info("pool deployed",
			zap.String("pool", poolAddr.Hex()),
			zap.String("tx", receipt.TxHash.Hex()))

		emit(StepApprovingDataToken)
		if err := s.approve(ctx, p.DataToken, poolAddr, dataAmount); err != nil {
			return zero, err
		}

		emit(StepApprovingBaseToken)
		if err := s.approve(ctx, s.cfg.BaseToken, poolAddr, baseAmount); err != nil {
			return zero, err
		}

		emit(StepSettingUpPool)
		_, err = chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     poolAddr,
			ABI:    s.poolABI,
			Method: "setup",
			Args: []interface{}{
				p.DataToken, dataAmount, dataWeight,
				s.cfg.BaseToken, baseAmount, baseWeight,
				swapFee,
			},
		})
		if err != nil {
			return zero, fmt.Errorf("setup pool: %w", err)
		}

		return poolAddr, nil
	})
}

// poolFromReceipt extracts the new pool address from the factory's
// registration event.
func (s *Service) poolFromReceipt(receipt *types.Receipt) (common.Address, error) {
	registered := s.factoryABI.Events["BPoolRegistered"]
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != registered.ID {
			continue
		}
		out, err := s.factoryABI.Unpack("BPoolRegistered", lg.Data)
		if err != nil {
			return common.Address{}, fmt.Errorf("decode registration: %w", err)
		}
		addr, ok := out[0].(common.Address)
		if !ok {
			return common.Address{}, fmt.Errorf("decode registration: unexpected type %T", out[0])
		}
		return addr, nil
	}
	return common.Address{}, ErrPoolNotRegistered
}

// BuyParams buys an exact amount of data tokens for at most MaxBaseAmount
// base tokens. A zero MaxPrice means no price bound.
type BuyParams struct {
	Pool          common.Address
	DataAmountOut decimal.Decimal
	MaxBaseAmount decimal.Decimal
	MaxPrice      decimal.Decimal
}

// Buy swaps base tokens for an exact data token amount.
func (s *Service) Buy(ctx context.Context, p BuyParams) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		snap, err := s.Snapshot(ctx, p.Pool)
		if err != nil {
			return nil, err
		}
		if p.DataAmountOut.GreaterThan(pricing.MaxBuyQuantity(snap.DataReserve)) {
			return nil, fmt.Errorf("buy %s data tokens: %w", p.DataAmountOut, pricing.ErrExceedsReserveLimit)
		}
		balance, err := s.tokenBalance(ctx, s.cfg.BaseToken)
		if err != nil {
			return nil, fmt.Errorf("base balance: %w", err)
		}
		if balance.LessThan(p.MaxBaseAmount) {
			return nil, fmt.Errorf("have %s base tokens, need %s: %w", balance, p.MaxBaseAmount, ErrInsufficientFunds)
		}

		dataOut, err := bmath.FromDecimal(p.DataAmountOut)
		if err != nil {
			return nil, fmt.Errorf("data amount: %w", err)
		}
		maxBase, err := bmath.FromDecimal(p.MaxBaseAmount)
		if err != nil {
			return nil, fmt.Errorf("max base amount: %w", err)
		}
		maxPrice, err := s.priceCap(p.MaxPrice)
		if err != nil {
			return nil, err
		}

		dataToken := common.HexToAddress(snap.DataToken)

		emit(StepApprovingBaseToken)
		if err := s.approve(ctx, s.cfg.BaseToken, p.Pool, maxBase); err != nil {
			return nil, err
		}

		emit(StepSwapping)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     p.Pool,
			ABI:    s.poolABI,
			Method: "swapExactAmountOut",
			Args:   []interface{}{s.cfg.BaseToken, maxBase, dataToken, dataOut, maxPrice},
		})
		if err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		return receipt, nil
	})
}

// BuyWithExactBaseParams spends an exact base token amount for at least
// MinDataAmountOut data tokens.
type BuyWithExactBaseParams struct {
	Pool             common.Address
	BaseAmountIn     decimal.Decimal
	MinDataAmountOut decimal.Decimal
	MaxPrice         decimal.Decimal
}

// BuyWithExactBase swaps an exact base token amount for data tokens.
func (s *Service) BuyWithExactBase(ctx context.Context, p BuyWithExactBaseParams) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		snap, err := s.Snapshot(ctx, p.Pool)
		if err != nil {
			return nil, err
		}
		balance, err := s.tokenBalance(ctx, s.cfg.BaseToken)
		if err != nil {
			return nil, fmt.Errorf("base balance: %w", err)
		}
		if balance.LessThan(p.BaseAmountIn) {
			return nil, fmt.Errorf("have %s base tokens, need %s: %w", balance, p.BaseAmountIn, ErrInsufficientFunds)
		}

		baseIn, err := bmath.FromDecimal(p.BaseAmountIn)
		if err != nil {
			return nil, fmt.Errorf("base amount: %w", err)
		}
		minDataOut, err := bmath.FromDecimal(p.MinDataAmountOut)
		if err != nil {
			return nil, fmt.Errorf("min data amount: %w", err)
		}
		maxPrice, err := s.priceCap(p.MaxPrice)
		if err != nil {
			return nil, err
		}

		dataToken := common.HexToAddress(snap.DataToken)

		emit(StepApprovingBaseToken)
		if err := s.approve(ctx, s.cfg.BaseToken, p.Pool, baseIn); err != nil {
			return nil, err
		}

		emit(StepSwapping)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     p.Pool,
			ABI:    s.poolABI,
			Method: "swapExactAmountIn",
			Args:   []interface{}{s.cfg.BaseToken, baseIn, dataToken, minDataOut, maxPrice},
		})
		if err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		return receipt, nil
	})
}

// SellParams sells an exact data token amount for at least MinBaseAmountOut
// base tokens.
type SellParams struct {
	Pool             common.Address
	DataAmountIn     decimal.Decimal
	MinBaseAmountOut decimal.Decimal
	MaxPrice         decimal.Decimal
}

// Sell swaps an exact data token amount for base tokens.
func (s *Service) Sell(ctx context.Context, p SellParams) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		snap, err := s.Snapshot(ctx, p.Pool)
		if err != nil {
			return nil, err
		}
		dataToken := common.HexToAddress(snap.DataToken)

		balance, err := s.tokenBalance(ctx, dataToken)
		if err != nil {
			return nil, fmt.Errorf("data balance: %w", err)
		}
		if balance.LessThan(p.DataAmountIn) {
			return nil, fmt.Errorf("have %s data tokens, need %s: %w", balance, p.DataAmountIn, ErrInsufficientFunds)
		}

		dataIn, err := bmath.FromDecimal(p.DataAmountIn)
		if err != nil {
			return nil, fmt.Errorf("data amount: %w", err)
		}
		minBaseOut, err := bmath.FromDecimal(p.MinBaseAmountOut)
		if err != nil {
			return nil, fmt.Errorf("min base amount: %w", err)
		}
		maxPrice, err := s.priceCap(p.MaxPrice)
		if err != nil {
			return nil, err
		}

		emit(StepApprovingDataToken)
		if err := s.approve(ctx, dataToken, p.Pool, dataIn); err != nil {
			return nil, err
		}

		emit(StepSwapping)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     p.Pool,
			ABI:    s.poolABI,
			Method: "swapExactAmountIn",
			Args:   []interface{}{dataToken, dataIn, s.cfg.BaseToken, minBaseOut, maxPrice},
		})
		if err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		return receipt, nil
	})
}

// AddLiquidity deposits a single-sided token amount and mints at least
// minPoolShares pool shares.
func (s *Service) AddLiquidity(ctx context.Context, pool, token common.Address, amount, minPoolShares decimal.Decimal) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		reserve, err := s.Reserve(ctx, pool, token)
		if err != nil {
			return nil, fmt.Errorf("reserve: %w", err)
		}
		if err := pricing.CheckReserveLimit(amount, reserve); err != nil {
			return nil, err
		}
		balance, err := s.tokenBalance(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("token balance: %w", err)
		}
		if balance.LessThan(amount) {
			return nil, fmt.Errorf("have %s tokens, need %s: %w", balance, amount, ErrInsufficientFunds)
		}

		amountIn, err := bmath.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		minShares, err := bmath.FromDecimal(minPoolShares)
		if err != nil {
			return nil, fmt.Errorf("min shares: %w", err)
		}

		emit(StepApprovingTransfer)
		if err := s.approve(ctx, token, pool, amountIn); err != nil {
			return nil, err
		}

		emit(StepJoiningPool)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     pool,
			ABI:    s.poolABI,
			Method: "joinswapExternAmountIn",
			Args:   []interface{}{token, amountIn, minShares},
		})
		if err != nil {
			return nil, fmt.Errorf("join pool: %w", err)
		}
		return receipt, nil
	})
}

// RemoveLiquidity withdraws an exact single-sided token amount, burning at
// most maxPoolShares pool shares. A cap below the shares the withdrawal
// requires fails before anything is signed; a cap equal to the caller's
// entire balance is tightened by shareTightening first.
func (s *Service) RemoveLiquidity(ctx context.Context, pool, token common.Address, amount, maxPoolShares decimal.Decimal) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		reserve, err := s.Reserve(ctx, pool, token)
		if err != nil {
			return nil, fmt.Errorf("reserve: %w", err)
		}
		if err := pricing.CheckReserveLimit(amount, reserve); err != nil {
			return nil, err
		}
		required, err := s.SharesRequiredToRemove(ctx, pool, token, amount)
		if err != nil {
			return nil, fmt.Errorf("required shares: %w", err)
		}
		if maxPoolShares.LessThan(required) {
			return nil, fmt.Errorf("removing %s needs %s shares, cap is %s: %w", amount, required, maxPoolShares, ErrInsufficientShares)
		}
		shares, err := s.SharesBalance(ctx, pool, s.caller.From())
		if err != nil {
			return nil, fmt.Errorf("shares balance: %w", err)
		}
		if shares.LessThan(maxPoolShares) {
			return nil, fmt.Errorf("have %s shares, need %s: %w", shares, maxPoolShares, ErrInsufficientShares)
		}
		if maxPoolShares.Equal(shares) {
			maxPoolShares = maxPoolShares.Mul(shareTightening)
		}

		amountOut, err := bmath.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		maxShares, err := bmath.FromDecimal(maxPoolShares)
		if err != nil {
			return nil, fmt.Errorf("max shares: %w", err)
		}

		emit(StepExitingPool)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     pool,
			ABI:    s.poolABI,
			Method: "exitswapExternAmountOut",
			Args:   []interface{}{token, amountOut, maxShares},
		})
		if err != nil {
			return nil, fmt.Errorf("exit pool: %w", err)
		}
		return receipt, nil
	})
}

// RemoveLiquidityWithMinimum burns poolShares for both tokens, requiring at
// least the given minimum amounts. Burning the entire share balance is
// tightened by shareTightening first.
func (s *Service) RemoveLiquidityWithMinimum(ctx context.Context, pool common.Address, poolShares, minDataOut, minBaseOut decimal.Decimal) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		shares, err := s.SharesBalance(ctx, pool, s.caller.From())
		if err != nil {
			return nil, fmt.Errorf("shares balance: %w", err)
		}
		if shares.LessThan(poolShares) {
			return nil, fmt.Errorf("have %s shares, need %s: %w", shares, poolShares, ErrInsufficientShares)
		}
		if poolShares.Equal(shares) {
			poolShares = poolShares.Mul(shareTightening)
		}

		sharesIn, err := bmath.FromDecimal(poolShares)
		if err != nil {
			return nil, fmt.Errorf("shares: %w", err)
		}
		minData, err := bmath.FromDecimal(minDataOut)
		if err != nil {
			return nil, fmt.Errorf("min data amount: %w", err)
		}
		minBase, err := bmath.FromDecimal(minBaseOut)
		if err != nil {
			return nil, fmt.Errorf("min base amount: %w", err)
		}

		emit(StepExitingPool)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     pool,
			ABI:    s.poolABI,
			Method: "exitPool",
			Args:   []interface{}{sharesIn, []*big.Int{minData, minBase}},
		})
		if err != nil {
			return nil, fmt.Errorf("exit pool: %w", err)
		}
		return receipt, nil
	})
}

// RemoveAllLiquidity burns the caller's entire share balance with no minimum
// amounts.
func (s *Service) RemoveAllLiquidity(ctx context.Context, pool common.Address) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		shares, err := s.SharesBalance(ctx, pool, s.caller.From())
		if err != nil {
			return nil, fmt.Errorf("shares balance: %w", err)
		}
		if shares.IsZero() {
			return nil, fmt.Errorf("no shares held: %w", ErrInsufficientShares)
		}

		sharesIn, err := bmath.FromDecimal(shares.Mul(shareTightening))
		if err != nil {
			return nil, fmt.Errorf("shares: %w", err)
		}

		emit(StepExitingPool)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     pool,
			ABI:    s.poolABI,
			Method: "exitPool",
			Args:   []interface{}{sharesIn, []*big.Int{big.NewInt(0), big.NewInt(0)}},
		})
		if err != nil {
			return nil, fmt.Errorf("exit pool: %w", err)
		}
		return receipt, nil
	})
}

// priceCap converts the optional max price bound to wei, substituting the
// no-bound sentinel for zero.
func (s *Service) priceCap(maxPrice decimal.Decimal) (*big.Int, error) {
	if maxPrice.IsZero() {
		return new(big.Int).Set(noPriceCap), nil
	}
	bound, err := bmath.FromDecimal(maxPrice)
	if err != nil {
		return nil, fmt.Errorf("max price: %w", err)
	}
	return bound, nil
}
