package exchange

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
	"github.com/solbody-protocol/solbody-protocol/internal/progress"
)

// CreateParams describes a new fixed-rate exchange. A positive DataSupply
// adds an approval stage that funds the exchange from the owner's balance.
type CreateParams struct {
	DataToken  common.Address
	FixedRate  decimal.Decimal
	DataSupply decimal.Decimal
}

// Create registers a fixed-rate exchange and optionally approves its data
// token supply. The returned task yields the exchange ID.
func (s *Service) Create(ctx context.Context, p CreateParams) *progress.Task[Step, common.Hash] {
	return progress.Run(func(emit func(Step)) (common.Hash, error) {
		var zero common.Hash

		rate, err := bmath.FromDecimal(p.FixedRate)
		if err != nil {
			return zero, fmt.Errorf("fixed rate: %w", err)
		}

		emit(StepCreatingExchange)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     s.cfg.Exchange,
			ABI:    s.exchangeABI,
			Method: "create",
			Args:   []interface{}{s.cfg.BaseToken, p.DataToken, rate},
		})
		if err != nil {
			return zero, fmt.Errorf("create exchange: %w", err)
		}
		exchangeID, err := s.idFromReceipt(receipt)
		if err != nil {
			return zero, err
		}
		s.log.Info("exchange created",
			zap.String("exchange_id", exchangeID.Hex()),
			zap.String("tx", receipt.TxHash.Hex()))

		if p.DataSupply.IsPositive() {
			supply, err := bmath.FromDecimal(p.DataSupply)
			if err != nil {
				return zero, fmt.Errorf("data supply: %w", err)
			}
			emit(StepApprovingDataToken)
			if err := s.approve(ctx, p.DataToken, supply); err != nil {
				return zero, fmt.Errorf("approve supply: %w", err)
			}
		}

		return exchangeID, nil
	})
}

// idFromReceipt extracts the exchange ID from the creation event.
func (s *Service) idFromReceipt(receipt *types.Receipt) (common.Hash, error) {
	created := s.exchangeABI.Events["ExchangeCreated"]
	for _, lg := range receipt.Logs {
		if len(lg.Topics) < 2 || lg.Topics[0] != created.ID {
			continue
		}
		return lg.Topics[1], nil
	}
	return common.Hash{}, ErrNotCreated
}

// Buy swaps base tokens for dataAmount data tokens at the fixed rate.
func (s *Service) Buy(ctx context.Context, exchangeID common.Hash, dataAmount decimal.Decimal) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		active, err := s.IsActive(ctx, exchangeID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, fmt.Errorf("exchange %s: %w", exchangeID.Hex(), ErrExchangeInactive)
		}
		supply, err := s.Supply(ctx, exchangeID)
		if err != nil {
			return nil, fmt.Errorf("supply: %w", err)
		}
		if supply.LessThan(dataAmount) {
			return nil, fmt.Errorf("supply %s, need %s: %w", supply, dataAmount, ErrInsufficientSupply)
		}

		baseNeeded, err := s.BaseNeeded(ctx, exchangeID, dataAmount)
		if err != nil {
			return nil, fmt.Errorf("base needed: %w", err)
		}
		balance, err := s.callUintOn(ctx, s.cfg.BaseToken, "balanceOf", s.caller.From())
		if err != nil {
			return nil, fmt.Errorf("base balance: %w", err)
		}
		if balance.LessThan(baseNeeded) {
			return nil, fmt.Errorf("have %s base tokens, need %s: %w", balance, baseNeeded, ErrInsufficientFunds)
		}

		baseWei, err := bmath.FromDecimal(baseNeeded)
		if err != nil {
			return nil, fmt.Errorf("base amount: %w", err)
		}
		dataWei, err := bmath.FromDecimal(dataAmount)
		if err != nil {
			return nil, fmt.Errorf("data amount: %w", err)
		}

		emit(StepApprovingBaseToken)
		if err := s.approve(ctx, s.cfg.BaseToken, baseWei); err != nil {
			return nil, fmt.Errorf("approve base: %w", err)
		}

		emit(StepSwapping)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     s.cfg.Exchange,
			ABI:    s.exchangeABI,
			Method: "swap",
			Args:   []interface{}{[32]byte(exchangeID), dataWei},
		})
		if err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		return receipt, nil
	})
}

// SetRate changes the exchange's fixed rate.
func (s *Service) SetRate(ctx context.Context, exchangeID common.Hash, newRate decimal.Decimal) (*types.Receipt, error) {
	rate, err := bmath.FromDecimal(newRate)
	if err != nil {
		return nil, fmt.Errorf("rate: %w", err)
	}
	return chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     s.cfg.Exchange,
		ABI:    s.exchangeABI,
		Method: "setRate",
		Args:   []interface{}{[32]byte(exchangeID), rate},
	})
}

// Activate enables swaps on an inactive exchange.
func (s *Service) Activate(ctx context.Context, exchangeID common.Hash) (*types.Receipt, error) {
	active, err := s.IsActive(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("exchange %s: %w", exchangeID.Hex(), ErrExchangeActive)
	}
	return s.toggle(ctx, exchangeID)
}

// Deactivate disables swaps on an active exchange.
func (s *Service) Deactivate(ctx context.Context, exchangeID common.Hash) (*types.Receipt, error) {
	active, err := s.IsActive(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("exchange %s: %w", exchangeID.Hex(), ErrExchangeInactive)
	}
	return s.toggle(ctx, exchangeID)
}

func (s *Service) toggle(ctx context.Context, exchangeID common.Hash) (*types.Receipt, error) {
	return chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     s.cfg.Exchange,
		ABI:    s.exchangeABI,
		Method: "toggleExchangeState",
		Args:   []interface{}{[32]byte(exchangeID)},
	})
}

// approve submits an ERC20 approval of amount wei for the exchange contract.
// An allowance already covering amount is left untouched.
func (s *Service) approve(ctx context.Context, token common.Address, amount *big.Int) error {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     token,
		ABI:    s.erc20ABI,
		Method: "allowance",
		Args:   []interface{}{s.caller.From(), s.cfg.Exchange},
	})
	if err != nil {
		return fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}
	if current, ok := out[0].(*big.Int); ok && current.Cmp(amount) >= 0 {
		return nil
	}

	_, err = chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     token,
		ABI:    s.erc20ABI,
		Method: "approve",
		Args:   []interface{}{s.cfg.Exchange, amount},
	})
	if err != nil {
		return fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	return nil
}

func (s *Service) callUintOn(ctx context.Context, to common.Address, method string, args ...interface{}) (decimal.Decimal, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{To: to, ABI: s.erc20ABI, Method: method, Args: args})
	if err != nil {
		return decimal.Zero, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return bmath.ToDecimal(v), nil
}
