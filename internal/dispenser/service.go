// Package dispenser operates the free data token dispenser.
package dispenser

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/contracts"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
	"github.com/solbody-protocol/solbody-protocol/internal/progress"
)

var (
	// ErrNotDispensing is returned when the dispenser is inactive, the request
	// exceeds its cap, or it lacks both mint rights and balance.
	ErrNotDispensing = errors.New("dispenser cannot serve the request")
	ErrAlreadyMinter = errors.New("dispenser already holds the minter role")
	ErrNotMinter     = errors.New("dispenser does not hold the minter role")
)

// Step names the workflow stage about to execute.
type Step string

const (
	StepProposingMinter Step = "proposing minter"
	StepAcceptingMinter Step = "accepting minter"
	StepRemovingMinter  Step = "removing minter"
	StepApprovingMinter Step = "approving minter"
)

// Config holds the dispenser contract address.
type Config struct {
	Dispenser common.Address
}

// Service operates the dispenser contract.
type Service struct {
	caller chain.Caller
	log    *zap.Logger
	cfg    Config

	dispenserABI abi.ABI
	datatokenABI abi.ABI
}

// New builds a Service with the ABIs parsed up front.
func New(caller chain.Caller, log *zap.Logger, cfg Config) (*Service, error) {
	dispenserABI, err := contracts.DispenserABI()
	if err != nil {
		return nil, fmt.Errorf("dispenser abi: %w", err)
	}
	datatokenABI, err := contracts.DatatokenABI()
	if err != nil {
		return nil, fmt.Errorf("datatoken abi: %w", err)
	}
	return &Service{
		caller:       caller,
		log:          log,
		cfg:          cfg,
		dispenserABI: dispenserABI,
		datatokenABI: datatokenABI,
	}, nil
}

// Status reads the dispenser state for dataToken.
func (s *Service) Status(ctx context.Context, dataToken common.Address) (model.DispenserStatus, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     s.cfg.Dispenser,
		ABI:    s.dispenserABI,
		Method: "status",
		Args:   []interface{}{dataToken},
	})
	if err != nil {
		return model.DispenserStatus{}, err
	}
	if len(out) != 7 {
		return model.DispenserStatus{}, fmt.Errorf("status: %d outputs", len(out))
	}
	active, ok1 := out[0].(bool)
	owner, ok2 := out[1].(common.Address)
	minterApproved, ok3 := out[2].(bool)
	isTrueMinter, ok4 := out[3].(bool)
	maxTokens, ok5 := out[4].(*big.Int)
	maxBalance, ok6 := out[5].(*big.Int)
	balance, ok7 := out[6].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return model.DispenserStatus{}, fmt.Errorf("status: unexpected output shape %v", out)
	}
	return model.DispenserStatus{
		Active:         active,
		Owner:          owner.Hex(),
		MinterApproved: minterApproved,
		IsTrueMinter:   isTrueMinter,
		MaxTokens:      bmath.ToDecimal(maxTokens),
		MaxBalance:     bmath.ToDecimal(maxBalance),
		Balance:        bmath.ToDecimal(balance),
	}, nil
}

// isMinter reports whether the dispenser holds dataToken's minter role.
func (s *Service) isMinter(ctx context.Context, dataToken common.Address) (bool, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     dataToken,
		ABI:    s.datatokenABI,
		Method: "isMinter",
		Args:   []interface{}{s.cfg.Dispenser},
	})
	if err != nil {
		return false, fmt.Errorf("is minter: %w", err)
	}
	minter, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isMinter: unexpected output type %T", out[0])
	}
	return minter, nil
}

// IsDispensable reports whether the dispenser can serve amount data tokens
// right now.
func (s *Service) IsDispensable(ctx context.Context, dataToken common.Address, amount decimal.Decimal) (bool, error) {
	st, err := s.Status(ctx, dataToken)
	if err != nil {
		return false, err
	}
	if !st.Active || amount.GreaterThan(st.MaxTokens) {
		return false, nil
	}
	// Either the dispenser mints directly or it holds enough balance.
	if st.IsTrueMinter && st.MinterApproved {
		return true, nil
	}
	return st.Balance.GreaterThanOrEqual(amount), nil
}

// Activate turns the dispenser on for dataToken with per-request and
// per-holder caps.
func (s *Service) Activate(ctx context.Context, dataToken common.Address, maxTokens, maxBalance decimal.Decimal) (*types.Receipt, error) {
	maxTokensWei, err := bmath.FromDecimal(maxTokens)
	if err != nil {
		return nil, fmt.Errorf("max tokens: %w", err)
	}
	maxBalanceWei, err := bmath.FromDecimal(maxBalance)
	if err != nil {
		return nil, fmt.Errorf("max balance: %w", err)
	}
	return chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     s.cfg.Dispenser,
		ABI:    s.dispenserABI,
		Method: "activate",
		Args:   []interface{}{dataToken, maxTokensWei, maxBalanceWei},
	})
}

// Deactivate turns the dispenser off for dataToken.
func (s *Service) Deactivate(ctx context.Context, dataToken common.Address) (*types.Receipt, error) {
	return chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     s.cfg.Dispenser,
		ABI:    s.dispenserABI,
		Method: "deactivate",
		Args:   []interface{}{dataToken},
	})
}

// Dispense requests amount free data tokens.
func (s *Service) Dispense(ctx context.Context, dataToken common.Address, amount decimal.Decimal) (*types.Receipt, error) {
	ok, err := s.IsDispensable(ctx, dataToken, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("dispense %s of %s: %w", amount, dataToken.Hex(), ErrNotDispensing)
	}
	amountWei, err := bmath.FromDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	return chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     s.cfg.Dispenser,
		ABI:    s.dispenserABI,
		Method: "dispense",
		Args:   []interface{}{dataToken, amountWei},
	})
}

// OwnerWithdraw pulls the dispenser's remaining balance back to the owner.
func (s *Service) OwnerWithdraw(ctx context.Context, dataToken common.Address) (*types.Receipt, error) {
	return chain.Execute(ctx, s.caller, chain.CallSpec{
		To:     s.cfg.Dispenser,
		ABI:    s.dispenserABI,
		Method: "ownerWithdraw",
		Args:   []interface{}{dataToken},
	})
}

// MakeMinter hands the data token's minter role to the dispenser: propose on
// the token, then accept on the dispenser. Fails without any ledger call when
// the dispenser already holds the role.
func (s *Service) MakeMinter(ctx context.Context, dataToken common.Address) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		minter, err := s.isMinter(ctx, dataToken)
		if err != nil {
			return nil, err
		}
		if minter {
			return nil, fmt.Errorf("token %s: %w", dataToken.Hex(), ErrAlreadyMinter)
		}

		emit(StepProposingMinter)
		_, err = chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     dataToken,
			ABI:    s.datatokenABI,
			Method: "proposeMinter",
			Args:   []interface{}{s.cfg.Dispenser},
		})
		if err != nil {
			return nil, fmt.Errorf("propose minter: %w", err)
		}

		emit(StepAcceptingMinter)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     s.cfg.Dispenser,
			ABI:    s.dispenserABI,
			Method: "acceptMinter",
			Args:   []interface{}{dataToken},
		})
		if err != nil {
			return nil, fmt.Errorf("accept minter: %w", err)
		}
		return receipt, nil
	})
}

// CancelMinter takes the minter role back from the dispenser: remove on the
// dispenser, then approve the handback on the token. Fails without any ledger
// call when the dispenser does not hold the role.
func (s *Service) CancelMinter(ctx context.Context, dataToken common.Address) *progress.Task[Step, *types.Receipt] {
	return progress.Run(func(emit func(Step)) (*types.Receipt, error) {
		minter, err := s.isMinter(ctx, dataToken)
		if err != nil {
			return nil, err
		}
		if !minter {
			return nil, fmt.Errorf("token %s: %w", dataToken.Hex(), ErrNotMinter)
		}

		emit(StepRemovingMinter)
		_, err = chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     s.cfg.Dispenser,
			ABI:    s.dispenserABI,
			Method: "removeMinter",
			Args:   []interface{}{dataToken},
		})
		if err != nil {
			return nil, fmt.Errorf("remove minter: %w", err)
		}

		emit(StepApprovingMinter)
		receipt, err := chain.Execute(ctx, s.caller, chain.CallSpec{
			To:     dataToken,
			ABI:    s.datatokenABI,
			Method: "approveMinter",
		})
		if err != nil {
			return nil, fmt.Errorf("approve minter: %w", err)
		}
		return receipt, nil
	})
}
