// Package pool exposes the weighted pool operations: reads, quotes, staged
// transaction workflows, and chain-wide pool discovery.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/contracts"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient token balance")
	ErrInsufficientShares = errors.New("insufficient pool shares")
	ErrTokenNotInPool     = errors.New("token not bound to pool")
	ErrPoolNotRegistered  = errors.New("pool registration event missing from receipt")
)

// Step names the workflow stage about to execute.
type Step string

const (
	StepCreatingPool       Step = "creating pool"
	StepApprovingDataToken Step = "approving data token"
	StepApprovingBaseToken Step = "approving base token"
	StepSettingUpPool      Step = "setting up pool"
	StepApprovingTransfer  Step = "approving transfer"
	StepSwapping           Step = "swapping"
	StepJoiningPool        Step = "joining pool"
	StepExitingPool        Step = "exiting pool"
)

// Config holds the chain-specific contract addresses a Service needs.
type Config struct {
	BaseToken  common.Address
	Factory    common.Address
	StartBlock uint64
}

// Service operates on weighted pools through a Caller and Querier.
type Service struct {
	caller  chain.Caller
	querier chain.Querier
	log     *zap.Logger
	cfg     Config

	poolABI    abi.ABI
	factoryABI abi.ABI
	erc20ABI   abi.ABI
}

// New builds a Service. The ABIs are parsed once here so later calls cannot
// fail on malformed ABI JSON.
func New(caller chain.Caller, querier chain.Querier, log *zap.Logger, cfg Config) (*Service, error) {
	poolABI, err := contracts.PoolABI()
	if err != nil {
		return nil, fmt.Errorf("pool abi: %w", err)
	}
	factoryABI, err := contracts.FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("factory abi: %w", err)
	}
	erc20ABI, err := contracts.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("erc20 abi: %w", err)
	}

	return &Service{
		caller:     caller,
		querier:    querier,
		log:        log,
		cfg:        cfg,
		poolABI:    poolABI,
		factoryABI: factoryABI,
		erc20ABI:   erc20ABI,
	}, nil
}

// callUint performs an eth_call returning a single uint256 and converts it to
// a human-unit decimal.
func (s *Service) callUint(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (decimal.Decimal, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{To: to, ABI: contractABI, Method: method, Args: args})
	if err != nil {
		return decimal.Zero, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return bmath.ToDecimal(v), nil
}

// approve submits an ERC20 approval of amount wei for spender. An allowance
// already covering amount is left untouched.
func (s *Service) approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     token,
		ABI:    s.erc20ABI,
		Method: "allowance",
		Args:   []interface{}{s.caller.From(), spender},
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
		Args:   []interface{}{spender, amount},
	})
	if err != nil {
		return fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	return nil
}

// tokenBalance reads the caller's ERC20 balance in human units.
func (s *Service) tokenBalance(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, token, s.erc20ABI, "balanceOf", s.caller.From())
}
