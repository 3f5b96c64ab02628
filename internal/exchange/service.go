// Package exchange operates fixed-rate data token exchanges.
package exchange

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
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

var (
	ErrExchangeInactive   = errors.New("exchange is not active")
	ErrExchangeActive     = errors.New("exchange is already active")
	ErrInsufficientSupply = errors.New("exchange supply too low")
	ErrInsufficientFunds  = errors.New("insufficient token balance")
	ErrNotCreated         = errors.New("exchange creation event missing from receipt")
)

// Step names the workflow stage about to execute.
type Step string

const (
	StepCreatingExchange   Step = "creating exchange"
	StepApprovingDataToken Step = "approving data token"
	StepApprovingBaseToken Step = "approving base token"
	StepSwapping           Step = "swapping"
)

// Config holds the chain-specific addresses a Service needs.
type Config struct {
	Exchange   common.Address
	BaseToken  common.Address
	StartBlock uint64
}

// Service operates the fixed-rate exchange contract.
type Service struct {
	caller  chain.Caller
	querier chain.Querier
	log     *zap.Logger
	cfg     Config

	exchangeABI abi.ABI
	erc20ABI    abi.ABI
}

// New builds a Service with the exchange and ERC20 ABIs parsed up front.
func New(caller chain.Caller, querier chain.Querier, log *zap.Logger, cfg Config) (*Service, error) {
	exchangeABI, err := contracts.ExchangeABI()
	if err != nil {
		return nil, fmt.Errorf("exchange abi: %w", err)
	}
	erc20ABI, err := contracts.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("erc20 abi: %w", err)
	}
	return &Service{
		caller:      caller,
		querier:     querier,
		log:         log,
		cfg:         cfg,
		exchangeABI: exchangeABI,
		erc20ABI:    erc20ABI,
	}, nil
}

func (s *Service) callUint(ctx context.Context, method string, args ...interface{}) (decimal.Decimal, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{To: s.cfg.Exchange, ABI: s.exchangeABI, Method: method, Args: args})
	if err != nil {
		return decimal.Zero, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return bmath.ToDecimal(v), nil
}

// GenerateID computes the deterministic exchange ID for a token pair and
// owner.
func (s *Service) GenerateID(ctx context.Context, dataToken, owner common.Address) (common.Hash, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     s.cfg.Exchange,
		ABI:    s.exchangeABI,
		Method: "generateExchangeId",
		Args:   []interface{}{s.cfg.BaseToken, dataToken, owner},
	})
	if err != nil {
		return common.Hash{}, err
	}
	id, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("generateExchangeId: unexpected output type %T", out[0])
	}
	return common.Hash(id), nil
}

// Count returns how many exchanges the contract holds.
func (s *Service) Count(ctx context.Context) (decimal.Decimal, error) {
	return s.callUint(ctx, "getNumberOfExchanges")
}

// Rate returns the exchange's fixed rate.
func (s *Service) Rate(ctx context.Context, exchangeID common.Hash) (decimal.Decimal, error) {
	return s.callUint(ctx, "getRate", [32]byte(exchangeID))
}

// Supply returns how many data tokens the exchange can currently serve.
func (s *Service) Supply(ctx context.Context, exchangeID common.Hash) (decimal.Decimal, error) {
	return s.callUint(ctx, "getSupply", [32]byte(exchangeID))
}

// BaseNeeded returns the base token cost of buying dataAmount data tokens.
func (s *Service) BaseNeeded(ctx context.Context, exchangeID common.Hash, dataAmount decimal.Decimal) (decimal.Decimal, error) {
	amount, err := bmath.FromDecimal(dataAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("data amount: %w", err)
	}
	return s.callUint(ctx, "CalcInGivenOut", [32]byte(exchangeID), amount)
}

// IsActive reports whether the exchange accepts swaps.
func (s *Service) IsActive(ctx context.Context, exchangeID common.Hash) (bool, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     s.cfg.Exchange,
		ABI:    s.exchangeABI,
		Method: "isActive",
		Args:   []interface{}{[32]byte(exchangeID)},
	})
	if err != nil {
		return false, err
	}
	active, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isActive: unexpected output type %T", out[0])
	}
	return active, nil
}

// Exchange reads the full state of one exchange.
func (s *Service) Exchange(ctx context.Context, exchangeID common.Hash) (model.ExchangeRecord, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     s.cfg.Exchange,
		ABI:    s.exchangeABI,
		Method: "getExchange",
		Args:   []interface{}{[32]byte(exchangeID)},
	})
	if err != nil {
		return model.ExchangeRecord{}, err
	}
	if len(out) != 6 {
		return model.ExchangeRecord{}, fmt.Errorf("getExchange: %d outputs", len(out))
	}
	owner, ok1 := out[0].(common.Address)
	dataToken, ok2 := out[1].(common.Address)
	baseToken, ok3 := out[2].(common.Address)
	rate, ok4 := out[3].(*big.Int)
	active, ok5 := out[4].(bool)
	supply, ok6 := out[5].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return model.ExchangeRecord{}, fmt.Errorf("getExchange: unexpected output shape %v", out)
	}
	return model.ExchangeRecord{
		ExchangeID: exchangeID.Hex(),
		Owner:      owner.Hex(),
		DataToken:  dataToken.Hex(),
		BaseToken:  baseToken.Hex(),
		FixedRate:  bmath.ToDecimal(rate),
		Active:     active,
		Supply:     bmath.ToDecimal(supply),
	}, nil
}

// ExchangeIDs lists every exchange ID the contract holds.
func (s *Service) ExchangeIDs(ctx context.Context) ([]common.Hash, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{
		To:     s.cfg.Exchange,
		ABI:    s.exchangeABI,
		Method: "getExchanges",
	})
	if err != nil {
		return nil, err
	}
	raw, ok := out[0].([][32]byte)
	if !ok {
		return nil, fmt.Errorf("getExchanges: unexpected output type %T", out[0])
	}
	ids := make([]common.Hash, len(raw))
	for i, r := range raw {
		ids[i] = common.Hash(r)
	}
	return ids, nil
}

// Exchanges reads the state of every exchange in capped parallel batches.
func (s *Service) Exchanges(ctx context.Context) ([]model.ExchangeRecord, error) {
	ids, err := s.ExchangeIDs(ctx)
	if err != nil {
		return nil, err
	}
	return chain.Gather(ctx, ids, func(ctx context.Context, id common.Hash) (model.ExchangeRecord, error) {
		return s.Exchange(ctx, id)
	})
}

// SearchByDataToken returns exchanges serving dataToken with at least
// minSupply data tokens available.
func (s *Service) SearchByDataToken(ctx context.Context, dataToken common.Address, minSupply decimal.Decimal) ([]model.ExchangeRecord, error) {
	all, err := s.Exchanges(ctx)
	if err != nil {
		return nil, err
	}
	var matches []model.ExchangeRecord
	for _, e := range all {
		if e.DataToken == dataToken.Hex() && e.Active && e.Supply.GreaterThanOrEqual(minSupply) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}
