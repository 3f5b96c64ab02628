package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// Reserve returns the pool's bound balance of token in human units.
func (s *Service) Reserve(ctx context.Context, pool, token common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, pool, s.poolABI, "getBalance", token)
}

// DenormWeight returns the denormalized weight of token.
func (s *Service) DenormWeight(ctx context.Context, pool, token common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, pool, s.poolABI, "getDenormalizedWeight", token)
}

// TotalDenormWeight returns the sum of all denormalized weights.
func (s *Service) TotalDenormWeight(ctx context.Context, pool common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, pool, s.poolABI, "getTotalDenormalizedWeight")
}

// SwapFee returns the pool's swap fee as a fraction.
func (s *Service) SwapFee(ctx context.Context, pool common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, pool, s.poolABI, "getSwapFee")
}

// TotalShares returns the pool share token supply.
func (s *Service) TotalShares(ctx context.Context, pool common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, pool, s.poolABI, "totalSupply")
}

// SharesBalance returns account's pool share balance.
func (s *Service) SharesBalance(ctx context.Context, pool, account common.Address) (decimal.Decimal, error) {
	return s.callUint(ctx, pool, s.poolABI, "balanceOf", account)
}

// CurrentTokens lists the tokens currently bound to the pool.
func (s *Service) CurrentTokens(ctx context.Context, pool common.Address) ([]common.Address, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{To: pool, ABI: s.poolABI, Method: "getCurrentTokens"})
	if err != nil {
		return nil, err
	}
	tokens, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getCurrentTokens: unexpected output type %T", out[0])
	}
	return tokens, nil
}

// FinalTokens lists the tokens of a finalized pool.
func (s *Service) FinalTokens(ctx context.Context, pool common.Address) ([]common.Address, error) {
	out, err := s.caller.Call(ctx, chain.CallSpec{To: pool, ABI: s.poolABI, Method: "getFinalTokens"})
	if err != nil {
		return nil, err
	}
	tokens, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getFinalTokens: unexpected output type %T", out[0])
	}
	return tokens, nil
}

// DataToken resolves the pool's data token: the bound token that is not the
// configured base token.
func (s *Service) DataToken(ctx context.Context, pool common.Address) (common.Address, error) {
	tokens, err := s.CurrentTokens(ctx, pool)
	if err != nil {
		return common.Address{}, err
	}
	for _, t := range tokens {
		if t != s.cfg.BaseToken {
			return t, nil
		}
	}
	return common.Address{}, fmt.Errorf("pool %s: %w", pool.Hex(), ErrTokenNotInPool)
}

// Details returns the pool address together with its bound tokens.
func (s *Service) Details(ctx context.Context, pool common.Address) (model.PoolDetails, error) {
	tokens, err := s.CurrentTokens(ctx, pool)
	if err != nil {
		return model.PoolDetails{}, err
	}
	details := model.PoolDetails{PoolAddress: pool.Hex()}
	for _, t := range tokens {
		details.Tokens = append(details.Tokens, t.Hex())
	}
	return details, nil
}

// Snapshot reads the full pool state needed for pricing in one pass. The
// snapshot is always fetched fresh; nothing is cached between operations.
func (s *Service) Snapshot(ctx context.Context, pool common.Address) (model.Pool, error) {
	dataToken, err := s.DataToken(ctx, pool)
	if err != nil {
		return model.Pool{}, err
	}

	p := model.Pool{
		Address:   pool.Hex(),
		DataToken: dataToken.Hex(),
		BaseToken: s.cfg.BaseToken.Hex(),
	}
	if p.DataReserve, err = s.Reserve(ctx, pool, dataToken); err != nil {
		return model.Pool{}, fmt.Errorf("data reserve: %w", err)
	}
	if p.BaseReserve, err = s.Reserve(ctx, pool, s.cfg.BaseToken); err != nil {
		return model.Pool{}, fmt.Errorf("base reserve: %w", err)
	}
	if p.DataWeight, err = s.DenormWeight(ctx, pool, dataToken); err != nil {
		return model.Pool{}, fmt.Errorf("data weight: %w", err)
	}
	if p.BaseWeight, err = s.DenormWeight(ctx, pool, s.cfg.BaseToken); err != nil {
		return model.Pool{}, fmt.Errorf("base weight: %w", err)
	}
	if p.SwapFee, err = s.SwapFee(ctx, pool); err != nil {
		return model.Pool{}, fmt.Errorf("swap fee: %w", err)
	}
	return p, nil
}
