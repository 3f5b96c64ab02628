package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// AllPools lists every pool the factory ever registered.
func (s *Service) AllPools(ctx context.Context) ([]common.Address, error) {
	return s.PoolsByCreator(ctx, nil)
}

// PoolsByCreator lists pools registered by creator, or all pools when creator
// is nil.
func (s *Service) PoolsByCreator(ctx context.Context, creator *common.Address) ([]common.Address, error) {
	latest, err := s.querier.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}

	registered := s.factoryABI.Events["BPoolRegistered"]
	topics := [][]common.Hash{{registered.ID}}
	if creator != nil {
		topics = append(topics, []common.Hash{common.BytesToHash(creator.Bytes())})
	}

	logs, err := s.querier.FilterLogs(ctx, s.cfg.StartBlock, latest, []common.Address{s.cfg.Factory}, topics)
	if err != nil {
		return nil, fmt.Errorf("filter registrations: %w", err)
	}

	pools := make([]common.Address, 0, len(logs))
	for _, lg := range logs {
		out, err := s.factoryABI.Unpack("BPoolRegistered", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode registration: %w", err)
		}
		addr, ok := out[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("decode registration: unexpected type %T", out[0])
		}
		pools = append(pools, addr)
	}
	return pools, nil
}

// SearchByDataToken returns the pools whose data token matches dataToken.
// Pool states are fetched in capped parallel batches.
func (s *Service) SearchByDataToken(ctx context.Context, dataToken common.Address) ([]common.Address, error) {
	pools, err := s.AllPools(ctx)
	if err != nil {
		return nil, err
	}

	tokens, err := chain.Gather(ctx, pools, func(ctx context.Context, pool common.Address) (common.Address, error) {
		return s.DataToken(ctx, pool)
	})
	if err != nil {
		return nil, err
	}

	var matches []common.Address
	for i, token := range tokens {
		if token == dataToken {
			matches = append(matches, pools[i])
		}
	}
	return matches, nil
}

// SharesByAccount returns account's nonzero share positions across all pools.
func (s *Service) SharesByAccount(ctx context.Context, account common.Address) ([]model.PoolShare, error) {
	pools, err := s.AllPools(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := chain.Gather(ctx, pools, func(ctx context.Context, pool common.Address) (model.PoolShare, error) {
		shares, err := s.SharesBalance(ctx, pool, account)
		if err != nil {
			return model.PoolShare{}, err
		}
		share := model.PoolShare{PoolAddress: pool.Hex(), Shares: shares}
		if shares.IsZero() {
			return share, nil
		}
		dataToken, err := s.DataToken(ctx, pool)
		if err != nil {
			return model.PoolShare{}, err
		}
		share.DataToken = dataToken.Hex()
		return share, nil
	})
	if err != nil {
		return nil, err
	}

	var held []model.PoolShare
	for _, p := range positions {
		if !p.Shares.IsZero() {
			held = append(held, p)
		}
	}
	return held, nil
}
