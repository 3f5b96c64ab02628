package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// SwapsByExchange decodes every Swapped event for one exchange.
func (s *Service) SwapsByExchange(ctx context.Context, exchangeID common.Hash) ([]model.ExchangeSwap, error) {
	return s.swaps(ctx, [][]common.Hash{
		{s.exchangeABI.Events["Swapped"].ID},
		{exchangeID},
	})
}

// AllSwaps decodes every Swapped event the exchange contract ever emitted.
func (s *Service) AllSwaps(ctx context.Context) ([]model.ExchangeSwap, error) {
	return s.swaps(ctx, [][]common.Hash{
		{s.exchangeABI.Events["Swapped"].ID},
	})
}

func (s *Service) swaps(ctx context.Context, topics [][]common.Hash) ([]model.ExchangeSwap, error) {
	latest, err := s.querier.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	logs, err := s.querier.FilterLogs(ctx, s.cfg.StartBlock, latest, []common.Address{s.cfg.Exchange}, topics)
	if err != nil {
		return nil, fmt.Errorf("filter swaps: %w", err)
	}

	swaps := make([]model.ExchangeSwap, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		out, err := s.exchangeABI.Unpack("Swapped", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode swap: %w", err)
		}
		baseAmount, ok := out[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("decode swap: unexpected type %T", out[0])
		}
		dataAmount, ok := out[1].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("decode swap: unexpected type %T", out[1])
		}
		swaps = append(swaps, model.ExchangeSwap{
			ExchangeID: lg.Topics[1].Hex(),
			Caller:     common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			BaseAmount: bmath.ToDecimal(baseAmount).String(),
			DataAmount: bmath.ToDecimal(dataAmount).String(),
		})
	}
	return swaps, nil
}
