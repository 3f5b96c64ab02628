// Package history aggregates decoded pool transactions into per-pool
// summaries.
package history

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// PoolSummary totals one pool's decoded activity.
type PoolSummary struct {
	PoolAddress string          `json:"pool_address"`
	SwapCount   int             `json:"swap_count"`
	JoinCount   int             `json:"join_count"`
	ExitCount   int             `json:"exit_count"`
	SwapVolume  decimal.Decimal `json:"swap_volume"`
	JoinVolume  decimal.Decimal `json:"join_volume"`
	ExitVolume  decimal.Decimal `json:"exit_volume"`
	FirstBlock  uint64          `json:"first_block"`
	LastBlock   uint64          `json:"last_block"`
}

// Summarize folds records into per-pool summaries, ordered by pool address.
// Swap volume counts the inbound side of each swap.
func Summarize(records []model.PoolTransactionRecord) []PoolSummary {
	byPool := make(map[string]*PoolSummary)

	for _, r := range records {
		s, ok := byPool[r.PoolAddress]
		if !ok {
			s = &PoolSummary{PoolAddress: r.PoolAddress, FirstBlock: r.BlockNumber, LastBlock: r.BlockNumber}
			byPool[r.PoolAddress] = s
		}
		if r.BlockNumber < s.FirstBlock {
			s.FirstBlock = r.BlockNumber
		}
		if r.BlockNumber > s.LastBlock {
			s.LastBlock = r.BlockNumber
		}

		switch r.Type {
		case model.TxTypeSwap:
			s.SwapCount++
			s.SwapVolume = s.SwapVolume.Add(parseAmount(r.TokenAmountIn))
		case model.TxTypeJoin:
			s.JoinCount++
			s.JoinVolume = s.JoinVolume.Add(parseAmount(r.TokenAmountIn))
		case model.TxTypeExit:
			s.ExitCount++
			s.ExitVolume = s.ExitVolume.Add(parseAmount(r.TokenAmountOut))
		}
	}

	summaries := make([]PoolSummary, 0, len(byPool))
	for _, s := range byPool {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PoolAddress < summaries[j].PoolAddress
	})
	return summaries
}

// parseAmount tolerates empty and malformed amounts; classification already
// validated the record shape.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
