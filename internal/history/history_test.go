package history

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

func TestSummarize(t *testing.T) {
	records := []model.PoolTransactionRecord{
		{PoolAddress: "0xb", Type: model.TxTypeSwap, TokenAmountIn: "1.5", BlockNumber: 10},
		{PoolAddress: "0xb", Type: model.TxTypeSwap, TokenAmountIn: "2.5", BlockNumber: 30},
		{PoolAddress: "0xb", Type: model.TxTypeJoin, TokenAmountIn: "100", BlockNumber: 5},
		{PoolAddress: "0xa", Type: model.TxTypeExit, TokenAmountOut: "7", BlockNumber: 20},
	}

	summaries := Summarize(records)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	// Ordered by pool address.
	a, b := summaries[0], summaries[1]
	if a.PoolAddress != "0xa" || b.PoolAddress != "0xb" {
		t.Fatalf("order = %s, %s", a.PoolAddress, b.PoolAddress)
	}

	if a.ExitCount != 1 || !a.ExitVolume.Equal(decimal.RequireFromString("7")) {
		t.Fatalf("exit totals = %d/%s", a.ExitCount, a.ExitVolume)
	}
	if b.SwapCount != 2 || !b.SwapVolume.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("swap totals = %d/%s", b.SwapCount, b.SwapVolume)
	}
	if b.JoinCount != 1 || !b.JoinVolume.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("join totals = %d/%s", b.JoinCount, b.JoinVolume)
	}
	if b.FirstBlock != 5 || b.LastBlock != 30 {
		t.Fatalf("block range = %d..%d, want 5..30", b.FirstBlock, b.LastBlock)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); len(got) != 0 {
		t.Fatalf("expected no summaries, got %d", len(got))
	}
}
