// Package chain wraps go-ethereum RPC access behind small interfaces so the
// higher layers can be tested against fakes.
package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultGasLimit is used when gas estimation fails. Estimation failures are
// not fatal for sends.
const DefaultGasLimit = 1_000_000

// ErrTxReverted is returned when a mined transaction has a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// CallSpec identifies one contract method invocation.
type CallSpec struct {
	To     common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// Caller submits contract reads and writes.
type Caller interface {
	// From returns the transacting account.
	From() common.Address
	// Call performs an eth_call and returns the unpacked outputs.
	Call(ctx context.Context, spec CallSpec) ([]interface{}, error)
	// EstimateGas estimates gas for the call as a transaction.
	EstimateGas(ctx context.Context, spec CallSpec) (uint64, error)
	// Send signs and submits the call as a transaction and waits for the
	// receipt.
	Send(ctx context.Context, spec CallSpec, gasLimit uint64) (*types.Receipt, error)
}

// Querier reads historical chain state.
type Querier interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Execute estimates gas for spec and submits it. When estimation fails the
// send still goes out with DefaultGasLimit; otherwise the estimate plus one
// unit is used.
func Execute(ctx context.Context, c Caller, spec CallSpec) (*types.Receipt, error) {
	gasLimit := uint64(DefaultGasLimit)
	if est, err := c.EstimateGas(ctx, spec); err == nil {
		gasLimit = est + 1
	}
	return c.Send(ctx, spec, gasLimit)
}
