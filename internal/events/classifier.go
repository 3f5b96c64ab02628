// Package events turns raw pool logs into typed transaction records.
package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/contracts"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// Classifier maps pool log topics to transaction types and decodes their
// payloads.
type Classifier struct {
	poolABI abi.ABI
	swapID  common.Hash
	joinID  common.Hash
	exitID  common.Hash
}

// NewClassifier parses the pool ABI and caches the event topic IDs.
func NewClassifier() (*Classifier, error) {
	poolABI, err := contracts.PoolABI()
	if err != nil {
		return nil, fmt.Errorf("pool abi: %w", err)
	}
	return &Classifier{
		poolABI: poolABI,
		swapID:  poolABI.Events["LOG_SWAP"].ID,
		joinID:  poolABI.Events["LOG_JOIN"].ID,
		exitID:  poolABI.Events["LOG_EXIT"].ID,
	}, nil
}

// Topics returns the topic IDs of the three pool event kinds, in swap, join,
// exit order.
func (c *Classifier) Topics() []common.Hash {
	return []common.Hash{c.swapID, c.joinID, c.exitID}
}

// Classify decodes one log into a record. Logs with an unrecognized first
// topic report ok=false and are meant to be skipped, not failed on.
func (c *Classifier) Classify(lg types.Log, timestamp uint64) (model.PoolTransactionRecord, bool, error) {
	if len(lg.Topics) == 0 {
		return model.PoolTransactionRecord{}, false, nil
	}

	rec := model.PoolTransactionRecord{
		PoolAddress: lg.Address.Hex(),
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint64(lg.Index),
		Timestamp:   timestamp,
	}

	switch lg.Topics[0] {
	case c.swapID:
		if len(lg.Topics) < 4 {
			return model.PoolTransactionRecord{}, false, fmt.Errorf("swap log %s: %d topics", lg.TxHash.Hex(), len(lg.Topics))
		}
		amounts, err := c.amounts(lg, "LOG_SWAP", 2)
		if err != nil {
			return model.PoolTransactionRecord{}, false, err
		}
		rec.Type = model.TxTypeSwap
		rec.Caller = topicAddress(lg.Topics[1])
		rec.TokenIn = topicAddress(lg.Topics[2])
		rec.TokenOut = topicAddress(lg.Topics[3])
		rec.TokenAmountIn = amounts[0]
		rec.TokenAmountOut = amounts[1]
	case c.joinID:
		if len(lg.Topics) < 3 {
			return model.PoolTransactionRecord{}, false, fmt.Errorf("join log %s: %d topics", lg.TxHash.Hex(), len(lg.Topics))
		}
		amounts, err := c.amounts(lg, "LOG_JOIN", 1)
		if err != nil {
			return model.PoolTransactionRecord{}, false, err
		}
		rec.Type = model.TxTypeJoin
		rec.Caller = topicAddress(lg.Topics[1])
		rec.TokenIn = topicAddress(lg.Topics[2])
		rec.TokenAmountIn = amounts[0]
	case c.exitID:
		if len(lg.Topics) < 3 {
			return model.PoolTransactionRecord{}, false, fmt.Errorf("exit log %s: %d topics", lg.TxHash.Hex(), len(lg.Topics))
		}
		amounts, err := c.amounts(lg, "LOG_EXIT", 1)
		if err != nil {
			return model.PoolTransactionRecord{}, false, err
		}
		rec.Type = model.TxTypeExit
		rec.Caller = topicAddress(lg.Topics[1])
		rec.TokenOut = topicAddress(lg.Topics[2])
		rec.TokenAmountOut = amounts[0]
	default:
		return model.PoolTransactionRecord{}, false, nil
	}

	return rec, true, nil
}

// amounts unpacks the log data and renders the expected number of uint256
// values in human units.
func (c *Classifier) amounts(lg types.Log, event string, want int) ([]string, error) {
	out, err := c.poolABI.Unpack(event, lg.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", event, lg.TxHash.Hex(), err)
	}
	if len(out) != want {
		return nil, fmt.Errorf("decode %s %s: %d values", event, lg.TxHash.Hex(), len(out))
	}
	rendered := make([]string, want)
	for i, v := range out {
		amount, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("decode %s %s: unexpected type %T", event, lg.TxHash.Hex(), v)
		}
		rendered[i] = bmath.ToDecimal(amount).String()
	}
	return rendered, nil
}

func topicAddress(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()).Hex()
}
