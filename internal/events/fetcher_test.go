package events

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// fakeQuerier returns one join log per queried pool address.
type fakeQuerier struct {
	classifier *Classifier
	latest     uint64
}

func (f *fakeQuerier) FilterLogs(_ context.Context, _, _ uint64, addresses []common.Address, _ [][]common.Hash) ([]types.Log, error) {
	logs := make([]types.Log, 0, len(addresses))
	for _, addr := range addresses {
		logs = append(logs, types.Log{
			Address: addr,
			Topics: []common.Hash{
				f.classifier.joinID,
				common.BytesToHash(testCaller.Bytes()),
				common.BytesToHash(testTokenA.Bytes()),
			},
			Data:        weiDataStatic("1000000000000000000"),
			BlockNumber: 7,
		})
	}
	return logs, nil
}

func (f *fakeQuerier) BlockTimestamp(_ context.Context, _ uint64) (uint64, error) {
	return 1_700_000_000, nil
}

func (f *fakeQuerier) LatestBlockNumber(_ context.Context) (uint64, error) {
	return f.latest, nil
}

func weiDataStatic(amount string) []byte {
	v, _ := new(big.Int).SetString(amount, 10)
	return common.LeftPadBytes(v.Bytes(), 32)
}

func TestPoolsLogsKeepsPoolOrder(t *testing.T) {
	classifier := newClassifier(t)
	querier := &fakeQuerier{classifier: classifier, latest: 100}

	f, err := NewFetcher(querier, zap.NewNop(), Config{StartBlock: 1})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	// 25 pools span three concurrency groups; the concatenated result must
	// still follow the input order.
	pools := make([]common.Address, 25)
	for i := range pools {
		pools[i] = common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
	}

	records, err := f.PoolsLogs(context.Background(), pools, nil)
	if err != nil {
		t.Fatalf("PoolsLogs: %v", err)
	}
	if len(records) != len(pools) {
		t.Fatalf("got %d records, want %d", len(records), len(pools))
	}
	for i, rec := range records {
		if rec.PoolAddress != pools[i].Hex() {
			t.Fatalf("record[%d] from %s, want %s", i, rec.PoolAddress, pools[i].Hex())
		}
	}
}

func TestPoolLogsClassifies(t *testing.T) {
	classifier := newClassifier(t)
	querier := &fakeQuerier{classifier: classifier, latest: 100}

	f, err := NewFetcher(querier, zap.NewNop(), Config{StartBlock: 1})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	records, err := f.PoolLogs(context.Background(), testPool, nil)
	if err != nil {
		t.Fatalf("PoolLogs: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.TokenAmountIn != "1" || rec.Timestamp != 1_700_000_000 {
		t.Fatalf("record = %+v", rec)
	}
}
