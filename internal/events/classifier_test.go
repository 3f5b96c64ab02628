package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

var (
	testPool   = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	testCaller = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testTokenA = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testTokenB = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier()
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

// weiData encodes uint256 words for log data. Amounts are in wei strings.
func weiData(t *testing.T, amounts ...string) []byte {
	t.Helper()
	var data []byte
	for _, a := range amounts {
		v, ok := new(big.Int).SetString(a, 10)
		if !ok {
			t.Fatalf("bad wei amount %q", a)
		}
		data = append(data, common.LeftPadBytes(v.Bytes(), 32)...)
	}
	return data
}

func TestClassifySwap(t *testing.T) {
	c := newClassifier(t)

	lg := types.Log{
		Address: testPool,
		Topics: []common.Hash{
			c.swapID,
			common.BytesToHash(testCaller.Bytes()),
			common.BytesToHash(testTokenA.Bytes()),
			common.BytesToHash(testTokenB.Bytes()),
		},
		Data:        weiData(t, "1000000000000000000", "500000000000000000"),
		BlockNumber: 42,
		TxHash:      common.HexToHash("0x0a"),
		Index:       3,
	}

	rec, ok, err := c.Classify(lg, 1_700_000_000)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !ok {
		t.Fatal("swap log was dropped")
	}
	if rec.Type != model.TxTypeSwap {
		t.Fatalf("type = %s, want swap", rec.Type)
	}
	if rec.Caller != testCaller.Hex() {
		t.Fatalf("caller = %s, want %s", rec.Caller, testCaller.Hex())
	}
	if rec.TokenIn != testTokenA.Hex() || rec.TokenOut != testTokenB.Hex() {
		t.Fatalf("tokens = %s/%s, want %s/%s", rec.TokenIn, rec.TokenOut, testTokenA.Hex(), testTokenB.Hex())
	}
	if rec.TokenAmountIn != "1" || rec.TokenAmountOut != "0.5" {
		t.Fatalf("amounts = %s/%s, want 1/0.5", rec.TokenAmountIn, rec.TokenAmountOut)
	}
	if rec.BlockNumber != 42 || rec.LogIndex != 3 || rec.Timestamp != 1_700_000_000 {
		t.Fatalf("position = block %d index %d ts %d", rec.BlockNumber, rec.LogIndex, rec.Timestamp)
	}
}

func TestClassifyJoin(t *testing.T) {
	c := newClassifier(t)

	lg := types.Log{
		Address: testPool,
		Topics: []common.Hash{
			c.joinID,
			common.BytesToHash(testCaller.Bytes()),
			common.BytesToHash(testTokenA.Bytes()),
		},
		Data: weiData(t, "2500000000000000000"),
	}

	rec, ok, err := c.Classify(lg, 0)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !ok {
		t.Fatal("join log was dropped")
	}
	if rec.Type != model.TxTypeJoin {
		t.Fatalf("type = %s, want join", rec.Type)
	}
	if rec.TokenAmountIn != "2.5" {
		t.Fatalf("amount in = %s, want 2.5", rec.TokenAmountIn)
	}
	if rec.TokenOut != "" || rec.TokenAmountOut != "" {
		t.Fatalf("joins must not carry outbound fields: %s/%s", rec.TokenOut, rec.TokenAmountOut)
	}
}

func TestClassifyExit(t *testing.T) {
	c := newClassifier(t)

	lg := types.Log{
		Address: testPool,
		Topics: []common.Hash{
			c.exitID,
			common.BytesToHash(testCaller.Bytes()),
			common.BytesToHash(testTokenB.Bytes()),
		},
		Data: weiData(t, "750000000000000000"),
	}

	rec, ok, err := c.Classify(lg, 0)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !ok {
		t.Fatal("exit log was dropped")
	}
	if rec.Type != model.TxTypeExit {
		t.Fatalf("type = %s, want exit", rec.Type)
	}
	if rec.TokenOut != testTokenB.Hex() || rec.TokenAmountOut != "0.75" {
		t.Fatalf("outbound = %s/%s, want %s/0.75", rec.TokenOut, rec.TokenAmountOut, testTokenB.Hex())
	}
	if rec.TokenIn != "" || rec.TokenAmountIn != "" {
		t.Fatalf("exits must not carry inbound fields: %s/%s", rec.TokenIn, rec.TokenAmountIn)
	}
}

func TestClassifyDropsUnknownTopic(t *testing.T) {
	c := newClassifier(t)

	lg := types.Log{
		Address: testPool,
		Topics:  []common.Hash{common.HexToHash("0xdeadbeef")},
		Data:    weiData(t, "1000000000000000000"),
	}

	_, ok, err := c.Classify(lg, 0)
	if err != nil {
		t.Fatalf("unknown topics must not error: %v", err)
	}
	if ok {
		t.Fatal("unknown topic was not dropped")
	}
}
