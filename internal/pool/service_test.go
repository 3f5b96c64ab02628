package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/pricing"
)

var (
	testFrom      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testBaseToken = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testDataToken = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	testPool      = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	testFactory   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func wei(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := bmath.FromDecimal(d(s))
	if err != nil {
		t.Fatalf("wei(%s): %v", s, err)
	}
	return v
}

// fakeCaller serves canned reads and records every send.
type fakeCaller struct {
	onCall  func(chain.CallSpec) ([]interface{}, error)
	sendErr func(chain.CallSpec) error
	receipt func(chain.CallSpec) *types.Receipt

	mu        sync.Mutex
	sends     []chain.CallSpec
	gasLimits []uint64
}

func (f *fakeCaller) From() common.Address { return testFrom }

func (f *fakeCaller) Call(_ context.Context, spec chain.CallSpec) ([]interface{}, error) {
	return f.onCall(spec)
}

func (f *fakeCaller) EstimateGas(_ context.Context, _ chain.CallSpec) (uint64, error) {
	return 50_000, nil
}

func (f *fakeCaller) Send(_ context.Context, spec chain.CallSpec, gasLimit uint64) (*types.Receipt, error) {
	f.mu.Lock()
	f.sends = append(f.sends, spec)
	f.gasLimits = append(f.gasLimits, gasLimit)
	f.mu.Unlock()

	if f.sendErr != nil {
		if err := f.sendErr(spec); err != nil {
			return nil, err
		}
	}
	if f.receipt != nil {
		if r := f.receipt(spec); r != nil {
			return r, nil
		}
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type fakeQuerier struct {
	logs   []types.Log
	latest uint64
}

func (f *fakeQuerier) FilterLogs(_ context.Context, _, _ uint64, _ []common.Address, _ [][]common.Hash) ([]types.Log, error) {
	return f.logs, nil
}

func (f *fakeQuerier) BlockTimestamp(_ context.Context, _ uint64) (uint64, error) {
	return 1_700_000_000, nil
}

func (f *fakeQuerier) LatestBlockNumber(_ context.Context) (uint64, error) {
	return f.latest, nil
}

// poolReads answers the snapshot and balance reads for a healthy test pool:
// data reserve 1000, base reserve 2000, equal weights, fee 0.001, generous
// user balances.
func poolReads(t *testing.T) func(chain.CallSpec) ([]interface{}, error) {
	t.Helper()
	return func(spec chain.CallSpec) ([]interface{}, error) {
		switch {
		case spec.To == testPool && spec.Method == "getCurrentTokens":
			return []interface{}{[]common.Address{testDataToken, testBaseToken}}, nil
		case spec.To == testPool && spec.Method == "getBalance":
			if spec.Args[0].(common.Address) == testDataToken {
				return []interface{}{wei(t, "1000")}, nil
			}
			return []interface{}{wei(t, "2000")}, nil
		case spec.To == testPool && spec.Method == "getDenormalizedWeight":
			return []interface{}{wei(t, "5")}, nil
		case spec.To == testPool && spec.Method == "getTotalDenormalizedWeight":
			return []interface{}{wei(t, "10")}, nil
		case spec.To == testPool && spec.Method == "getSwapFee":
			return []interface{}{wei(t, "0.001")}, nil
		case spec.To == testPool && spec.Method == "totalSupply":
			return []interface{}{wei(t, "100")}, nil
		case spec.To == testPool && spec.Method == "balanceOf":
			return []interface{}{wei(t, "100")}, nil
		case spec.Method == "balanceOf":
			// ERC20 balances for the transacting account.
			return []interface{}{wei(t, "1000000")}, nil
		case spec.Method == "allowance":
			return []interface{}{wei(t, "0")}, nil
		}
		return nil, fmt.Errorf("unexpected call %s on %s", spec.Method, spec.To.Hex())
	}
}

func newTestService(t *testing.T, caller *fakeCaller, querier *fakeQuerier) *Service {
	t.Helper()
	if querier == nil {
		querier = &fakeQuerier{latest: 100}
	}
	s, err := New(caller, querier, zap.NewNop(), Config{
		BaseToken:  testBaseToken,
		Factory:    testFactory,
		StartBlock: 1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func collectSteps[R any](t *testing.T, task interface {
	Steps() <-chan Step
	Wait(context.Context) (R, error)
}) ([]Step, R, error) {
	t.Helper()
	var steps []Step
	for s := range task.Steps() {
		steps = append(steps, s)
	}
	r, err := task.Wait(context.Background())
	return steps, r, err
}

func TestBuyEmitsStepsInOrder(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	task := s.Buy(context.Background(), BuyParams{
		Pool:          testPool,
		DataAmountOut: d("10"),
		MaxBaseAmount: d("100"),
	})
	steps, _, err := collectSteps[*types.Receipt](t, task)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	want := []Step{StepApprovingBaseToken, StepSwapping}
	if len(steps) != len(want) {
		t.Fatalf("got steps %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step[%d] = %q, want %q", i, steps[i], want[i])
		}
	}

	if len(caller.sends) != 2 {
		t.Fatalf("got %d sends, want 2", len(caller.sends))
	}
	if caller.sends[0].Method != "approve" || caller.sends[0].To != testBaseToken {
		t.Fatalf("first send = %s on %s, want approve on base token", caller.sends[0].Method, caller.sends[0].To.Hex())
	}
	if caller.sends[1].Method != "swapExactAmountOut" || caller.sends[1].To != testPool {
		t.Fatalf("second send = %s on %s, want swapExactAmountOut on pool", caller.sends[1].Method, caller.sends[1].To.Hex())
	}
	// Estimation succeeded, so gas is the estimate plus one.
	if caller.gasLimits[1] != 50_001 {
		t.Fatalf("gas limit = %d, want 50001", caller.gasLimits[1])
	}
}

func TestBuyRejectsOverMaxBuy(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	// Data reserve is 1000, so anything over a third is rejected up front.
	task := s.Buy(context.Background(), BuyParams{
		Pool:          testPool,
		DataAmountOut: d("400"),
		MaxBaseAmount: d("10000"),
	})
	steps, _, err := collectSteps[*types.Receipt](t, task)
	if !errors.Is(err, pricing.ErrExceedsReserveLimit) {
		t.Fatalf("expected ErrExceedsReserveLimit, got %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("no steps should be announced before rejection, got %v", steps)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("no transactions should be sent, got %d", len(caller.sends))
	}
}

func TestBuyAbortsAfterFailedApproval(t *testing.T) {
	boom := errors.New("approval reverted")
	caller := &fakeCaller{
		onCall: poolReads(t),
		sendErr: func(spec chain.CallSpec) error {
			if spec.Method == "approve" {
				return boom
			}
			return nil
		},
	}
	s := newTestService(t, caller, nil)

	task := s.Buy(context.Background(), BuyParams{
		Pool:          testPool,
		DataAmountOut: d("10"),
		MaxBaseAmount: d("100"),
	})
	steps, _, err := collectSteps[*types.Receipt](t, task)
	if !errors.Is(err, boom) {
		t.Fatalf("expected approval error, got %v", err)
	}
	// The failed stage was announced; the swap stage never ran.
	if len(steps) != 1 || steps[0] != StepApprovingBaseToken {
		t.Fatalf("got steps %v, want only the approval step", steps)
	}
	if len(caller.sends) != 1 {
		t.Fatalf("later stages must not execute after a failure, got %d sends", len(caller.sends))
	}
}

func TestBuySkipsRedundantApproval(t *testing.T) {
	caller := &fakeCaller{onCall: func(spec chain.CallSpec) ([]interface{}, error) {
		if spec.Method == "allowance" {
			return []interface{}{wei(t, "1000000")}, nil
		}
		return poolReads(t)(spec)
	}}
	s := newTestService(t, caller, nil)

	task := s.Buy(context.Background(), BuyParams{
		Pool:          testPool,
		DataAmountOut: d("10"),
		MaxBaseAmount: d("100"),
	})
	_, _, err := collectSteps[*types.Receipt](t, task)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if len(caller.sends) != 1 || caller.sends[0].Method != "swapExactAmountOut" {
		t.Fatalf("expected only the swap send, got %v", caller.sends)
	}
}

func TestSellChecksDataBalance(t *testing.T) {
	caller := &fakeCaller{onCall: func(spec chain.CallSpec) ([]interface{}, error) {
		if spec.To == testDataToken && spec.Method == "balanceOf" {
			return []interface{}{wei(t, "5")}, nil
		}
		return poolReads(t)(spec)
	}}
	s := newTestService(t, caller, nil)

	task := s.Sell(context.Background(), SellParams{
		Pool:             testPool,
		DataAmountIn:     d("10"),
		MinBaseAmountOut: d("1"),
	})
	_, _, err := collectSteps[*types.Receipt](t, task)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("no transactions should be sent, got %d", len(caller.sends))
	}
}

func TestRemoveAllLiquidityTightensShares(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	task := s.RemoveAllLiquidity(context.Background(), testPool)
	_, _, err := collectSteps[*types.Receipt](t, task)
	if err != nil {
		t.Fatalf("remove all failed: %v", err)
	}

	if len(caller.sends) != 1 || caller.sends[0].Method != "exitPool" {
		t.Fatalf("expected a single exitPool send, got %v", caller.sends)
	}
	// Share balance is 100; the full-balance exit burns 99.99.
	got := caller.sends[0].Args[0].(*big.Int)
	if got.Cmp(wei(t, "99.99")) != 0 {
		t.Fatalf("shares burned = %s, want %s", got, wei(t, "99.99"))
	}
}

func TestRemoveLiquidityWithMinimumKeepsPartialShares(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	task := s.RemoveLiquidityWithMinimum(context.Background(), testPool, d("40"), d("0"), d("0"))
	_, _, err := collectSteps[*types.Receipt](t, task)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	got := caller.sends[0].Args[0].(*big.Int)
	if got.Cmp(wei(t, "40")) != 0 {
		t.Fatalf("partial exits must not be tightened: burned %s, want %s", got, wei(t, "40"))
	}
}

func TestRemoveLiquidityTightensFullBalanceCap(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	// Share balance is 100; capping at the whole balance tightens to 99.99.
	task := s.RemoveLiquidity(context.Background(), testPool, testDataToken, d("10"), d("100"))
	_, _, err := collectSteps[*types.Receipt](t, task)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := caller.sends[0].Args[2].(*big.Int); got.Cmp(wei(t, "99.99")) != 0 {
		t.Fatalf("share cap = %s, want %s", got, wei(t, "99.99"))
	}
}

func TestRemoveLiquidityRejectsLowShareCap(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	// Withdrawing 10 of the 1000 reserve burns roughly 0.5 shares; a cap
	// below that fails before anything is signed.
	task := s.RemoveLiquidity(context.Background(), testPool, testDataToken, d("10"), d("0.0502"))
	steps, _, err := collectSteps[*types.Receipt](t, task)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("no steps should be announced, got %v", steps)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("no transactions should be sent, got %d", len(caller.sends))
	}
}

func TestRemoveLiquidityInsufficientShares(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	task := s.RemoveLiquidity(context.Background(), testPool, testDataToken, d("10"), d("500"))
	_, _, err := collectSteps[*types.Receipt](t, task)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
}

func TestCreateRunsAllStages(t *testing.T) {
	newPool := common.HexToAddress("0x0000000000000000000000000000000000001234")
	caller := &fakeCaller{onCall: poolReads(t)}
	caller.receipt = func(spec chain.CallSpec) *types.Receipt {
		if spec.Method != "newBPool" {
			return nil
		}
		registered := mustFactoryEvent(t)
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			TxHash: common.HexToHash("0x01"),
			Logs: []*types.Log{{
				Address: testFactory,
				Topics:  []common.Hash{registered, common.BytesToHash(testFrom.Bytes())},
				Data:    common.LeftPadBytes(newPool.Bytes(), 32),
			}},
		}
	}
	s := newTestService(t, caller, nil)

	task := s.Create(context.Background(), CreateParams{
		DataToken:  testDataToken,
		DataAmount: d("100"),
		DataWeight: d("9"),
		BaseAmount: d("50"),
		SwapFee:    d("0.01"),
	})
	steps, addr, err := collectSteps[common.Address](t, task)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if addr != newPool {
		t.Fatalf("pool address = %s, want %s", addr.Hex(), newPool.Hex())
	}

	want := []Step{StepCreatingPool, StepApprovingDataToken, StepApprovingBaseToken, StepSettingUpPool}
	if len(steps) != len(want) {
		t.Fatalf("got steps %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step[%d] = %q, want %q", i, steps[i], want[i])
		}
	}

	// setup carries the complementary base weight: 10 - 9 = 1.
	setup := caller.sends[len(caller.sends)-1]
	if setup.Method != "setup" {
		t.Fatalf("last send = %s, want setup", setup.Method)
	}
	if got := setup.Args[5].(*big.Int); got.Cmp(wei(t, "1")) != 0 {
		t.Fatalf("base weight = %s, want 1", got)
	}
}

func TestCreateRejectsBadParameters(t *testing.T) {
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, nil)

	task := s.Create(context.Background(), CreateParams{
		DataToken:  testDataToken,
		DataAmount: d("100"),
		DataWeight: d("5"),
		BaseAmount: d("50"),
		SwapFee:    d("0.5"),
	})
	_, _, err := collectSteps[common.Address](t, task)
	if !errors.Is(err, pricing.ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("nothing should be deployed, got %d sends", len(caller.sends))
	}
}

func TestPoolsByCreatorDecodesRegistrations(t *testing.T) {
	poolA := common.HexToAddress("0x0000000000000000000000000000000000000a01")
	poolB := common.HexToAddress("0x0000000000000000000000000000000000000a02")
	registered := mustFactoryEvent(t)

	querier := &fakeQuerier{
		latest: 500,
		logs: []types.Log{
			{
				Address: testFactory,
				Topics:  []common.Hash{registered, common.BytesToHash(testFrom.Bytes())},
				Data:    common.LeftPadBytes(poolA.Bytes(), 32),
			},
			{
				Address: testFactory,
				Topics:  []common.Hash{registered, common.BytesToHash(testFrom.Bytes())},
				Data:    common.LeftPadBytes(poolB.Bytes(), 32),
			},
		},
	}
	caller := &fakeCaller{onCall: poolReads(t)}
	s := newTestService(t, caller, querier)

	pools, err := s.PoolsByCreator(context.Background(), &testFrom)
	if err != nil {
		t.Fatalf("PoolsByCreator: %v", err)
	}
	if len(pools) != 2 || pools[0] != poolA || pools[1] != poolB {
		t.Fatalf("pools = %v, want [%s %s]", pools, poolA.Hex(), poolB.Hex())
	}
}

func mustFactoryEvent(t *testing.T) common.Hash {
	t.Helper()
	s := newTestService(t, &fakeCaller{onCall: poolReads(t)}, nil)
	return s.factoryABI.Events["BPoolRegistered"].ID
}
