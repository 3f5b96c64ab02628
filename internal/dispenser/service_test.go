package dispenser

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/bmath"
	"github.com/solbody-protocol/solbody-protocol/internal/chain"
)

var (
	testFrom      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testDataToken = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	testDispenser = common.HexToAddress("0x0000000000000000000000000000000000000099")
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

type statusFields struct {
	active         bool
	minterApproved bool
	isTrueMinter   bool
	maxTokens      string
	maxBalance     string
	balance        string
}

type fakeCaller struct {
	status          statusFields
	minter          bool
	malformedStatus bool

	mu    sync.Mutex
	sends []chain.CallSpec
}

func (f *fakeCaller) From() common.Address { return testFrom }

func (f *fakeCaller) Call(_ context.Context, spec chain.CallSpec) ([]interface{}, error) {
	toWei := func(s string) *big.Int {
		v, _ := bmath.FromDecimal(d(s))
		return v
	}
	switch spec.Method {
	case "isMinter":
		return []interface{}{f.minter}, nil
	case "status":
		if f.malformedStatus {
			return []interface{}{"yes", testFrom, true, true, toWei("100"), toWei("50"), toWei("0")}, nil
		}
		return []interface{}{
			f.status.active,
			testFrom,
			f.status.minterApproved,
			f.status.isTrueMinter,
			toWei(f.status.maxTokens),
			toWei(f.status.maxBalance),
			toWei(f.status.balance),
		}, nil
	}
	return nil, errors.New("unexpected call " + spec.Method)
}

func (f *fakeCaller) EstimateGas(_ context.Context, _ chain.CallSpec) (uint64, error) {
	return 30_000, nil
}

func (f *fakeCaller) Send(_ context.Context, spec chain.CallSpec, _ uint64) (*types.Receipt, error) {
	f.mu.Lock()
	f.sends = append(f.sends, spec)
	f.mu.Unlock()
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func newTestService(t *testing.T, caller *fakeCaller) *Service {
	t.Helper()
	s, err := New(caller, zap.NewNop(), Config{Dispenser: testDispenser})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestIsDispensable(t *testing.T) {
	cases := []struct {
		name   string
		status statusFields
		amount string
		want   bool
	}{
		{
			"minting dispenser serves within cap",
			statusFields{active: true, minterApproved: true, isTrueMinter: true, maxTokens: "100", maxBalance: "50", balance: "0"},
			"10", true,
		},
		{
			"inactive dispenser serves nothing",
			statusFields{active: false, minterApproved: true, isTrueMinter: true, maxTokens: "100", maxBalance: "50", balance: "100"},
			"10", false,
		},
		{
			"over per-request cap",
			statusFields{active: true, minterApproved: true, isTrueMinter: true, maxTokens: "100", maxBalance: "50", balance: "100"},
			"150", false,
		},
		{
			"non-minter with enough balance",
			statusFields{active: true, minterApproved: false, isTrueMinter: false, maxTokens: "100", maxBalance: "50", balance: "20"},
			"10", true,
		},
		{
			"non-minter with thin balance",
			statusFields{active: true, minterApproved: false, isTrueMinter: false, maxTokens: "100", maxBalance: "50", balance: "5"},
			"10", false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService(t, &fakeCaller{status: tc.status})
			got, err := s.IsDispensable(context.Background(), testDataToken, d(tc.amount))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsDispensable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDispenseRejectsWhenNotServable(t *testing.T) {
	caller := &fakeCaller{status: statusFields{
		active: false, maxTokens: "100", maxBalance: "50", balance: "100",
	}}
	s := newTestService(t, caller)

	if _, err := s.Dispense(context.Background(), testDataToken, d("10")); !errors.Is(err, ErrNotDispensing) {
		t.Fatalf("expected ErrNotDispensing, got %v", err)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("no transactions should be sent, got %d", len(caller.sends))
	}
}

func TestDispenseSendsWeiAmount(t *testing.T) {
	caller := &fakeCaller{status: statusFields{
		active: true, minterApproved: true, isTrueMinter: true,
		maxTokens: "100", maxBalance: "50", balance: "0",
	}}
	s := newTestService(t, caller)

	if _, err := s.Dispense(context.Background(), testDataToken, d("2.5")); err != nil {
		t.Fatalf("dispense failed: %v", err)
	}
	if len(caller.sends) != 1 || caller.sends[0].Method != "dispense" {
		t.Fatalf("expected a single dispense send, got %v", caller.sends)
	}
	if got := caller.sends[0].Args[1].(*big.Int); got.Cmp(wei(t, "2.5")) != 0 {
		t.Fatalf("amount = %s, want %s", got, wei(t, "2.5"))
	}
}

func TestMakeMinterStages(t *testing.T) {
	caller := &fakeCaller{}
	s := newTestService(t, caller)

	task := s.MakeMinter(context.Background(), testDataToken)
	var steps []Step
	for st := range task.Steps() {
		steps = append(steps, st)
	}
	if _, err := task.Wait(context.Background()); err != nil {
		t.Fatalf("make minter failed: %v", err)
	}

	want := []Step{StepProposingMinter, StepAcceptingMinter}
	if len(steps) != len(want) || steps[0] != want[0] || steps[1] != want[1] {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	if caller.sends[0].Method != "proposeMinter" || caller.sends[0].To != testDataToken {
		t.Fatalf("first send = %s on %s, want proposeMinter on data token", caller.sends[0].Method, caller.sends[0].To.Hex())
	}
	if caller.sends[1].Method != "acceptMinter" || caller.sends[1].To != testDispenser {
		t.Fatalf("second send = %s on %s, want acceptMinter on dispenser", caller.sends[1].Method, caller.sends[1].To.Hex())
	}
}

func TestMakeMinterRejectsExistingMinter(t *testing.T) {
	caller := &fakeCaller{minter: true}
	s := newTestService(t, caller)

	task := s.MakeMinter(context.Background(), testDataToken)
	for range task.Steps() {
	}
	if _, err := task.Wait(context.Background()); !errors.Is(err, ErrAlreadyMinter) {
		t.Fatalf("expected ErrAlreadyMinter, got %v", err)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("no transactions should be sent, got %d", len(caller.sends))
	}
}

func TestCancelMinterRequiresRole(t *testing.T) {
	caller := &fakeCaller{}
	s := newTestService(t, caller)

	task := s.CancelMinter(context.Background(), testDataToken)
	for range task.Steps() {
	}
	if _, err := task.Wait(context.Background()); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
	if len(caller.sends) != 0 {
		t.Fatalf("no transactions should be sent, got %d", len(caller.sends))
	}
}

func TestStatusRejectsMalformedOutput(t *testing.T) {
	caller := &fakeCaller{malformedStatus: true}
	s := newTestService(t, caller)

	if _, err := s.Status(context.Background(), testDataToken); err == nil {
		t.Fatal("expected an error for a malformed status output")
	}
}

func TestCancelMinterStages(t *testing.T) {
	caller := &fakeCaller{minter: true}
	s := newTestService(t, caller)

	task := s.CancelMinter(context.Background(), testDataToken)
	var steps []Step
	for st := range task.Steps() {
		steps = append(steps, st)
	}
	if _, err := task.Wait(context.Background()); err != nil {
		t.Fatalf("cancel minter failed: %v", err)
	}

	want := []Step{StepRemovingMinter, StepApprovingMinter}
	if len(steps) != len(want) || steps[0] != want[0] || steps[1] != want[1] {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	if caller.sends[0].Method != "removeMinter" || caller.sends[0].To != testDispenser {
		t.Fatalf("first send = %s on %s, want removeMinter on dispenser", caller.sends[0].Method, caller.sends[0].To.Hex())
	}
	if caller.sends[1].Method != "approveMinter" || caller.sends[1].To != testDataToken {
		t.Fatalf("second send = %s on %s, want approveMinter on data token", caller.sends[1].Method, caller.sends[1].To.Hex())
	}
}
