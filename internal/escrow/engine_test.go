package escrow

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
)

func testAddr(n uint64) chain.Address {
	return chain.Address(fmt.Sprintf("0x%040x", n))
}

type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

type engineFixture struct {
	engine   *Engine
	token    *Token
	clock    *testClock
	owner    chain.Address
	operator chain.Address
	buyer    chain.Address
	seller   chain.Address
}

func newEngineFixture(t *testing.T, feeBps uint64) *engineFixture {
	t.Helper()

	clock := &testClock{current: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)}
	token := NewToken(testAddr(0xf0))
	f := &engineFixture{
		token:    token,
		clock:    clock,
		owner:    testAddr(1),
		operator: testAddr(2),
		buyer:    testAddr(3),
		seller:   testAddr(4),
	}
	engine, err := NewEngine(EngineConfig{
		Token:    token,
		Owner:    f.owner,
		Operator: f.operator,
		FeeBps:   feeBps,
		Now:      clock.now,
	})
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	f.engine = engine
	token.Mint(f.buyer, 10_000_000)
	return f
}

func (f *engineFixture) deposit(t *testing.T, orderID chain.Hash, amount uint64) {
	t.Helper()
	if _, err := f.engine.Deposit(f.buyer, orderID, f.seller, amount); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
}

// custodyHeld returns the engine balance excluding the undrawn fee pool,
// which must always equal the sum of pending and disputed amounts.
func (f *engineFixture) custodyHeld() uint64 {
	return f.token.BalanceOf(f.engine.Address()) - f.engine.AccumulatedFees()
}

func TestDepositCreatesPendingRecord(t *testing.T) {
	f := newEngineFixture(t, 250)
	orderID := chain.OrderKey("order-1")

	txHash, err := f.engine.Deposit(f.buyer, orderID, f.seller, 10_000)
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}

	rec, err := f.engine.GetOrder(orderID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if rec.Status != enums.EscrowStatusPending {
		t.Fatalf("status = %s, want pending", rec.Status)
	}
	if rec.Buyer != f.buyer || rec.Seller != f.seller || rec.Amount != 10_000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if got := f.custodyHeld(); got != 10_000 {
		t.Fatalf("custody = %d, want 10000", got)
	}

	receipt, err := mustBackend(t, f.engine).TransactionReceipt(t.Context(), txHash)
	if err != nil {
		t.Fatalf("TransactionReceipt error: %v", err)
	}
	if !receipt.Succeeded() {
		t.Fatal("deposit receipt should be successful")
	}
	if len(receipt.Logs) != 1 {
		t.Fatalf("log count = %d, want 1", len(receipt.Logs))
	}
	log := receipt.Logs[0]
	if log.Topic0() != TopicDeposited {
		t.Fatalf("topic0 = %s, want Deposited", log.Topic0())
	}
	if log.Topics[1] != orderID || log.Topics[2] != f.buyer.Topic() || log.Topics[3] != f.seller.Topic() {
		t.Fatalf("unexpected topics: %v", log.Topics)
	}
	amount, err := chain.DecodeUint64Word(log.Data)
	if err != nil {
		t.Fatalf("DecodeUint64Word error: %v", err)
	}
	if amount != 10_000 {
		t.Fatalf("amount = %d, want 10000", amount)
	}
}

func TestDepositRejections(t *testing.T) {
	f := newEngineFixture(t, 0)
	orderID := chain.OrderKey("order-dup")
	f.deposit(t, orderID, 5_000)

	cases := []struct {
		name    string
		caller  chain.Address
		orderID chain.Hash
		seller  chain.Address
		amount  uint64
		want    error
	}{
		{"zero amount", f.buyer, chain.OrderKey("a"), f.seller, 0, ErrZeroAmount},
		{"self deal", f.buyer, chain.OrderKey("b"), f.buyer, 100, ErrSelfDeal},
		{"duplicate order", f.buyer, orderID, f.seller, 100, ErrDuplicateOrder},
		{"insufficient balance", testAddr(99), chain.OrderKey("c"), f.seller, 100, ErrInsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.Deposit(tc.caller, tc.orderID, tc.seller, tc.amount); !errors.Is(err, tc.want) {
				t.Fatalf("Deposit error = %v, want %v", err, tc.want)
			}
		})
	}

	// First record stays untouched after the duplicate attempt.
	rec, err := f.engine.GetOrder(orderID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if rec.Amount != 5_000 || rec.Status != enums.EscrowStatusPending {
		t.Fatalf("original record mutated: %+v", rec)
	}
	if got := f.custodyHeld(); got != 5_000 {
		t.Fatalf("custody = %d, want 5000", got)
	}
}

func TestConfirmPaysSellerMinusFee(t *testing.T) {
	f := newEngineFixture(t, 250)
	orderID := chain.OrderKey("order-confirm")
	f.deposit(t, orderID, 10_001)

	if _, err := f.engine.Confirm(f.seller, orderID); !errors.Is(err, ErrNotBuyer) {
		t.Fatalf("Confirm by seller error = %v, want ErrNotBuyer", err)
	}

	if _, err := f.engine.Confirm(f.buyer, orderID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	// Fee floors: 10001 * 250 / 10000 = 250.025 -> 250.
	if got := f.token.BalanceOf(f.seller); got != 9_751 {
		t.Fatalf("seller balance = %d, want 9751", got)
	}
	if got := f.engine.AccumulatedFees(); got != 250 {
		t.Fatalf("fees = %d, want 250", got)
	}
	if got := f.custodyHeld(); got != 0 {
		t.Fatalf("custody = %d, want 0", got)
	}

	rec, _ := f.engine.GetOrder(orderID)
	if rec.Status != enums.EscrowStatusReleased {
		t.Fatalf("status = %s, want released", rec.Status)
	}
}

func TestConfirmFeeOnHugeDeposit(t *testing.T) {
	f := newEngineFixture(t, 250)
	orderID := chain.OrderKey("order-huge")

	// amount*feeBps would wrap a naive uint64 product.
	amount := uint64(1) << 60
	f.token.Mint(f.buyer, amount)
	f.deposit(t, orderID, amount)

	if _, err := f.engine.Confirm(f.buyer, orderID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	// floor(2^60 * 250 / 10000), computed without wrapping.
	wantFee := uint64(28_823_037_615_171_174)
	if got := f.engine.AccumulatedFees(); got != wantFee {
		t.Fatalf("fees = %d, want %d", got, wantFee)
	}
	if got := f.token.BalanceOf(f.seller); got != amount-wantFee {
		t.Fatalf("seller balance = %d, want %d", got, amount-wantFee)
	}
	if got := f.custodyHeld(); got != 0 {
		t.Fatalf("custody = %d, want 0", got)
	}
}

func TestNoDoublePayout(t *testing.T) {
	f := newEngineFixture(t, 100)
	orderID := chain.OrderKey("order-terminal")
	f.deposit(t, orderID, 1_000)
	if _, err := f.engine.Confirm(f.buyer, orderID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	settles := []struct {
		name string
		call func() (chain.Hash, error)
	}{
		{"confirm", func() (chain.Hash, error) { return f.engine.Confirm(f.buyer, orderID) }},
		{"autoConfirm", func() (chain.Hash, error) { return f.engine.AutoConfirm(f.operator, orderID) }},
		{"dispute", func() (chain.Hash, error) { return f.engine.Dispute(f.buyer, orderID) }},
		{"resolveRelease", func() (chain.Hash, error) { return f.engine.ResolveRelease(f.operator, orderID) }},
		{"resolveRefund", func() (chain.Hash, error) { return f.engine.ResolveRefund(f.operator, orderID) }},
		{"emergencyRefund", func() (chain.Hash, error) { return f.engine.EmergencyRefund(f.operator, orderID) }},
	}
	for _, tc := range settles {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.call(); !errors.Is(err, ErrAlreadySettled) {
				t.Fatalf("%s after release error = %v, want ErrAlreadySettled", tc.name, err)
			}
		})
	}

	if got := f.token.BalanceOf(f.seller); got != 990 {
		t.Fatalf("seller balance = %d, want 990 after single payout", got)
	}
}

func TestWindowExclusivity(t *testing.T) {
	f := newEngineFixture(t, 0)
	early := chain.OrderKey("order-early")
	late := chain.OrderKey("order-late")
	f.deposit(t, early, 1_000)
	f.deposit(t, late, 1_000)

	// Inside the window: autoConfirm refused, dispute allowed.
	if _, err := f.engine.AutoConfirm(f.seller, early); !errors.Is(err, ErrWindowActive) {
		t.Fatalf("AutoConfirm inside window error = %v, want ErrWindowActive", err)
	}
	if _, err := f.engine.Dispute(f.buyer, early); err != nil {
		t.Fatalf("Dispute inside window error: %v", err)
	}

	f.clock.advance(DefaultWindow)

	// Window elapsed: dispute refused, autoConfirm open to anyone.
	if _, err := f.engine.Dispute(f.buyer, late); !errors.Is(err, ErrWindowElapsed) {
		t.Fatalf("Dispute after window error = %v, want ErrWindowElapsed", err)
	}
	if !f.engine.IsConfirmable(late) {
		t.Fatal("IsConfirmable should be true after window")
	}
	if _, err := f.engine.AutoConfirm(testAddr(77), late); err != nil {
		t.Fatalf("AutoConfirm after window error: %v", err)
	}

	// The disputed order stays frozen even after the window elapses.
	if _, err := f.engine.AutoConfirm(f.seller, early); !errors.Is(err, ErrNotPending) {
		t.Fatalf("AutoConfirm on disputed order error = %v, want ErrNotPending", err)
	}
	if f.engine.IsConfirmable(early) {
		t.Fatal("disputed order must not be confirmable")
	}
}

func TestDisputeResolution(t *testing.T) {
	f := newEngineFixture(t, 500)
	orderID := chain.OrderKey("order-dispute")
	f.deposit(t, orderID, 2_000)

	if _, err := f.engine.Dispute(f.seller, orderID); !errors.Is(err, ErrNotBuyer) {
		t.Fatalf("Dispute by seller error = %v, want ErrNotBuyer", err)
	}
	if _, err := f.engine.Dispute(f.buyer, orderID); err != nil {
		t.Fatalf("Dispute error: %v", err)
	}

	if _, err := f.engine.ResolveRefund(f.buyer, orderID); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("ResolveRefund by buyer error = %v, want ErrNotOperator", err)
	}

	before := f.token.BalanceOf(f.buyer)
	if _, err := f.engine.ResolveRefund(f.operator, orderID); err != nil {
		t.Fatalf("ResolveRefund error: %v", err)
	}

	// Refunds carry no fee.
	if got := f.token.BalanceOf(f.buyer); got != before+2_000 {
		t.Fatalf("buyer balance = %d, want %d", got, before+2_000)
	}
	if got := f.engine.AccumulatedFees(); got != 0 {
		t.Fatalf("fees = %d, want 0", got)
	}
	rec, _ := f.engine.GetOrder(orderID)
	if rec.Status != enums.EscrowStatusRefunded {
		t.Fatalf("status = %s, want refunded", rec.Status)
	}
}

func TestResolveReleaseRequiresDisputed(t *testing.T) {
	f := newEngineFixture(t, 0)
	orderID := chain.OrderKey("order-resolve")
	f.deposit(t, orderID, 1_000)

	if _, err := f.engine.ResolveRelease(f.operator, orderID); !errors.Is(err, ErrNotDisputed) {
		t.Fatalf("ResolveRelease on pending error = %v, want ErrNotDisputed", err)
	}
	if _, err := f.engine.Dispute(f.buyer, orderID); err != nil {
		t.Fatalf("Dispute error: %v", err)
	}
	if _, err := f.engine.ResolveRelease(f.operator, orderID); err != nil {
		t.Fatalf("ResolveRelease error: %v", err)
	}
	if got := f.token.BalanceOf(f.seller); got != 1_000 {
		t.Fatalf("seller balance = %d, want 1000", got)
	}
}

func TestEmergencyRefund(t *testing.T) {
	f := newEngineFixture(t, 1000)
	pending := chain.OrderKey("order-er-pending")
	disputed := chain.OrderKey("order-er-disputed")
	f.deposit(t, pending, 1_000)
	f.deposit(t, disputed, 2_000)
	if _, err := f.engine.Dispute(f.buyer, disputed); err != nil {
		t.Fatalf("Dispute error: %v", err)
	}

	before := f.token.BalanceOf(f.buyer)
	if _, err := f.engine.EmergencyRefund(f.operator, pending); err != nil {
		t.Fatalf("EmergencyRefund pending error: %v", err)
	}
	if _, err := f.engine.EmergencyRefund(f.operator, disputed); err != nil {
		t.Fatalf("EmergencyRefund disputed error: %v", err)
	}
	if got := f.token.BalanceOf(f.buyer); got != before+3_000 {
		t.Fatalf("buyer balance = %d, want %d", got, before+3_000)
	}
	if got := f.custodyHeld(); got != 0 {
		t.Fatalf("custody = %d, want 0", got)
	}
}

func TestWithdrawFees(t *testing.T) {
	f := newEngineFixture(t, 1000)

	if _, err := f.engine.WithdrawFees(f.operator); !errors.Is(err, ErrNoFees) {
		t.Fatalf("WithdrawFees on empty pool error = %v, want ErrNoFees", err)
	}

	orderID := chain.OrderKey("order-fees")
	f.deposit(t, orderID, 10_000)
	if _, err := f.engine.Confirm(f.buyer, orderID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	if _, err := f.engine.WithdrawFees(f.buyer); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("WithdrawFees by buyer error = %v, want ErrNotOperator", err)
	}
	if _, err := f.engine.WithdrawFees(f.operator); err != nil {
		t.Fatalf("WithdrawFees error: %v", err)
	}
	if got := f.token.BalanceOf(f.operator); got != 1_000 {
		t.Fatalf("operator balance = %d, want 1000", got)
	}
	if got := f.engine.AccumulatedFees(); got != 0 {
		t.Fatalf("fees = %d, want 0", got)
	}
	if got := f.token.BalanceOf(f.engine.Address()); got != 0 {
		t.Fatalf("contract balance = %d, want 0", got)
	}
}

func TestOwnerControls(t *testing.T) {
	f := newEngineFixture(t, 100)

	if _, err := f.engine.SetFeeBps(f.operator, 50); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("SetFeeBps by operator error = %v, want ErrNotOwner", err)
	}
	if _, err := f.engine.SetFeeBps(f.owner, MaxFeeBps+1); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("SetFeeBps over cap error = %v, want ErrFeeTooHigh", err)
	}
	if _, err := f.engine.SetFeeBps(f.owner, MaxFeeBps); err != nil {
		t.Fatalf("SetFeeBps error: %v", err)
	}
	if got := f.engine.FeeBps(); got != MaxFeeBps {
		t.Fatalf("feeBps = %d, want %d", got, MaxFeeBps)
	}

	newOperator := testAddr(42)
	if _, err := f.engine.SetOperator(f.owner, newOperator); err != nil {
		t.Fatalf("SetOperator error: %v", err)
	}
	if _, err := f.engine.WithdrawFees(f.operator); errors.Is(err, ErrNoFees) || err == nil {
		t.Fatalf("old operator should be rejected, got %v", err)
	}

	newOwner := testAddr(43)
	if _, err := f.engine.TransferOwnership(f.owner, newOwner); err != nil {
		t.Fatalf("TransferOwnership error: %v", err)
	}
	if _, err := f.engine.SetFeeBps(f.owner, 1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("old owner SetFeeBps error = %v, want ErrNotOwner", err)
	}
	if _, err := f.engine.SetFeeBps(newOwner, 1); err != nil {
		t.Fatalf("new owner SetFeeBps error: %v", err)
	}
}

func TestCustodyConservation(t *testing.T) {
	f := newEngineFixture(t, 300)

	orders := []struct {
		id     chain.Hash
		amount uint64
	}{
		{chain.OrderKey("cc-1"), 1_500},
		{chain.OrderKey("cc-2"), 2_500},
		{chain.OrderKey("cc-3"), 4_000},
		{chain.OrderKey("cc-4"), 8_000},
	}
	for _, o := range orders {
		f.deposit(t, o.id, o.amount)
	}

	check := func(step string) {
		t.Helper()
		var held uint64
		for _, o := range orders {
			rec, err := f.engine.GetOrder(o.id)
			if err != nil {
				t.Fatalf("%s: GetOrder error: %v", step, err)
			}
			if rec.Status == enums.EscrowStatusPending || rec.Status == enums.EscrowStatusDisputed {
				held += rec.Amount
			}
		}
		if got := f.custodyHeld(); got != held {
			t.Fatalf("%s: custody = %d, want %d", step, got, held)
		}
	}

	check("after deposits")
	if _, err := f.engine.Confirm(f.buyer, orders[0].id); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	check("after confirm")
	if _, err := f.engine.Dispute(f.buyer, orders[1].id); err != nil {
		t.Fatalf("Dispute error: %v", err)
	}
	check("after dispute")
	if _, err := f.engine.ResolveRefund(f.operator, orders[1].id); err != nil {
		t.Fatalf("ResolveRefund error: %v", err)
	}
	check("after refund")
	if _, err := f.engine.EmergencyRefund(f.operator, orders[2].id); err != nil {
		t.Fatalf("EmergencyRefund error: %v", err)
	}
	check("after emergency refund")
}
