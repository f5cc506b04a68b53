package payments

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pactum-labs/pactum-gateway/internal/escrow"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

type verifierFixture struct {
	verifier *Verifier
	engine   *escrow.Engine
	buyer    chain.Address
	seller   chain.Address
}

func addr(n uint64) chain.Address {
	return chain.Address(fmt.Sprintf("0x%040x", n))
}

func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()

	token := escrow.NewToken(addr(0xff))
	engine, err := escrow.NewEngine(escrow.EngineConfig{
		Token: token,
		Owner: addr(1),
	})
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	backend, err := escrow.NewBackend(engine)
	if err != nil {
		t.Fatalf("NewBackend error: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "payments-test"})
	verifier, err := NewVerifier(backend, engine.Address(), logg)
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}

	f := &verifierFixture{
		verifier: verifier,
		engine:   engine,
		buyer:    addr(3),
		seller:   addr(4),
	}
	token.Mint(f.buyer, 1_000_000)
	return f
}

func (f *verifierFixture) depositFor(t *testing.T, orderID string, amount uint64) chain.Hash {
	t.Helper()
	txHash, err := f.engine.Deposit(f.buyer, chain.OrderKey(orderID), f.seller, amount)
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	return txHash
}

func TestVerifyDeposit(t *testing.T) {
	f := newVerifierFixture(t)
	txHash := f.depositFor(t, "order-ok", 10_000)

	expect := Expectation{
		OrderID:     "order-ok",
		Buyer:       f.buyer,
		Seller:      f.seller,
		AmountUnits: 10_000,
	}
	proof, err := f.verifier.VerifyDeposit(t.Context(), txHash, expect)
	if err != nil {
		t.Fatalf("VerifyDeposit error: %v", err)
	}
	if proof.TxHash != txHash {
		t.Fatalf("proof tx = %s, want %s", proof.TxHash, txHash)
	}
	if proof.OrderKey != chain.OrderKey("order-ok") {
		t.Fatalf("proof order key = %s", proof.OrderKey)
	}
	if proof.Buyer != f.buyer || proof.Seller != f.seller || proof.AmountUnits != 10_000 {
		t.Fatalf("unexpected proof: %+v", proof)
	}

	// Re-verifying the same transaction yields the same result.
	again, err := f.verifier.VerifyDeposit(t.Context(), txHash, expect)
	if err != nil {
		t.Fatalf("second VerifyDeposit error: %v", err)
	}
	if *again != *proof {
		t.Fatalf("verification not idempotent: %+v vs %+v", again, proof)
	}
}

func TestVerifyDepositChecksummedEscrowAddress(t *testing.T) {
	f := newVerifierFixture(t)
	txHash := f.depositFor(t, "order-chk", 10_000)

	// Operators paste EIP-55 checksummed addresses into config, while the
	// chain reports log addresses lowercase. The verifier must match the
	// deposit regardless of the configured casing.
	checksummed := chain.Address("0x" + strings.ToUpper(string(f.engine.Address())[2:]))
	backend, err := escrow.NewBackend(f.engine)
	if err != nil {
		t.Fatalf("NewBackend error: %v", err)
	}
	verifier, err := NewVerifier(backend, checksummed, logger.New(logger.Options{ServiceName: "payments-test"}))
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}

	proof, err := verifier.VerifyDeposit(t.Context(), txHash, Expectation{
		OrderID:     "order-chk",
		Buyer:       f.buyer,
		Seller:      f.seller,
		AmountUnits: 10_000,
	})
	if err != nil {
		t.Fatalf("VerifyDeposit error: %v", err)
	}
	if proof.AmountUnits != 10_000 {
		t.Fatalf("unexpected proof: %+v", proof)
	}
}

func TestVerifyDepositMismatches(t *testing.T) {
	f := newVerifierFixture(t)
	txHash := f.depositFor(t, "order-m", 10_000)

	base := Expectation{
		OrderID:     "order-m",
		Buyer:       f.buyer,
		Seller:      f.seller,
		AmountUnits: 10_000,
	}

	cases := []struct {
		name   string
		mutate func(e *Expectation)
		want   error
	}{
		{"wrong order", func(e *Expectation) { e.OrderID = "order-other" }, ErrOrderMismatch},
		{"wrong buyer", func(e *Expectation) { e.Buyer = addr(9) }, ErrBuyerMismatch},
		{"wrong seller", func(e *Expectation) { e.Seller = addr(9) }, ErrSellerMismatch},
		{"wrong amount", func(e *Expectation) { e.AmountUnits = 9_999 }, ErrAmountMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expect := base
			tc.mutate(&expect)
			if _, err := f.verifier.VerifyDeposit(t.Context(), txHash, expect); !errors.Is(err, tc.want) {
				t.Fatalf("VerifyDeposit error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestVerifyDepositRejectsBadTransactions(t *testing.T) {
	f := newVerifierFixture(t)
	expect := Expectation{
		OrderID:     "order-bad",
		Buyer:       f.buyer,
		Seller:      f.seller,
		AmountUnits: 1_000,
	}

	if _, err := f.verifier.VerifyDeposit(t.Context(), chain.OrderKey("nope"), expect); !errors.Is(err, ErrTxNotFound) {
		t.Fatalf("unknown tx error = %v, want ErrTxNotFound", err)
	}

	// A reverted deposit has a receipt but no events.
	f.depositFor(t, "order-bad", 1_000)
	failedTx, err := f.engine.Deposit(f.buyer, chain.OrderKey("order-bad"), f.seller, 1_000)
	if err == nil {
		t.Fatal("duplicate deposit should revert")
	}
	if _, err := f.verifier.VerifyDeposit(t.Context(), failedTx, expect); !errors.Is(err, ErrTxFailed) {
		t.Fatalf("failed tx error = %v, want ErrTxFailed", err)
	}

	// A successful non-deposit transaction carries no deposit event.
	confirmTx, err := f.engine.Confirm(f.buyer, chain.OrderKey("order-bad"))
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if _, err := f.verifier.VerifyDeposit(t.Context(), confirmTx, expect); !errors.Is(err, ErrNoDepositEvent) {
		t.Fatalf("non-deposit tx error = %v, want ErrNoDepositEvent", err)
	}
}
