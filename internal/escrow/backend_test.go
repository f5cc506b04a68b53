package escrow

import (
	"errors"
	"testing"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

func mustBackend(t *testing.T, engine *Engine) *Backend {
	t.Helper()
	backend, err := NewBackend(engine)
	if err != nil {
		t.Fatalf("NewBackend error: %v", err)
	}
	return backend
}

func TestBackendReceipts(t *testing.T) {
	f := newEngineFixture(t, 0)
	backend := mustBackend(t, f.engine)
	ctx := t.Context()

	orderID := chain.OrderKey("backend-1")
	okTx, err := f.engine.Deposit(f.buyer, orderID, f.seller, 1_000)
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	failedTx, err := f.engine.Deposit(f.buyer, orderID, f.seller, 1_000)
	if !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("duplicate Deposit error = %v, want ErrDuplicateOrder", err)
	}

	receipt, err := backend.TransactionReceipt(ctx, okTx)
	if err != nil {
		t.Fatalf("TransactionReceipt error: %v", err)
	}
	if !receipt.Succeeded() || len(receipt.Logs) != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	// A reverted call still mines a receipt, just a failed one with no logs.
	receipt, err = backend.TransactionReceipt(ctx, failedTx)
	if err != nil {
		t.Fatalf("TransactionReceipt error: %v", err)
	}
	if receipt.Succeeded() || len(receipt.Logs) != 0 {
		t.Fatalf("unexpected failed receipt: %+v", receipt)
	}

	if _, err := backend.TransactionReceipt(ctx, chain.OrderKey("no-such-tx")); !errors.Is(err, chain.ErrReceiptNotFound) {
		t.Fatalf("unknown tx error = %v, want ErrReceiptNotFound", err)
	}
}

func TestBackendFilterLogs(t *testing.T) {
	f := newEngineFixture(t, 0)
	backend := mustBackend(t, f.engine)
	ctx := t.Context()

	first := chain.OrderKey("filter-1")
	second := chain.OrderKey("filter-2")
	f.deposit(t, first, 1_000)
	f.deposit(t, second, 2_000)
	if _, err := f.engine.Confirm(f.buyer, first); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	head, err := backend.BlockNumber(ctx)
	if err != nil {
		t.Fatalf("BlockNumber error: %v", err)
	}
	if head != 3 {
		t.Fatalf("head = %d, want 3", head)
	}

	deposits, err := backend.FilterLogs(ctx, chain.FilterQuery{
		FromBlock: 1,
		ToBlock:   head,
		Address:   f.engine.Address(),
		Topic0:    TopicDeposited,
	})
	if err != nil {
		t.Fatalf("FilterLogs error: %v", err)
	}
	if len(deposits) != 2 {
		t.Fatalf("deposit logs = %d, want 2", len(deposits))
	}
	if deposits[0].Topics[1] != first || deposits[1].Topics[1] != second {
		t.Fatalf("logs out of order: %v", deposits)
	}

	released, err := backend.FilterLogs(ctx, chain.FilterQuery{
		FromBlock: 1,
		ToBlock:   head,
		Topic0:    TopicReleased,
	})
	if err != nil {
		t.Fatalf("FilterLogs error: %v", err)
	}
	if len(released) != 1 || released[0].Topics[1] != first {
		t.Fatalf("unexpected released logs: %v", released)
	}

	// Block range excludes logs outside it.
	tail, err := backend.FilterLogs(ctx, chain.FilterQuery{FromBlock: 3, ToBlock: head})
	if err != nil {
		t.Fatalf("FilterLogs error: %v", err)
	}
	if len(tail) != 1 || tail[0].Topic0() != TopicReleased {
		t.Fatalf("unexpected tail logs: %v", tail)
	}
}
