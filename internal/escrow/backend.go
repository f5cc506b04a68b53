package escrow

import (
	"context"
	"fmt"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

// Backend exposes an Engine's block history as a chain.Client. It serves
// embedded deployments where the gateway runs its own ledger instead of
// talking to an external RPC node.
type Backend struct {
	engine *Engine
}

// NewBackend wraps an engine as a chain backend.
func NewBackend(engine *Engine) (*Backend, error) {
	if engine == nil {
		return nil, fmt.Errorf("escrow backend requires an engine")
	}
	return &Backend{engine: engine}, nil
}

// BlockNumber implements chain.Client.
func (b *Backend) BlockNumber(_ context.Context) (uint64, error) {
	b.engine.mu.Lock()
	defer b.engine.mu.Unlock()
	return b.engine.block, nil
}

// TransactionReceipt implements chain.Client.
func (b *Backend) TransactionReceipt(_ context.Context, txHash chain.Hash) (*chain.Receipt, error) {
	b.engine.mu.Lock()
	defer b.engine.mu.Unlock()

	receipt, ok := b.engine.receipts[txHash]
	if !ok {
		return nil, chain.ErrReceiptNotFound
	}
	copied := *receipt
	copied.Logs = append([]chain.Log(nil), receipt.Logs...)
	return &copied, nil
}

// FilterLogs implements chain.Client.
func (b *Backend) FilterLogs(_ context.Context, q chain.FilterQuery) ([]chain.Log, error) {
	b.engine.mu.Lock()
	defer b.engine.mu.Unlock()

	var matched []chain.Log
	for _, log := range b.engine.logs {
		if q.FromBlock != 0 && log.BlockNumber < q.FromBlock {
			continue
		}
		if q.ToBlock != 0 && log.BlockNumber > q.ToBlock {
			continue
		}
		if !q.Address.IsZero() && log.Address != q.Address {
			continue
		}
		if q.Topic0 != "" && log.Topic0() != q.Topic0 {
			continue
		}
		matched = append(matched, log)
	}
	return matched, nil
}
