package chain

import (
	"context"
	"errors"
)

// ErrReceiptNotFound is returned for transactions the chain does not know
// about yet. Callers decide whether to retry or reject.
var ErrReceiptNotFound = errors.New("transaction receipt not found")

// Client reads settlement state from the chain. Implementations must be
// safe for concurrent use; reads are pure functions of chain state so
// repeated calls for mined data return identical results.
type Client interface {
	// BlockNumber returns the current head block.
	BlockNumber(ctx context.Context) (uint64, error)

	// TransactionReceipt returns the receipt for a mined transaction.
	// Unknown or still-pending transactions return ErrReceiptNotFound.
	TransactionReceipt(ctx context.Context, txHash Hash) (*Receipt, error)

	// FilterLogs returns logs matching the query, ordered by block number
	// then log index.
	FilterLogs(ctx context.Context, q FilterQuery) ([]Log, error)
}
