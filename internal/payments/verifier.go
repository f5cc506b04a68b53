package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// Mismatch reasons. Every failed verification maps to exactly one so the
// orchestrator can tell the buyer what to correct instead of a bare "no".
var (
	ErrTxNotFound     = errors.New("payments: transaction not found or not yet mined")
	ErrTxFailed       = errors.New("payments: transaction reverted on chain")
	ErrNoDepositEvent = errors.New("payments: no escrow deposit event in transaction")
	ErrOrderMismatch  = errors.New("payments: deposit references a different order")
	ErrBuyerMismatch  = errors.New("payments: deposit sent by a different buyer")
	ErrSellerMismatch = errors.New("payments: deposit names a different seller")
	ErrAmountMismatch = errors.New("payments: deposit amount does not match order")
)

// depositTopic is the Deposited(bytes32,address,address,uint256) signature.
var depositTopic = chain.EventTopic("Deposited(bytes32,address,address,uint256)")

// Expectation is what a payment proof must establish about an order.
type Expectation struct {
	OrderID     string
	Buyer       chain.Address
	Seller      chain.Address
	AmountUnits uint64
}

// Proof is a verified claim that a transaction's on-chain effects funded
// the expected order.
type Proof struct {
	TxHash      chain.Hash
	BlockNumber uint64
	OrderKey    chain.Hash
	Buyer       chain.Address
	Seller      chain.Address
	AmountUnits uint64
}

// Verifier checks deposit transactions against order expectations. It is a
// pure read of chain state: verifying the same transaction twice yields the
// same result, and no call mutates anything.
type Verifier struct {
	client chain.Client
	escrow chain.Address
	logg   *logger.Logger
}

// NewVerifier wires a verifier against the escrow contract address. The
// address is normalized here: log addresses arrive lowercase, so a
// checksummed config value must never reach the comparison.
func NewVerifier(client chain.Client, escrow chain.Address, logg *logger.Logger) (*Verifier, error) {
	if client == nil {
		return nil, fmt.Errorf("payments verifier requires a chain client")
	}
	if logg == nil {
		return nil, fmt.Errorf("payments verifier requires a logger")
	}
	normalized, err := chain.ParseAddress(string(escrow))
	if err != nil {
		return nil, fmt.Errorf("payments verifier escrow address: %w", err)
	}
	if normalized.IsZero() {
		return nil, fmt.Errorf("payments verifier requires the escrow contract address")
	}
	return &Verifier{client: client, escrow: normalized, logg: logg}, nil
}

// VerifyDeposit fetches the transaction receipt and checks that it emitted
// a Deposited event from the escrow contract matching the expectation. The
// on-chain order key is recomputed from the expected order id rather than
// trusted from the caller, so a proof for one order cannot be replayed
// against another.
func (v *Verifier) VerifyDeposit(ctx context.Context, txHash chain.Hash, expect Expectation) (*Proof, error) {
	ctx = v.logg.WithTxHash(v.logg.WithOrderID(ctx, expect.OrderID), txHash.String())

	receipt, err := v.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, chain.ErrReceiptNotFound) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if !receipt.Succeeded() {
		return nil, ErrTxFailed
	}

	orderKey := chain.OrderKey(expect.OrderID)
	deposit, found := findDeposit(receipt.Logs, v.escrow, orderKey)
	if !found {
		if hasDeposit(receipt.Logs, v.escrow) {
			return nil, ErrOrderMismatch
		}
		return nil, ErrNoDepositEvent
	}

	buyer, err := deposit.Topics[2].Address()
	if err != nil {
		return nil, fmt.Errorf("decode buyer topic: %w", err)
	}
	seller, err := deposit.Topics[3].Address()
	if err != nil {
		return nil, fmt.Errorf("decode seller topic: %w", err)
	}
	amount, err := chain.DecodeUint64Word(deposit.Data)
	if err != nil {
		return nil, fmt.Errorf("decode deposit amount: %w", err)
	}

	if buyer != expect.Buyer {
		return nil, ErrBuyerMismatch
	}
	if seller != expect.Seller {
		return nil, ErrSellerMismatch
	}
	if amount != expect.AmountUnits {
		return nil, ErrAmountMismatch
	}

	v.logg.Info(ctx, "deposit verified")
	return &Proof{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber,
		OrderKey:    orderKey,
		Buyer:       buyer,
		Seller:      seller,
		AmountUnits: amount,
	}, nil
}

func findDeposit(logs []chain.Log, escrow chain.Address, orderKey chain.Hash) (chain.Log, bool) {
	for _, log := range logs {
		if log.Address != escrow || log.Topic0() != depositTopic || len(log.Topics) != 4 {
			continue
		}
		if log.Topics[1] == orderKey {
			return log, true
		}
	}
	return chain.Log{}, false
}

func hasDeposit(logs []chain.Log, escrow chain.Address) bool {
	for _, log := range logs {
		if log.Address == escrow && log.Topic0() == depositTopic {
			return true
		}
	}
	return false
}
