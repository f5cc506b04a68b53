package escrow

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
)

const (
	// MaxFeeBps is the hard cap on the protocol fee (10%).
	MaxFeeBps uint64 = 1000

	// DefaultWindow is the confirmation window after deposit during which
	// the buyer may dispute; once it elapses anyone may auto-confirm.
	DefaultWindow = 24 * time.Hour
)

// Record is the on-chain state of a single escrowed order.
type Record struct {
	Buyer       chain.Address
	Seller      chain.Address
	Amount      uint64
	Status      enums.EscrowStatus
	DepositedAt time.Time
}

// EngineConfig configures a deployed escrow engine.
type EngineConfig struct {
	Address  chain.Address
	Token    *Token
	Owner    chain.Address
	Operator chain.Address
	FeeBps   uint64
	Window   time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine executes the escrow contract under a globally serialized model:
// one mutex guards all state, so every call is atomic and a failed call
// leaves no partial effects. Each call mines one synthetic block with a
// receipt, which lets the engine double as a chain backend in embedded
// deployments.
type Engine struct {
	mu sync.Mutex

	address  chain.Address
	token    *Token
	owner    chain.Address
	operator chain.Address
	feeBps   uint64
	window   time.Duration
	now      func() time.Time

	orders   map[chain.Hash]*Record
	fees     uint64
	block    uint64
	nonce    uint64
	logs     []chain.Log
	receipts map[chain.Hash]*chain.Receipt
}

// NewEngine deploys an escrow engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Token == nil {
		return nil, fmt.Errorf("escrow engine requires a settlement token")
	}
	if cfg.Owner.IsZero() {
		return nil, fmt.Errorf("escrow engine requires an owner address")
	}
	if cfg.FeeBps > MaxFeeBps {
		return nil, ErrFeeTooHigh
	}
	address := cfg.Address
	if address.IsZero() {
		derived, err := chain.Keccak256Hash([]byte("pactum/escrow"), []byte(cfg.Owner)).Address()
		if err != nil {
			return nil, err
		}
		address = derived
	}
	operator := cfg.Operator
	if operator.IsZero() {
		operator = cfg.Owner
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		address:  address,
		token:    cfg.Token,
		owner:    cfg.Owner,
		operator: operator,
		feeBps:   cfg.FeeBps,
		window:   window,
		now:      now,
		orders:   make(map[chain.Hash]*Record),
		receipts: make(map[chain.Hash]*chain.Receipt),
	}, nil
}

// Address returns the contract address funds are held at.
func (e *Engine) Address() chain.Address {
	return e.address
}

// TokenAddress returns the settlement token contract address.
func (e *Engine) TokenAddress() chain.Address {
	return e.token.Address()
}

// Deposit locks the caller's funds for an order. The token transfer and
// the record creation succeed or fail as one unit.
func (e *Engine) Deposit(caller chain.Address, orderID chain.Hash, seller chain.Address, amount uint64) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == 0 {
		return e.revert(ErrZeroAmount)
	}
	if seller.IsZero() {
		return e.revert(ErrZeroAddress)
	}
	if seller == caller {
		return e.revert(ErrSelfDeal)
	}
	if _, exists := e.orders[orderID]; exists {
		return e.revert(ErrDuplicateOrder)
	}
	if err := e.token.Transfer(caller, e.address, amount); err != nil {
		return e.revert(err)
	}

	e.orders[orderID] = &Record{
		Buyer:       caller,
		Seller:      seller,
		Amount:      amount,
		Status:      enums.EscrowStatusPending,
		DepositedAt: e.now(),
	}
	return e.mine(depositedLog(e.address, orderID, caller, seller, amount))
}

// Confirm releases a pending order to the seller. Buyer only.
func (e *Engine) Confirm(caller chain.Address, orderID chain.Hash) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[orderID]
	if !ok {
		return e.revert(ErrUnknownOrder)
	}
	if rec.Status != enums.EscrowStatusPending {
		return e.revert(e.statusError(rec, ErrNotPending))
	}
	if caller != rec.Buyer {
		return e.revert(ErrNotBuyer)
	}
	return e.release(orderID, rec)
}

// AutoConfirm releases a pending order once the confirmation window has
// elapsed. Callable by anyone.
func (e *Engine) AutoConfirm(caller chain.Address, orderID chain.Hash) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[orderID]
	if !ok {
		return e.revert(ErrUnknownOrder)
	}
	if rec.Status != enums.EscrowStatusPending {
		return e.revert(e.statusError(rec, ErrNotPending))
	}
	if e.now().Sub(rec.DepositedAt) < e.window {
		return e.revert(ErrWindowActive)
	}
	return e.release(orderID, rec)
}

// Dispute freezes a pending order for operator resolution. Buyer only,
// and only strictly before the confirmation window elapses.
func (e *Engine) Dispute(caller chain.Address, orderID chain.Hash) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[orderID]
	if !ok {
		return e.revert(ErrUnknownOrder)
	}
	if rec.Status != enums.EscrowStatusPending {
		return e.revert(e.statusError(rec, ErrNotPending))
	}
	if caller != rec.Buyer {
		return e.revert(ErrNotBuyer)
	}
	if e.now().Sub(rec.DepositedAt) >= e.window {
		return e.revert(ErrWindowElapsed)
	}

	rec.Status = enums.EscrowStatusDisputed
	return e.mine(disputedLog(e.address, orderID, rec.Buyer))
}

// ResolveRelease settles a disputed order in the seller's favor. Operator only.
func (e *Engine) ResolveRelease(caller chain.Address, orderID chain.Hash) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.disputedRecord(caller, orderID)
	if err != nil {
		return e.revert(err)
	}
	return e.release(orderID, rec)
}

// ResolveRefund settles a disputed order in the buyer's favor. Operator
// only. The full amount is returned with no fee deducted.
func (e *Engine) ResolveRefund(caller chain.Address, orderID chain.Hash) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.disputedRecord(caller, orderID)
	if err != nil {
		return e.revert(err)
	}
	return e.refund(orderID, rec)
}

// EmergencyRefund returns a non-terminal order's full amount to the
// buyer regardless of dispute state. Operator only.
func (e *Engine) EmergencyRefund(caller chain.Address, orderID chain.Hash) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.operator {
		return e.revert(ErrNotOperator)
	}
	rec, ok := e.orders[orderID]
	if !ok {
		return e.revert(ErrUnknownOrder)
	}
	if rec.Status.IsFinal() {
		return e.revert(ErrAlreadySettled)
	}
	return e.refund(orderID, rec)
}

// WithdrawFees transfers all accumulated fees to the operator. Fails
// when the pool is empty.
func (e *Engine) WithdrawFees(caller chain.Address) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.operator {
		return e.revert(ErrNotOperator)
	}
	if e.fees == 0 {
		return e.revert(ErrNoFees)
	}
	amount := e.fees
	if err := e.token.Transfer(e.address, e.operator, amount); err != nil {
		return e.revert(err)
	}
	e.fees = 0
	return e.mine(feesWithdrawnLog(e.address, e.operator, amount))
}

// SetFeeBps updates the protocol fee, hard-capped at MaxFeeBps. Owner only.
func (e *Engine) SetFeeBps(caller chain.Address, bps uint64) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return e.revert(ErrNotOwner)
	}
	if bps > MaxFeeBps {
		return e.revert(ErrFeeTooHigh)
	}
	e.feeBps = bps
	return e.mine()
}

// SetOperator replaces the dispute-resolution operator. Owner only.
func (e *Engine) SetOperator(caller, operator chain.Address) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return e.revert(ErrNotOwner)
	}
	if operator.IsZero() {
		return e.revert(ErrZeroAddress)
	}
	e.operator = operator
	return e.mine()
}

// TransferOwnership hands configuration control to a new owner. Owner only.
func (e *Engine) TransferOwnership(caller, owner chain.Address) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return e.revert(ErrNotOwner)
	}
	if owner.IsZero() {
		return e.revert(ErrZeroAddress)
	}
	e.owner = owner
	return e.mine()
}

// GetOrder returns a copy of the record for an order.
func (e *Engine) GetOrder(orderID chain.Hash) (Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[orderID]
	if !ok {
		return Record{}, ErrUnknownOrder
	}
	return *rec, nil
}

// IsConfirmable reports whether AutoConfirm would currently succeed.
func (e *Engine) IsConfirmable(orderID chain.Hash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[orderID]
	if !ok {
		return false
	}
	return rec.Status == enums.EscrowStatusPending && e.now().Sub(rec.DepositedAt) >= e.window
}

// AccumulatedFees returns the undrawn fee pool in base units.
func (e *Engine) AccumulatedFees() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fees
}

// FeeBps returns the current protocol fee in basis points.
func (e *Engine) FeeBps() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeBps
}

// disputedRecord authorizes and loads a record for operator resolution.
// Caller must hold e.mu.
func (e *Engine) disputedRecord(caller chain.Address, orderID chain.Hash) (*Record, error) {
	if caller != e.operator {
		return nil, ErrNotOperator
	}
	rec, ok := e.orders[orderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if rec.Status != enums.EscrowStatusDisputed {
		return nil, e.statusError(rec, ErrNotDisputed)
	}
	return rec, nil
}

func (e *Engine) statusError(rec *Record, fallback error) error {
	if rec.Status.IsFinal() {
		return ErrAlreadySettled
	}
	return fallback
}

// release pays the seller amount minus fee and marks the record
// released. Caller must hold e.mu.
func (e *Engine) release(orderID chain.Hash, rec *Record) (chain.Hash, error) {
	fee := feeFor(rec.Amount, e.feeBps)
	payout := rec.Amount - fee
	if err := e.token.Transfer(e.address, rec.Seller, payout); err != nil {
		return e.revert(err)
	}
	e.fees += fee
	rec.Status = enums.EscrowStatusReleased
	return e.mine(releasedLog(e.address, orderID, rec.Seller, payout, fee))
}

// feeFor computes amount*bps/10000 through big.Int so the intermediate
// product cannot wrap uint64 for large deposits. Because bps never
// exceeds MaxFeeBps, the quotient always fits back in uint64.
func feeFor(amount, bps uint64) uint64 {
	fee := new(big.Int).SetUint64(amount)
	fee.Mul(fee, new(big.Int).SetUint64(bps))
	fee.Div(fee, big.NewInt(10000))
	return fee.Uint64()
}

// refund returns the full amount to the buyer with no fee. Caller must
// hold e.mu.
func (e *Engine) refund(orderID chain.Hash, rec *Record) (chain.Hash, error) {
	if err := e.token.Transfer(e.address, rec.Buyer, rec.Amount); err != nil {
		return e.revert(err)
	}
	rec.Status = enums.EscrowStatusRefunded
	return e.mine(refundedLog(e.address, orderID, rec.Buyer, rec.Amount))
}

// mine commits a successful call as one block, stamping the given logs
// with the block number and transaction hash. Caller must hold e.mu.
func (e *Engine) mine(logs ...chain.Log) (chain.Hash, error) {
	txHash := e.nextTxHash()
	e.block++
	receipt := &chain.Receipt{
		TxHash:      txHash,
		BlockNumber: e.block,
		Status:      chain.ReceiptStatusSuccess,
	}
	for i := range logs {
		logs[i].BlockNumber = e.block
		logs[i].TxHash = txHash
		logs[i].Index = uint(i)
		receipt.Logs = append(receipt.Logs, logs[i])
	}
	e.logs = append(e.logs, receipt.Logs...)
	e.receipts[txHash] = receipt
	return txHash, nil
}

// revert mines a failed block with no logs and surfaces the reason.
// Caller must hold e.mu.
func (e *Engine) revert(reason error) (chain.Hash, error) {
	txHash := e.nextTxHash()
	e.block++
	e.receipts[txHash] = &chain.Receipt{
		TxHash:      txHash,
		BlockNumber: e.block,
	}
	return txHash, reason
}

func (e *Engine) nextTxHash() chain.Hash {
	e.nonce++
	return chain.Keccak256Hash([]byte(e.address), chain.EncodeUint64Word(e.nonce))
}
