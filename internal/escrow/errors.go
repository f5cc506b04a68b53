package escrow

import "errors"

// Contract revert reasons. Every failed call maps to exactly one of these so
// callers can distinguish a bad request from a state conflict.
var (
	ErrZeroAmount          = errors.New("escrow: deposit amount must be positive")
	ErrSelfDeal            = errors.New("escrow: seller must differ from depositor")
	ErrZeroAddress         = errors.New("escrow: zero address not allowed")
	ErrDuplicateOrder      = errors.New("escrow: order already deposited")
	ErrUnknownOrder        = errors.New("escrow: unknown order")
	ErrNotBuyer            = errors.New("escrow: caller is not the order buyer")
	ErrNotOperator         = errors.New("escrow: caller is not the operator")
	ErrNotOwner            = errors.New("escrow: caller is not the owner")
	ErrNotPending          = errors.New("escrow: order is not pending")
	ErrNotDisputed         = errors.New("escrow: order is not disputed")
	ErrAlreadySettled      = errors.New("escrow: order already settled")
	ErrWindowElapsed       = errors.New("escrow: confirmation window has elapsed")
	ErrWindowActive        = errors.New("escrow: confirmation window still active")
	ErrNoFees              = errors.New("escrow: no accumulated fees to withdraw")
	ErrFeeTooHigh          = errors.New("escrow: fee exceeds maximum basis points")
	ErrInsufficientBalance = errors.New("escrow: insufficient token balance")
)
