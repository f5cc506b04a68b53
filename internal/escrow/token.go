package escrow

import (
	"sync"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

// Token is an in-process ledger for a 6-decimal fungible settlement token.
// Balances are base units, so one whole token is 1_000_000 units.
type Token struct {
	mu      sync.Mutex
	address chain.Address

	balances map[chain.Address]uint64
	supply   uint64
}

// NewToken creates an empty token ledger deployed at the given address.
func NewToken(address chain.Address) *Token {
	return &Token{
		address:  address,
		balances: make(map[chain.Address]uint64),
	}
}

// Address returns the token contract address.
func (t *Token) Address() chain.Address {
	return t.address
}

// Mint credits base units to an account.
func (t *Token) Mint(to chain.Address, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] += amount
	t.supply += amount
}

// Transfer moves base units between accounts. The sender's balance must
// cover the full amount or nothing moves.
func (t *Token) Transfer(from, to chain.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balances[from] < amount {
		return ErrInsufficientBalance
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

// BalanceOf returns the base-unit balance of an account.
func (t *Token) BalanceOf(account chain.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// TotalSupply returns the total minted base units.
func (t *Token) TotalSupply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply
}
