package registry

import (
	"context"
	"errors"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

// Contract revert reasons.
var (
	ErrZeroWallet        = errors.New("registry: zero wallet not allowed")
	ErrAlreadyRegistered = errors.New("registry: wallet already registered")
	ErrNotRegistered     = errors.New("registry: wallet not registered")
	ErrUnknownToken      = errors.New("registry: unknown agent token")
	ErrEmptyCard         = errors.New("registry: agent card hash required")
	ErrInvalidRating     = errors.New("registry: rating must be between 1 and 5")
	ErrDuplicateReview   = errors.New("registry: reviewer already reviewed this order")
)

// AgentStats is the on-chain reputation aggregate for one agent token.
// AvgRatingBps scales stars by 10000, so a perfect 5.0 is 50000.
type AgentStats struct {
	AvgRatingBps uint64
	ReviewCount  uint64
}

// Client reads and writes the agent identity binding. The gateway uses it
// to gate registration and to record post-settlement reviews.
type Client interface {
	// IsRegistered reports whether the wallet holds an agent token.
	IsRegistered(ctx context.Context, wallet chain.Address) (bool, error)

	// WalletToToken resolves a wallet to its agent token id.
	// Unregistered wallets return ErrNotRegistered.
	WalletToToken(ctx context.Context, wallet chain.Address) (uint64, error)

	// GetAgentStats returns the reputation aggregate for a token.
	GetAgentStats(ctx context.Context, tokenID uint64) (AgentStats, error)

	// RegisterAgent mints an agent token bound to the wallet and its
	// card hash, returning the new token id.
	RegisterAgent(ctx context.Context, wallet chain.Address, cardHash chain.Hash) (uint64, error)

	// SubmitReview records a 1..5 rating against the token. At most one
	// review per reviewer per order ever succeeds.
	SubmitReview(ctx context.Context, reviewer chain.Address, orderID chain.Hash, tokenID uint64, rating uint8) error
}
