package registry

import (
	"context"
	"sync"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

type reviewKey struct {
	reviewer chain.Address
	orderID  chain.Hash
}

type agentRecord struct {
	cardHash    chain.Hash
	totalRating uint64
	reviewCount uint64
}

// Engine executes the agent registry contract in process. Like the escrow
// engine it serializes every call behind one mutex, matching the chain's
// execution model. Token ids start at 1 and are never reused.
type Engine struct {
	mu sync.Mutex

	nextToken uint64
	tokens    map[chain.Address]uint64
	agents    map[uint64]*agentRecord
	reviewed  map[reviewKey]struct{}
}

// NewEngine deploys an empty agent registry.
func NewEngine() *Engine {
	return &Engine{
		nextToken: 1,
		tokens:    make(map[chain.Address]uint64),
		agents:    make(map[uint64]*agentRecord),
		reviewed:  make(map[reviewKey]struct{}),
	}
}

// IsRegistered implements Client.
func (e *Engine) IsRegistered(_ context.Context, wallet chain.Address) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.tokens[wallet]
	return ok, nil
}

// WalletToToken implements Client.
func (e *Engine) WalletToToken(_ context.Context, wallet chain.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokenID, ok := e.tokens[wallet]
	if !ok {
		return 0, ErrNotRegistered
	}
	return tokenID, nil
}

// GetAgentStats implements Client.
func (e *Engine) GetAgentStats(_ context.Context, tokenID uint64) (AgentStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	agent, ok := e.agents[tokenID]
	if !ok {
		return AgentStats{}, ErrUnknownToken
	}
	stats := AgentStats{ReviewCount: agent.reviewCount}
	if agent.reviewCount > 0 {
		stats.AvgRatingBps = agent.totalRating * 10000 / agent.reviewCount
	}
	return stats, nil
}

// RegisterAgent implements Client.
func (e *Engine) RegisterAgent(_ context.Context, wallet chain.Address, cardHash chain.Hash) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if wallet.IsZero() {
		return 0, ErrZeroWallet
	}
	if cardHash == "" {
		return 0, ErrEmptyCard
	}
	if _, ok := e.tokens[wallet]; ok {
		return 0, ErrAlreadyRegistered
	}

	tokenID := e.nextToken
	e.nextToken++
	e.tokens[wallet] = tokenID
	e.agents[tokenID] = &agentRecord{cardHash: cardHash}
	return tokenID, nil
}

// SubmitReview implements Client.
func (e *Engine) SubmitReview(_ context.Context, reviewer chain.Address, orderID chain.Hash, tokenID uint64, rating uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	agent, ok := e.agents[tokenID]
	if !ok {
		return ErrUnknownToken
	}
	key := reviewKey{reviewer: reviewer, orderID: orderID}
	if _, ok := e.reviewed[key]; ok {
		return ErrDuplicateReview
	}

	e.reviewed[key] = struct{}{}
	agent.totalRating += uint64(rating)
	agent.reviewCount++
	return nil
}

// CardHash returns the registered agent card hash for a token.
func (e *Engine) CardHash(tokenID uint64) (chain.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	agent, ok := e.agents[tokenID]
	if !ok {
		return "", ErrUnknownToken
	}
	return agent.cardHash, nil
}
