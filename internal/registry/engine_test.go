package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

func walletAddr(n uint64) chain.Address {
	return chain.Address(fmt.Sprintf("0x%040x", n))
}

func TestRegisterAgent(t *testing.T) {
	engine := NewEngine()
	ctx := t.Context()
	wallet := walletAddr(10)
	card := chain.Keccak256Hash([]byte(`{"name":"research-agent"}`))

	registered, err := engine.IsRegistered(ctx, wallet)
	if err != nil {
		t.Fatalf("IsRegistered error: %v", err)
	}
	if registered {
		t.Fatal("wallet should not be registered yet")
	}
	if _, err := engine.WalletToToken(ctx, wallet); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("WalletToToken error = %v, want ErrNotRegistered", err)
	}

	tokenID, err := engine.RegisterAgent(ctx, wallet, card)
	if err != nil {
		t.Fatalf("RegisterAgent error: %v", err)
	}
	if tokenID != 1 {
		t.Fatalf("tokenID = %d, want 1", tokenID)
	}

	if _, err := engine.RegisterAgent(ctx, wallet, card); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second RegisterAgent error = %v, want ErrAlreadyRegistered", err)
	}
	if _, err := engine.RegisterAgent(ctx, walletAddr(11), ""); !errors.Is(err, ErrEmptyCard) {
		t.Fatalf("empty card error = %v, want ErrEmptyCard", err)
	}

	got, err := engine.WalletToToken(ctx, wallet)
	if err != nil {
		t.Fatalf("WalletToToken error: %v", err)
	}
	if got != tokenID {
		t.Fatalf("WalletToToken = %d, want %d", got, tokenID)
	}
	storedCard, err := engine.CardHash(tokenID)
	if err != nil {
		t.Fatalf("CardHash error: %v", err)
	}
	if storedCard != card {
		t.Fatalf("CardHash = %s, want %s", storedCard, card)
	}

	// Token ids are sequential across agents.
	next, err := engine.RegisterAgent(ctx, walletAddr(11), card)
	if err != nil {
		t.Fatalf("RegisterAgent error: %v", err)
	}
	if next != 2 {
		t.Fatalf("second tokenID = %d, want 2", next)
	}
}

func TestSubmitReviewAggregates(t *testing.T) {
	engine := NewEngine()
	ctx := t.Context()
	card := chain.Keccak256Hash([]byte("card"))
	tokenID, err := engine.RegisterAgent(ctx, walletAddr(20), card)
	if err != nil {
		t.Fatalf("RegisterAgent error: %v", err)
	}

	stats, err := engine.GetAgentStats(ctx, tokenID)
	if err != nil {
		t.Fatalf("GetAgentStats error: %v", err)
	}
	if stats.ReviewCount != 0 || stats.AvgRatingBps != 0 {
		t.Fatalf("fresh agent stats = %+v, want zero", stats)
	}

	if err := engine.SubmitReview(ctx, walletAddr(30), chain.OrderKey("r1"), tokenID, 5); err != nil {
		t.Fatalf("SubmitReview error: %v", err)
	}
	if err := engine.SubmitReview(ctx, walletAddr(31), chain.OrderKey("r2"), tokenID, 4); err != nil {
		t.Fatalf("SubmitReview error: %v", err)
	}

	stats, err = engine.GetAgentStats(ctx, tokenID)
	if err != nil {
		t.Fatalf("GetAgentStats error: %v", err)
	}
	if stats.ReviewCount != 2 {
		t.Fatalf("ReviewCount = %d, want 2", stats.ReviewCount)
	}
	// (5+4)*10000/2 = 45000 bps, a 4.5 average.
	if stats.AvgRatingBps != 45000 {
		t.Fatalf("AvgRatingBps = %d, want 45000", stats.AvgRatingBps)
	}
}

func TestSubmitReviewGuards(t *testing.T) {
	engine := NewEngine()
	ctx := t.Context()
	card := chain.Keccak256Hash([]byte("card"))
	tokenID, err := engine.RegisterAgent(ctx, walletAddr(20), card)
	if err != nil {
		t.Fatalf("RegisterAgent error: %v", err)
	}
	reviewer := walletAddr(30)
	orderID := chain.OrderKey("order-review")

	if err := engine.SubmitReview(ctx, reviewer, orderID, tokenID, 0); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("rating 0 error = %v, want ErrInvalidRating", err)
	}
	if err := engine.SubmitReview(ctx, reviewer, orderID, tokenID, 6); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("rating 6 error = %v, want ErrInvalidRating", err)
	}
	if err := engine.SubmitReview(ctx, reviewer, orderID, 404, 3); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("unknown token error = %v, want ErrUnknownToken", err)
	}

	if err := engine.SubmitReview(ctx, reviewer, orderID, tokenID, 3); err != nil {
		t.Fatalf("SubmitReview error: %v", err)
	}
	if err := engine.SubmitReview(ctx, reviewer, orderID, tokenID, 5); !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("duplicate review error = %v, want ErrDuplicateReview", err)
	}

	// Same reviewer may review a different order; same order accepts a
	// different reviewer.
	if err := engine.SubmitReview(ctx, reviewer, chain.OrderKey("other-order"), tokenID, 5); err != nil {
		t.Fatalf("second order review error: %v", err)
	}
	if err := engine.SubmitReview(ctx, walletAddr(31), orderID, tokenID, 5); err != nil {
		t.Fatalf("second reviewer error: %v", err)
	}

	stats, err := engine.GetAgentStats(ctx, tokenID)
	if err != nil {
		t.Fatalf("GetAgentStats error: %v", err)
	}
	if stats.ReviewCount != 3 {
		t.Fatalf("ReviewCount = %d, want 3", stats.ReviewCount)
	}
}
