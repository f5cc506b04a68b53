package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/pactum-labs/pactum-gateway/pkg/config"
	redisclient "github.com/pactum-labs/pactum-gateway/pkg/redis"
)

const nonceBytes = 32

// ErrInvalidChallenge covers expired, unknown, and mismatched nonces.
var ErrInvalidChallenge = errors.New("invalid or expired challenge")

type challengeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type challengeKeyer interface {
	ChallengeKey(wallet string) string
}

// Manager issues single-use auth nonces and consumes them on verification.
type Manager struct {
	store challengeStore
	keyer challengeKeyer
	ttl   time.Duration
}

// NewManager constructs a challenge manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.ChallengeTTL <= 0 {
		return nil, fmt.Errorf("challenge ttl must be positive")
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   cfg.ChallengeTTL,
	}, nil
}

// Issue creates a nonce for the wallet and stores it with the configured TTL.
// Re-issuing replaces any outstanding nonce.
func (m *Manager) Issue(ctx context.Context, wallet string) (string, error) {
	if strings.TrimSpace(wallet) == "" {
		return "", fmt.Errorf("wallet is required")
	}
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.ChallengeKey(wallet), nonce, m.ttl); err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume validates the provided nonce against the stored one and deletes
// it so a challenge can only authenticate once.
func (m *Manager) Consume(ctx context.Context, wallet, provided string) error {
	if strings.TrimSpace(wallet) == "" || strings.TrimSpace(provided) == "" {
		return ErrInvalidChallenge
	}

	key := m.keyer.ChallengeKey(wallet)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return ErrInvalidChallenge
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return ErrInvalidChallenge
	}

	return m.store.Del(ctx, key)
}

func generateNonce() (string, error) {
	bytes := make([]byte, nonceBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating challenge nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
