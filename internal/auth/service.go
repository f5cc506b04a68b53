package auth

import (
	"context"
	"errors"
	"time"

	pkgauth "github.com/pactum-labs/pactum-gateway/pkg/auth"
	"github.com/pactum-labs/pactum-gateway/pkg/auth/challenge"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"

	"github.com/pactum-labs/pactum-gateway/internal/registry"
)

// ChallengeManager issues single-use nonces and consumes them on verify.
type ChallengeManager interface {
	Issue(ctx context.Context, wallet string) (string, error)
	Consume(ctx context.Context, wallet, provided string) error
}

type tokenResolver interface {
	WalletToToken(ctx context.Context, wallet chain.Address) (uint64, error)
}

// Deps wires the auth service.
type Deps struct {
	Challenges ChallengeManager
	Registry   registry.Client
	JWT        config.JWTConfig
	Logger     *logger.Logger
}

// Service implements the challenge/response wallet login: prove key
// ownership by signing a nonce, receive a stateless JWT.
type Service struct {
	challenges ChallengeManager
	registry   tokenResolver
	jwt        config.JWTConfig
	logg       *logger.Logger

	now func() time.Time
}

// NewService validates dependencies and builds the auth service.
func NewService(deps Deps) (*Service, error) {
	if deps.Challenges == nil {
		return nil, errors.New("auth: challenge manager is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("auth: registry client is required")
	}
	if deps.JWT.Secret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}

	return &Service{
		challenges: deps.Challenges,
		registry:   deps.Registry,
		jwt:        deps.JWT,
		logg:       deps.Logger,
		now:        time.Now,
	}, nil
}

// Challenge issues a nonce the wallet must sign. Re-requesting replaces
// any outstanding nonce for the wallet.
func (s *Service) Challenge(ctx context.Context, rawWallet string) (*ChallengeResult, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}

	nonce, err := s.challenges.Issue(ctx, wallet.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue challenge")
	}

	return &ChallengeResult{
		Wallet:    wallet.String(),
		Challenge: nonce,
		ExpiresAt: s.now().Add(s.jwt.ChallengeTTL),
	}, nil
}

// Verify consumes the challenge, checks the signature recovers the
// wallet, and mints an access token. The agent token id is embedded when
// the wallet is already registered on chain so downstream handlers can
// skip the lookup.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (*TokenResult, error) {
	wallet, err := chain.ParseAddress(input.Wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}

	if err := s.challenges.Consume(ctx, wallet.String(), input.Challenge); err != nil {
		if errors.Is(err, challenge.ErrInvalidChallenge) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired challenge")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume challenge")
	}

	if err := pkgauth.VerifyWalletSignature(wallet.String(), input.Challenge, input.Signature); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithWallet(ctx, wallet.String()), "auth.signature_rejected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "signature does not match wallet")
	}

	var tokenID *uint64
	switch id, err := s.registry.WalletToToken(ctx, wallet); {
	case err == nil:
		tokenID = &id
	case errors.Is(err, registry.ErrNotRegistered):
		// First contact: the wallet authenticates before registering.
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve agent token")
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		Wallet:       wallet.String(),
		AgentTokenID: tokenID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &TokenResult{
		Token:      token,
		Wallet:     wallet.String(),
		Registered: tokenID != nil,
		ExpiresAt:  now.Add(s.jwt.Expiration()),
	}, nil
}
