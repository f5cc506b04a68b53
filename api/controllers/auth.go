package controllers

import (
	"context"
	"net/http"

	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/api/validators"
	"github.com/pactum-labs/pactum-gateway/internal/auth"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// AuthService is the challenge/response wallet login flow.
type AuthService interface {
	Challenge(ctx context.Context, wallet string) (*auth.ChallengeResult, error)
	Verify(ctx context.Context, input auth.VerifyInput) (*auth.TokenResult, error)
}

type authChallengeBody struct {
	Wallet string `json:"wallet" validate:"required"`
}

// AuthChallenge issues a single-use nonce for the wallet to sign.
func AuthChallenge(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body authChallengeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Challenge(r.Context(), body.Wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type authVerifyBody struct {
	Wallet    string `json:"wallet" validate:"required"`
	Challenge string `json:"challenge" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// AuthVerify exchanges a signed challenge for an access token.
func AuthVerify(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body authVerifyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), auth.VerifyInput{
			Wallet:    body.Wallet,
			Challenge: body.Challenge,
			Signature: body.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
