package controllers

import (
	"context"
	"net/http"

	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/api/validators"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// RegisterService handles agent onboarding.
type RegisterService interface {
	RegisterAgent(ctx context.Context, input market.RegisterAgentInput) (*market.AgentView, error)
	RegisterSeller(ctx context.Context, input market.RegisterSellerInput) (*market.AgentView, error)
}

type registerBody struct {
	Card            string  `json:"card" validate:"required"`
	Description     string  `json:"description" validate:"required,max=2000"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	TelegramGroupID *string `json:"telegram_group_id,omitempty"`
}

// Register binds the authenticated wallet to an agent card and profile.
func Register(svc RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		var body registerBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.RegisterAgent(r.Context(), market.RegisterAgentInput{
			Wallet:          middleware.WalletFromContext(r.Context()),
			Card:            body.Card,
			Description:     validators.SanitizeString(body.Description, 2000),
			Email:           body.Email,
			TelegramGroupID: body.TelegramGroupID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"agent": agent})
	}
}

type registerSellerBody struct {
	Card        string  `json:"card" validate:"required"`
	Endpoint    string  `json:"endpoint" validate:"required,url"`
	Description string  `json:"description" validate:"required,max=2000"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
}

// RegisterSeller upgrades the authenticated wallet to a seller by
// publishing its delivery endpoint.
func RegisterSeller(svc RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		var body registerSellerBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.RegisterSeller(r.Context(), market.RegisterSellerInput{
			Wallet:      middleware.WalletFromContext(r.Context()),
			Card:        body.Card,
			Endpoint:    body.Endpoint,
			Description: validators.SanitizeString(body.Description, 2000),
			Email:       body.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"agent": agent})
	}
}
