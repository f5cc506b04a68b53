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
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// AddressService stores the wallet's shipping address for physical orders.
type AddressService interface {
	PutAddress(ctx context.Context, input market.PutAddressInput) error
	GetAddress(ctx context.Context, wallet string) (*types.ShippingAddress, error)
}

type putAddressBody struct {
	Address types.ShippingAddress `json:"address" validate:"required"`
}

// PutAddress saves or replaces the caller's shipping address.
func PutAddress(svc AddressService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		var body putAddressBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.PutAddress(r.Context(), market.PutAddressInput{
			Wallet:  middleware.WalletFromContext(r.Context()),
			Address: body.Address,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "saved"})
	}
}

// GetAddress returns the caller's stored shipping address.
func GetAddress(svc AddressService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		address, err := svc.GetAddress(r.Context(), middleware.WalletFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"address": address})
	}
}
