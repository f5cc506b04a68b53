package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/api/validators"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

const (
	paymentProofHeader = "X-Payment-Proof"
	orderIDHeader      = "X-Order-Id"
)

// PurchaseService runs the two-phase buy flow.
type PurchaseService interface {
	InitiatePurchase(ctx context.Context, input market.PurchaseInput) (*market.PaymentRequired, error)
	ConfirmPayment(ctx context.Context, input market.ConfirmPaymentInput) (*market.OrderView, error)
}

type buyBody struct {
	Query string `json:"query" validate:"max=4000"`
}

// Buy implements the 402 purchase protocol on a single route. Without a
// payment proof header the gateway quotes: it creates the order and
// responds 402 with everything the buyer's wallet needs to escrow funds.
// With X-Payment-Proof and X-Order-Id set, it verifies the deposit and
// the order proceeds to delivery.
func Buy(svc PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		buyer := middleware.WalletFromContext(r.Context())
		proof := strings.TrimSpace(r.Header.Get(paymentProofHeader))

		if proof == "" {
			var body buyBody
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			quote, err := svc.InitiatePurchase(r.Context(), market.PurchaseInput{
				BuyerWallet: buyer,
				ItemID:      itemID,
				Query:       validators.SanitizeString(body.Query, 4000),
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusPaymentRequired, quote)
			return
		}

		rawOrderID := strings.TrimSpace(r.Header.Get(orderIDHeader))
		if rawOrderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, orderIDHeader+" header required with payment proof"))
			return
		}
		orderID, err := uuid.Parse(rawOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), market.ConfirmPaymentInput{
			BuyerWallet: buyer,
			OrderID:     orderID,
			TxHash:      proof,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order": order})
	}
}
