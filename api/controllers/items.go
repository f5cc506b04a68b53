package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/api/validators"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// ItemService manages listings.
type ItemService interface {
	CreateItem(ctx context.Context, input market.CreateItemInput) (*market.ItemView, error)
	UpdateItem(ctx context.Context, input market.UpdateItemInput) (*market.ItemView, error)
	DeleteItem(ctx context.Context, sellerWallet string, itemID uuid.UUID) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*market.ItemView, error)
	MyItems(ctx context.Context, sellerWallet string) ([]market.ItemView, error)
	SearchItems(ctx context.Context, q market.SearchItemsQuery) ([]market.ItemView, error)
}

func parseItemID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return id, nil
}

// SearchItems is the public catalog search.
func SearchItems(svc ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := market.SearchItemsQuery{
			Query: validators.SanitizeString(r.URL.Query().Get("query"), 200),
			Limit: limit,
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("max_price")); raw != "" {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid max_price"))
				return
			}
			q.MaxPrice = &price
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			itemType, err := enums.ParseItemType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item type"))
				return
			}
			q.Type = &itemType
		}

		items, err := svc.SearchItems(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "count": len(items)})
	}
}

// ItemDetail returns one listing.
func ItemDetail(svc ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		id, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"item": item})
	}
}

type createItemBody struct {
	Name             string          `json:"name" validate:"required,max=200"`
	Description      string          `json:"description" validate:"max=4000"`
	Price            decimal.Decimal `json:"price" validate:"required"`
	Type             string          `json:"type,omitempty"`
	Endpoint         *string         `json:"endpoint,omitempty" validate:"omitempty,url"`
	RequiresShipping bool            `json:"requires_shipping,omitempty"`
}

// CreateItem publishes a new listing owned by the authenticated seller.
func CreateItem(svc ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		var body createItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := market.CreateItemInput{
			SellerWallet:     middleware.WalletFromContext(r.Context()),
			Name:             validators.SanitizeString(body.Name, 200),
			Description:      validators.SanitizeString(body.Description, 4000),
			Price:            body.Price,
			Endpoint:         body.Endpoint,
			RequiresShipping: body.RequiresShipping,
		}
		if body.Type != "" {
			itemType, err := enums.ParseItemType(body.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item type"))
				return
			}
			input.Type = itemType
		}

		item, err := svc.CreateItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"item": item})
	}
}

type updateItemBody struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=4000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Endpoint    *string          `json:"endpoint,omitempty" validate:"omitempty,url"`
	Status      *string          `json:"status,omitempty"`
}

// UpdateItem mutates a listing the authenticated seller owns.
func UpdateItem(svc ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		id, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := market.UpdateItemInput{
			SellerWallet: middleware.WalletFromContext(r.Context()),
			ItemID:       id,
			Name:         body.Name,
			Description:  body.Description,
			Price:        body.Price,
			Endpoint:     body.Endpoint,
		}
		if body.Status != nil {
			status, err := enums.ParseItemStatus(*body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item status"))
				return
			}
			input.Status = &status
		}

		item, err := svc.UpdateItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"item": item})
	}
}

// DeleteItem soft-deletes a listing.
func DeleteItem(svc ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		id, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteItem(r.Context(), middleware.WalletFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

// MyItems lists the authenticated seller's listings, all statuses.
func MyItems(svc ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		items, err := svc.MyItems(r.Context(), middleware.WalletFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "count": len(items)})
	}
}
