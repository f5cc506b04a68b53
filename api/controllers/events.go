package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/api/validators"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// EventFeed is the pull-based notification feed for agents.
type EventFeed interface {
	ListEvents(ctx context.Context, wallet string, undeliveredOnly, markDelivered bool, limit int) ([]market.AgentEventView, error)
}

// ListEvents returns the caller's event feed. By default it returns only
// undelivered entries and marks them delivered, so polling agents see
// each event once; history=true reads without consuming.
func ListEvents(svc EventFeed, logg *logger.Logger) http.HandlerFunc {
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

		history := strings.EqualFold(r.URL.Query().Get("history"), "true")

		events, err := svc.ListEvents(r.Context(), middleware.WalletFromContext(r.Context()), !history, !history, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"events": events, "count": len(events)})
	}
}
