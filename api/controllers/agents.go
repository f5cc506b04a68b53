package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/api/validators"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// AgentDirectory reads registered agent profiles.
type AgentDirectory interface {
	ListAgents(ctx context.Context, limit int) ([]market.AgentView, error)
	GetAgent(ctx context.Context, wallet string) (*market.AgentView, error)
}

// ListAgents returns the public agent directory.
func ListAgents(svc AgentDirectory, logg *logger.Logger) http.HandlerFunc {
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

		agents, err := svc.ListAgents(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"agents": agents, "count": len(agents)})
	}
}

// AgentDetail returns one agent's profile by wallet.
func AgentDetail(svc AgentDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		wallet := strings.TrimSpace(chi.URLParam(r, "wallet"))
		agent, err := svc.GetAgent(r.Context(), wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"agent": agent})
	}
}
