package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/pactum-labs/pactum-gateway/api/responses"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	"github.com/pactum-labs/pactum-gateway/pkg/db"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

type headReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pactum-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the gateway's hard dependencies. The chain head is
// reported but never fails readiness: order intake keeps working while
// the watcher catches up.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP db.Pinger, chainClient headReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("X-Pactum-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		for name, dep := range map[string]db.Pinger{"db": dbP, "redis": redisP} {
			if dep == nil {
				checks[name] = "not configured"
				healthy = false
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(ctx, "health check failed: "+name, err)
				}
				checks[name] = "unavailable"
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		if chainClient != nil {
			if _, err := chainClient.BlockNumber(ctx); err != nil {
				checks["chain"] = "unavailable"
			} else {
				checks["chain"] = "ok"
			}
		}

		payload := map[string]any{"status": "ready", "checks": checks}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
