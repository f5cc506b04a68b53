package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pactum-labs/pactum-gateway/api/responses"
	pkgauth "github.com/pactum-labs/pactum-gateway/pkg/auth"
	"github.com/pactum-labs/pactum-gateway/pkg/config"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// caller's wallet. Tokens are stateless: a wallet proves key ownership
// once via the challenge flow and presents the resulting JWT afterwards.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Wallet == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing wallet"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxWallet, claims.Wallet)
			ctx = context.WithValue(ctx, ctxAgentTokenID, claims.AgentTokenID)
			if logg != nil {
				ctx = logg.WithWallet(ctx, claims.Wallet)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
