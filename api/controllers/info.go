package controllers

import (
	"net/http"

	"github.com/pactum-labs/pactum-gateway/api/responses"
)

// ProtocolVersion is advertised on every discovery response so agent
// frameworks can negotiate compatibility before registering.
const ProtocolVersion = "3.0.0"

// MarketInfo is the unauthenticated discovery endpoint agents hit first.
func MarketInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"service":          "pactum-gateway",
			"protocol_version": ProtocolVersion,
			"auth":             "POST /market/auth/challenge, then POST /market/auth/verify with the signed nonce",
		})
	}
}
