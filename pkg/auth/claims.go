package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Wallet       string
	AgentTokenID *uint64
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued to agents.
type AccessTokenClaims struct {
	Wallet       string  `json:"wallet"`
	AgentTokenID *uint64 `json:"agent_token_id,omitempty"`
	jwt.RegisteredClaims
}
