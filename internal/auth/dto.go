package auth

import "time"

// ChallengeResult is the nonce handed to a wallet that wants a token.
type ChallengeResult struct {
	Wallet    string    `json:"wallet"`
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyInput carries the signed challenge back.
type VerifyInput struct {
	Wallet    string `json:"wallet"`
	Challenge string `json:"challenge"`
	Signature string `json:"signature"`
}

// TokenResult is the minted access token plus what the gateway learned
// about the wallet while minting it.
type TokenResult struct {
	Token      string    `json:"token"`
	Wallet     string    `json:"wallet"`
	Registered bool      `json:"registered"`
	ExpiresAt  time.Time `json:"expires_at"`
}
