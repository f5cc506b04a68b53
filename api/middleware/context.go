package middleware

import "context"

type contextKey string

const (
	ctxWallet       contextKey = "wallet"
	ctxAgentTokenID contextKey = "agent_token_id"
)

// WalletFromContext returns the authenticated wallet, or "" when the
// request was not authenticated.
func WalletFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxWallet).(string); ok {
		return v
	}
	return ""
}

// AgentTokenIDFromContext returns the caller's on-chain agent token id,
// or nil when the wallet had not registered when the token was minted.
func AgentTokenIDFromContext(ctx context.Context) *uint64 {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxAgentTokenID).(*uint64); ok {
		return v
	}
	return nil
}

// WithWallet injects the wallet identifier into the context.
func WithWallet(ctx context.Context, wallet string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxWallet, wallet)
}
