// Package ctxutil provides shared context key accessors.
//
// This package exists to break the circular dependency between server and mcp:
// server imports mcp for MCP server setup, and mcp needs to read the caller
// that server's auth middleware resolves. Both packages import ctxutil
// instead of each other.
package ctxutil

import (
	"context"

	"github.com/ashita-ai/kasane/internal/auth"
)

type contextKey string

const (
	keyClaims    contextKey = "claims"
	keyCaller    contextKey = "caller"
	keyRequestID contextKey = "request_id"
)

// WithClaims returns a new context carrying the given claims. The caller
// is derived from them.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, keyClaims, claims)
	return WithCaller(ctx, Caller{ID: claims.CallerID(), Tier: claims.Tier, Authenticated: true})
}

// ClaimsFromContext extracts the JWT claims from the context.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if v, ok := ctx.Value(keyClaims).(*auth.Claims); ok {
		return v
	}
	return nil
}

// WithCaller returns a new context carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, keyCaller, c)
}

// CallerFromContext returns the resolved caller, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(keyCaller).(Caller)
	return c, ok
}

// WithRequestID returns a new context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}
