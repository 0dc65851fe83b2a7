package api

import (
	"context"

	"github.com/readingnook/readingnook-server/internal/auth"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	claimsKey   ctxKey = "claims"
	clientIPKey ctxKey = "clientIP"
)

// withClaims stores verified curator claims in ctx.
func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// claimsFrom returns the curator claims attached by authMiddleware, if any.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// requireCurator returns the curator claims or a 401 error.
func requireCurator(ctx context.Context) (*auth.Claims, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, domainerrors.Unauthorized("curator sign-in required")
	}
	return claims, nil
}

// clientIP returns the caller address recorded by clientIPMiddleware.
func clientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}
