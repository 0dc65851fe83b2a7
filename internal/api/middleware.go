package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/readingnook/readingnook-server/internal/service"
)

// authMiddleware validates Bearer tokens and stores the curator claims in
// context. Requests without a valid token continue anonymously; handlers that
// need a curator call requireCurator.
func authMiddleware(auth *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.VerifyToken(r.Context(), token)
			if err != nil {
				logger.Debug("ignoring invalid bearer token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// clientIPMiddleware records the caller address for handlers that throttle
// per client.
func clientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, getClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
