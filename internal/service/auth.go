package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/readingnook/readingnook-server/internal/auth"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/ratelimit"
	"github.com/readingnook/readingnook-server/internal/store"
)

// LoginRequest is the curator login body.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries a curator session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthStatus reports whether the caller holds a valid curator token.
type AuthStatus struct {
	Granted   bool       `json:"granted"`
	ExpiresAt *time.Time `json:"expires_at,omitzero"`
}

// AuthService handles curator login. There is a single curator identified
// by a password. Logout revokes the token it was called with.
type AuthService struct {
	repo         store.Repository
	tokens       *auth.TokenService
	passwordHash string
	limiter      *ratelimit.KeyedRateLimiter
	logger       *slog.Logger
}

// NewAuthService creates a new auth service. passwordHash is an argon2id
// hash; limiter may be nil to disable login throttling.
func NewAuthService(
	repo store.Repository,
	tokens *auth.TokenService,
	passwordHash string,
	limiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		repo:         repo,
		tokens:       tokens,
		passwordHash: passwordHash,
		limiter:      limiter,
		logger:       logger,
	}
}

// Login checks the password and issues a token. clientKey identifies the
// caller for throttling, usually the client IP.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, clientKey string) (*LoginResponse, error) {
	if s.limiter != nil && !s.limiter.Allow(clientKey) {
		s.logger.Warn("login rate limit exceeded", "client", clientKey)
		return nil, domainerrors.RateLimited("too many login attempts, try again later")
	}

	if req.Password == "" || !auth.VerifyPassword(s.passwordHash, req.Password) {
		s.logger.Warn("curator login failed", "client", clientKey)
		return nil, domainerrors.InvalidCredentials("incorrect password")
	}

	token, expiresAt, err := s.tokens.IssueCuratorToken()
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("curator logged in", "client", clientKey)
	return &LoginResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// Logout revokes the token described by claims. Other tokens stay valid.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.repo.RevokeToken(ctx, claims.TokenID, claims.Expiration); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("curator logged out", "token_id", claims.TokenID)
	return nil
}

// Status reports the grant carried by the caller's own token. claims is nil
// for anonymous callers.
func (s *AuthService) Status(claims *auth.Claims) *AuthStatus {
	if claims == nil {
		return &AuthStatus{}
	}
	expiresAt := claims.Expiration
	return &AuthStatus{Granted: true, ExpiresAt: &expiresAt}
}

// VerifyToken validates a curator token and rejects revoked ones.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}
	if !claims.IsCurator() {
		return nil, domainerrors.Forbidden("curator access required")
	}

	revoked, err := s.repo.IsTokenRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, domainerrors.Unauthorized("token has been revoked")
	}
	return claims, nil
}
