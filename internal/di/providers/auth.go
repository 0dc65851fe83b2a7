package providers

import (
	"github.com/samber/do/v2"

	"github.com/readingnook/readingnook-server/internal/auth"
	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/ratelimit"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// PasswordHash is the argon2id hash of the curator password.
type PasswordHash string

// LoginLimiter throttles login attempts per client.
type LoginLimiter struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LoginLimiter) Shutdown() error {
	h.Stop()
	return nil
}

// AssistLimiter throttles lookup and suggestion requests per client.
type AssistLimiter struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *AssistLimiter) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded", "token_duration", cfg.Auth.TokenDuration)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.TokenDuration)
}

// ProvidePasswordHash hashes the configured curator password unless a
// pre-computed hash was given.
func ProvidePasswordHash(i do.Injector) (PasswordHash, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.CuratorPasswordHash != "" {
		return PasswordHash(cfg.Auth.CuratorPasswordHash), nil
	}

	if cfg.Auth.CuratorPassword == config.DevelopmentCuratorPassword {
		log.Warn("Using the development curator password")
	}

	hash, err := auth.HashPassword(cfg.Auth.CuratorPassword)
	if err != nil {
		return "", err
	}
	return PasswordHash(hash), nil
}

// ProvideLoginLimiter provides the per-client login limiter.
func ProvideLoginLimiter(i do.Injector) (*LoginLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)

	perMinute := cfg.Auth.LoginRatePerMinute
	if perMinute <= 0 {
		perMinute = 5
	}
	return &LoginLimiter{ratelimit.New(float64(perMinute)/60, perMinute)}, nil
}

// ProvideAssistLimiter provides the per-client limiter for the lookup and
// suggestion endpoints, which call paid or quota-bound upstream APIs.
func ProvideAssistLimiter(i do.Injector) (*AssistLimiter, error) {
	return &AssistLimiter{ratelimit.New(1, 10)}, nil
}
