package providers

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/ai"
	"github.com/readingnook/readingnook-server/internal/auth"
	"github.com/readingnook/readingnook-server/internal/cache"
	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/notion"
	"github.com/readingnook/readingnook-server/internal/store/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "info"},
		Data:   config.DataConfig{BasePath: t.TempDir(), StoreBackend: config.StoreBadger},
		Auth:   config.AuthConfig{CuratorPassword: "openopen", TokenDuration: time.Hour},
		Notion: config.NotionConfig{PageSize: 100},
		AI:     config.AIConfig{Provider: config.AIProviderNone},
		Cache:  config.CacheConfig{Backend: config.CacheMemory, LookupTTL: time.Hour, SuggestTTL: time.Hour},
	}
}

func newTestInjector(t *testing.T, cfg *config.Config) *do.RootScope {
	t.Helper()
	i := do.New()
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, logger.New(logger.Config{Writer: io.Discard}))
	t.Cleanup(func() { _ = i.Shutdown() })
	return i
}

func TestProvideStore_Backends(t *testing.T) {
	for _, backend := range []string{config.StoreBadger, config.StoreSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Data.StoreBackend = backend
			i := newTestInjector(t, cfg)
			do.Provide(i, ProvideSSEManager)
			do.Provide(i, ProvideStore)

			handle, err := do.Invoke[*StoreHandle](i)
			require.NoError(t, err)

			count, err := handle.CountBooks(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)

			_, isSQLite := handle.Repository.(*sqlite.Store)
			assert.Equal(t, backend == config.StoreSQLite, isSQLite)
		})
	}
}

func TestProvidePasswordHash(t *testing.T) {
	t.Run("hashes the plain password", func(t *testing.T) {
		i := newTestInjector(t, testConfig(t))
		do.Provide(i, ProvidePasswordHash)

		hash, err := do.Invoke[PasswordHash](i)
		require.NoError(t, err)
		assert.True(t, auth.VerifyPassword(string(hash), "openopen"))
	})

	t.Run("pre-computed hash wins", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.CuratorPasswordHash = "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"
		i := newTestInjector(t, cfg)
		do.Provide(i, ProvidePasswordHash)

		hash, err := do.Invoke[PasswordHash](i)
		require.NoError(t, err)
		assert.Equal(t, PasswordHash(cfg.Auth.CuratorPasswordHash), hash)
	})
}

func TestProvideTokenService_UsesStoredKey(t *testing.T) {
	cfg := testConfig(t)
	i := newTestInjector(t, cfg)
	do.Provide(i, ProvideAuthKey)
	do.Provide(i, ProvideTokenService)

	tokens, err := do.Invoke[*auth.TokenService](i)
	require.NoError(t, err)

	token, _, err := tokens.IssueCuratorToken()
	require.NoError(t, err)

	// A second container over the same data path verifies the token.
	again := newTestInjector(t, cfg)
	do.Provide(again, ProvideAuthKey)
	do.Provide(again, ProvideTokenService)
	reloaded := do.MustInvoke[*auth.TokenService](again)

	claims, err := reloaded.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.IsCurator())
}

func TestProvideCache(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		i := newTestInjector(t, testConfig(t))
		do.Provide(i, ProvideCache)

		handle, err := do.Invoke[*CacheHandle](i)
		require.NoError(t, err)
		_, ok := handle.Cache.(*cache.Memory)
		assert.True(t, ok)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.Cache.Backend = config.CacheRedis
		cfg.Cache.RedisURL = "redis://" + mr.Addr()
		i := newTestInjector(t, cfg)
		do.Provide(i, ProvideCache)

		handle, err := do.Invoke[*CacheHandle](i)
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, handle.Set(ctx, "k", []byte("v"), time.Minute))
		got, err := handle.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("unreachable redis fails", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Cache.Backend = config.CacheRedis
		cfg.Cache.RedisURL = "redis://127.0.0.1:1"
		i := newTestInjector(t, cfg)
		do.Provide(i, ProvideCache)

		_, err := do.Invoke[*CacheHandle](i)
		assert.Error(t, err)
	})
}

func TestProvideSuggester(t *testing.T) {
	t.Run("disabled without provider", func(t *testing.T) {
		i := newTestInjector(t, testConfig(t))
		do.Provide(i, ProvideCache)
		do.Provide(i, ProvideSuggester)

		s, err := do.Invoke[*ai.Suggester](i)
		require.NoError(t, err)
		assert.False(t, s.Enabled())
	})

	t.Run("gemini enabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AI.Provider = config.AIProviderGemini
		cfg.AI.APIKey = "test-key"
		i := newTestInjector(t, cfg)
		do.Provide(i, ProvideCache)
		do.Provide(i, ProvideSuggester)

		s, err := do.Invoke[*ai.Suggester](i)
		require.NoError(t, err)
		assert.True(t, s.Enabled())
	})
}

func TestProvideSchema(t *testing.T) {
	t.Run("static default", func(t *testing.T) {
		i := newTestInjector(t, testConfig(t))
		do.Provide(i, ProvideSchema)

		handle, err := do.Invoke[*SchemaHandle](i)
		require.NoError(t, err)
		assert.Equal(t, notion.DefaultSchema(), handle.Schema())
	})

	t.Run("watched file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Notion.SchemaPath = filepath.Join(t.TempDir(), "schema.yaml")
		require.NoError(t, os.WriteFile(cfg.Notion.SchemaPath, []byte("title_keys: [\"Name\"]\n"), 0o600))
		i := newTestInjector(t, cfg)
		do.Provide(i, ProvideSchema)

		handle, err := do.Invoke[*SchemaHandle](i)
		require.NoError(t, err)
		assert.Equal(t, []string{"Name"}, handle.Schema().TitleKeys)
		assert.Equal(t, notion.DefaultSchema().AuthorKeys, handle.Schema().AuthorKeys)
	})

	t.Run("missing file fails", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Notion.SchemaPath = filepath.Join(t.TempDir(), "missing.yaml")
		i := newTestInjector(t, cfg)
		do.Provide(i, ProvideSchema)

		_, err := do.Invoke[*SchemaHandle](i)
		assert.Error(t, err)
	})
}

func TestProvideMDNSService_Disabled(t *testing.T) {
	i := newTestInjector(t, testConfig(t))
	do.Provide(i, ProvideMDNSService)

	handle, err := do.Invoke[*MDNSServiceHandle](i)
	require.NoError(t, err)
	assert.Nil(t, handle.Service)
	assert.NoError(t, handle.Shutdown())
}
