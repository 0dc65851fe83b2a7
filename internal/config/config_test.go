package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/data", StoreBackend: StoreBadger},
		Notion: NotionConfig{PageSize: 100},
		AI:     AIConfig{Provider: AIProviderNone},
		Cache:  CacheConfig{Backend: CacheMemory},
	}
}

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DATA_PATH", "STORE_BACKEND", "SERVER_NAME", "SERVER_PORT",
		"ADVERTISE_MDNS", "CORS_ORIGINS", "CURATOR_PASSWORD", "CURATOR_PASSWORD_HASH",
		"NOTION_PROXY_URL", "NOTION_PAGE_SIZE", "NOTION_SCHEMA_PATH", "NOTION_TIMEOUT",
		"PUBLIC_LIBRARY_TOKEN", "AI_PROVIDER", "AI_API_KEY", "CACHE_BACKEND",
		"LOOKUP_CACHE_TTL", "CURATOR_TOKEN_DURATION",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }, "invalid environment"},
		{"environment is case sensitive", func(c *Config) { c.App.Environment = "DEVELOPMENT" }, "invalid environment"},
		{"missing environment", func(c *Config) { c.App.Environment = "" }, "ENV is required"},
		{"unknown log level", func(c *Config) { c.Logger.Level = "trace" }, "invalid log level"},
		{"empty data path", func(c *Config) { c.Data.BasePath = "" }, "data path cannot be empty"},
		{"unknown store", func(c *Config) { c.Data.StoreBackend = "postgres" }, "invalid store backend"},
		{"unknown ai provider", func(c *Config) { c.AI.Provider = "claude" }, "invalid AI provider"},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, "invalid cache backend"},
		{"page size zero", func(c *Config) { c.Notion.PageSize = 0 }, "page size"},
		{"page size above cap", func(c *Config) { c.Notion.PageSize = 101 }, "page size"},
		{"production without password", func(c *Config) { c.App.Environment = "production" }, "CURATOR_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "DEBUG"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load([]string{"-data-path", dir, "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, dir, cfg.Data.BasePath)
	assert.Equal(t, StoreBadger, cfg.Data.StoreBackend)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 100, cfg.Notion.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Notion.Timeout)
	assert.Empty(t, cfg.Notion.ProxyURL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.LookupTTL)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, DevelopmentCuratorPassword, cfg.Auth.CuratorPassword)
}

func TestLoad_FlagBeatsEnvBeatsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("NOTION_PAGE_SIZE=10\nAI_PROVIDER=gemini\nLOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("NOTION_PAGE_SIZE")
		_ = os.Unsetenv("AI_PROVIDER")
		_ = os.Unsetenv("LOG_LEVEL")
	})

	t.Setenv("AI_PROVIDER", "openai")

	cfg, err := Load([]string{"-data-path", dir, "-env-file", envFile, "-notion-page-size", "25"})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Notion.PageSize, "flag wins")
	assert.Equal(t, AIProviderOpenAI, cfg.AI.Provider, "env wins over .env")
	assert.Equal(t, "warn", cfg.Logger.Level, ".env wins over default")
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TIMEOUT", "soon")

	_, err := Load([]string{"-data-path", t.TempDir(), "-env-file", "/nonexistent/.env"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion_timeout")
}

func TestLoad_ProductionNeedsPassword(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"-env", "production", "-data-path", t.TempDir(), "-env-file", "/nonexistent/.env"})
	require.Error(t, err)

	t.Setenv("CURATOR_PASSWORD_HASH", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA")
	cfg, err := Load([]string{"-env", "production", "-data-path", t.TempDir(), "-env-file", "/nonexistent/.env"})
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.CuratorPassword)
}

func TestExpandDataPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"", filepath.Join(homeDir, "ReadingNook")},
		{"~/nook", filepath.Join(homeDir, "nook")},
		{"/srv/nook", "/srv/nook"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := &Config{Data: DataConfig{BasePath: tt.in}}
			require.NoError(t, cfg.expandDataPath())
			assert.Equal(t, tt.want, cfg.Data.BasePath)
		})
	}

	cfg := &Config{Data: DataConfig{BasePath: "relative/nook"}}
	require.NoError(t, cfg.expandDataPath())
	assert.True(t, filepath.IsAbs(cfg.Data.BasePath))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))
	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetBoolAndIntConfigValue(t *testing.T) {
	t.Setenv("TEST_BOOL", "YES")
	assert.True(t, getBoolConfigValue("", "TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("off", "TEST_BOOL", true))
	assert.True(t, getBoolConfigValue("", "UNSET_BOOL", true))

	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "TEST_INT", 7))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a , ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# comment
NOOK_A=plain

NOOK_B="double quoted"
  NOOK_C  =  'single quoted'
NOOK_KEEP=from-file
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("NOOK_KEEP", "from-env")
	for _, k := range []string{"NOOK_A", "NOOK_B", "NOOK_C"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "plain", os.Getenv("NOOK_A"))
	assert.Equal(t, "double quoted", os.Getenv("NOOK_B"))
	assert.Equal(t, "single quoted", os.Getenv("NOOK_C"))
	assert.Equal(t, "from-env", os.Getenv("NOOK_KEEP"))
}

func TestLoadEnvFile_Errors(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("INVALID LINE WITHOUT EQUALS\n"), 0o600))
	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
