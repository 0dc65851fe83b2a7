// Package config loads server configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// AI providers.
const (
	AIProviderNone   = "none"
	AIProviderGemini = "gemini"
	AIProviderOpenAI = "openai"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// DevelopmentCuratorPassword is used when no curator password is configured
// outside production.
const DevelopmentCuratorPassword = "openopen"

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Server      ServerConfig
	Auth        AuthConfig
	Notion      NotionConfig
	GoogleBooks GoogleBooksConfig
	AI          AIConfig
	Cache       CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// IsProduction reports whether the server runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds storage locations.
type DataConfig struct {
	BasePath     string // Directory for the store, search index and key file
	StoreBackend string // badger or sqlite
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	AdvertiseMDNS bool
	CORSOrigins   []string
}

// AuthConfig holds curator access configuration.
type AuthConfig struct {
	CuratorPassword     string // Plain password, hashed at startup
	CuratorPasswordHash string // Pre-computed Argon2id hash, wins over CuratorPassword
	TokenDuration       time.Duration
	LoginRatePerMinute  int
}

// NotionConfig holds import settings.
type NotionConfig struct {
	BaseURL     string
	ProxyURL    string // Relay prefix, e.g. https://corsproxy.io/?
	PageSize    int
	Timeout     time.Duration
	SchemaPath  string // Optional YAML field-name schema
	PublicToken string // Share token used for an automatic sync at startup
}

// GoogleBooksConfig holds cover lookup settings.
type GoogleBooksConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AIConfig holds summary generator settings.
type AIConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// CacheConfig holds lookup and suggestion cache settings.
type CacheConfig struct {
	Backend    string
	RedisURL   string
	LookupTTL  time.Duration
	SuggestTTL time.Duration
}

// LoadConfig loads configuration using the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("readingnook", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for persisted data")
	storeBackend := fs.String("store", "", "Store backend (badger, sqlite)")

	serverName := fs.String("server-name", "", "Name advertised on the LAN")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	advertiseMDNS := fs.String("advertise-mdns", "", "Advertise via mDNS (default: true)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed browser origins")

	tokenDuration := fs.String("token-duration", "", "Curator token lifetime (default: 720h)")

	notionProxy := fs.String("notion-proxy", "", "Relay prefix for Notion requests")
	notionPageSize := fs.String("notion-page-size", "", "Results fetched per sync (1-100)")
	notionSchema := fs.String("notion-schema", "", "Path to a YAML field-name schema")

	aiProvider := fs.String("ai-provider", "", "Summary provider (none, gemini, openai)")
	cacheBackend := fs.String("cache", "", "Cache backend (memory, redis)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:     getConfigValue(*dataPath, "DATA_PATH", ""),
			StoreBackend: getConfigValue(*storeBackend, "STORE_BACKEND", StoreBadger),
		},
		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "SERVER_NAME", "ReadingNook"),
			Port:          getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", true),
			CORSOrigins:   splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			CuratorPassword:     getConfigValue("", "CURATOR_PASSWORD", ""),
			CuratorPasswordHash: getConfigValue("", "CURATOR_PASSWORD_HASH", ""),
			LoginRatePerMinute:  getIntConfigValue("", "LOGIN_RATE_PER_MINUTE", 10),
		},
		Notion: NotionConfig{
			BaseURL:     getConfigValue("", "NOTION_BASE_URL", "https://api.notion.com"),
			ProxyURL:    getConfigValue(*notionProxy, "NOTION_PROXY_URL", ""),
			PageSize:    getIntConfigValue(*notionPageSize, "NOTION_PAGE_SIZE", 100),
			SchemaPath:  getConfigValue(*notionSchema, "NOTION_SCHEMA_PATH", ""),
			PublicToken: getConfigValue("", "PUBLIC_LIBRARY_TOKEN", ""),
		},
		GoogleBooks: GoogleBooksConfig{
			BaseURL: getConfigValue("", "GOOGLE_BOOKS_BASE_URL", "https://www.googleapis.com"),
			APIKey:  getConfigValue("", "GOOGLE_BOOKS_API_KEY", ""),
		},
		AI: AIConfig{
			Provider: getConfigValue(*aiProvider, "AI_PROVIDER", AIProviderNone),
			APIKey:   getConfigValue("", "AI_API_KEY", ""),
			Model:    getConfigValue("", "AI_MODEL", ""),
			BaseURL:  getConfigValue("", "AI_BASE_URL", ""),
		},
		Cache: CacheConfig{
			Backend:  getConfigValue(*cacheBackend, "CACHE_BACKEND", CacheMemory),
			RedisURL: getConfigValue("", "REDIS_URL", "redis://localhost:6379/0"),
		},
	}

	durations := []struct {
		target *time.Duration
		flag   string
		envKey string
		def    string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Auth.TokenDuration, *tokenDuration, "CURATOR_TOKEN_DURATION", "720h"},
		{&cfg.Notion.Timeout, "", "NOTION_TIMEOUT", "30s"},
		{&cfg.GoogleBooks.Timeout, "", "GOOGLE_BOOKS_TIMEOUT", "10s"},
		{&cfg.AI.Timeout, "", "AI_TIMEOUT", "30s"},
		{&cfg.Cache.LookupTTL, "", "LOOKUP_CACHE_TTL", "24h"},
		{&cfg.Cache.SuggestTTL, "", "SUGGEST_CACHE_TTL", "168h"},
	}
	for _, d := range durations {
		parsed, err := getDurationConfigValue(d.flag, d.envKey, d.def)
		if err != nil {
			return nil, err
		}
		*d.target = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if cfg.Notion.SchemaPath != "" {
		expanded, err := expandPath(cfg.Notion.SchemaPath, "")
		if err != nil {
			return nil, fmt.Errorf("invalid schema path: %w", err)
		}
		cfg.Notion.SchemaPath = expanded
	}

	if cfg.Auth.CuratorPassword == "" && cfg.Auth.CuratorPasswordHash == "" && !cfg.App.IsProduction() {
		cfg.Auth.CuratorPassword = DevelopmentCuratorPassword
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}
	if !oneOf(c.App.Environment, "development", "staging", "production") {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}
	if !oneOf(strings.ToLower(c.Logger.Level), "debug", "info", "warn", "error") {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Data.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if !oneOf(c.Data.StoreBackend, StoreBadger, StoreSQLite) {
		return fmt.Errorf("invalid store backend: %s (must be badger or sqlite)", c.Data.StoreBackend)
	}
	if !oneOf(c.AI.Provider, AIProviderNone, AIProviderGemini, AIProviderOpenAI) {
		return fmt.Errorf("invalid AI provider: %s (must be none, gemini, or openai)", c.AI.Provider)
	}
	if !oneOf(c.Cache.Backend, CacheMemory, CacheRedis) {
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if c.Notion.PageSize < 1 || c.Notion.PageSize > 100 {
		return fmt.Errorf("invalid notion page size: %d (must be 1-100)", c.Notion.PageSize)
	}
	if c.App.IsProduction() && c.Auth.CuratorPassword == "" && c.Auth.CuratorPasswordHash == "" {
		return errors.New("CURATOR_PASSWORD or CURATOR_PASSWORD_HASH is required in production")
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/ReadingNook.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "ReadingNook"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
