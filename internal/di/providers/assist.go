package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/readingnook/readingnook-server/internal/ai"
	"github.com/readingnook/readingnook-server/internal/cache"
	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/covers"
	"github.com/readingnook/readingnook-server/internal/googlebooks"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/metrics"
)

// CacheHandle wraps the lookup cache with shutdown capability.
type CacheHandle struct {
	cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the lookup and suggestion cache: Redis when
// configured, otherwise a bounded in-memory cache.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Cache.Backend == config.CacheRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		c, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		log.Info("Cache initialized", "backend", "redis")
		return &CacheHandle{Cache: c}, nil
	}

	log.Info("Cache initialized", "backend", "memory", "max_entries", lookupCacheEntries)
	return &CacheHandle{Cache: cache.NewMemory(lookupCacheEntries)}, nil
}

// ProvideGoogleBooks provides the Google Books lookup client.
func ProvideGoogleBooks(i do.Injector) (*googlebooks.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	c := do.MustInvoke[*CacheHandle](i)

	return googlebooks.NewClient(googlebooks.Options{
		BaseURL:  cfg.GoogleBooks.BaseURL,
		APIKey:   cfg.GoogleBooks.APIKey,
		Timeout:  cfg.GoogleBooks.Timeout,
		Cache:    c.Cache,
		CacheTTL: cfg.Cache.LookupTTL,
	}, log.Component("googlebooks")), nil
}

// ProvideSuggester provides the AI summary and tag suggester.
func ProvideSuggester(i do.Injector) (*ai.Suggester, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	c := do.MustInvoke[*CacheHandle](i)

	provider, err := ai.NewProvider(ai.Options{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  cfg.AI.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if provider == nil {
		log.Info("AI suggestions disabled")
	} else {
		log.Info("AI suggestions enabled", "provider", provider.Name())
	}

	return ai.NewSuggester(provider, c.Cache, cfg.Cache.SuggestTTL, log.Component("ai")), nil
}

// ProvideCoverProcessor provides the cover blurhash processor.
func ProvideCoverProcessor(i do.Injector) (*covers.Processor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return covers.NewProcessor(nil, log.Component("covers")), nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}
