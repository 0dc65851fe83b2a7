// Package di provides dependency injection configuration for the ReadingNook server.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/readingnook/readingnook-server/internal/ai"
	"github.com/readingnook/readingnook-server/internal/auth"
	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/covers"
	"github.com/readingnook/readingnook-server/internal/di/providers"
	"github.com/readingnook/readingnook-server/internal/googlebooks"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/notion"
	"github.com/readingnook/readingnook-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideLibrary)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Sync layer
	do.Provide(injector, providers.ProvideSchema)
	do.Provide(injector, providers.ProvideNotionClient)

	// Lookup layer
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideGoogleBooks)
	do.Provide(injector, providers.ProvideSuggester)
	do.Provide(injector, providers.ProvideCoverProcessor)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvidePasswordHash)
	do.Provide(injector, providers.ProvideLoginLimiter)
	do.Provide(injector, providers.ProvideAssistLimiter)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideSyncService)
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideAssistService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services, loads the stored collection and
// starts the HTTP server. With a public library token configured it also
// runs one sync in the background.
func Bootstrap(injector *do.RootScope) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*library.Library](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.SchemaHandle](injector)
	_ = do.MustInvoke[*notion.Client](injector)
	_ = do.MustInvoke[*providers.CacheHandle](injector)
	_ = do.MustInvoke[*googlebooks.Client](injector)
	_ = do.MustInvoke[*ai.Suggester](injector)
	_ = do.MustInvoke[*covers.Processor](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	bookService := do.MustInvoke[*service.BookService](injector)
	syncService := do.MustInvoke[*service.SyncService](injector)
	_ = do.MustInvoke[*service.SettingsService](injector)
	_ = do.MustInvoke[*service.AssistService](injector)

	if err := bookService.Warm(context.Background()); err != nil {
		return fmt.Errorf("warm library: %w", err)
	}

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	if cfg.Notion.PublicToken != "" {
		log.Info("Public library token configured, starting automatic sync")
		go syncService.AutoSync(context.Background(), cfg.Notion.PublicToken)
	}

	return nil
}
