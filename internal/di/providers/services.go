package providers

import (
	"github.com/samber/do/v2"

	"github.com/readingnook/readingnook-server/internal/ai"
	"github.com/readingnook/readingnook-server/internal/auth"
	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/covers"
	"github.com/readingnook/readingnook-server/internal/googlebooks"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/notion"
	"github.com/readingnook/readingnook-server/internal/service"
	"github.com/readingnook/readingnook-server/internal/validation"
)

// ProvideAuthService provides the curator authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	hash := do.MustInvoke[PasswordHash](i)
	limiter := do.MustInvoke[*LoginLimiter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Repository, tokenService, string(hash), limiter.KeyedRateLimiter, log.Component("auth")), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	lib := do.MustInvoke[*library.Library](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	coverProcessor := do.MustInvoke[*covers.Processor](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(
		storeHandle.Repository,
		lib,
		indexHandle.SearchIndex,
		coverProcessor,
		validation.New(),
		m,
		log.Component("books"),
	), nil
}

// ProvideSyncService provides the Notion sync service.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*notion.Client](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	lib := do.MustInvoke[*library.Library](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSyncService(
		client,
		storeHandle.Repository,
		lib,
		indexHandle.SearchIndex,
		sseHandle.Manager,
		m,
		cfg.Notion.Timeout,
		log.Component("sync"),
	), nil
}

// ProvideSettingsService provides the sync settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(storeHandle.Repository, log.Component("settings")), nil
}

// ProvideAssistService provides the lookup and suggestion service.
func ProvideAssistService(i do.Injector) (*service.AssistService, error) {
	volumes := do.MustInvoke[*googlebooks.Client](i)
	suggester := do.MustInvoke[*ai.Suggester](i)
	books := do.MustInvoke[*service.BookService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAssistService(volumes, suggester, books, m, log.Component("assist")), nil
}
