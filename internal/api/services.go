package api

import (
	"github.com/readingnook/readingnook-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth     *service.AuthService
	Book     *service.BookService
	Sync     *service.SyncService
	Settings *service.SettingsService // Sync credentials and share tokens
	Assist   *service.AssistService   // Cover lookup and AI suggestions
}
