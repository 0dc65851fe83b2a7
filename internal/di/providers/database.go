package providers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/readingnook/readingnook-server/internal/config"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/logger"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the configured repository with shutdown capability.
type StoreHandle struct {
	store.Repository
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the Badger or SQLite store, wired to broadcast book
// changes over SSE.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, err
	}

	var repo store.Repository
	switch cfg.Data.StoreBackend {
	case config.StoreSQLite:
		dbPath := filepath.Join(cfg.Data.BasePath, "readingnook.db")
		db, err := sqlite.Open(dbPath, log.Component("store"))
		if err != nil {
			return nil, err
		}
		db.SetEmitter(sseHandle.Manager)
		repo = db
		log.Info("Database initialized", "backend", "sqlite", "path", dbPath)
	default:
		dbPath := filepath.Join(cfg.Data.BasePath, "db")
		db, err := store.New(dbPath, log.Component("store"), sseHandle.Manager)
		if err != nil {
			return nil, err
		}
		repo = db
		log.Info("Database initialized", "backend", "badger", "path", dbPath)
	}

	return &StoreHandle{Repository: repo}, nil
}

// ProvideLibrary provides the in-memory projection of the collection.
func ProvideLibrary(i do.Injector) (*library.Library, error) {
	return library.New(), nil
}
