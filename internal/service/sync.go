package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/notion"
	"github.com/readingnook/readingnook-server/internal/search"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/vault"
)

// Syncer fetches and maps the remote collection.
type Syncer interface {
	Sync(ctx context.Context, secret, collectionID string) ([]*domain.Book, error)
}

// SyncEvents is the part of the SSE manager the sync drives.
type SyncEvents interface {
	Emit(event any)
	SetSyncing(syncing bool)
	IsSyncing() bool
}

// SyncRequest carries optional credentials. When both are empty the stored
// sync config is used.
type SyncRequest struct {
	Secret       string `json:"secret,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
}

// SyncFailure is the detail attached to a failed sync.
type SyncFailure struct {
	Kind   string `json:"kind"`
	Status int    `json:"status,omitempty"`
}

// SyncStatus reports whether a sync is running and how the last one went.
type SyncStatus struct {
	Syncing  bool               `json:"syncing"`
	LastSync *domain.SyncResult `json:"last_sync,omitempty"`
}

// SyncService replaces the library with the contents of the Notion
// database. Only one sync runs at a time.
type SyncService struct {
	syncer  Syncer
	repo    store.Repository
	library *library.Library
	index   *search.SearchIndex
	events  SyncEvents
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu sync.Mutex
}

// NewSyncService creates a new sync service. timeout bounds each remote
// call; zero means 30 seconds.
func NewSyncService(
	syncer Syncer,
	repo store.Repository,
	lib *library.Library,
	index *search.SearchIndex,
	events SyncEvents,
	m *metrics.Metrics,
	timeout time.Duration,
	logger *slog.Logger,
) *SyncService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncService{
		syncer:  syncer,
		repo:    repo,
		library: lib,
		index:   index,
		events:  events,
		metrics: m,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run performs a full-replace sync. Credentials given in req are stored on
// success. A sync already in flight yields a CONFLICT error. A failed sync
// leaves the collection untouched and yields an UPSTREAM error whose details
// name the failure kind.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (*domain.SyncResult, error) {
	cfg, fromRequest, err := s.resolveConfig(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, cfg, fromRequest)
}

// AutoSync imports using a share token, typically the public library token
// configured at startup. Failures are logged and the stored collection kept.
func (s *SyncService) AutoSync(ctx context.Context, token string) {
	cfg, err := vault.Decode(token)
	if err != nil {
		s.logger.Warn("auto sync skipped: invalid share token", "error", err)
		return
	}

	result, err := s.run(ctx, &cfg, false)
	if err != nil {
		s.logger.Warn("auto sync failed, keeping stored library", "error", err)
		return
	}
	s.logger.Info("auto sync completed", "imported", result.Imported)
}

// Status reports the syncing indicator and the last successful sync.
func (s *SyncService) Status(ctx context.Context) (*SyncStatus, error) {
	status := &SyncStatus{Syncing: s.events.IsSyncing()}
	last, err := s.repo.GetLastSync(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get last sync: %w", err)
	}
	status.LastSync = last
	return status, nil
}

func (s *SyncService) run(ctx context.Context, cfg *domain.SyncConfig, persistConfig bool) (*domain.SyncResult, error) {
	if !s.mu.TryLock() {
		s.metrics.ObserveSync(metrics.OutcomeConflict, 0, 0)
		return nil, domainerrors.Conflict("a sync is already running")
	}
	defer s.mu.Unlock()

	start := s.now()
	s.events.SetSyncing(true)
	defer s.events.SetSyncing(false)
	s.events.Emit(sse.NewSyncStartedEvent())

	syncCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	books, err := s.syncer.Sync(syncCtx, cfg.Secret, cfg.CollectionID)
	if err != nil {
		return nil, s.fail(err, start)
	}

	replaced := s.library.Len()
	if err := s.repo.ReplaceBooks(ctx, books); err != nil {
		s.metrics.ObserveSync("STORE_ERROR", s.now().Sub(start), 0)
		s.events.Emit(sse.NewSyncFailedEvent(string(domainerrors.CodeInternal), "failed to store the imported library"))
		return nil, fmt.Errorf("store synced books: %w", err)
	}
	s.library.ReplaceAll(books)
	if err := s.index.ReplaceAll(ctx, books); err != nil {
		s.logger.Warn("failed to rebuild search index after sync", "error", err)
	}

	if persistConfig {
		cfg.UpdatedAt = s.now()
		if err := s.repo.SaveSyncConfig(ctx, cfg); err != nil {
			s.logger.Warn("failed to store sync config", "error", err)
		}
	}

	completed := s.now()
	result := &domain.SyncResult{
		Imported:    len(books),
		Replaced:    replaced,
		CompletedAt: completed,
		Duration:    completed.Sub(start),
	}
	if err := s.repo.SaveLastSync(ctx, result); err != nil {
		s.logger.Warn("failed to record sync result", "error", err)
	}

	s.metrics.ObserveSync(metrics.OutcomeSuccess, result.Duration, result.Imported)
	s.metrics.SetLibrarySize(len(books))
	s.events.Emit(sse.NewSyncCompletedEvent(result))
	s.events.Emit(sse.NewLibraryReplacedEvent(s.library.DeriveStats()))

	s.logger.Info("sync completed",
		"imported", result.Imported,
		"replaced", result.Replaced,
		"duration", result.Duration,
	)
	return result, nil
}

// fail records and converts a sync error.
func (s *SyncService) fail(err error, start time.Time) error {
	var syncErr *notion.SyncError
	if !errors.As(err, &syncErr) {
		syncErr = &notion.SyncError{
			Kind:    notion.KindConnectionFailed,
			Message: err.Error(),
			Err:     err,
		}
	}

	s.metrics.ObserveSync(syncErr.Code(), s.now().Sub(start), 0)
	s.events.Emit(sse.NewSyncFailedEvent(syncErr.Code(), syncErr.Message))
	s.logger.Warn("sync failed", "kind", syncErr.Kind.String(), "error", err)

	return domainerrors.Upstream(syncErr.Message).
		WithDetails(SyncFailure{Kind: syncErr.Code(), Status: syncErr.Status}).
		WithCause(err)
}

func (s *SyncService) resolveConfig(ctx context.Context, req SyncRequest) (*domain.SyncConfig, bool, error) {
	secret := strings.TrimSpace(req.Secret)
	collectionID := strings.TrimSpace(req.CollectionID)

	if secret == "" && collectionID == "" {
		cfg, err := s.repo.GetSyncConfig(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, domainerrors.Validation("sync is not configured")
		}
		if err != nil {
			return nil, false, fmt.Errorf("get sync config: %w", err)
		}
		return cfg, false, nil
	}

	cfg := &domain.SyncConfig{Secret: secret, CollectionID: collectionID}
	if err := validateSyncConfig(cfg); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// validateSyncConfig applies the settings form checks.
func validateSyncConfig(cfg *domain.SyncConfig) error {
	details := map[string]string{}
	if len(cfg.Secret) < domain.MinSecretLength {
		details["secret"] = fmt.Sprintf("must be at least %d characters", domain.MinSecretLength)
	}
	if len(cfg.CollectionID) < domain.MinCollectionIDLength {
		details["collection_id"] = fmt.Sprintf("must be at least %d characters", domain.MinCollectionIDLength)
	}
	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("invalid sync config", details)
	}
	return nil
}
