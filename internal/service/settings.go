package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/vault"
)

// SyncConfigRequest stores new sync credentials.
type SyncConfigRequest struct {
	Secret       string `json:"secret"`
	CollectionID string `json:"collection_id"`
}

// SyncConfigView is the stored config with the secret masked.
type SyncConfigView struct {
	Configured   bool       `json:"configured"`
	MaskedSecret string     `json:"masked_secret,omitempty"`
	CollectionID string     `json:"collection_id,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// ShareToken is an encoded sync config. Anyone holding it holds the secret.
type ShareToken struct {
	Token string `json:"token"`
}

// SettingsService manages the stored sync credentials and their share token.
type SettingsService struct {
	repo   store.Repository
	logger *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(repo store.Repository, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// GetSyncConfig returns the stored config, masked.
func (s *SettingsService) GetSyncConfig(ctx context.Context) (*SyncConfigView, error) {
	cfg, err := s.repo.GetSyncConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &SyncConfigView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync config: %w", err)
	}
	return viewOf(cfg), nil
}

// SaveSyncConfig validates and stores new credentials.
func (s *SettingsService) SaveSyncConfig(ctx context.Context, req SyncConfigRequest) (*SyncConfigView, error) {
	cfg := &domain.SyncConfig{
		Secret:       strings.TrimSpace(req.Secret),
		CollectionID: strings.TrimSpace(req.CollectionID),
		UpdatedAt:    time.Now(),
	}
	if err := validateSyncConfig(cfg); err != nil {
		return nil, err
	}
	if err := s.repo.SaveSyncConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save sync config: %w", err)
	}

	s.logger.Info("sync config saved", "collection_id", cfg.CollectionID)
	return viewOf(cfg), nil
}

// DeleteSyncConfig forgets the stored credentials.
func (s *SettingsService) DeleteSyncConfig(ctx context.Context) error {
	if err := s.repo.DeleteSyncConfig(ctx); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete sync config: %w", err)
	}
	return nil
}

// ShareToken encodes the stored config.
func (s *SettingsService) ShareToken(ctx context.Context) (*ShareToken, error) {
	cfg, err := s.repo.GetSyncConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("sync is not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("get sync config: %w", err)
	}

	token, err := vault.Encode(*cfg)
	if err != nil {
		return nil, fmt.Errorf("encode share token: %w", err)
	}
	return &ShareToken{Token: token}, nil
}

// ImportShareToken decodes token and stores the config it carries.
func (s *SettingsService) ImportShareToken(ctx context.Context, token string) (*SyncConfigView, error) {
	cfg, err := vault.Decode(strings.TrimSpace(token))
	if err != nil {
		return nil, domainerrors.Validation("invalid share token").WithCause(err)
	}
	return s.SaveSyncConfig(ctx, SyncConfigRequest{Secret: cfg.Secret, CollectionID: cfg.CollectionID})
}

func viewOf(cfg *domain.SyncConfig) *SyncConfigView {
	v := &SyncConfigView{
		Configured:   cfg.IsComplete(),
		MaskedSecret: cfg.MaskedSecret(),
		CollectionID: cfg.CollectionID,
	}
	if !cfg.UpdatedAt.IsZero() {
		t := cfg.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}
