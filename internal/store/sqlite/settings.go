package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/store"
)

// GetSyncConfig returns the stored sync credentials, or store.ErrNotFound.
func (s *Store) GetSyncConfig(ctx context.Context) (*domain.SyncConfig, error) {
	var cfg domain.SyncConfig
	if err := s.getSetting(ctx, keySyncConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveSyncConfig stores the sync credentials.
func (s *Store) SaveSyncConfig(ctx context.Context, cfg *domain.SyncConfig) error {
	c := *cfg
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	return s.setSetting(ctx, keySyncConfig, &c)
}

// DeleteSyncConfig forgets the sync credentials.
func (s *Store) DeleteSyncConfig(ctx context.Context) error {
	return s.deleteSetting(ctx, keySyncConfig)
}

// GetLastSync returns the outcome of the last successful sync.
func (s *Store) GetLastSync(ctx context.Context) (*domain.SyncResult, error) {
	var result domain.SyncResult
	if err := s.getSetting(ctx, keyLastSync, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveLastSync records the outcome of a successful sync.
func (s *Store) SaveLastSync(ctx context.Context, result *domain.SyncResult) error {
	return s.setSetting(ctx, keyLastSync, result)
}

// RevokeToken marks a curator token id as revoked until expiresAt. Rows
// for tokens that have since expired are pruned on the way.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return store.ErrInvalidInput.WithCause(errors.New("token id is empty"))
	}
	now := time.Now().UnixMilli()
	if expiresAt.UnixMilli() <= now {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, now); err != nil {
		return fmt.Errorf("prune revoked tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)`,
		tokenID, expiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return tx.Commit()
}

// IsTokenRevoked reports whether a token id was revoked and has not expired.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ? AND expires_at > ?`,
		tokenID, time.Now().UnixMilli()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
