package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/readingnook/readingnook-server/internal/domain"
)

// GetSyncConfig returns the stored sync credentials, or ErrNotFound.
func (s *Store) GetSyncConfig(ctx context.Context) (*domain.SyncConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cfg domain.SyncConfig
	if err := s.get([]byte(syncConfigKey), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveSyncConfig stores the sync credentials.
func (s *Store) SaveSyncConfig(ctx context.Context, cfg *domain.SyncConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := *cfg
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	return s.set([]byte(syncConfigKey), &c)
}

// DeleteSyncConfig forgets the sync credentials.
func (s *Store) DeleteSyncConfig(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(syncConfigKey))
}

// GetLastSync returns the outcome of the last successful sync, or ErrNotFound.
func (s *Store) GetLastSync(ctx context.Context) (*domain.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result domain.SyncResult
	if err := s.get([]byte(lastSyncKey), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveLastSync records the outcome of a successful sync.
func (s *Store) SaveLastSync(ctx context.Context, result *domain.SyncResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(lastSyncKey), result)
}

// RevokeToken marks a curator token id as revoked. The entry expires with
// the token, so Badger drops it once the token could no longer verify anyway.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tokenID == "" {
		return ErrInvalidInput.WithCause(errors.New("token id is empty"))
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	key := recordKey(revokedTokenPrefix, tokenID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, []byte{1}).WithTTL(ttl))
	})
}

// IsTokenRevoked reports whether a token id was revoked and has not expired.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists(recordKey(revokedTokenPrefix, tokenID))
}

// HasSyncConfig reports whether credentials are stored.
func (s *Store) HasSyncConfig(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists([]byte(syncConfigKey))
}
