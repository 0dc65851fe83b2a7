// Package store persists the book collection and server settings.
//
// Two backends implement Repository: the default Badger key-value store in
// this package and the SQLite store in store/sqlite.
package store

import (
	"context"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
)

// Repository defines every persistence operation the services need.
type Repository interface {
	Close() error

	// Books
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookBySource(ctx context.Context, sourceID string) (*domain.Book, error)
	CreateBook(ctx context.Context, book *domain.Book) error
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
	ReplaceBooks(ctx context.Context, books []*domain.Book) error
	CountBooks(ctx context.Context) (int, error)

	// Sync settings
	GetSyncConfig(ctx context.Context) (*domain.SyncConfig, error)
	SaveSyncConfig(ctx context.Context, cfg *domain.SyncConfig) error
	DeleteSyncConfig(ctx context.Context) error
	GetLastSync(ctx context.Context) (*domain.SyncResult, error)
	SaveLastSync(ctx context.Context, result *domain.SyncResult) error

	// Curator tokens revoked by logout, kept until they would have expired
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// EventEmitter broadcasts store changes without depending on the SSE package.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

var _ Repository = (*Store)(nil)
