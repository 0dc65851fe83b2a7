package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/domain"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/notion"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/vault"
)

const (
	testSecret       = "secret_abcdefghijklmnop"
	testCollectionID = "0123456789abcdef0123456789abcdef"
)

type fakeSyncer struct {
	mu      sync.Mutex
	books   []*domain.Book
	err     error
	block   chan struct{}
	started chan struct{}
	calls   []string
}

func (f *fakeSyncer) Sync(ctx context.Context, secret, collectionID string) ([]*domain.Book, error) {
	f.mu.Lock()
	f.calls = append(f.calls, secret+"|"+collectionID)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.books, f.err
}

func newTestSyncService(env *testEnv, syncer Syncer) *SyncService {
	return NewSyncService(syncer, env.repo, env.library, env.index, env.events, env.metrics, time.Second, testLogger())
}

func TestSyncService_RunReplacesLibrary(t *testing.T) {
	env := newTestEnv(t)
	seedBooks(t, env, importedBook("local", "Old", "Someone", domain.StatusReading, 1))

	syncer := &fakeSyncer{books: []*domain.Book{
		importedBook("p1", "Dune", "Frank Herbert", domain.StatusReading, 200),
		importedBook("p2", "三體", "劉慈欣", domain.StatusCompleted, 100),
	}}
	svc := newTestSyncService(env, syncer)
	ctx := context.Background()

	result, err := svc.Run(ctx, SyncRequest{Secret: testSecret, CollectionID: testCollectionID})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Replaced)

	_, err = env.books.Get(ctx, "local")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound, "previous collection is discarded")

	stored, err := env.repo.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	count, err := env.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	cfg, err := env.repo.GetSyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Secret, "request credentials are stored")

	last, err := env.repo.GetLastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, last.Imported)

	assert.Equal(t, []sse.EventType{sse.EventSyncStarted, sse.EventSyncCompleted, sse.EventLibraryReplaced}, env.events.Types())
	assert.Equal(t, []bool{true, false}, env.events.history)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SyncTotal.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestSyncService_RunUsesStoredConfig(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.repo.SaveSyncConfig(ctx, &domain.SyncConfig{Secret: testSecret, CollectionID: testCollectionID}))

	syncer := &fakeSyncer{books: []*domain.Book{}}
	_, err := newTestSyncService(env, syncer).Run(ctx, SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{testSecret + "|" + testCollectionID}, syncer.calls)
}

func TestSyncService_RunWithoutConfig(t *testing.T) {
	env := newTestEnv(t)
	_, err := newTestSyncService(env, &fakeSyncer{}).Run(context.Background(), SyncRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSyncService_RunRejectsShortCredentials(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{}

	_, err := newTestSyncService(env, syncer).Run(context.Background(), SyncRequest{Secret: "abc", CollectionID: "short"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, map[string]string{
		"secret":        "must be at least 6 characters",
		"collection_id": "must be at least 11 characters",
	}, domainErr.Details)
	assert.Empty(t, syncer.calls)
}

func TestSyncService_FailureLeavesCollection(t *testing.T) {
	env := newTestEnv(t)
	seedBooks(t, env, importedBook("keep", "Dune", "Frank Herbert", domain.StatusReading, 1))

	syncer := &fakeSyncer{err: &notion.SyncError{Kind: notion.KindCollectionNotFound, Message: "【找不到資料庫】"}}
	_, err := newTestSyncService(env, syncer).Run(context.Background(), SyncRequest{Secret: testSecret, CollectionID: testCollectionID})

	require.ErrorIs(t, err, domainerrors.ErrUpstream)
	assert.ErrorIs(t, err, notion.ErrCollectionNotFound)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "【找不到資料庫】", domainErr.Message)
	assert.Equal(t, SyncFailure{Kind: "SYNC_COLLECTION_NOT_FOUND"}, domainErr.Details)

	assert.Equal(t, 1, env.library.Len())
	assert.Equal(t, []sse.EventType{sse.EventSyncStarted, sse.EventSyncFailed}, env.events.Types())
	assert.False(t, env.events.IsSyncing())

	_, err = env.repo.GetSyncConfig(context.Background())
	assert.Error(t, err, "credentials of a failed sync are not stored")
}

func TestSyncService_InvalidCredentialOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestEnv(t)
	seedBooks(t, env, importedBook("keep", "Dune", "Frank Herbert", domain.StatusReading, 1))
	client := notion.NewClient(notion.Options{BaseURL: srv.URL}, nil, testLogger())

	_, err := newTestSyncService(env, client).Run(context.Background(), SyncRequest{Secret: testSecret, CollectionID: testCollectionID})
	require.Error(t, err)
	assert.ErrorIs(t, err, notion.ErrInvalidCredential)

	books, err := env.books.List(context.Background(), domain.ViewFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "keep", books[0].ID)
}

func TestSyncService_ImportsNotionPagesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testSecret, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"results": [{
			"id": "page-dune",
			"created_time": "2024-01-02T03:04:05.000Z",
			"properties": {
				"書名": {"type": "title", "title": [{"plain_text": "Dune"}]},
				"作者": {"type": "rich_text", "rich_text": [{"plain_text": "Frank Herbert"}]},
				"狀態": {"type": "select", "select": {"name": "☑️ 閱讀完畢"}},
				"推薦指數": {"type": "select", "select": {"name": "⭐⭐⭐"}},
				"類別": {"type": "multi_select", "multi_select": [{"name": "科幻"}]}
			}
		}], "has_more": false}`)
	}))
	defer srv.Close()

	env := newTestEnv(t)
	seedBooks(t, env, importedBook("old", "Emma", "Jane Austen", domain.StatusReading, 1))
	client := notion.NewClient(notion.Options{BaseURL: srv.URL}, nil, testLogger())

	result, err := newTestSyncService(env, client).Run(context.Background(), SyncRequest{Secret: testSecret, CollectionID: testCollectionID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Replaced)

	books, err := env.repo.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	book := books[0]
	assert.Equal(t, "page-dune", book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, domain.StatusCompleted, book.Status)
	assert.Equal(t, 3, book.Rating)
	assert.Equal(t, []string{"科幻"}, book.Tags)

	got, err := env.books.Get(context.Background(), "page-dune")
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	cfg, err := env.repo.GetSyncConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testCollectionID, cfg.CollectionID)
}

func TestSyncService_ConcurrentSyncConflicts(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{
		books:   []*domain.Book{},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	svc := newTestSyncService(env, syncer)
	req := SyncRequest{Secret: testSecret, CollectionID: testCollectionID}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), req)
		done <- err
	}()
	<-syncer.started
	assert.True(t, env.events.IsSyncing())

	_, err := svc.Run(context.Background(), req)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	close(syncer.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SyncTotal.WithLabelValues(metrics.OutcomeConflict)))
}

func TestSyncService_AutoSync(t *testing.T) {
	env := newTestEnv(t)
	seedBooks(t, env, importedBook("keep", "Dune", "Frank Herbert", domain.StatusReading, 1))

	token, err := vault.Encode(domain.SyncConfig{Secret: testSecret, CollectionID: testCollectionID})
	require.NoError(t, err)

	failing := &fakeSyncer{err: errors.New("network down")}
	newTestSyncService(env, failing).AutoSync(context.Background(), token)
	assert.Equal(t, 1, env.library.Len(), "failed auto sync keeps the stored library")

	newTestSyncService(env, &fakeSyncer{}).AutoSync(context.Background(), "garbage!")
	assert.Equal(t, 1, env.library.Len())

	ok := &fakeSyncer{books: []*domain.Book{
		importedBook("p1", "A", "x", domain.StatusReading, 2),
		importedBook("p2", "B", "x", domain.StatusReading, 1),
	}}
	newTestSyncService(env, ok).AutoSync(context.Background(), token)
	assert.Equal(t, 2, env.library.Len())

	_, err = env.repo.GetSyncConfig(context.Background())
	assert.Error(t, err, "auto sync does not store the public credentials")
}

func TestSyncService_Status(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestSyncService(env, &fakeSyncer{books: []*domain.Book{}})
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Syncing)
	assert.Nil(t, status.LastSync)

	_, err = svc.Run(ctx, SyncRequest{Secret: testSecret, CollectionID: testCollectionID})
	require.NoError(t, err)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.LastSync)
	assert.Zero(t, status.LastSync.Imported)
}
