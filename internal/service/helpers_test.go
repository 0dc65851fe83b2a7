package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/search"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingEvents captures emitted events and the syncing indicator.
type recordingEvents struct {
	mu      sync.Mutex
	types   []sse.EventType
	syncing bool
	history []bool
}

func (r *recordingEvents) Emit(event any) {
	e, ok := event.(sse.Event)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
}

func (r *recordingEvents) SetSyncing(syncing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncing = syncing
	r.history = append(r.history, syncing)
}

func (r *recordingEvents) IsSyncing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncing
}

func (r *recordingEvents) Types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sse.EventType(nil), r.types...)
}

type fakeCovers struct {
	calls []string
}

func (f *fakeCovers) Blurhash(_ context.Context, url string) string {
	f.calls = append(f.calls, url)
	return "LEHV6nWB2yk8pyo0adR*.7kCMdnj"
}

// testEnv wires the services over an in-memory store and index.
type testEnv struct {
	repo    *store.Store
	events  *recordingEvents
	library *library.Library
	index   *search.SearchIndex
	covers  *fakeCovers
	metrics *metrics.Metrics
	books   *BookService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	events := &recordingEvents{}
	repo, err := store.NewInMemory(testLogger(), events)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	env := &testEnv{
		repo:    repo,
		events:  events,
		library: library.New(),
		index:   index,
		covers:  &fakeCovers{},
		metrics: metrics.New(),
	}
	env.books = NewBookService(repo, env.library, index, env.covers, validation.New(), env.metrics, testLogger())
	return env
}

func seedBooks(t *testing.T, env *testEnv, books ...*domain.Book) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.repo.ReplaceBooks(ctx, books))
	require.NoError(t, env.books.Warm(ctx))
}

func importedBook(id, title, author string, status domain.ReadingStatus, addedAt int64) *domain.Book {
	return &domain.Book{
		ID:       id,
		Title:    title,
		Author:   author,
		Status:   status,
		Tags:     []string{},
		AddedAt:  addedAt,
		SourceID: id,
	}
}
