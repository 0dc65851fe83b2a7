package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/ai"
	"github.com/readingnook/readingnook-server/internal/auth"
	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/googlebooks"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/search"
	"github.com/readingnook/readingnook-server/internal/service"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/validation"
)

const (
	testPassword     = "openopen"
	testSecret       = "secret_abcdefghijklmnop"
	testCollectionID = "0123456789abcdef0123456789abcdef"
)

// stubSyncer returns a canned collection or error.
type stubSyncer struct {
	mu    sync.Mutex
	books []*domain.Book
	err   error
	calls int
}

func (s *stubSyncer) Sync(_ context.Context, _, _ string) ([]*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.books, nil
}

type stubVolumes struct {
	items []googlebooks.Volume
}

func (s *stubVolumes) Search(_ context.Context, _ string) []googlebooks.Volume {
	return s.items
}

type stubSuggester struct {
	enabled    bool
	suggestion ai.Suggestion
}

func (s *stubSuggester) Enabled() bool { return s.enabled }

func (s *stubSuggester) Suggest(_ context.Context, _, _ string) ai.Suggestion {
	return s.suggestion
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api       humatest.TestAPI
	repo      *store.Store
	syncer    *stubSyncer
	volumes   *stubVolumes
	suggester *stubSuggester
}

// testEnvelope mirrors response.Envelope with typed data.
type testEnvelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer creates a server over an in-memory store and index with
// stubbed upstreams.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()

	sseManager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go sseManager.Start(ctx)
	t.Cleanup(cancel)

	repo, err := store.NewInMemory(logger, sseManager)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	index, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	m := metrics.New()
	lib := library.New()
	syncer := &stubSyncer{}
	volumes := &stubVolumes{}
	suggester := &stubSuggester{}

	books := service.NewBookService(repo, lib, index, nil, validation.New(), m, logger)
	services := &Services{
		Auth:     service.NewAuthService(repo, tokens, hash, nil, logger),
		Book:     books,
		Sync:     service.NewSyncService(syncer, repo, lib, index, sseManager, m, time.Second, logger),
		Settings: service.NewSettingsService(repo, logger),
		Assist:   service.NewAssistService(volumes, suggester, books, m, logger),
	}
	require.NoError(t, books.Warm(context.Background()))

	s := NewServer(repo, index, services, sse.NewHandler(sseManager, logger), sseManager, m, Options{Version: "test"}, logger)

	return &testServer{
		Server:    s,
		api:       humatest.Wrap(t, s.API()),
		repo:      repo,
		syncer:    syncer,
		volumes:   volumes,
		suggester: suggester,
	}
}

// login returns an Authorization header value for the curator.
func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{"password": testPassword})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decodeEnvelope[service.LoginResponse](t, resp)
	require.NotEmpty(t, env.Data.Token)
	return "Authorization: Bearer " + env.Data.Token
}

// createBook adds a book through the API and returns it.
func (ts *testServer) createBook(t *testing.T, authHeader string, body map[string]any) *domain.Book {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", authHeader, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[*domain.Book](t, resp).Data
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}
