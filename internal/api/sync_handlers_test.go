package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/notion"
	"github.com/readingnook/readingnook-server/internal/service"
)

func TestRunSync_ReplacesLibrary(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t)

	ts.createBook(t, authHeader, map[string]any{"title": "Local", "author": "Me", "status": "READING"})
	ts.syncer.books = []*domain.Book{
		{ID: "page-1", Title: "Dune", Author: "Frank Herbert", Status: domain.StatusReading, Tags: []string{}, AddedAt: 2, SourceID: "page-1"},
		{ID: "page-2", Title: "Emma", Author: "Jane Austen", Status: domain.StatusCompleted, Tags: []string{}, AddedAt: 1, SourceID: "page-2"},
	}

	resp := ts.api.Post("/api/v1/sync", authHeader, map[string]any{
		"secret":        testSecret,
		"collection_id": testCollectionID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decodeEnvelope[domain.SyncResult](t, resp).Data
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Replaced)

	resp = ts.api.Get("/api/v1/books")
	list := decodeEnvelope[BookListResponse](t, resp).Data
	require.Len(t, list.Books, 2)
	assert.Equal(t, "Dune", list.Books[0].Title)

	// Credentials from a successful sync are stored, so an empty body reuses them.
	resp = ts.api.Post("/api/v1/sync", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 2, ts.syncer.calls)

	resp = ts.api.Get("/api/v1/sync/status")
	require.Equal(t, http.StatusOK, resp.Code)
	status := decodeEnvelope[service.SyncStatus](t, resp).Data
	assert.False(t, status.Syncing)
	require.NotNil(t, status.LastSync)
	assert.Equal(t, 2, status.LastSync.Imported)
}

func TestRunSync_RequiresCurator(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/sync", map[string]any{"secret": testSecret, "collection_id": testCollectionID})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, ts.syncer.calls)
}

func TestRunSync_NotConfigured(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t)

	resp := ts.api.Post("/api/v1/sync", authHeader)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "sync is not configured", decodeEnvelope[any](t, resp).Error)
	assert.Zero(t, ts.syncer.calls)
}

func TestRunSync_EmptyBodyUsesStoredConfig(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t)

	resp := ts.api.Put("/api/v1/sync/config", authHeader, map[string]any{
		"secret":        testSecret,
		"collection_id": testCollectionID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	ts.syncer.books = []*domain.Book{
		{ID: "page-1", Title: "Dune", Author: "Frank Herbert", Status: domain.StatusReading, Tags: []string{}, AddedAt: 1, SourceID: "page-1"},
	}

	resp = ts.api.Post("/api/v1/sync", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, decodeEnvelope[domain.SyncResult](t, resp).Data.Imported)
	assert.Equal(t, 1, ts.syncer.calls)
}

func TestRunSync_FailureKeepsLibrary(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t)

	ts.createBook(t, authHeader, map[string]any{"title": "Local", "author": "Me", "status": "READING"})
	ts.syncer.err = &notion.SyncError{Kind: notion.KindInvalidCredential, Message: "bad secret"}

	resp := ts.api.Post("/api/v1/sync", authHeader, map[string]any{
		"secret":        testSecret,
		"collection_id": testCollectionID,
	})
	require.Equal(t, http.StatusBadGateway, resp.Code, resp.Body.String())

	env := decodeEnvelope[any](t, resp)
	assert.Equal(t, "UPSTREAM", env.Code)
	assert.Equal(t, "bad secret", env.Error)
	assert.Equal(t, "SYNC_INVALID_CREDENTIAL", env.Details["kind"])

	books, err := ts.repo.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Local", books[0].Title)

	resp = ts.api.Get("/api/v1/sync/config", authHeader)
	assert.False(t, decodeEnvelope[service.SyncConfigView](t, resp).Data.Configured, "failed credentials are not stored")
}

func TestSyncConfigAndShareToken(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t)

	resp := ts.api.Get("/api/v1/sync/token", authHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Put("/api/v1/sync/config", authHeader, map[string]any{
		"secret":        testSecret,
		"collection_id": testCollectionID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	view := decodeEnvelope[service.SyncConfigView](t, resp).Data
	assert.True(t, view.Configured)
	assert.NotEqual(t, testSecret, view.MaskedSecret)

	resp = ts.api.Get("/api/v1/sync/token", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	token := decodeEnvelope[service.ShareToken](t, resp).Data.Token
	require.NotEmpty(t, token)

	resp = ts.api.Delete("/api/v1/sync/config", authHeader)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Post("/api/v1/sync/token", authHeader, map[string]any{"token": token})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, testCollectionID, decodeEnvelope[service.SyncConfigView](t, resp).Data.CollectionID)

	resp = ts.api.Post("/api/v1/sync/token", authHeader, map[string]any{"token": "garbage!"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Put("/api/v1/sync/config", authHeader, map[string]any{"secret": "short", "collection_id": "tiny"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeEnvelope[any](t, resp)
	assert.Contains(t, env.Details, "secret")
	assert.Contains(t, env.Details, "collection_id")
}

func TestSyncConfig_RequiresCurator(t *testing.T) {
	ts := setupTestServer(t)

	for _, resp := range []int{
		ts.api.Get("/api/v1/sync/config").Code,
		ts.api.Put("/api/v1/sync/config", map[string]any{"secret": testSecret, "collection_id": testCollectionID}).Code,
		ts.api.Get("/api/v1/sync/token").Code,
		ts.api.Post("/api/v1/sync/token", map[string]any{"token": "x"}).Code,
	} {
		assert.Equal(t, http.StatusUnauthorized, resp)
	}
}
