package sse

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/domain"
)

func testManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m, cancel
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestManager_BroadcastsToClients(t *testing.T) {
	m, _ := testManager(t)

	a, err := m.Connect()
	require.NoError(t, err)
	b, err := m.Connect()
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewBookDeletedEvent("book-1"))

	for _, c := range []*Client{a, b} {
		e := receive(t, c)
		assert.Equal(t, EventBookDeleted, e.Type)
		assert.Equal(t, "book-1", e.Data.(BookDeletedEventData).BookID)
	}

	m.Disconnect(a.ID)
	m.Disconnect(a.ID)
	assert.Equal(t, 1, m.ClientCount())
}

func TestManager_SyncIndicator(t *testing.T) {
	m, _ := testManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	assert.False(t, m.IsSyncing())

	m.Emit(NewSyncStartedEvent())
	receive(t, c)
	assert.True(t, m.IsSyncing())

	m.Emit(NewSyncFailedEvent("SYNC_INVALID_CREDENTIAL", "bad"))
	receive(t, c)
	assert.False(t, m.IsSyncing())

	m.SetSyncing(true)
	m.Emit(NewSyncCompletedEvent(&domain.SyncResult{Imported: 3, CompletedAt: time.Now()}))
	e := receive(t, c)
	assert.Equal(t, 3, e.Data.(SyncCompletedEventData).Imported)
	assert.False(t, m.IsSyncing())
}

func TestManager_EmitIgnoresForeignValues(t *testing.T) {
	m, _ := testManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit("not an event")
	m.Emit(NewBookDeletedEvent("b"))

	assert.Equal(t, EventBookDeleted, receive(t, c).Type)
}

func TestManager_ShutdownDropsLateEvents(t *testing.T) {
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })
}

func TestHandler_StreamsEvents(t *testing.T) {
	m, _ := testManager(t)
	server := httptest.NewServer(NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"is_syncing":false`)
	_, _ = reader.ReadString('\n')

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	m.Emit(NewBookDeletedEvent("book-9"))

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "id: 1\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: book.deleted\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, "book-9")
}

func TestManager_TopicFilter(t *testing.T) {
	m, _ := testManager(t)

	all, err := m.Connect()
	require.NoError(t, err)
	syncOnly, err := m.Connect("sync", " ")
	require.NoError(t, err)

	m.Emit(NewBookDeletedEvent("book-1"))
	m.Emit(NewSyncStartedEvent())

	assert.Equal(t, EventBookDeleted, receive(t, all).Type)
	assert.Equal(t, EventSyncStarted, receive(t, all).Type)
	assert.Equal(t, EventSyncStarted, receive(t, syncOnly).Type)

	assert.True(t, syncOnly.Wants(EventHeartbeat))
	assert.False(t, syncOnly.Wants(EventLibraryReplaced))
	assert.True(t, all.Wants(EventLibraryReplaced))
}

func TestManager_NumbersEvents(t *testing.T) {
	m, _ := testManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewBookDeletedEvent("a"))
	m.Emit(NewBookDeletedEvent("b"))

	first, second := receive(t, c), receive(t, c)
	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)
}

func TestParseTopics(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?topics=book,%20sync&topics=library&topics=", nil)
	assert.Equal(t, []string{"book", "sync", "library"}, parseTopics(r))

	assert.Nil(t, parseTopics(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m, _ := testManager(t)
	rec := httptest.NewRecorder()
	NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil))).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
