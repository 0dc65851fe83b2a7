// Package sse implements Server-Sent Events for live library updates.
package sse

import (
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookCreated is sent when a curator adds a book.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated is sent when a curator edits a book.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted is sent when a curator removes a book.
	EventBookDeleted EventType = "book.deleted"

	// EventLibraryReplaced is sent after a sync replaces the whole collection.
	EventLibraryReplaced EventType = "library.replaced"

	// EventSyncStarted is sent when an import begins.
	EventSyncStarted EventType = "sync.started"
	// EventSyncCompleted is sent when an import succeeds.
	EventSyncCompleted EventType = "sync.completed"
	// EventSyncFailed is sent when an import fails. The collection is unchanged.
	EventSyncFailed EventType = "sync.failed"

	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	ID        uint64    `json:"id,omitzero"` // assigned on broadcast; zero for heartbeats
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// BookEventData is the payload of book.created and book.updated.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the payload of book.deleted.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// LibraryReplacedEventData is the payload of library.replaced.
type LibraryReplacedEventData struct {
	ReplacedAt time.Time    `json:"replaced_at"`
	Stats      domain.Stats `json:"stats"`
}

// SyncStartedEventData is the payload of sync.started.
type SyncStartedEventData struct {
	StartedAt time.Time `json:"started_at"`
}

// SyncCompletedEventData is the payload of sync.completed.
type SyncCompletedEventData struct {
	CompletedAt time.Time `json:"completed_at"`
	Imported    int       `json:"imported"`
	Replaced    int       `json:"replaced"`
	DurationMS  int64     `json:"duration_ms"`
}

// SyncFailedEventData is the payload of sync.failed.
type SyncFailedEventData struct {
	FailedAt time.Time `json:"failed_at"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
}

// HeartbeatEventData is the payload of heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookCreatedEvent creates a book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
	}
}

// NewBookUpdatedEvent creates a book.updated event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
	}
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(bookID string) Event {
	now := time.Now()
	return Event{
		Type:      EventBookDeleted,
		Data:      BookDeletedEventData{BookID: bookID, DeletedAt: now},
		Timestamp: now,
	}
}

// NewLibraryReplacedEvent creates a library.replaced event.
func NewLibraryReplacedEvent(stats domain.Stats) Event {
	now := time.Now()
	return Event{
		Type:      EventLibraryReplaced,
		Data:      LibraryReplacedEventData{ReplacedAt: now, Stats: stats},
		Timestamp: now,
	}
}

// NewSyncStartedEvent creates a sync.started event.
func NewSyncStartedEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventSyncStarted,
		Data:      SyncStartedEventData{StartedAt: now},
		Timestamp: now,
	}
}

// NewSyncCompletedEvent creates a sync.completed event.
func NewSyncCompletedEvent(result *domain.SyncResult) Event {
	return Event{
		Type: EventSyncCompleted,
		Data: SyncCompletedEventData{
			CompletedAt: result.CompletedAt,
			Imported:    result.Imported,
			Replaced:    result.Replaced,
			DurationMS:  result.Duration.Milliseconds(),
		},
		Timestamp: time.Now(),
	}
}

// NewSyncFailedEvent creates a sync.failed event.
func NewSyncFailedEvent(code, message string) Event {
	now := time.Now()
	return Event{
		Type:      EventSyncFailed,
		Data:      SyncFailedEventData{FailedAt: now, Code: code, Message: message},
		Timestamp: now,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
