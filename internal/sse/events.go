// Package sse implements the event bus: typed change events delivered in
// order to in-process subscribers and to HTTP clients via Server-Sent Events.
package sse

import (
	"time"

	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// EventType represents the type of an Event.
type EventType string

const (
	// EventTagCreated is emitted after a tag is added to the registry.
	EventTagCreated EventType = "tag.created"
	// EventTagUpdated is emitted after a tag is renamed or recolored.
	EventTagUpdated EventType = "tag.updated"
	// EventTagDeleted is emitted after a tag is removed from the registry.
	EventTagDeleted EventType = "tag.deleted"
	// EventTagMoved is emitted after the registry display order changes.
	EventTagMoved EventType = "tag.moved"

	// EventPhotoTagged is emitted after an association is saved.
	EventPhotoTagged EventType = "photo.tagged"

	// EventLibraryChanged is emitted when asset files appear or disappear
	// outside the capture flow.
	EventLibraryChanged EventType = "library.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message on the bus.
// Data holds the event-specific payload as a JSON object.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// TagEventData is the payload for tag created/updated events.
type TagEventData struct {
	Tag domain.Tag `json:"tag"`
}

// TagDeletedEventData is the payload for tag deleted events.
type TagDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	TagID     string    `json:"tag_id"`
	Name      string    `json:"name"`
}

// TagMovedEventData is the payload for tag moved events.
// Order lists every tag ID in the new display order.
type TagMovedEventData struct {
	TagID string   `json:"tag_id"`
	From  int      `json:"from"`
	To    int      `json:"to"`
	Order []string `json:"order"`
}

// PhotoTaggedEventData is the payload for photo tagged events.
type PhotoTaggedEventData struct {
	AssetID  string          `json:"asset_id"`
	Snapshot domain.Snapshot `json:"snapshot"`
	Retagged bool            `json:"retagged"`
}

// LibraryChangedEventData is the payload for library changed events.
type LibraryChangedEventData struct {
	ChangedAt time.Time `json:"changed_at"`
	Added     []string  `json:"added,omitempty"`
	Removed   []string  `json:"removed,omitempty"`
}

// HeartbeatEventData is the payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// NewTagCreatedEvent creates a tag.created event.
func NewTagCreatedEvent(tag domain.Tag) Event {
	return newEvent(EventTagCreated, TagEventData{Tag: tag})
}

// NewTagUpdatedEvent creates a tag.updated event.
func NewTagUpdatedEvent(tag domain.Tag) Event {
	return newEvent(EventTagUpdated, TagEventData{Tag: tag})
}

// NewTagDeletedEvent creates a tag.deleted event.
func NewTagDeletedEvent(tag domain.Tag) Event {
	return newEvent(EventTagDeleted, TagDeletedEventData{
		DeletedAt: time.Now(),
		TagID:     tag.ID,
		Name:      tag.Name,
	})
}

// NewTagMovedEvent creates a tag.moved event.
func NewTagMovedEvent(tagID string, from, to int, order []string) Event {
	return newEvent(EventTagMoved, TagMovedEventData{TagID: tagID, From: from, To: to, Order: order})
}

// NewPhotoTaggedEvent creates a photo.tagged event.
func NewPhotoTaggedEvent(assetID string, snap domain.Snapshot, retagged bool) Event {
	return newEvent(EventPhotoTagged, PhotoTaggedEventData{AssetID: assetID, Snapshot: snap, Retagged: retagged})
}

// NewLibraryChangedEvent creates a library.changed event.
func NewLibraryChangedEvent(added, removed []string) Event {
	return newEvent(EventLibraryChanged, LibraryChangedEventData{
		ChangedAt: time.Now(),
		Added:     added,
		Removed:   removed,
	})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, HeartbeatEventData{ServerTime: time.Now()})
}

// ParseEventTypes converts names to known event types.
// Unknown names are returned separately.
func ParseEventTypes(names []string) (types []EventType, unknown []string) {
	for _, n := range names {
		switch t := EventType(n); t {
		case EventTagCreated, EventTagUpdated, EventTagDeleted, EventTagMoved,
			EventPhotoTagged, EventLibraryChanged, EventHeartbeat:
			types = append(types, t)
		default:
			unknown = append(unknown, n)
		}
	}
	return types, unknown
}
