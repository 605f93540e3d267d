// internal/events/events.go
// Change-notification fan-out between the coordination core and
// subscribed clients. Services publish events after a successful
// mutation; every hub instance rebroadcasts them to its websocket
// subscribers, so a multi-instance deployment stays consistent.

package events

import (
    "context"
    "encoding/json"
    "time"
)

// Event types
const (
    TypeMessageNew        = "message.new"
    TypeMessageStatus     = "message.status"
    TypeMessageReaction   = "message.reaction"
    TypeMessageDeleted    = "message.deleted"
    TypeTypingStart       = "typing.start"
    TypeTypingStop        = "typing.stop"
    TypePresence          = "presence"
    TypeConversationNew   = "conversation.new"
    TypeRequestNew        = "request.new"
    TypeRequestResolved   = "request.resolved"
    TypeGroupMembership   = "group.membership"
    TypeSettingsChanged   = "settings.changed"
)

// Event is one change notification.
// ConversationID routes to conversation subscribers; UserIDs routes
// to specific users (presence updates, request notifications).
type Event struct {
    Type           string          `json:"type"`
    ConversationID string          `json:"conversation_id,omitempty"`
    UserIDs        []string        `json:"user_ids,omitempty"`
    Payload        json.RawMessage `json:"payload,omitempty"`
    Timestamp      time.Time       `json:"timestamp"`
}

// Publisher is the write side of the bus
type Publisher interface {
    Publish(ctx context.Context, event Event) error
}

// Bus is a full pub/sub bus. Subscribe returns a channel of events and
// a cancel function; the channel closes after cancel.
type Bus interface {
    Publisher
    Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// NewEvent builds an event with a marshaled payload and current timestamp
func NewEvent(eventType string, payload interface{}) Event {
    e := Event{
        Type:      eventType,
        Timestamp: time.Now().UTC(),
    }
    if payload != nil {
        if data, err := json.Marshal(payload); err == nil {
            e.Payload = data
        }
    }
    return e
}
