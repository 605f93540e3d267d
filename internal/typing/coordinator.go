// internal/typing/coordinator.go
// Per-conversation typing indicators. A typing record is an ephemeral
// key with a short TTL: clients refresh it while input is active and
// delete it on send or after 3 seconds of inactivity. The TTL is the
// store-side reaper - a crashed client's indicator clears when its
// record expires, so no server-side timer is needed.

package typing

import (
    "context"
    "log"
    "time"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

// TypingState is one ephemeral (conversation, user) record.
// Absence of a record means "not typing".
type TypingState struct {
    ConversationID string    `json:"conversation_id"`
    UserID         string    `json:"user_id"`
    StartedAt      time.Time `json:"started_at"`
}

// Store holds typing records with automatic expiry
type Store interface {
    Upsert(ctx context.Context, conversationID, userID string, at time.Time) error
    Delete(ctx context.Context, conversationID, userID string) error
    Typists(ctx context.Context, conversationID string) ([]string, error)
}

type Coordinator interface {
    Start(ctx context.Context, conversationID, userID string) error
    Stop(ctx context.Context, conversationID, userID string) error
    Typists(ctx context.Context, conversationID string) ([]string, error)
}

type coordinator struct {
    store Store
    bus   events.Publisher
}

func NewCoordinator(store Store, bus events.Publisher) Coordinator {
    return &coordinator{store: store, bus: bus}
}

func (c *coordinator) Start(ctx context.Context, conversationID, userID string) error {
    if err := c.store.Upsert(ctx, conversationID, userID, time.Now().UTC()); err != nil {
        return err
    }
    c.publish(ctx, events.TypeTypingStart, conversationID, userID)
    return nil
}

func (c *coordinator) Stop(ctx context.Context, conversationID, userID string) error {
    if err := c.store.Delete(ctx, conversationID, userID); err != nil {
        return err
    }
    c.publish(ctx, events.TypeTypingStop, conversationID, userID)
    return nil
}

// Typists returns the users currently typing in a conversation.
// Group subscribers merge this into a count.
func (c *coordinator) Typists(ctx context.Context, conversationID string) ([]string, error) {
    return c.store.Typists(ctx, conversationID)
}

func (c *coordinator) publish(ctx context.Context, eventType, conversationID, userID string) {
    event := events.NewEvent(eventType, map[string]string{
        "conversation_id": conversationID,
        "user_id":         userID,
    })
    event.ConversationID = conversationID
    if err := c.bus.Publish(ctx, event); err != nil {
        log.Printf("Error publishing typing event: %v", err)
    }
}
