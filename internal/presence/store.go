// internal/presence/store.go

package presence

import (
    "context"
    "time"
)

// Store keeps the ephemeral presence state. Implementations: Redis for
// production, an in-memory map for tests.
type Store interface {
    SetOnline(ctx context.Context, userID string, at time.Time) error
    SetOffline(ctx context.Context, userID string, at time.Time) error
    Heartbeat(ctx context.Context, userID string, at time.Time) error
    Get(ctx context.Context, userID string) (*Presence, error)
    GetMany(ctx context.Context, userIDs []string) ([]*Presence, error)
}
