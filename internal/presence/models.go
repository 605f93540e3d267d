// internal/presence/models.go

package presence

import (
    "time"
)

// Presence is a user's online bit plus last-seen timestamp
type Presence struct {
    UserID   string    `json:"user_id"`
    IsOnline bool      `json:"is_online"`
    LastSeen time.Time `json:"last_seen"`
}
