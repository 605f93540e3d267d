// internal/chatrequest/models.go

package chatrequest

import (
    "time"
)

// Request statuses
const (
    StatusPending  = "pending"
    StatusAccepted = "accepted"
    StatusRejected = "rejected"
)

// ChatRequest asks a verified recipient to accept first contact from
// an unverified sender. While it is pending the direct conversation
// stays locked and invisible to the recipient.
type ChatRequest struct {
    ID             string     `json:"id" db:"id"`
    ConversationID string     `json:"conversation_id" db:"conversation_id"`
    FromUserID     string     `json:"from_user_id" db:"from_user_id"`
    ToUserID       string     `json:"to_user_id" db:"to_user_id"`
    Status         string     `json:"status" db:"status"`
    CreatedAt      time.Time  `json:"created_at" db:"created_at"`
    ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// SendRequest is the payload for creating a chat request
type SendRequest struct {
    ToUserID string `json:"to_user_id" validate:"required"`
}
