// internal/messaging/models.go

package messaging

import (
    "time"
)

// Conversation types
const (
    ConversationDirect = "direct"
    ConversationGroup  = "group"
)

// Message delivery statuses. Order matters: a status only ever
// advances along this sequence, never backward.
const (
    StatusSent      = "sent"
    StatusDelivered = "delivered"
    StatusSeen      = "seen"
)

// DeletedPlaceholder replaces the text of a message deleted for
// everyone. The replacement is irreversible.
const DeletedPlaceholder = "This message was deleted"

// Conversation represents a chat conversation. Direct conversations
// carry their two participants; group participants live on the group
// roster. Locked marks a direct conversation held behind a pending
// chat request: the recipient cannot see it until approval.
type Conversation struct {
    ID             string    `json:"id" db:"id"`
    Type           string    `json:"type" db:"type"`
    Name           *string   `json:"name,omitempty" db:"name"`
    CreatedBy      string    `json:"created_by" db:"created_by"`
    UserA          *string   `json:"user_a,omitempty" db:"user_a"`
    UserB          *string   `json:"user_b,omitempty" db:"user_b"`
    Locked         bool      `json:"locked" db:"locked"`
    LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
    CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ConversationSummary is one row of the conversation directory,
// ordered by most recent activity
type ConversationSummary struct {
    ID                 string    `json:"id" db:"id"`
    Type               string    `json:"type" db:"type"`
    Name               *string   `json:"name,omitempty" db:"name"`
    CounterpartID      *string   `json:"counterpart_id,omitempty" db:"counterpart_id"`
    Locked             bool      `json:"locked" db:"locked"`
    LastActivityAt     time.Time `json:"last_activity_at" db:"last_activity_at"`
    LastMessagePreview *string   `json:"last_message_preview,omitempty" db:"last_message_preview"`
}

// Message represents a chat message
type Message struct {
    ID                 int64     `json:"id" db:"id"`
    ConversationID     string    `json:"conversation_id" db:"conversation_id"`
    SenderID           string    `json:"sender_id" db:"sender_id"`
    Text               string    `json:"text" db:"text"`
    Status             string    `json:"status" db:"status"`
    DeletedForEveryone bool      `json:"deleted_for_everyone" db:"deleted_for_everyone"`
    CreatedAt          time.Time `json:"created_at" db:"created_at"`

    // Computed fields
    Reactions map[string]string `json:"reactions,omitempty"`
}

// Reaction maps one user to their single active emoji on a message
type Reaction struct {
    MessageID int64  `json:"message_id" db:"message_id"`
    UserID    string `json:"user_id" db:"user_id"`
    Emoji     string `json:"emoji" db:"emoji"`
}

// SendMessageRequest is the payload for message.send. Either an
// existing conversation ID or a direct recipient must be given.
type SendMessageRequest struct {
    ConversationID string `json:"conversation_id,omitempty"`
    RecipientID    string `json:"recipient_id,omitempty"`
    Text           string `json:"text"`
}

// ReactRequest is the payload for message.react
type ReactRequest struct {
    Emoji string `json:"emoji" validate:"required,max=16"`
}

// statusRank orders delivery statuses for the monotonic transition
func statusRank(status string) int {
    switch status {
    case StatusSent:
        return 0
    case StatusDelivered:
        return 1
    case StatusSeen:
        return 2
    default:
        return -1
    }
}
