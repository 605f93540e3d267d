// internal/messaging/repository.go

package messaging

import (
    "context"
)

// Repository defines the interface for messaging data operations
type Repository interface {
    // Conversations
    EnsureDirect(ctx context.Context, creatorID, otherID string) (*Conversation, error)
    GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
    ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, error)
    IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
    Participants(ctx context.Context, conversationID string) ([]string, error)
    Unlock(ctx context.Context, conversationID string) error
    HasMessages(ctx context.Context, conversationID string) (bool, error)

    // Messages
    CreateMessage(ctx context.Context, message *Message) error
    GetMessage(ctx context.Context, conversationID string, messageID int64) (*Message, error)
    ListMessages(ctx context.Context, conversationID, viewerID string, limit int, beforeID int64) ([]*Message, error)
    AdvanceStatus(ctx context.Context, conversationID string, messageID int64, status string) (bool, error)

    // Reactions and deletions
    ToggleReaction(ctx context.Context, messageID int64, userID, emoji string) (string, error)
    MessageReactions(ctx context.Context, messageIDs []int64) (map[int64]map[string]string, error)
    AddDeletion(ctx context.Context, messageID int64, userID string) error
    MarkDeletedForEveryone(ctx context.Context, conversationID string, messageID int64, senderID string) (bool, error)
}
