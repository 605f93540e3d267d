// internal/messaging/service.go

package messaging

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "strings"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/typing"
)

// Feature flags consulted before the optional message operations
const (
    flagReactions = "enable_message_reactions"
    flagDeletion  = "enable_message_deletion"
)

// PolicyGuard answers the operational questions every write goes
// through: maintenance state, actor standing and feature flags.
type PolicyGuard interface {
    EnsureOperational(ctx context.Context, userID string) error
    FeatureEnabled(ctx context.Context, flag string) bool
}

// RequestGate holds first-contact messages behind an approval step.
// Implemented by the chat request service and wired in after
// construction.
type RequestGate interface {
    RequireApproval(ctx context.Context, conversationID, fromID, toID string) error
    PendingFor(ctx context.Context, userID string) (json.RawMessage, error)
}

// GroupGate reports whether a group conversation is currently
// suspended
type GroupGate interface {
    IsSuspended(ctx context.Context, groupID string) (bool, error)
}

// Service defines the interface for messaging business logic
type Service interface {
    SendMessage(ctx context.Context, senderID string, req *SendMessageRequest) (*Message, error)
    ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, error)
    ListMessages(ctx context.Context, conversationID, viewerID string, limit int, beforeID int64) ([]*Message, error)
    MarkDelivered(ctx context.Context, conversationID string, messageID int64, viewerID string) error
    MarkSeen(ctx context.Context, conversationID string, messageID int64, viewerID string) error
    React(ctx context.Context, conversationID string, messageID int64, userID, emoji string) (string, error)
    DeleteForMe(ctx context.Context, conversationID string, messageID int64, userID string) error
    DeleteForEveryone(ctx context.Context, conversationID string, messageID int64, userID string) error

    StartTyping(ctx context.Context, conversationID, userID string) error
    StopTyping(ctx context.Context, conversationID, userID string) error
    Typists(ctx context.Context, conversationID string) ([]string, error)

    IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
    Participants(ctx context.Context, conversationID string) ([]string, error)
    PendingRequests(ctx context.Context, userID string) (json.RawMessage, error)

    SetGate(gate RequestGate)
    SetGroupGate(groups GroupGate)
}

type messagingService struct {
    repo   Repository
    guard  PolicyGuard
    typing typing.Coordinator
    bus    events.Publisher
    gate   RequestGate
    groups GroupGate
}

// NewService creates a new messaging service
func NewService(repo Repository, guard PolicyGuard, typingCoordinator typing.Coordinator, bus events.Publisher) Service {
    return &messagingService{
        repo:   repo,
        guard:  guard,
        typing: typingCoordinator,
        bus:    bus,
    }
}

// SetGate wires the chat request gate after construction
func (s *messagingService) SetGate(gate RequestGate) {
    s.gate = gate
}

// SetGroupGate wires the group suspension check after construction
func (s *messagingService) SetGroupGate(groups GroupGate) {
    s.groups = groups
}

func (s *messagingService) SendMessage(ctx context.Context, senderID string, req *SendMessageRequest) (*Message, error) {
    if err := s.guard.EnsureOperational(ctx, senderID); err != nil {
        return nil, err
    }

    text := strings.TrimSpace(req.Text)
    if text == "" {
        return nil, apperr.ErrInvalidArgument
    }

    var conversation *Conversation
    var err error
    switch {
    case req.ConversationID != "":
        conversation, err = s.repo.GetConversation(ctx, req.ConversationID)
    case req.RecipientID != "":
        conversation, err = s.repo.EnsureDirect(ctx, senderID, req.RecipientID)
    default:
        return nil, apperr.ErrInvalidArgument
    }
    if err != nil {
        return nil, err
    }

    isParticipant, err := s.repo.IsParticipant(ctx, conversation.ID, senderID)
    if err != nil {
        return nil, err
    }
    if !isParticipant {
        return nil, apperr.ErrUnauthorized
    }

    if conversation.Type == ConversationGroup && s.groups != nil {
        suspended, err := s.groups.IsSuspended(ctx, conversation.ID)
        if err != nil {
            return nil, err
        }
        if suspended {
            return nil, apperr.ErrUnauthorized
        }
    }

    held := false
    if conversation.Locked && conversation.CreatedBy == senderID {
        // First contact through the gate: the message is stored but
        // stays invisible to the recipient until approval.
        otherID := *conversation.UserA
        if otherID == senderID {
            otherID = *conversation.UserB
        }
        if s.gate != nil {
            if err := s.gate.RequireApproval(ctx, conversation.ID, senderID, otherID); err != nil &&
                !errors.Is(err, apperr.ErrDuplicateRequest) {
                return nil, err
            }
        }
        held = true
    }

    message := &Message{
        ConversationID: conversation.ID,
        SenderID:       senderID,
        Text:           text,
    }
    if err := s.repo.CreateMessage(ctx, message); err != nil {
        return nil, err
    }
    recordMessageSent(conversation.Type)

    event := events.NewEvent(events.TypeMessageNew, message)
    if held {
        // Route only to the sender so the recipient never learns of
        // the held message.
        event.UserIDs = []string{senderID}
    } else {
        event.ConversationID = conversation.ID
    }
    s.publish(ctx, event)

    // A new message ends the sender's typing state
    if err := s.typing.Stop(ctx, conversation.ID, senderID); err != nil {
        log.Printf("failed to clear typing state for %s: %v", senderID, err)
    }

    if held {
        return message, apperr.ErrPendingApproval
    }
    return message, nil
}

func (s *messagingService) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, error) {
    if err := s.guard.EnsureOperational(ctx, userID); err != nil {
        return nil, err
    }
    if limit <= 0 || limit > 100 {
        limit = 50
    }
    return s.repo.ListConversations(ctx, userID, limit, offset)
}

func (s *messagingService) ListMessages(ctx context.Context, conversationID, viewerID string, limit int, beforeID int64) ([]*Message, error) {
    if err := s.guard.EnsureOperational(ctx, viewerID); err != nil {
        return nil, err
    }
    if err := s.requireVisible(ctx, conversationID, viewerID); err != nil {
        return nil, err
    }
    if limit <= 0 || limit > 200 {
        limit = 50
    }

    messages, err := s.repo.ListMessages(ctx, conversationID, viewerID, limit, beforeID)
    if err != nil {
        return nil, err
    }

    messageIDs := make([]int64, 0, len(messages))
    for _, message := range messages {
        messageIDs = append(messageIDs, message.ID)
    }
    reactions, err := s.repo.MessageReactions(ctx, messageIDs)
    if err != nil {
        return nil, err
    }
    for _, message := range messages {
        message.Reactions = reactions[message.ID]
    }
    return messages, nil
}

func (s *messagingService) MarkDelivered(ctx context.Context, conversationID string, messageID int64, viewerID string) error {
    return s.advanceStatus(ctx, conversationID, messageID, viewerID, StatusDelivered)
}

func (s *messagingService) MarkSeen(ctx context.Context, conversationID string, messageID int64, viewerID string) error {
    return s.advanceStatus(ctx, conversationID, messageID, viewerID, StatusSeen)
}

func (s *messagingService) advanceStatus(ctx context.Context, conversationID string, messageID int64, viewerID, status string) error {
    if err := s.guard.EnsureOperational(ctx, viewerID); err != nil {
        return err
    }
    if err := s.requireVisible(ctx, conversationID, viewerID); err != nil {
        return err
    }

    message, err := s.repo.GetMessage(ctx, conversationID, messageID)
    if err != nil {
        return err
    }
    // Receipts come from the other side, never the sender
    if message.SenderID == viewerID {
        return apperr.ErrInvalidArgument
    }

    advanced, err := s.repo.AdvanceStatus(ctx, conversationID, messageID, status)
    if err != nil {
        return err
    }
    if advanced {
        statusTransitionsTotal.WithLabelValues(status).Inc()
        s.publish(ctx, s.conversationEvent(conversationID, events.TypeMessageStatus, map[string]interface{}{
            "message_id": messageID,
            "status":     status,
        }))
    }
    // Stale or repeated receipts are a no-op
    return nil
}

func (s *messagingService) React(ctx context.Context, conversationID string, messageID int64, userID, emoji string) (string, error) {
    if err := s.guard.EnsureOperational(ctx, userID); err != nil {
        return "", err
    }
    if !s.guard.FeatureEnabled(ctx, flagReactions) {
        return "", apperr.ErrFeatureDisabled
    }
    if err := s.requireVisible(ctx, conversationID, userID); err != nil {
        return "", err
    }

    message, err := s.repo.GetMessage(ctx, conversationID, messageID)
    if err != nil {
        return "", err
    }
    if message.DeletedForEveryone {
        return "", apperr.ErrInvalidArgument
    }

    action, err := s.repo.ToggleReaction(ctx, messageID, userID, emoji)
    if err != nil {
        return "", err
    }
    s.publish(ctx, s.conversationEvent(conversationID, events.TypeMessageReaction, map[string]interface{}{
        "message_id": messageID,
        "user_id":    userID,
        "emoji":      emoji,
        "action":     action,
    }))
    return action, nil
}

func (s *messagingService) DeleteForMe(ctx context.Context, conversationID string, messageID int64, userID string) error {
    if err := s.guard.EnsureOperational(ctx, userID); err != nil {
        return err
    }
    if !s.guard.FeatureEnabled(ctx, flagDeletion) {
        return apperr.ErrFeatureDisabled
    }
    if err := s.requireVisible(ctx, conversationID, userID); err != nil {
        return err
    }
    if _, err := s.repo.GetMessage(ctx, conversationID, messageID); err != nil {
        return err
    }
    return s.repo.AddDeletion(ctx, messageID, userID)
}

func (s *messagingService) DeleteForEveryone(ctx context.Context, conversationID string, messageID int64, userID string) error {
    if err := s.guard.EnsureOperational(ctx, userID); err != nil {
        return err
    }
    if !s.guard.FeatureEnabled(ctx, flagDeletion) {
        return apperr.ErrFeatureDisabled
    }
    if err := s.requireVisible(ctx, conversationID, userID); err != nil {
        return err
    }

    message, err := s.repo.GetMessage(ctx, conversationID, messageID)
    if err != nil {
        return err
    }
    if message.SenderID != userID {
        return apperr.ErrUnauthorized
    }

    deleted, err := s.repo.MarkDeletedForEveryone(ctx, conversationID, messageID, userID)
    if err != nil {
        return err
    }
    if deleted {
        s.publish(ctx, s.conversationEvent(conversationID, events.TypeMessageDeleted, map[string]interface{}{
            "message_id": messageID,
            "text":       DeletedPlaceholder,
        }))
    }
    // Deleting an already deleted message is a no-op
    return nil
}

func (s *messagingService) StartTyping(ctx context.Context, conversationID, userID string) error {
    if err := s.requireVisible(ctx, conversationID, userID); err != nil {
        return err
    }
    return s.typing.Start(ctx, conversationID, userID)
}

func (s *messagingService) StopTyping(ctx context.Context, conversationID, userID string) error {
    if err := s.requireVisible(ctx, conversationID, userID); err != nil {
        return err
    }
    return s.typing.Stop(ctx, conversationID, userID)
}

func (s *messagingService) Typists(ctx context.Context, conversationID string) ([]string, error) {
    return s.typing.Typists(ctx, conversationID)
}

func (s *messagingService) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
    conversation, err := s.repo.GetConversation(ctx, conversationID)
    if err != nil {
        return false, err
    }
    // A locked conversation is invisible to its recipient
    if conversation.Locked && conversation.CreatedBy != userID {
        return false, nil
    }
    return s.repo.IsParticipant(ctx, conversationID, userID)
}

func (s *messagingService) Participants(ctx context.Context, conversationID string) ([]string, error) {
    conversation, err := s.repo.GetConversation(ctx, conversationID)
    if err != nil {
        return nil, err
    }
    if conversation.Locked {
        return []string{conversation.CreatedBy}, nil
    }
    return s.repo.Participants(ctx, conversationID)
}

func (s *messagingService) PendingRequests(ctx context.Context, userID string) (json.RawMessage, error) {
    if s.gate == nil {
        return json.RawMessage("[]"), nil
    }
    return s.gate.PendingFor(ctx, userID)
}

func (s *messagingService) requireVisible(ctx context.Context, conversationID, userID string) error {
    visible, err := s.IsParticipant(ctx, conversationID, userID)
    if err != nil {
        return err
    }
    if !visible {
        return apperr.ErrNotFound
    }
    return nil
}

func (s *messagingService) conversationEvent(conversationID, eventType string, payload interface{}) events.Event {
    event := events.NewEvent(eventType, payload)
    event.ConversationID = conversationID
    return event
}

func (s *messagingService) publish(ctx context.Context, event events.Event) {
    if err := s.bus.Publish(ctx, event); err != nil {
        log.Printf("failed to publish %s event: %v", event.Type, err)
    }
}
