// internal/chatrequest/service.go

package chatrequest

import (
    "context"
    "encoding/json"
    "errors"
    "log"

    "github.com/google/uuid"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/admin"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/messaging"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/users"
)

// Conversations is the slice of the messaging layer the gate needs
type Conversations interface {
    EnsureDirect(ctx context.Context, creatorID, otherID string) (*messaging.Conversation, error)
    HasMessages(ctx context.Context, conversationID string) (bool, error)
    Unlock(ctx context.Context, conversationID string) error
}

// UserDirectory resolves the verification flags the gate rule reads
type UserDirectory interface {
    Get(ctx context.Context, userID string) (*users.User, error)
}

// PolicyGuard checks operational and actor standing before writes
type PolicyGuard interface {
    EnsureOperational(ctx context.Context, userID string) error
}

// Auditor records request resolutions in the audit log
type Auditor interface {
    RecordAction(ctx context.Context, action, actorID, targetID string, metadata map[string]interface{})
}

// Service defines the interface for chat request business logic
type Service interface {
    Send(ctx context.Context, fromUserID, toUserID string) (*ChatRequest, error)
    Approve(ctx context.Context, requestID, actorID string) (*ChatRequest, error)
    Reject(ctx context.Context, requestID, actorID string) (*ChatRequest, error)
    ListPending(ctx context.Context, userID string) ([]*ChatRequest, error)

    // RequireApproval and PendingFor serve the messaging layer
    RequireApproval(ctx context.Context, conversationID, fromID, toID string) error
    PendingFor(ctx context.Context, userID string) (json.RawMessage, error)
}

type requestService struct {
    repo          Repository
    conversations Conversations
    userDirectory UserDirectory
    guard         PolicyGuard
    auditor       Auditor
    bus           events.Publisher
}

// NewService creates a new chat request service
func NewService(repo Repository, conversations Conversations, userDirectory UserDirectory, guard PolicyGuard, auditor Auditor, bus events.Publisher) Service {
    return &requestService{
        repo:          repo,
        conversations: conversations,
        userDirectory: userDirectory,
        guard:         guard,
        auditor:       auditor,
        bus:           bus,
    }
}

// Required reports whether first contact between the pair goes
// through the gate: a verified recipient, an unverified sender and no
// prior messages.
func (s *requestService) Required(ctx context.Context, fromUserID, toUserID, conversationID string) (bool, error) {
    sender, err := s.userDirectory.Get(ctx, fromUserID)
    if err != nil {
        return false, err
    }
    recipient, err := s.userDirectory.Get(ctx, toUserID)
    if err != nil {
        return false, err
    }
    if !recipient.IsVerified || sender.IsVerified {
        return false, nil
    }

    hasMessages, err := s.conversations.HasMessages(ctx, conversationID)
    if err != nil {
        return false, err
    }
    return !hasMessages, nil
}

func (s *requestService) Send(ctx context.Context, fromUserID, toUserID string) (*ChatRequest, error) {
    if err := s.guard.EnsureOperational(ctx, fromUserID); err != nil {
        return nil, err
    }
    if fromUserID == toUserID {
        return nil, apperr.ErrInvalidArgument
    }

    conversation, err := s.conversations.EnsureDirect(ctx, fromUserID, toUserID)
    if err != nil {
        return nil, err
    }

    required, err := s.Required(ctx, fromUserID, toUserID, conversation.ID)
    if err != nil {
        return nil, err
    }
    if !required || !conversation.Locked {
        return nil, apperr.ErrInvalidArgument
    }

    return s.create(ctx, conversation.ID, fromUserID, toUserID)
}

func (s *requestService) create(ctx context.Context, conversationID, fromUserID, toUserID string) (*ChatRequest, error) {
    request := &ChatRequest{
        ID:             uuid.NewString(),
        ConversationID: conversationID,
        FromUserID:     fromUserID,
        ToUserID:       toUserID,
    }
    if err := s.repo.CreatePending(ctx, request); err != nil {
        return nil, err
    }

    requestsTotal.WithLabelValues(StatusPending).Inc()

    event := events.NewEvent(events.TypeRequestNew, request)
    event.UserIDs = []string{toUserID}
    s.publish(ctx, event)

    return request, nil
}

// RequireApproval backs a held first-contact send: it reuses the
// pending request for the pair or opens a new one.
func (s *requestService) RequireApproval(ctx context.Context, conversationID, fromID, toID string) error {
    if _, err := s.repo.PendingBetween(ctx, fromID, toID); err == nil {
        return nil
    } else if !errors.Is(err, apperr.ErrNotFound) {
        return err
    }

    _, err := s.create(ctx, conversationID, fromID, toID)
    if errors.Is(err, apperr.ErrDuplicateRequest) {
        // Lost the race to a concurrent send, the pending request exists
        return nil
    }
    return err
}

func (s *requestService) Approve(ctx context.Context, requestID, actorID string) (*ChatRequest, error) {
    return s.resolve(ctx, requestID, actorID, StatusAccepted)
}

func (s *requestService) Reject(ctx context.Context, requestID, actorID string) (*ChatRequest, error) {
    return s.resolve(ctx, requestID, actorID, StatusRejected)
}

func (s *requestService) resolve(ctx context.Context, requestID, actorID, status string) (*ChatRequest, error) {
    if err := s.guard.EnsureOperational(ctx, actorID); err != nil {
        return nil, err
    }

    request, err := s.repo.Get(ctx, requestID)
    if err != nil {
        return nil, err
    }
    // Only the recipient resolves a request
    if request.ToUserID != actorID {
        return nil, apperr.ErrUnauthorized
    }
    if request.Status != StatusPending {
        return nil, apperr.ErrNotFound
    }

    resolved, err := s.repo.Resolve(ctx, requestID, status)
    if err != nil {
        return nil, err
    }
    requestsTotal.WithLabelValues(status).Inc()

    action := admin.ActionRejectRequest
    if status == StatusAccepted {
        action = admin.ActionApproveRequest
        // Approval opens the conversation and releases the held
        // messages to the recipient.
        if err := s.conversations.Unlock(ctx, resolved.ConversationID); err != nil {
            return nil, err
        }
    }
    s.auditor.RecordAction(ctx, action, actorID, resolved.FromUserID, map[string]interface{}{
        "request_id":      resolved.ID,
        "conversation_id": resolved.ConversationID,
    })

    event := events.NewEvent(events.TypeRequestResolved, resolved)
    event.UserIDs = []string{resolved.FromUserID, resolved.ToUserID}
    s.publish(ctx, event)

    if status == StatusAccepted {
        // Both sides now see the conversation in their directory
        conversationEvent := events.NewEvent(events.TypeConversationNew, map[string]string{
            "conversation_id": resolved.ConversationID,
        })
        conversationEvent.ConversationID = resolved.ConversationID
        s.publish(ctx, conversationEvent)
    }

    return resolved, nil
}

func (s *requestService) ListPending(ctx context.Context, userID string) ([]*ChatRequest, error) {
    if err := s.guard.EnsureOperational(ctx, userID); err != nil {
        return nil, err
    }
    return s.repo.ListPendingFor(ctx, userID)
}

func (s *requestService) PendingFor(ctx context.Context, userID string) (json.RawMessage, error) {
    requests, err := s.repo.ListPendingFor(ctx, userID)
    if err != nil {
        return nil, err
    }
    data, err := json.Marshal(requests)
    if err != nil {
        return nil, err
    }
    return data, nil
}

func (s *requestService) publish(ctx context.Context, event events.Event) {
    if err := s.bus.Publish(ctx, event); err != nil {
        log.Printf("failed to publish %s event: %v", event.Type, err)
    }
}
