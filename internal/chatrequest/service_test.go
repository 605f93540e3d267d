// internal/chatrequest/service_test.go

package chatrequest

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/messaging"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/users"
)

type fakeRepo struct {
    requests map[string]*ChatRequest
}

func newFakeRepo() *fakeRepo {
    return &fakeRepo{requests: make(map[string]*ChatRequest)}
}

func (r *fakeRepo) CreatePending(ctx context.Context, request *ChatRequest) error {
    for _, existing := range r.requests {
        if existing.FromUserID == request.FromUserID &&
            existing.ToUserID == request.ToUserID &&
            existing.Status == StatusPending {
            return apperr.ErrDuplicateRequest
        }
    }
    request.Status = StatusPending
    request.CreatedAt = time.Now()
    stored := *request
    r.requests[request.ID] = &stored
    return nil
}

func (r *fakeRepo) Get(ctx context.Context, requestID string) (*ChatRequest, error) {
    request, ok := r.requests[requestID]
    if !ok {
        return nil, apperr.ErrNotFound
    }
    copied := *request
    return &copied, nil
}

func (r *fakeRepo) PendingBetween(ctx context.Context, fromUserID, toUserID string) (*ChatRequest, error) {
    for _, request := range r.requests {
        if request.FromUserID == fromUserID && request.ToUserID == toUserID && request.Status == StatusPending {
            copied := *request
            return &copied, nil
        }
    }
    return nil, apperr.ErrNotFound
}

func (r *fakeRepo) ListPendingFor(ctx context.Context, toUserID string) ([]*ChatRequest, error) {
    pending := []*ChatRequest{}
    for _, request := range r.requests {
        if request.ToUserID == toUserID && request.Status == StatusPending {
            copied := *request
            pending = append(pending, &copied)
        }
    }
    return pending, nil
}

func (r *fakeRepo) Resolve(ctx context.Context, requestID, status string) (*ChatRequest, error) {
    request, ok := r.requests[requestID]
    if !ok || request.Status != StatusPending {
        return nil, apperr.ErrNotFound
    }
    now := time.Now()
    request.Status = status
    request.ResolvedAt = &now
    copied := *request
    return &copied, nil
}

type fakeConversations struct {
    conversations map[string]*messaging.Conversation
    hasMessages   map[string]bool
    verified      map[string]bool
}

func newFakeConversations() *fakeConversations {
    return &fakeConversations{
        conversations: make(map[string]*messaging.Conversation),
        hasMessages:   make(map[string]bool),
        verified:      make(map[string]bool),
    }
}

func (c *fakeConversations) EnsureDirect(ctx context.Context, creatorID, otherID string) (*messaging.Conversation, error) {
    id := messaging.DirectConversationID(creatorID, otherID)
    if conversation, ok := c.conversations[id]; ok {
        return conversation, nil
    }
    conversation := &messaging.Conversation{
        ID:        id,
        Type:      messaging.ConversationDirect,
        CreatedBy: creatorID,
        Locked:    c.verified[otherID] && !c.verified[creatorID],
    }
    c.conversations[id] = conversation
    return conversation, nil
}

func (c *fakeConversations) HasMessages(ctx context.Context, conversationID string) (bool, error) {
    return c.hasMessages[conversationID], nil
}

func (c *fakeConversations) Unlock(ctx context.Context, conversationID string) error {
    conversation, ok := c.conversations[conversationID]
    if !ok {
        return apperr.ErrNotFound
    }
    conversation.Locked = false
    return nil
}

type fakeUsers struct {
    verified map[string]bool
}

func (u *fakeUsers) Get(ctx context.Context, userID string) (*users.User, error) {
    return &users.User{ID: userID, IsVerified: u.verified[userID]}, nil
}

type fakeGuard struct {
    blocked map[string]error
}

func (g *fakeGuard) EnsureOperational(ctx context.Context, userID string) error {
    if g.blocked == nil {
        return nil
    }
    return g.blocked[userID]
}

type fakeAuditor struct {
    actions []string
}

func (a *fakeAuditor) RecordAction(ctx context.Context, action, actorID, targetID string, metadata map[string]interface{}) {
    a.actions = append(a.actions, action)
}

type fakeBus struct {
    published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) error {
    b.published = append(b.published, event)
    return nil
}

func newTestService(t *testing.T, verified map[string]bool) (Service, *fakeRepo, *fakeConversations, *fakeAuditor, *fakeBus) {
    t.Helper()
    repo := newFakeRepo()
    conversations := newFakeConversations()
    conversations.verified = verified
    auditor := &fakeAuditor{}
    bus := &fakeBus{}
    service := NewService(repo, conversations, &fakeUsers{verified: verified}, &fakeGuard{}, auditor, bus)
    return service, repo, conversations, auditor, bus
}

func TestSendCreatesPendingRequest(t *testing.T) {
    service, _, conversations, _, bus := newTestService(t, map[string]bool{"vera": true})

    request, err := service.Send(context.Background(), "newbie", "vera")
    require.NoError(t, err)
    assert.Equal(t, StatusPending, request.Status)
    assert.Equal(t, "newbie", request.FromUserID)
    assert.Equal(t, "vera", request.ToUserID)
    assert.True(t, conversations.conversations[request.ConversationID].Locked)

    // The recipient is notified, the sender needs no event
    event := bus.published[len(bus.published)-1]
    assert.Equal(t, events.TypeRequestNew, event.Type)
    assert.Equal(t, []string{"vera"}, event.UserIDs)
}

func TestSendNotRequiredBetweenPeers(t *testing.T) {
    // Both unverified: no gate
    service, _, _, _, _ := newTestService(t, map[string]bool{})
    _, err := service.Send(context.Background(), "alice", "bob")
    assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

    // Both verified: no gate either
    service, _, _, _, _ = newTestService(t, map[string]bool{"alice": true, "bob": true})
    _, err = service.Send(context.Background(), "alice", "bob")
    assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestSendDuplicateRejected(t *testing.T) {
    service, _, _, _, _ := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    _, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)

    _, err = service.Send(ctx, "newbie", "vera")
    assert.ErrorIs(t, err, apperr.ErrDuplicateRequest)
}

func TestApproveUnlocksConversation(t *testing.T) {
    service, _, conversations, auditor, bus := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    request, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)

    resolved, err := service.Approve(ctx, request.ID, "vera")
    require.NoError(t, err)
    assert.Equal(t, StatusAccepted, resolved.Status)
    assert.NotNil(t, resolved.ResolvedAt)

    assert.False(t, conversations.conversations[request.ConversationID].Locked)
    assert.Contains(t, auditor.actions, "approve_chat_request")

    // Both parties learn the outcome
    var resolution *events.Event
    for i := range bus.published {
        if bus.published[i].Type == events.TypeRequestResolved {
            resolution = &bus.published[i]
        }
    }
    require.NotNil(t, resolution)
    assert.ElementsMatch(t, []string{"newbie", "vera"}, resolution.UserIDs)
}

func TestApproveByWrongActor(t *testing.T) {
    service, _, _, _, _ := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    request, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)

    // Neither the sender nor a bystander can resolve
    _, err = service.Approve(ctx, request.ID, "newbie")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)

    _, err = service.Reject(ctx, request.ID, "mallory")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestResolveTwiceFails(t *testing.T) {
    service, _, _, _, _ := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    request, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)

    _, err = service.Approve(ctx, request.ID, "vera")
    require.NoError(t, err)

    _, err = service.Approve(ctx, request.ID, "vera")
    assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRejectKeepsConversationLockedAndAllowsRetry(t *testing.T) {
    service, _, conversations, auditor, _ := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    request, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)

    resolved, err := service.Reject(ctx, request.ID, "vera")
    require.NoError(t, err)
    assert.Equal(t, StatusRejected, resolved.Status)
    assert.True(t, conversations.conversations[request.ConversationID].Locked)
    assert.Contains(t, auditor.actions, "reject_chat_request")

    // A rejected request does not block a new attempt
    retry, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)
    assert.Equal(t, StatusPending, retry.Status)
    assert.NotEqual(t, request.ID, retry.ID)
}

func TestRequireApprovalReusesPendingRequest(t *testing.T) {
    service, repo, conversations, _, _ := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    conversation, err := conversations.EnsureDirect(ctx, "newbie", "vera")
    require.NoError(t, err)

    require.NoError(t, service.RequireApproval(ctx, conversation.ID, "newbie", "vera"))
    require.NoError(t, service.RequireApproval(ctx, conversation.ID, "newbie", "vera"))

    pending, err := repo.ListPendingFor(ctx, "vera")
    require.NoError(t, err)
    assert.Len(t, pending, 1)
}

func TestListPending(t *testing.T) {
    service, _, _, _, _ := newTestService(t, map[string]bool{"vera": true})
    ctx := context.Background()

    _, err := service.Send(ctx, "newbie", "vera")
    require.NoError(t, err)

    pending, err := service.ListPending(ctx, "vera")
    require.NoError(t, err)
    require.Len(t, pending, 1)
    assert.Equal(t, "newbie", pending[0].FromUserID)

    // Nothing waits on the sender
    pending, err = service.ListPending(ctx, "newbie")
    require.NoError(t, err)
    assert.Empty(t, pending)
}
