// internal/admin/service_test.go

package admin

import (
    "context"
    "encoding/json"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/users"
)

type fakeRepo struct {
    settings *Settings
    loadErr  error
    admins   map[string]bool
    audit    []*AuditLogEntry
}

func newFakeRepo() *fakeRepo {
    return &fakeRepo{
        settings: &Settings{
            Version:          1,
            GroupMemberLimit: 10,
            GroupChat:        true,
            FileSharing:      true,
            VoiceMessages:    true,
            MessageReactions: true,
            MessageDeletion:  true,
        },
        admins: make(map[string]bool),
    }
}

func (r *fakeRepo) GetSettings(ctx context.Context) (*Settings, error) {
    if r.loadErr != nil {
        return nil, r.loadErr
    }
    copied := *r.settings
    return &copied, nil
}

func (r *fakeRepo) ToggleMaintenance(ctx context.Context) (*Settings, error) {
    r.settings.MaintenanceMode = !r.settings.MaintenanceMode
    r.settings.Version++
    copied := *r.settings
    return &copied, nil
}

func (r *fakeRepo) ToggleFeature(ctx context.Context, flag string) (*Settings, error) {
    switch flag {
    case FlagGroupChat:
        r.settings.GroupChat = !r.settings.GroupChat
    case FlagMessageReactions:
        r.settings.MessageReactions = !r.settings.MessageReactions
    case FlagMessageDeletion:
        r.settings.MessageDeletion = !r.settings.MessageDeletion
    case FlagFileSharing:
        r.settings.FileSharing = !r.settings.FileSharing
    case FlagVoiceMessages:
        r.settings.VoiceMessages = !r.settings.VoiceMessages
    default:
        return nil, apperr.ErrInvalidArgument
    }
    r.settings.Version++
    copied := *r.settings
    return &copied, nil
}

func (r *fakeRepo) SetMemberLimit(ctx context.Context, limit int) (*Settings, error) {
    r.settings.GroupMemberLimit = limit
    r.settings.Version++
    copied := *r.settings
    return &copied, nil
}

func (r *fakeRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
    return r.admins[userID], nil
}

func (r *fakeRepo) AddAdmin(ctx context.Context, userID string) error {
    r.admins[userID] = true
    return nil
}

func (r *fakeRepo) AppendAudit(ctx context.Context, action, actorID, targetID string, metadata json.RawMessage) error {
    r.audit = append(r.audit, &AuditLogEntry{
        ID:        int64(len(r.audit) + 1),
        Action:    action,
        ActorID:   actorID,
        TargetID:  targetID,
        Metadata:  metadata,
        CreatedAt: time.Now(),
    })
    return nil
}

func (r *fakeRepo) ListAudit(ctx context.Context, limit, offset int) ([]*AuditLogEntry, error) {
    return r.audit, nil
}

// fakeUsers implements users.Service with per-user state
type fakeUsers struct {
    suspended  map[string]bool
    tombstoned map[string]bool
}

func newFakeUsers() *fakeUsers {
    return &fakeUsers{suspended: map[string]bool{}, tombstoned: map[string]bool{}}
}

func (u *fakeUsers) EnsureUser(ctx context.Context, userID, displayName string) error { return nil }

func (u *fakeUsers) Get(ctx context.Context, userID string) (*users.User, error) {
    user := &users.User{ID: userID}
    if u.tombstoned[userID] {
        now := time.Now()
        user.DeletedAt = &now
    }
    if u.suspended[userID] {
        until := time.Now().Add(time.Hour)
        user.IsDisabled = true
        user.DisabledUntil = &until
    }
    return user, nil
}

func (u *fakeUsers) GetMany(ctx context.Context, userIDs []string) ([]*users.User, error) {
    return nil, nil
}
func (u *fakeUsers) SetVerified(ctx context.Context, userID string, verified bool) error { return nil }
func (u *fakeUsers) Suspend(ctx context.Context, userID string, days int) error {
    u.suspended[userID] = true
    return nil
}
func (u *fakeUsers) Reinstate(ctx context.Context, userID string) error {
    u.suspended[userID] = false
    return nil
}
func (u *fakeUsers) Tombstone(ctx context.Context, userID string) error {
    u.tombstoned[userID] = true
    return nil
}
func (u *fakeUsers) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
    return nil
}

type fakeBus struct {
    published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) error {
    b.published = append(b.published, event)
    return nil
}

func (b *fakeBus) Subscribe(ctx context.Context) (<-chan events.Event, func(), error) {
    ch := make(chan events.Event)
    return ch, func() { close(ch) }, nil
}

func newTestService(t *testing.T) (Service, *fakeRepo, *fakeUsers, *fakeBus) {
    t.Helper()
    repo := newFakeRepo()
    repo.admins["root"] = true
    usersService := newFakeUsers()
    bus := &fakeBus{}
    return NewService(repo, usersService, bus), repo, usersService, bus
}

func TestEnsureOperational(t *testing.T) {
    service, _, usersService, _ := newTestService(t)
    ctx := context.Background()

    require.NoError(t, service.EnsureOperational(ctx, "alice"))

    usersService.suspended["alice"] = true
    assert.ErrorIs(t, service.EnsureOperational(ctx, "alice"), apperr.ErrUnauthorized)

    usersService.tombstoned["bob"] = true
    assert.ErrorIs(t, service.EnsureOperational(ctx, "bob"), apperr.ErrNotFound)
}

func TestMaintenanceBlocksEveryoneButAdmins(t *testing.T) {
    service, _, _, _ := newTestService(t)
    ctx := context.Background()

    _, err := service.ToggleMaintenance(ctx, "root")
    require.NoError(t, err)

    assert.ErrorIs(t, service.EnsureOperational(ctx, "alice"), apperr.ErrMaintenanceMode)
    assert.NoError(t, service.EnsureOperational(ctx, "root"))

    _, err = service.ToggleMaintenance(ctx, "root")
    require.NoError(t, err)
    assert.NoError(t, service.EnsureOperational(ctx, "alice"))
}

func TestMutationsRequireAdmin(t *testing.T) {
    service, _, _, _ := newTestService(t)
    ctx := context.Background()

    _, err := service.ToggleMaintenance(ctx, "alice")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)

    _, err = service.ToggleFeature(ctx, FlagGroupChat, "alice")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)

    _, err = service.SetMemberLimit(ctx, 5, "alice")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestToggleFeature(t *testing.T) {
    service, _, _, bus := newTestService(t)
    ctx := context.Background()

    assert.True(t, service.FeatureEnabled(ctx, FlagMessageReactions))

    settings, err := service.ToggleFeature(ctx, FlagMessageReactions, "root")
    require.NoError(t, err)
    assert.False(t, settings.MessageReactions)
    assert.False(t, service.FeatureEnabled(ctx, FlagMessageReactions))

    // Every settings mutation announces itself on the bus
    var sawInvalidation bool
    for _, event := range bus.published {
        if event.Type == events.TypeSettingsChanged {
            sawInvalidation = true
        }
    }
    assert.True(t, sawInvalidation)
}

func TestSetMemberLimitBounds(t *testing.T) {
    service, _, _, _ := newTestService(t)
    ctx := context.Background()

    _, err := service.SetMemberLimit(ctx, 0, "root")
    assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

    settings, err := service.SetMemberLimit(ctx, 25, "root")
    require.NoError(t, err)
    assert.Equal(t, 25, settings.GroupMemberLimit)
    assert.Equal(t, 25, service.MemberLimit(ctx))
}

func TestFailClosedOnSettingsError(t *testing.T) {
    repo := newFakeRepo()
    repo.loadErr = errors.New("connection refused")

    service := NewService(repo, newFakeUsers(), &fakeBus{})

    // Unreadable settings force maintenance mode for non-admins
    err := service.EnsureOperational(context.Background(), "alice")
    assert.ErrorIs(t, err, apperr.ErrMaintenanceMode)
}

func TestAuditTrailRecordsMutations(t *testing.T) {
    service, repo, _, _ := newTestService(t)
    ctx := context.Background()

    _, err := service.ToggleFeature(ctx, FlagGroupChat, "root")
    require.NoError(t, err)

    require.NoError(t, service.SuspendUser(ctx, "alice", 7, "root"))

    require.NotEmpty(t, repo.audit)
    actions := make([]string, 0, len(repo.audit))
    for _, entry := range repo.audit {
        actions = append(actions, entry.Action)
    }
    assert.Contains(t, actions, ActionToggleFeature)
    assert.Contains(t, actions, ActionSuspendUser)
}

func TestSuspendAndReinstateUser(t *testing.T) {
    service, _, usersService, _ := newTestService(t)
    ctx := context.Background()

    require.NoError(t, service.SuspendUser(ctx, "alice", 7, "root"))
    assert.True(t, usersService.suspended["alice"])

    require.NoError(t, service.ReinstateUser(ctx, "alice", "root"))
    assert.False(t, usersService.suspended["alice"])
}

func TestAddAdmin(t *testing.T) {
    service, _, _, _ := newTestService(t)
    ctx := context.Background()

    assert.ErrorIs(t, service.AddAdmin(ctx, "bob", "alice"), apperr.ErrUnauthorized)

    require.NoError(t, service.AddAdmin(ctx, "bob", "root"))
    assert.True(t, service.IsAdmin(ctx, "bob"))
}
