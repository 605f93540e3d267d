// internal/groups/service_test.go

package groups

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

type fakeRepo struct {
    groups  map[string]*Group
    members map[string]map[string]*Membership
}

func newFakeRepo() *fakeRepo {
    return &fakeRepo{
        groups:  make(map[string]*Group),
        members: make(map[string]map[string]*Membership),
    }
}

func (r *fakeRepo) Create(ctx context.Context, group *Group, memberIDs []string) error {
    stored := *group
    r.groups[group.ID] = &stored
    r.members[group.ID] = map[string]*Membership{
        group.CreatedBy: {GroupID: group.ID, UserID: group.CreatedBy, Role: RoleCreator},
    }
    for _, id := range memberIDs {
        r.members[group.ID][id] = &Membership{GroupID: group.ID, UserID: id, Role: RoleMember}
    }
    return nil
}

func (r *fakeRepo) Get(ctx context.Context, groupID string) (*Group, error) {
    group, ok := r.groups[groupID]
    if !ok || group.DeletedAt != nil {
        return nil, apperr.ErrNotFound
    }
    copied := *group
    return &copied, nil
}

func (r *fakeRepo) GetMembership(ctx context.Context, groupID, userID string) (*Membership, error) {
    membership, ok := r.members[groupID][userID]
    if !ok || membership.Banned {
        return nil, apperr.ErrNotFound
    }
    copied := *membership
    return &copied, nil
}

func (r *fakeRepo) ListMembers(ctx context.Context, groupID string) ([]*Membership, error) {
    members := []*Membership{}
    for _, m := range r.members[groupID] {
        copied := *m
        members = append(members, &copied)
    }
    return members, nil
}

func (r *fakeRepo) AddMember(ctx context.Context, groupID, userID string, limit int) error {
    if _, ok := r.groups[groupID]; !ok {
        return apperr.ErrNotFound
    }
    if existing, ok := r.members[groupID][userID]; ok {
        if existing.Banned {
            return apperr.ErrUnauthorized
        }
        return nil
    }
    active := 0
    for _, m := range r.members[groupID] {
        if !m.Banned {
            active++
        }
    }
    if active >= limit {
        return apperr.ErrLimitExceeded
    }
    r.members[groupID][userID] = &Membership{GroupID: groupID, UserID: userID, Role: RoleMember}
    return nil
}

func (r *fakeRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
    delete(r.members[groupID], userID)
    return nil
}

func (r *fakeRepo) SetBanned(ctx context.Context, groupID, userID string, banned bool) error {
    if m, ok := r.members[groupID][userID]; ok {
        m.Banned = banned
    }
    return nil
}

func (r *fakeRepo) SetRole(ctx context.Context, groupID, userID, role string) error {
    m, ok := r.members[groupID][userID]
    if !ok {
        return apperr.ErrNotFound
    }
    if m.Role == RoleCreator {
        return apperr.ErrNotFound
    }
    m.Role = role
    return nil
}

func (r *fakeRepo) SetDisabledUntil(ctx context.Context, groupID string, days int) error {
    group, ok := r.groups[groupID]
    if !ok {
        return apperr.ErrNotFound
    }
    until := time.Now().Add(time.Duration(days) * 24 * time.Hour)
    group.DisabledUntil = &until
    return nil
}

func (r *fakeRepo) ClearExpiredDisable(ctx context.Context, groupID string) error {
    group, ok := r.groups[groupID]
    if !ok {
        return apperr.ErrNotFound
    }
    if group.DisabledUntil != nil && group.DisabledUntil.Before(time.Now()) {
        group.DisabledUntil = nil
    }
    return nil
}

func (r *fakeRepo) Tombstone(ctx context.Context, groupID string) error {
    group, ok := r.groups[groupID]
    if !ok {
        return apperr.ErrNotFound
    }
    now := time.Now()
    group.DeletedAt = &now
    return nil
}

type fakeGuard struct {
    maintenance bool
    groupChat   bool
    admins      map[string]bool
    limit       int
}

func (g *fakeGuard) EnsureOperational(ctx context.Context, actorID string) error {
    if g.maintenance && !g.admins[actorID] {
        return apperr.ErrMaintenanceMode
    }
    return nil
}

func (g *fakeGuard) FeatureEnabled(ctx context.Context, flag string) bool {
    if flag == flagGroupChat {
        return g.groupChat
    }
    return true
}

func (g *fakeGuard) IsAdmin(ctx context.Context, userID string) bool { return g.admins[userID] }
func (g *fakeGuard) MemberLimit(ctx context.Context) int             { return g.limit }

type fakeBus struct {
    published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) error {
    b.published = append(b.published, event)
    return nil
}

func newTestService(t *testing.T) (Service, *fakeRepo, *fakeGuard) {
    t.Helper()
    repo := newFakeRepo()
    guard := &fakeGuard{groupChat: true, limit: 10, admins: map[string]bool{}}
    return NewService(repo, guard, &fakeBus{}), repo, guard
}

func TestCreateGroup(t *testing.T) {
    service, repo, _ := newTestService(t)

    group, err := service.Create(context.Background(), "weekend plans", "alice", []string{"bob", "bob", "alice", "carol"})
    require.NoError(t, err)

    // Duplicates and the creator are dropped from the roster
    assert.Len(t, repo.members[group.ID], 3)
    assert.Equal(t, RoleCreator, repo.members[group.ID]["alice"].Role)
    assert.Equal(t, RoleMember, repo.members[group.ID]["bob"].Role)
}

func TestCreateGroupFeatureDisabled(t *testing.T) {
    service, _, guard := newTestService(t)
    guard.groupChat = false

    _, err := service.Create(context.Background(), "weekend plans", "alice", nil)
    assert.ErrorIs(t, err, apperr.ErrFeatureDisabled)
}

func TestCreateGroupOverLimit(t *testing.T) {
    service, _, guard := newTestService(t)
    guard.limit = 3

    _, err := service.Create(context.Background(), "big group", "alice", []string{"b", "c", "d"})
    assert.ErrorIs(t, err, apperr.ErrLimitExceeded)
}

func TestAddMemberEnforcesLimit(t *testing.T) {
    service, _, guard := newTestService(t)
    guard.limit = 3
    ctx := context.Background()

    group, err := service.Create(ctx, "trio", "alice", []string{"bob", "carol"})
    require.NoError(t, err)

    err = service.AddMember(ctx, group.ID, "alice", "dave")
    assert.ErrorIs(t, err, apperr.ErrLimitExceeded)
}

func TestAddMemberIdempotent(t *testing.T) {
    service, repo, _ := newTestService(t)
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", []string{"bob"})
    require.NoError(t, err)

    require.NoError(t, service.AddMember(ctx, group.ID, "alice", "bob"))
    assert.Len(t, repo.members[group.ID], 2)
}

func TestAddMemberRequiresManager(t *testing.T) {
    service, _, _ := newTestService(t)
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", []string{"bob"})
    require.NoError(t, err)

    // A plain member cannot manage the roster
    err = service.AddMember(ctx, group.ID, "bob", "carol")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)

    // Promotion grants it
    require.NoError(t, service.Promote(ctx, group.ID, "alice", "bob"))
    require.NoError(t, service.AddMember(ctx, group.ID, "bob", "carol"))
}

func TestGlobalAdminCanManage(t *testing.T) {
    service, _, guard := newTestService(t)
    guard.admins["root"] = true
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", []string{"bob"})
    require.NoError(t, err)

    require.NoError(t, service.AddMember(ctx, group.ID, "root", "carol"))
}

func TestCreatorProtected(t *testing.T) {
    service, _, guard := newTestService(t)
    guard.admins["root"] = true
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", []string{"bob"})
    require.NoError(t, err)

    // Not even a global admin removes or bans the creator
    assert.ErrorIs(t, service.RemoveMember(ctx, group.ID, "root", "alice"), apperr.ErrUnauthorized)
    assert.ErrorIs(t, service.Ban(ctx, group.ID, "root", "alice"), apperr.ErrUnauthorized)
}

func TestBannedMemberCannotRejoin(t *testing.T) {
    service, _, _ := newTestService(t)
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", []string{"bob"})
    require.NoError(t, err)

    require.NoError(t, service.Ban(ctx, group.ID, "alice", "bob"))

    err = service.AddMember(ctx, group.ID, "alice", "bob")
    assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSuspensionExpiresLazily(t *testing.T) {
    service, repo, _ := newTestService(t)
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", nil)
    require.NoError(t, err)

    require.NoError(t, service.Disable(ctx, group.ID, 7))
    suspended, err := service.IsSuspended(ctx, group.ID)
    require.NoError(t, err)
    assert.True(t, suspended)

    // Backdate the window; the next check reinstates the group
    past := time.Now().Add(-time.Hour)
    repo.groups[group.ID].DisabledUntil = &past

    suspended, err = service.IsSuspended(ctx, group.ID)
    require.NoError(t, err)
    assert.False(t, suspended)
    assert.Nil(t, repo.groups[group.ID].DisabledUntil)
}

func TestDeletedGroupNotFound(t *testing.T) {
    service, _, _ := newTestService(t)
    ctx := context.Background()

    group, err := service.Create(ctx, "plans", "alice", nil)
    require.NoError(t, err)

    require.NoError(t, service.Delete(ctx, group.ID))

    _, err = service.Get(ctx, group.ID, "alice")
    assert.ErrorIs(t, err, apperr.ErrNotFound)
}
