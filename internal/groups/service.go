// internal/groups/service.go

package groups

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

// PolicyGuard is the slice of the moderation engine this module needs
type PolicyGuard interface {
    EnsureOperational(ctx context.Context, actorID string) error
    FeatureEnabled(ctx context.Context, flag string) bool
    IsAdmin(ctx context.Context, userID string) bool
    MemberLimit(ctx context.Context) int
}

const flagGroupChat = "enable_group_chat"

type Service interface {
    Create(ctx context.Context, name, creatorID string, memberIDs []string) (*Group, error)
    Get(ctx context.Context, groupID, viewerID string) (*Group, error)
    AddMember(ctx context.Context, groupID, actorID, userID string) error
    RemoveMember(ctx context.Context, groupID, actorID, userID string) error
    Ban(ctx context.Context, groupID, actorID, userID string) error
    Promote(ctx context.Context, groupID, actorID, userID string) error

    // Moderation hooks (called by the admin module)
    Disable(ctx context.Context, groupID string, days int) error
    Delete(ctx context.Context, groupID string) error

    // IsSuspended is the lazy-reinstating gate the message store checks
    // before accepting a send into a group conversation
    IsSuspended(ctx context.Context, groupID string) (bool, error)
}

type groupService struct {
    repo  Repository
    guard PolicyGuard
    bus   events.Publisher
}

func NewService(repo Repository, guard PolicyGuard, bus events.Publisher) Service {
    return &groupService{
        repo:  repo,
        guard: guard,
        bus:   bus,
    }
}

func (s *groupService) Create(ctx context.Context, name, creatorID string, memberIDs []string) (*Group, error) {
    if err := s.guard.EnsureOperational(ctx, creatorID); err != nil {
        return nil, err
    }
    if !s.guard.FeatureEnabled(ctx, flagGroupChat) {
        return nil, apperr.ErrFeatureDisabled
    }
    if name == "" {
        return nil, fmt.Errorf("%w: group name is required", apperr.ErrInvalidArgument)
    }

    // Drop duplicates and the creator from the initial roster
    members := make([]string, 0, len(memberIDs))
    seen := map[string]bool{creatorID: true}
    for _, id := range memberIDs {
        if !seen[id] {
            seen[id] = true
            members = append(members, id)
        }
    }

    limit := s.guard.MemberLimit(ctx)
    if 1+len(members) > limit {
        return nil, apperr.ErrLimitExceeded
    }

    group := &Group{
        ID:        uuid.NewString(),
        Name:      name,
        CreatedBy: creatorID,
        CreatedAt: time.Now().UTC(),
    }

    if err := s.repo.Create(ctx, group, members); err != nil {
        return nil, err
    }

    s.publishMembership(ctx, group.ID, "created", creatorID)
    return group, nil
}

func (s *groupService) Get(ctx context.Context, groupID, viewerID string) (*Group, error) {
    group, err := s.repo.Get(ctx, groupID)
    if err != nil {
        return nil, err
    }

    if _, err := s.repo.GetMembership(ctx, groupID, viewerID); err != nil {
        if !s.guard.IsAdmin(ctx, viewerID) {
            return nil, apperr.ErrUnauthorized
        }
    }

    members, err := s.repo.ListMembers(ctx, groupID)
    if err != nil {
        return nil, err
    }
    group.Members = members

    return group, nil
}

// requireManager checks the actor can manage the roster: group creator,
// group admin, or a member of the global admins set.
func (s *groupService) requireManager(ctx context.Context, groupID, actorID string) error {
    if s.guard.IsAdmin(ctx, actorID) {
        return nil
    }

    membership, err := s.repo.GetMembership(ctx, groupID, actorID)
    if err != nil {
        return apperr.ErrUnauthorized
    }
    if membership.Role != RoleCreator && membership.Role != RoleAdmin {
        return apperr.ErrUnauthorized
    }
    return nil
}

func (s *groupService) AddMember(ctx context.Context, groupID, actorID, userID string) error {
    if err := s.guard.EnsureOperational(ctx, actorID); err != nil {
        return err
    }
    if err := s.requireManager(ctx, groupID, actorID); err != nil {
        return err
    }

    // Limit is read here but enforced again inside the serialized
    // transaction, so a concurrent limit change cannot be lost
    limit := s.guard.MemberLimit(ctx)
    if err := s.repo.AddMember(ctx, groupID, userID, limit); err != nil {
        return err
    }

    s.publishMembership(ctx, groupID, "member_added", userID)
    return nil
}

func (s *groupService) RemoveMember(ctx context.Context, groupID, actorID, userID string) error {
    if err := s.guard.EnsureOperational(ctx, actorID); err != nil {
        return err
    }
    if err := s.requireManager(ctx, groupID, actorID); err != nil {
        return err
    }

    target, err := s.repo.GetMembership(ctx, groupID, userID)
    if err != nil {
        return err
    }
    if target.Role == RoleCreator {
        // The creator cannot be removed through member management
        return apperr.ErrUnauthorized
    }

    if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
        return err
    }

    s.publishMembership(ctx, groupID, "member_removed", userID)
    return nil
}

func (s *groupService) Ban(ctx context.Context, groupID, actorID, userID string) error {
    if err := s.guard.EnsureOperational(ctx, actorID); err != nil {
        return err
    }
    if err := s.requireManager(ctx, groupID, actorID); err != nil {
        return err
    }

    target, err := s.repo.GetMembership(ctx, groupID, userID)
    if err != nil {
        return err
    }
    if target.Role == RoleCreator {
        return apperr.ErrUnauthorized
    }

    if err := s.repo.SetBanned(ctx, groupID, userID, true); err != nil {
        return err
    }

    s.publishMembership(ctx, groupID, "member_banned", userID)
    return nil
}

func (s *groupService) Promote(ctx context.Context, groupID, actorID, userID string) error {
    if err := s.guard.EnsureOperational(ctx, actorID); err != nil {
        return err
    }
    if err := s.requireManager(ctx, groupID, actorID); err != nil {
        return err
    }

    if err := s.repo.SetRole(ctx, groupID, userID, RoleAdmin); err != nil {
        return err
    }

    s.publishMembership(ctx, groupID, "member_promoted", userID)
    return nil
}

func (s *groupService) Disable(ctx context.Context, groupID string, days int) error {
    return s.repo.SetDisabledUntil(ctx, groupID, days)
}

func (s *groupService) Delete(ctx context.Context, groupID string) error {
    return s.repo.Tombstone(ctx, groupID)
}

// IsSuspended reports whether the group currently rejects new
// messages, clearing an elapsed window on the way (lazy reinstatement,
// no background job).
func (s *groupService) IsSuspended(ctx context.Context, groupID string) (bool, error) {
    group, err := s.repo.Get(ctx, groupID)
    if err != nil {
        return false, err
    }

    if group.DisabledUntil == nil {
        return false, nil
    }
    if group.Suspended(time.Now()) {
        return true, nil
    }

    if err := s.repo.ClearExpiredDisable(ctx, groupID); err != nil {
        return false, err
    }
    return false, nil
}

func (s *groupService) publishMembership(ctx context.Context, groupID, change, userID string) {
    event := events.NewEvent(events.TypeGroupMembership, map[string]string{
        "group_id": groupID,
        "change":   change,
        "user_id":  userID,
    })
    event.ConversationID = groupID
    if err := s.bus.Publish(ctx, event); err != nil {
        log.Printf("Error publishing membership event: %v", err)
    }
}
