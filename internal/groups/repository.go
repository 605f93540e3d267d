// internal/groups/repository.go

package groups

import (
    "context"
)

type Repository interface {
    Create(ctx context.Context, group *Group, memberIDs []string) error
    Get(ctx context.Context, groupID string) (*Group, error)
    GetMembership(ctx context.Context, groupID, userID string) (*Membership, error)
    ListMembers(ctx context.Context, groupID string) ([]*Membership, error)

    // AddMember inserts iff the active roster is below limit, in one
    // serialized transaction per group (closes the read-then-write race)
    AddMember(ctx context.Context, groupID, userID string, limit int) error

    RemoveMember(ctx context.Context, groupID, userID string) error
    SetBanned(ctx context.Context, groupID, userID string, banned bool) error
    SetRole(ctx context.Context, groupID, userID, role string) error

    SetDisabledUntil(ctx context.Context, groupID string, days int) error
    ClearExpiredDisable(ctx context.Context, groupID string) error
    Tombstone(ctx context.Context, groupID string) error
}
