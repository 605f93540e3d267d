// internal/groups/models.go

package groups

import (
    "time"
)

// Membership roles. Exactly one creator exists per group, assigned at
// creation and never reassignable through member management.
const (
    RoleCreator = "creator"
    RoleAdmin   = "admin"
    RoleMember  = "member"
)

// Group is a group conversation's roster container. DisabledUntil
// implements the suspension window; DeletedAt is a tombstone.
type Group struct {
    ID            string     `json:"id" db:"id"`
    Name          string     `json:"name" db:"name"`
    CreatedBy     string     `json:"created_by" db:"created_by"`
    DisabledUntil *time.Time `json:"disabled_until,omitempty" db:"disabled_until"`
    DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
    CreatedAt     time.Time  `json:"created_at" db:"created_at"`

    // Computed
    Members []*Membership `json:"members,omitempty"`
}

// Suspended reports whether the group is inside its disable window
func (g *Group) Suspended(now time.Time) bool {
    return g.DisabledUntil != nil && now.Before(*g.DisabledUntil)
}

// Membership maps a user into a group roster. Stored keyed by
// (group_id, user_id); role and ban flag live on the row.
type Membership struct {
    GroupID  string    `json:"group_id" db:"group_id"`
    UserID   string    `json:"user_id" db:"user_id"`
    Role     string    `json:"role" db:"role"`
    Banned   bool      `json:"banned" db:"banned"`
    JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// CreateGroupRequest is the payload for group creation
type CreateGroupRequest struct {
    Name    string   `json:"name" validate:"required,min=1,max=100"`
    Members []string `json:"members"`
}
