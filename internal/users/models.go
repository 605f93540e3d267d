// internal/users/models.go

package users

import (
    "time"
)

// User represents an account known to the coordination core.
// Identity is minted externally; this record carries profile, presence
// and moderation state. Users are never hard-deleted: removal sets
// deleted_at (tombstone) so message history keeps resolving.
type User struct {
    ID            string     `json:"id" db:"id"`
    DisplayName   string     `json:"display_name" db:"display_name"`
    AvatarURL     *string    `json:"avatar_url,omitempty" db:"avatar_url"`
    IsVerified    bool       `json:"is_verified" db:"is_verified"`
    IsOnline      bool       `json:"is_online" db:"is_online"`
    LastSeen      *time.Time `json:"last_seen,omitempty" db:"last_seen"`
    IsDisabled    bool       `json:"is_disabled" db:"is_disabled"`
    DisabledUntil *time.Time `json:"disabled_until,omitempty" db:"disabled_until"`
    DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
    CreatedAt     time.Time  `json:"created_at" db:"created_at"`
    UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Suspended reports whether the user is currently inside a suspension
// window. Expiry is evaluated on access, not by a background timer.
func (u *User) Suspended(now time.Time) bool {
    if !u.IsDisabled {
        return false
    }
    if u.DisabledUntil == nil {
        // Open-ended suspension
        return true
    }
    return now.Before(*u.DisabledUntil)
}

// Tombstoned reports whether the user was removed by moderation
func (u *User) Tombstoned() bool {
    return u.DeletedAt != nil
}
