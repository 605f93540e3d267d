// internal/users/repository.go

package users

import (
    "context"
    "time"
)

type Repository interface {
    Upsert(ctx context.Context, userID, displayName string) error
    Get(ctx context.Context, userID string) (*User, error)
    GetMany(ctx context.Context, userIDs []string) ([]*User, error)
    SetVerified(ctx context.Context, userID string, verified bool) error
    SetSuspension(ctx context.Context, userID string, until *time.Time) error
    ClearExpiredSuspension(ctx context.Context, userID string) error
    Tombstone(ctx context.Context, userID string) error
    UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}
