// internal/users/service.go

package users

import (
    "context"
    "fmt"
    "time"
)

type Service interface {
    EnsureUser(ctx context.Context, userID, displayName string) error
    Get(ctx context.Context, userID string) (*User, error)
    GetMany(ctx context.Context, userIDs []string) ([]*User, error)
    SetVerified(ctx context.Context, userID string, verified bool) error
    Suspend(ctx context.Context, userID string, days int) error
    Reinstate(ctx context.Context, userID string) error
    Tombstone(ctx context.Context, userID string) error
    UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}

type userService struct {
    repo Repository
}

func NewService(repo Repository) Service {
    return &userService{repo: repo}
}

func (s *userService) EnsureUser(ctx context.Context, userID, displayName string) error {
    if displayName == "" {
        displayName = userID
    }
    return s.repo.Upsert(ctx, userID, displayName)
}

// Get returns the user, lazily clearing an elapsed suspension window
// on the way out. No background sweeper is needed.
func (s *userService) Get(ctx context.Context, userID string) (*User, error) {
    user, err := s.repo.Get(ctx, userID)
    if err != nil {
        return nil, err
    }

    if user.IsDisabled && !user.Suspended(time.Now()) {
        if err := s.repo.ClearExpiredSuspension(ctx, userID); err != nil {
            return nil, fmt.Errorf("clear expired suspension: %w", err)
        }
        user.IsDisabled = false
        user.DisabledUntil = nil
    }

    return user, nil
}

func (s *userService) GetMany(ctx context.Context, userIDs []string) ([]*User, error) {
    return s.repo.GetMany(ctx, userIDs)
}

func (s *userService) SetVerified(ctx context.Context, userID string, verified bool) error {
    return s.repo.SetVerified(ctx, userID, verified)
}

func (s *userService) Suspend(ctx context.Context, userID string, days int) error {
    var until *time.Time
    if days > 0 {
        t := time.Now().AddDate(0, 0, days)
        until = &t
    }
    return s.repo.SetSuspension(ctx, userID, until)
}

func (s *userService) Reinstate(ctx context.Context, userID string) error {
    past := time.Now().Add(-time.Second)
    if err := s.repo.SetSuspension(ctx, userID, &past); err != nil {
        return err
    }
    return s.repo.ClearExpiredSuspension(ctx, userID)
}

func (s *userService) Tombstone(ctx context.Context, userID string) error {
    return s.repo.Tombstone(ctx, userID)
}

func (s *userService) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
    return s.repo.UpdatePresence(ctx, userID, online, lastSeen)
}
