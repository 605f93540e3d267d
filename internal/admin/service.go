// internal/admin/service.go
// Moderation & policy engine. Holds the settings singleton behind a
// versioned cache, the admins set, the audit log, and the guard checks
// every other module routes its writes through.

package admin

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "sync/atomic"
    "time"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/users"
)

// GroupModerator is implemented by the group membership manager.
// Set after construction to avoid a circular dependency.
type GroupModerator interface {
    Disable(ctx context.Context, groupID string, days int) error
    Delete(ctx context.Context, groupID string) error
}

type Service interface {
    // Guard checks consumed by the other modules
    EnsureOperational(ctx context.Context, actorID string) error
    FeatureEnabled(ctx context.Context, flag string) bool
    IsAdmin(ctx context.Context, userID string) bool
    MemberLimit(ctx context.Context) int
    Settings(ctx context.Context) *Settings

    // Admin mutations (actor must be in the admins set)
    ToggleFeature(ctx context.Context, flag, actorID string) (*Settings, error)
    ToggleMaintenance(ctx context.Context, actorID string) (*Settings, error)
    SetMemberLimit(ctx context.Context, limit int, actorID string) (*Settings, error)
    SuspendUser(ctx context.Context, targetID string, days int, actorID string) error
    ReinstateUser(ctx context.Context, targetID, actorID string) error
    VerifyUser(ctx context.Context, targetID, actorID string) error
    RemoveUser(ctx context.Context, targetID, actorID string) error
    DisableGroup(ctx context.Context, groupID string, days int, actorID string) error
    DeleteGroup(ctx context.Context, groupID, actorID string) error
    AddAdmin(ctx context.Context, targetID, actorID string) error
    ListAudit(ctx context.Context, actorID string, limit, offset int) ([]*AuditLogEntry, error)

    // Audit hook for non-admin modules (chat request resolutions)
    RecordAction(ctx context.Context, action, actorID, targetID string, metadata map[string]interface{})

    SetGroupModerator(groups GroupModerator)
    WatchInvalidations(ctx context.Context)
}

type adminService struct {
    repo   Repository
    users  users.Service
    groups GroupModerator
    bus    events.Bus

    // cached settings snapshot; reloaded on every invalidation event
    cached atomic.Value // *Settings
}

func NewService(repo Repository, userService users.Service, bus events.Bus) Service {
    s := &adminService{
        repo:  repo,
        users: userService,
        bus:   bus,
    }
    s.reload(context.Background())
    return s
}

// SetGroupModerator wires the group manager after initialization to
// avoid a circular dependency
func (s *adminService) SetGroupModerator(groups GroupModerator) {
    s.groups = groups
}

// Settings returns the current policy snapshot. A corrupted or
// unreadable singleton fails closed: the returned snapshot has
// maintenance mode on, so non-admin writes stop instead of crashing.
func (s *adminService) Settings(ctx context.Context) *Settings {
    if cached, ok := s.cached.Load().(*Settings); ok && cached != nil {
        return cached
    }
    return s.reload(ctx)
}

func (s *adminService) reload(ctx context.Context) *Settings {
    settings, err := s.repo.GetSettings(ctx)
    if err != nil {
        log.Printf("Error loading admin settings, failing closed: %v", err)
        return &Settings{MaintenanceMode: true, GroupMemberLimit: 1}
    }
    s.cached.Store(settings)
    return settings
}

// WatchInvalidations keeps the cached settings fresh across instances.
// Run as a goroutine from main.
func (s *adminService) WatchInvalidations(ctx context.Context) {
    ch, cancel, err := s.bus.Subscribe(ctx)
    if err != nil {
        log.Printf("Error subscribing to settings invalidations: %v", err)
        return
    }
    defer cancel()

    for {
        select {
        case event, ok := <-ch:
            if !ok {
                return
            }
            if event.Type == events.TypeSettingsChanged {
                s.reload(ctx)
            }
        case <-ctx.Done():
            return
        }
    }
}

// EnsureOperational is the write gate for components 4.3-4.6:
// maintenance mode blocks non-admin actors, and suspended or
// tombstoned actors are rejected outright.
func (s *adminService) EnsureOperational(ctx context.Context, actorID string) error {
    settings := s.Settings(ctx)
    if settings.MaintenanceMode && !s.IsAdmin(ctx, actorID) {
        return apperr.ErrMaintenanceMode
    }

    actor, err := s.users.Get(ctx, actorID)
    if err != nil {
        return err
    }
    if actor.Tombstoned() {
        return apperr.ErrNotFound
    }
    if actor.Suspended(time.Now()) {
        return apperr.ErrUnauthorized
    }

    return nil
}

func (s *adminService) FeatureEnabled(ctx context.Context, flag string) bool {
    return s.Settings(ctx).FeatureEnabled(flag)
}

func (s *adminService) IsAdmin(ctx context.Context, userID string) bool {
    isAdmin, err := s.repo.IsAdmin(ctx, userID)
    if err != nil {
        log.Printf("Error checking admin set for %s: %v", userID, err)
        return false
    }
    return isAdmin
}

func (s *adminService) MemberLimit(ctx context.Context) int {
    return s.Settings(ctx).GroupMemberLimit
}

func (s *adminService) requireAdmin(ctx context.Context, actorID string) error {
    if !s.IsAdmin(ctx, actorID) {
        return apperr.ErrUnauthorized
    }
    return nil
}

func (s *adminService) ToggleFeature(ctx context.Context, flag, actorID string) (*Settings, error) {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return nil, err
    }

    settings, err := s.repo.ToggleFeature(ctx, flag)
    if err != nil {
        return nil, err
    }
    s.settingsChanged(ctx, settings)

    s.RecordAction(ctx, ActionToggleFeature, actorID, flag, map[string]interface{}{
        "enabled": settings.FeatureEnabled(flag),
    })
    recordAuditAction(ActionToggleFeature)
    return settings, nil
}

func (s *adminService) ToggleMaintenance(ctx context.Context, actorID string) (*Settings, error) {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return nil, err
    }

    settings, err := s.repo.ToggleMaintenance(ctx)
    if err != nil {
        return nil, err
    }
    s.settingsChanged(ctx, settings)

    s.RecordAction(ctx, ActionToggleMaintenance, actorID, "settings", map[string]interface{}{
        "maintenance_mode": settings.MaintenanceMode,
    })
    recordAuditAction(ActionToggleMaintenance)
    return settings, nil
}

func (s *adminService) SetMemberLimit(ctx context.Context, limit int, actorID string) (*Settings, error) {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return nil, err
    }
    if limit < 1 || limit > 100 {
        return nil, fmt.Errorf("%w: member limit must be between 1 and 100", apperr.ErrInvalidArgument)
    }

    settings, err := s.repo.SetMemberLimit(ctx, limit)
    if err != nil {
        return nil, err
    }
    s.settingsChanged(ctx, settings)

    s.RecordAction(ctx, ActionSetMemberLimit, actorID, "settings", map[string]interface{}{
        "limit": limit,
    })
    recordAuditAction(ActionSetMemberLimit)
    return settings, nil
}

func (s *adminService) SuspendUser(ctx context.Context, targetID string, days int, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }
    if days < 1 {
        return fmt.Errorf("%w: suspension days must be positive", apperr.ErrInvalidArgument)
    }

    if err := s.users.Suspend(ctx, targetID, days); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionSuspendUser, actorID, targetID, map[string]interface{}{
        "days": days,
    })
    recordAuditAction(ActionSuspendUser)
    return nil
}

func (s *adminService) ReinstateUser(ctx context.Context, targetID, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }

    if err := s.users.Reinstate(ctx, targetID); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionReinstateUser, actorID, targetID, nil)
    recordAuditAction(ActionReinstateUser)
    return nil
}

func (s *adminService) VerifyUser(ctx context.Context, targetID, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }

    if err := s.users.SetVerified(ctx, targetID, true); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionVerifyUser, actorID, targetID, nil)
    recordAuditAction(ActionVerifyUser)
    return nil
}

// RemoveUser tombstones the account instead of deleting the row, so
// message history keeps referential integrity.
func (s *adminService) RemoveUser(ctx context.Context, targetID, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }

    if err := s.users.Tombstone(ctx, targetID); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionRemoveUser, actorID, targetID, nil)
    recordAuditAction(ActionRemoveUser)
    return nil
}

func (s *adminService) DisableGroup(ctx context.Context, groupID string, days int, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }
    if days < 1 {
        return fmt.Errorf("%w: disable days must be positive", apperr.ErrInvalidArgument)
    }

    if err := s.groups.Disable(ctx, groupID, days); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionDisableGroup, actorID, groupID, map[string]interface{}{
        "days": days,
    })
    recordAuditAction(ActionDisableGroup)
    return nil
}

func (s *adminService) DeleteGroup(ctx context.Context, groupID, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }

    if err := s.groups.Delete(ctx, groupID); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionDeleteGroup, actorID, groupID, nil)
    recordAuditAction(ActionDeleteGroup)
    return nil
}

func (s *adminService) AddAdmin(ctx context.Context, targetID, actorID string) error {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return err
    }

    if err := s.repo.AddAdmin(ctx, targetID); err != nil {
        return err
    }

    s.RecordAction(ctx, ActionAddAdmin, actorID, targetID, nil)
    recordAuditAction(ActionAddAdmin)
    return nil
}

func (s *adminService) ListAudit(ctx context.Context, actorID string, limit, offset int) ([]*AuditLogEntry, error) {
    if err := s.requireAdmin(ctx, actorID); err != nil {
        return nil, err
    }
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    return s.repo.ListAudit(ctx, limit, offset)
}

// RecordAction appends an audit entry. Audit failures are logged, not
// propagated - the underlying action already happened.
func (s *adminService) RecordAction(ctx context.Context, action, actorID, targetID string, metadata map[string]interface{}) {
    var raw json.RawMessage
    if metadata != nil {
        if data, err := json.Marshal(metadata); err == nil {
            raw = data
        }
    }
    if err := s.repo.AppendAudit(ctx, action, actorID, targetID, raw); err != nil {
        log.Printf("Error appending audit entry %s by %s: %v", action, actorID, err)
    }
}

func (s *adminService) settingsChanged(ctx context.Context, settings *Settings) {
    s.cached.Store(settings)
    event := events.NewEvent(events.TypeSettingsChanged, settings)
    if err := s.bus.Publish(ctx, event); err != nil {
        log.Printf("Error publishing settings invalidation: %v", err)
    }
}
