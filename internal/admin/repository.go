// internal/admin/repository.go

package admin

import (
    "context"
    "encoding/json"
)

type Repository interface {
    // Settings singleton
    GetSettings(ctx context.Context) (*Settings, error)
    ToggleMaintenance(ctx context.Context) (*Settings, error)
    ToggleFeature(ctx context.Context, flag string) (*Settings, error)
    SetMemberLimit(ctx context.Context, limit int) (*Settings, error)

    // Admins set
    IsAdmin(ctx context.Context, userID string) (bool, error)
    AddAdmin(ctx context.Context, userID string) error

    // Audit log
    AppendAudit(ctx context.Context, action, actorID, targetID string, metadata json.RawMessage) error
    ListAudit(ctx context.Context, limit, offset int) ([]*AuditLogEntry, error)
}
