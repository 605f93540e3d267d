// internal/admin/postgres.go
// Settings toggles are single conditional statements so two admins
// flipping concurrently can never lose a write.

package admin

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"

    "github.com/jmoiron/sqlx"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
)

const settingsColumns = `
    version, maintenance_mode, group_member_limit,
    enable_group_chat, enable_file_sharing, enable_voice_messages,
    enable_message_reactions, enable_message_deletion, updated_at`

type postgresRepository struct {
    db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

func (r *postgresRepository) GetSettings(ctx context.Context) (*Settings, error) {
    var settings Settings
    query := `SELECT ` + settingsColumns + ` FROM admin_settings WHERE id = 1`

    err := r.db.GetContext(ctx, &settings, query)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, apperr.ErrNotFound
    }
    if err != nil {
        return nil, err
    }

    return &settings, nil
}

// ToggleMaintenance flips the gate in one atomic statement
func (r *postgresRepository) ToggleMaintenance(ctx context.Context) (*Settings, error) {
    var settings Settings
    query := `
        UPDATE admin_settings
        SET maintenance_mode = NOT maintenance_mode,
            version = version + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = 1
        RETURNING ` + settingsColumns

    if err := r.db.GetContext(ctx, &settings, query); err != nil {
        return nil, err
    }
    return &settings, nil
}

// ToggleFeature flips one flag column atomically. Flag names map to
// columns through a fixed table - never through string interpolation
// of caller input.
func (r *postgresRepository) ToggleFeature(ctx context.Context, flag string) (*Settings, error) {
    column, ok := flagColumns[flag]
    if !ok {
        return nil, fmt.Errorf("%w: unknown feature flag %q", apperr.ErrInvalidArgument, flag)
    }

    var settings Settings
    query := fmt.Sprintf(`
        UPDATE admin_settings
        SET %s = NOT %s,
            version = version + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = 1
        RETURNING `+settingsColumns, column, column)

    if err := r.db.GetContext(ctx, &settings, query); err != nil {
        return nil, err
    }
    return &settings, nil
}

var flagColumns = map[string]string{
    FlagGroupChat:        "enable_group_chat",
    FlagFileSharing:      "enable_file_sharing",
    FlagVoiceMessages:    "enable_voice_messages",
    FlagMessageReactions: "enable_message_reactions",
    FlagMessageDeletion:  "enable_message_deletion",
}

func (r *postgresRepository) SetMemberLimit(ctx context.Context, limit int) (*Settings, error) {
    var settings Settings
    query := `
        UPDATE admin_settings
        SET group_member_limit = $1,
            version = version + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = 1
        RETURNING ` + settingsColumns

    if err := r.db.GetContext(ctx, &settings, query, limit); err != nil {
        return nil, err
    }
    return &settings, nil
}

func (r *postgresRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
    var exists bool
    query := `SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1)`

    err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists)
    return exists, err
}

func (r *postgresRepository) AddAdmin(ctx context.Context, userID string) error {
    query := `
        INSERT INTO admins (user_id, created_at)
        VALUES ($1, CURRENT_TIMESTAMP)
        ON CONFLICT (user_id) DO NOTHING`

    _, err := r.db.ExecContext(ctx, query, userID)
    return err
}

func (r *postgresRepository) AppendAudit(ctx context.Context, action, actorID, targetID string, metadata json.RawMessage) error {
    query := `
        INSERT INTO audit_log (action, actor_id, target_id, metadata, created_at)
        VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)`

    _, err := r.db.ExecContext(ctx, query, action, actorID, targetID, metadata)
    return err
}

func (r *postgresRepository) ListAudit(ctx context.Context, limit, offset int) ([]*AuditLogEntry, error) {
    query := `
        SELECT id, action, actor_id, target_id, metadata, created_at
        FROM audit_log
        ORDER BY id DESC
        LIMIT $1 OFFSET $2`

    var entries []*AuditLogEntry
    if err := r.db.SelectContext(ctx, &entries, query, limit, offset); err != nil {
        return nil, err
    }

    return entries, nil
}
