// internal/groups/postgres.go

package groups

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/jmoiron/sqlx"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
)

type postgresRepository struct {
    db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

// Create inserts the group, its backing conversation row, and the
// initial roster in one transaction. The group is invisible until the
// transaction commits, so the roster size needs no lock here.
func (r *postgresRepository) Create(ctx context.Context, group *Group, memberIDs []string) error {
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    _, err = tx.ExecContext(ctx, `
        INSERT INTO groups (id, name, created_by, created_at)
        VALUES ($1, $2, $3, $4)`,
        group.ID, group.Name, group.CreatedBy, group.CreatedAt,
    )
    if err != nil {
        return fmt.Errorf("insert group: %w", err)
    }

    // The conversation shares the group's ID so the directory and the
    // message store address it uniformly
    _, err = tx.ExecContext(ctx, `
        INSERT INTO conversations (id, type, name, created_by, created_at, last_activity_at)
        VALUES ($1, 'group', $2, $3, $4, $4)`,
        group.ID, group.Name, group.CreatedBy, group.CreatedAt,
    )
    if err != nil {
        return fmt.Errorf("insert conversation: %w", err)
    }

    _, err = tx.ExecContext(ctx, `
        INSERT INTO group_members (group_id, user_id, role, joined_at)
        VALUES ($1, $2, $3, $4)`,
        group.ID, group.CreatedBy, RoleCreator, group.CreatedAt,
    )
    if err != nil {
        return fmt.Errorf("insert creator: %w", err)
    }

    for _, memberID := range memberIDs {
        _, err = tx.ExecContext(ctx, `
            INSERT INTO group_members (group_id, user_id, role, joined_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (group_id, user_id) DO NOTHING`,
            group.ID, memberID, RoleMember, group.CreatedAt,
        )
        if err != nil {
            return fmt.Errorf("insert member %s: %w", memberID, err)
        }
    }

    return tx.Commit()
}

func (r *postgresRepository) Get(ctx context.Context, groupID string) (*Group, error) {
    var group Group
    query := `
        SELECT id, name, created_by, disabled_until, deleted_at, created_at
        FROM groups
        WHERE id = $1`

    err := r.db.GetContext(ctx, &group, query, groupID)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, apperr.ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    if group.DeletedAt != nil {
        return nil, apperr.ErrNotFound
    }

    return &group, nil
}

func (r *postgresRepository) GetMembership(ctx context.Context, groupID, userID string) (*Membership, error) {
    var membership Membership
    query := `
        SELECT group_id, user_id, role, banned, joined_at
        FROM group_members
        WHERE group_id = $1 AND user_id = $2`

    err := r.db.GetContext(ctx, &membership, query, groupID, userID)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, apperr.ErrNotFound
    }
    if err != nil {
        return nil, err
    }

    return &membership, nil
}

func (r *postgresRepository) ListMembers(ctx context.Context, groupID string) ([]*Membership, error) {
    query := `
        SELECT group_id, user_id, role, banned, joined_at
        FROM group_members
        WHERE group_id = $1
        ORDER BY joined_at ASC`

    var members []*Membership
    if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
        return nil, err
    }

    return members, nil
}

// AddMember runs the roster-limit check and the insert inside one
// transaction that locks the group row, so two racing adds serialize
// and the roster can never exceed the limit, not even transiently.
func (r *postgresRepository) AddMember(ctx context.Context, groupID, userID string, limit int) error {
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    var id string
    err = tx.QueryRowContext(ctx, `
        SELECT id FROM groups
        WHERE id = $1 AND deleted_at IS NULL
        FOR UPDATE`, groupID,
    ).Scan(&id)
    if errors.Is(err, sql.ErrNoRows) {
        return apperr.ErrNotFound
    }
    if err != nil {
        return err
    }

    var existing Membership
    err = tx.GetContext(ctx, &existing, `
        SELECT group_id, user_id, role, banned, joined_at
        FROM group_members
        WHERE group_id = $1 AND user_id = $2`, groupID, userID)
    if err == nil {
        if existing.Banned {
            return apperr.ErrUnauthorized
        }
        // Already on the roster; idempotent
        return tx.Commit()
    }
    if !errors.Is(err, sql.ErrNoRows) {
        return err
    }

    var count int
    err = tx.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM group_members
        WHERE group_id = $1 AND NOT banned`, groupID,
    ).Scan(&count)
    if err != nil {
        return err
    }
    if count >= limit {
        return apperr.ErrLimitExceeded
    }

    _, err = tx.ExecContext(ctx, `
        INSERT INTO group_members (group_id, user_id, role, joined_at)
        VALUES ($1, $2, $3, CURRENT_TIMESTAMP)`,
        groupID, userID, RoleMember,
    )
    if err != nil {
        return err
    }

    return tx.Commit()
}

func (r *postgresRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
    query := `
        DELETE FROM group_members
        WHERE group_id = $1 AND user_id = $2 AND role != $3`

    result, err := r.db.ExecContext(ctx, query, groupID, userID, RoleCreator)
    if err != nil {
        return err
    }

    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return apperr.ErrNotFound
    }
    return nil
}

func (r *postgresRepository) SetBanned(ctx context.Context, groupID, userID string, banned bool) error {
    query := `
        UPDATE group_members
        SET banned = $1
        WHERE group_id = $2 AND user_id = $3 AND role != $4`

    result, err := r.db.ExecContext(ctx, query, banned, groupID, userID, RoleCreator)
    if err != nil {
        return err
    }

    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return apperr.ErrNotFound
    }
    return nil
}

// SetRole promotes or demotes; the creator role is fixed forever
func (r *postgresRepository) SetRole(ctx context.Context, groupID, userID, role string) error {
    query := `
        UPDATE group_members
        SET role = $1
        WHERE group_id = $2 AND user_id = $3 AND role != $4`

    result, err := r.db.ExecContext(ctx, query, role, groupID, userID, RoleCreator)
    if err != nil {
        return err
    }

    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return apperr.ErrNotFound
    }
    return nil
}

func (r *postgresRepository) SetDisabledUntil(ctx context.Context, groupID string, days int) error {
    query := `
        UPDATE groups
        SET disabled_until = CURRENT_TIMESTAMP + ($1 || ' days')::interval
        WHERE id = $2 AND deleted_at IS NULL`

    result, err := r.db.ExecContext(ctx, query, days, groupID)
    if err != nil {
        return err
    }

    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return apperr.ErrNotFound
    }
    return nil
}

// ClearExpiredDisable lazily reinstates a group whose window elapsed
func (r *postgresRepository) ClearExpiredDisable(ctx context.Context, groupID string) error {
    query := `
        UPDATE groups
        SET disabled_until = NULL
        WHERE id = $1
          AND disabled_until IS NOT NULL
          AND disabled_until <= CURRENT_TIMESTAMP`

    _, err := r.db.ExecContext(ctx, query, groupID)
    return err
}

func (r *postgresRepository) Tombstone(ctx context.Context, groupID string) error {
    query := `
        UPDATE groups
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND deleted_at IS NULL`

    result, err := r.db.ExecContext(ctx, query, groupID)
    if err != nil {
        return err
    }

    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return apperr.ErrNotFound
    }
    return nil
}
