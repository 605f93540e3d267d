// internal/users/postgres.go

package users

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/jmoiron/sqlx"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
)

type postgresRepository struct {
    db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

// Upsert creates the user on first authenticated session.
// A tombstoned user is never resurrected by a stray token.
func (r *postgresRepository) Upsert(ctx context.Context, userID, displayName string) error {
    query := `
        INSERT INTO users (id, display_name, created_at, updated_at)
        VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        ON CONFLICT (id) DO UPDATE
        SET display_name = EXCLUDED.display_name,
            updated_at = CURRENT_TIMESTAMP
        WHERE users.deleted_at IS NULL`

    _, err := r.db.ExecContext(ctx, query, userID, displayName)
    return err
}

func (r *postgresRepository) Get(ctx context.Context, userID string) (*User, error) {
    var user User
    query := `SELECT * FROM users WHERE id = $1`

    err := r.db.GetContext(ctx, &user, query, userID)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, apperr.ErrNotFound
    }
    if err != nil {
        return nil, err
    }

    return &user, nil
}

func (r *postgresRepository) GetMany(ctx context.Context, userIDs []string) ([]*User, error) {
    if len(userIDs) == 0 {
        return nil, nil
    }

    query, args, err := sqlx.In(`SELECT * FROM users WHERE id IN (?)`, userIDs)
    if err != nil {
        return nil, err
    }
    query = r.db.Rebind(query)

    var result []*User
    if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
        return nil, err
    }

    return result, nil
}

func (r *postgresRepository) SetVerified(ctx context.Context, userID string, verified bool) error {
    query := `
        UPDATE users
        SET is_verified = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted_at IS NULL`

    result, err := r.db.ExecContext(ctx, query, verified, userID)
    if err != nil {
        return err
    }
    return requireRow(result)
}

// SetSuspension opens a suspension window; a nil until suspends
// indefinitely. Passing a past timestamp effectively reinstates.
func (r *postgresRepository) SetSuspension(ctx context.Context, userID string, until *time.Time) error {
    query := `
        UPDATE users
        SET is_disabled = TRUE, disabled_until = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted_at IS NULL`

    result, err := r.db.ExecContext(ctx, query, until, userID)
    if err != nil {
        return err
    }
    return requireRow(result)
}

// ClearExpiredSuspension lazily reinstates a user whose window elapsed.
// Conditional update so concurrent accesses cannot re-suspend.
func (r *postgresRepository) ClearExpiredSuspension(ctx context.Context, userID string) error {
    query := `
        UPDATE users
        SET is_disabled = FALSE, disabled_until = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1
          AND is_disabled = TRUE
          AND disabled_until IS NOT NULL
          AND disabled_until <= CURRENT_TIMESTAMP`

    _, err := r.db.ExecContext(ctx, query, userID)
    return err
}

// Tombstone soft-deletes the user. Display name is blanked but the row
// stays so conversations and audit entries keep a resolvable reference.
func (r *postgresRepository) Tombstone(ctx context.Context, userID string) error {
    query := `
        UPDATE users
        SET deleted_at = CURRENT_TIMESTAMP,
            display_name = 'Deleted User',
            avatar_url = NULL,
            is_online = FALSE,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND deleted_at IS NULL`

    result, err := r.db.ExecContext(ctx, query, userID)
    if err != nil {
        return err
    }
    return requireRow(result)
}

func (r *postgresRepository) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
    query := `
        UPDATE users
        SET is_online = $1, last_seen = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND deleted_at IS NULL`

    _, err := r.db.ExecContext(ctx, query, online, lastSeen, userID)
    return err
}

func requireRow(result sql.Result) error {
    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return apperr.ErrNotFound
    }
    return nil
}
