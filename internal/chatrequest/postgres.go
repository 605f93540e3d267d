// internal/chatrequest/postgres.go

package chatrequest

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/jmoiron/sqlx"
    "github.com/lib/pq"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
)

type postgresRepository struct {
    db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL chat request repository
func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

const requestColumns = `id, conversation_id, from_user_id, to_user_id, status, created_at, resolved_at`

func (r *postgresRepository) CreatePending(ctx context.Context, request *ChatRequest) error {
    // A partial unique index on (from_user_id, to_user_id) WHERE
    // status = 'pending' rejects concurrent duplicates.
    err := r.db.QueryRowxContext(ctx, `
        INSERT INTO chat_requests (id, conversation_id, from_user_id, to_user_id, status, created_at)
        VALUES ($1, $2, $3, $4, 'pending', NOW())
        RETURNING created_at`,
        request.ID, request.ConversationID, request.FromUserID, request.ToUserID,
    ).Scan(&request.CreatedAt)
    if err != nil {
        var pqErr *pq.Error
        if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
            return apperr.ErrDuplicateRequest
        }
        return fmt.Errorf("failed to create chat request: %w", err)
    }
    request.Status = StatusPending
    return nil
}

func (r *postgresRepository) Get(ctx context.Context, requestID string) (*ChatRequest, error) {
    var request ChatRequest
    err := r.db.GetContext(ctx, &request,
        `SELECT `+requestColumns+` FROM chat_requests WHERE id = $1`, requestID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to get chat request: %w", err)
    }
    return &request, nil
}

func (r *postgresRepository) PendingBetween(ctx context.Context, fromUserID, toUserID string) (*ChatRequest, error) {
    var request ChatRequest
    err := r.db.GetContext(ctx, &request, `
        SELECT `+requestColumns+` FROM chat_requests
        WHERE from_user_id = $1 AND to_user_id = $2 AND status = 'pending'`,
        fromUserID, toUserID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to get pending request: %w", err)
    }
    return &request, nil
}

func (r *postgresRepository) ListPendingFor(ctx context.Context, toUserID string) ([]*ChatRequest, error) {
    requests := []*ChatRequest{}
    err := r.db.SelectContext(ctx, &requests, `
        SELECT `+requestColumns+` FROM chat_requests
        WHERE to_user_id = $1 AND status = 'pending'
        ORDER BY created_at DESC`,
        toUserID)
    if err != nil {
        return nil, fmt.Errorf("failed to list pending requests: %w", err)
    }
    return requests, nil
}

func (r *postgresRepository) Resolve(ctx context.Context, requestID, status string) (*ChatRequest, error) {
    var request ChatRequest
    // Conditional on pending so double resolution loses cleanly
    err := r.db.GetContext(ctx, &request, `
        UPDATE chat_requests
        SET status = $2, resolved_at = NOW()
        WHERE id = $1 AND status = 'pending'
        RETURNING `+requestColumns,
        requestID, status)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to resolve chat request: %w", err)
    }
    return &request, nil
}
