// internal/messaging/postgres.go

package messaging

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"
    "unicode/utf8"

    "github.com/jmoiron/sqlx"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
)

const previewMaxBytes = 120

// truncatePreview caps the directory preview, backing up to a rune
// boundary so a multibyte character is never split
func truncatePreview(text string, max int) string {
    if len(text) <= max {
        return text
    }
    cut := max
    for cut > 0 && !utf8.RuneStart(text[cut]) {
        cut--
    }
    return text[:cut]
}

type postgresRepository struct {
    db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL messaging repository
func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

const conversationColumns = `id, type, name, created_by, user_a, user_b, locked, last_activity_at, created_at`

func (r *postgresRepository) EnsureDirect(ctx context.Context, creatorID, otherID string) (*Conversation, error) {
    if creatorID == otherID {
        return nil, apperr.ErrInvalidArgument
    }
    conversationID := DirectConversationID(creatorID, otherID)

    conversation, err := r.GetConversation(ctx, conversationID)
    if err == nil {
        return conversation, nil
    }
    if !errors.Is(err, apperr.ErrNotFound) {
        return nil, err
    }

    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return nil, fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    // A first contact from an unverified sender to a verified
    // recipient starts locked and goes through the request gate.
    var creatorVerified, otherVerified bool
    err = tx.QueryRowxContext(ctx,
        `SELECT is_verified FROM users WHERE id = $1 AND deleted_at IS NULL`, creatorID,
    ).Scan(&creatorVerified)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to load sender: %w", err)
    }
    err = tx.QueryRowxContext(ctx,
        `SELECT is_verified FROM users WHERE id = $1 AND deleted_at IS NULL`, otherID,
    ).Scan(&otherVerified)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to load recipient: %w", err)
    }
    locked := otherVerified && !creatorVerified

    userA, userB := creatorID, otherID
    if userA > userB {
        userA, userB = userB, userA
    }

    _, err = tx.ExecContext(ctx, `
        INSERT INTO conversations (id, type, created_by, user_a, user_b, locked, last_activity_at, created_at)
        VALUES ($1, 'direct', $2, $3, $4, $5, NOW(), NOW())
        ON CONFLICT (id) DO NOTHING`,
        conversationID, creatorID, userA, userB, locked,
    )
    if err != nil {
        return nil, fmt.Errorf("failed to create conversation: %w", err)
    }
    if err := tx.Commit(); err != nil {
        return nil, fmt.Errorf("failed to commit transaction: %w", err)
    }

    return r.GetConversation(ctx, conversationID)
}

func (r *postgresRepository) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
    var conversation Conversation
    err := r.db.GetContext(ctx, &conversation,
        `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, conversationID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to get conversation: %w", err)
    }
    return &conversation, nil
}

func (r *postgresRepository) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, error) {
    summaries := []*ConversationSummary{}
    err := r.db.SelectContext(ctx, &summaries, `
        SELECT c.id, c.type, c.name,
               CASE WHEN c.type = 'direct' AND c.user_a = $1 THEN c.user_b
                    WHEN c.type = 'direct' THEN c.user_a
                    ELSE NULL END AS counterpart_id,
               c.locked, c.last_activity_at, c.last_message_preview
        FROM conversations c
        WHERE (c.type = 'direct'
               AND (c.user_a = $1 OR c.user_b = $1)
               AND (NOT c.locked OR c.created_by = $1))
           OR (c.type = 'group'
               AND EXISTS (
                   SELECT 1 FROM group_members gm
                   WHERE gm.group_id = c.id AND gm.user_id = $1 AND NOT gm.banned)
               AND EXISTS (
                   SELECT 1 FROM groups g
                   WHERE g.id = c.id AND g.deleted_at IS NULL))
        ORDER BY c.last_activity_at DESC
        LIMIT $2 OFFSET $3`,
        userID, limit, offset)
    if err != nil {
        return nil, fmt.Errorf("failed to list conversations: %w", err)
    }
    return summaries, nil
}

func (r *postgresRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
    var isParticipant bool
    err := r.db.GetContext(ctx, &isParticipant, `
        SELECT EXISTS (
            SELECT 1 FROM conversations c
            WHERE c.id = $1
              AND ((c.type = 'direct' AND (c.user_a = $2 OR c.user_b = $2))
                OR (c.type = 'group' AND EXISTS (
                    SELECT 1 FROM group_members gm
                    WHERE gm.group_id = c.id AND gm.user_id = $2 AND NOT gm.banned))))`,
        conversationID, userID)
    if err != nil {
        return false, fmt.Errorf("failed to check participant: %w", err)
    }
    return isParticipant, nil
}

func (r *postgresRepository) Participants(ctx context.Context, conversationID string) ([]string, error) {
    participants := []string{}
    err := r.db.SelectContext(ctx, &participants, `
        SELECT user_a FROM conversations WHERE id = $1 AND type = 'direct' AND user_a IS NOT NULL
        UNION
        SELECT user_b FROM conversations WHERE id = $1 AND type = 'direct' AND user_b IS NOT NULL
        UNION
        SELECT gm.user_id FROM group_members gm
        JOIN conversations c ON c.id = gm.group_id
        WHERE c.id = $1 AND c.type = 'group' AND NOT gm.banned`,
        conversationID)
    if err != nil {
        return nil, fmt.Errorf("failed to list participants: %w", err)
    }
    return participants, nil
}

func (r *postgresRepository) Unlock(ctx context.Context, conversationID string) error {
    result, err := r.db.ExecContext(ctx,
        `UPDATE conversations SET locked = FALSE WHERE id = $1`, conversationID)
    if err != nil {
        return fmt.Errorf("failed to unlock conversation: %w", err)
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

func (r *postgresRepository) HasMessages(ctx context.Context, conversationID string) (bool, error) {
    var hasMessages bool
    err := r.db.GetContext(ctx, &hasMessages,
        `SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = $1)`, conversationID)
    if err != nil {
        return false, fmt.Errorf("failed to check messages: %w", err)
    }
    return hasMessages, nil
}

func (r *postgresRepository) CreateMessage(ctx context.Context, message *Message) error {
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    err = tx.QueryRowxContext(ctx, `
        INSERT INTO messages (conversation_id, sender_id, text, status, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, created_at`,
        message.ConversationID, message.SenderID, message.Text, StatusSent,
    ).Scan(&message.ID, &message.CreatedAt)
    if err != nil {
        return fmt.Errorf("failed to create message: %w", err)
    }
    message.Status = StatusSent

    preview := truncatePreview(message.Text, previewMaxBytes)
    _, err = tx.ExecContext(ctx, `
        UPDATE conversations
        SET last_activity_at = $2, last_message_preview = $3
        WHERE id = $1`,
        message.ConversationID, message.CreatedAt, preview)
    if err != nil {
        return fmt.Errorf("failed to touch conversation: %w", err)
    }

    return tx.Commit()
}

func (r *postgresRepository) GetMessage(ctx context.Context, conversationID string, messageID int64) (*Message, error) {
    var message Message
    err := r.db.GetContext(ctx, &message, `
        SELECT id, conversation_id, sender_id, text, status, deleted_for_everyone, created_at
        FROM messages
        WHERE id = $1 AND conversation_id = $2`,
        messageID, conversationID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, apperr.ErrNotFound
        }
        return nil, fmt.Errorf("failed to get message: %w", err)
    }
    return &message, nil
}

func (r *postgresRepository) ListMessages(ctx context.Context, conversationID, viewerID string, limit int, beforeID int64) ([]*Message, error) {
    query := `
        SELECT m.id, m.conversation_id, m.sender_id, m.text, m.status, m.deleted_for_everyone, m.created_at
        FROM messages m
        WHERE m.conversation_id = $1
          AND NOT EXISTS (
              SELECT 1 FROM message_deletions md
              WHERE md.message_id = m.id AND md.user_id = $2)`
    args := []interface{}{conversationID, viewerID}
    if beforeID > 0 {
        query += ` AND m.id < $3`
        args = append(args, beforeID)
    }
    query += fmt.Sprintf(` ORDER BY m.created_at DESC, m.id DESC LIMIT %d`, limit)

    messages := []*Message{}
    if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
        return nil, fmt.Errorf("failed to list messages: %w", err)
    }

    // Reverse into chronological order
    for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
        messages[i], messages[j] = messages[j], messages[i]
    }
    return messages, nil
}

func (r *postgresRepository) AdvanceStatus(ctx context.Context, conversationID string, messageID int64, status string) (bool, error) {
    if statusRank(status) < 0 {
        return false, apperr.ErrInvalidArgument
    }
    // The conditional update makes the transition monotonic under
    // concurrent receipts: a later status never falls back.
    result, err := r.db.ExecContext(ctx, `
        UPDATE messages
        SET status = $3
        WHERE id = $1 AND conversation_id = $2
          AND array_position(ARRAY['sent','delivered','seen'], status)
            < array_position(ARRAY['sent','delivered','seen'], $3)`,
        messageID, conversationID, status)
    if err != nil {
        return false, fmt.Errorf("failed to advance status: %w", err)
    }
    rows, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return rows > 0, nil
}

// ToggleReaction applies one user's reaction to a message: a new emoji
// is added, the same emoji is removed, a different emoji replaces the
// previous one. Returns the action taken.
func (r *postgresRepository) ToggleReaction(ctx context.Context, messageID int64, userID, emoji string) (string, error) {
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return "", fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    var current string
    err = tx.QueryRowxContext(ctx,
        `SELECT emoji FROM message_reactions WHERE message_id = $1 AND user_id = $2 FOR UPDATE`,
        messageID, userID,
    ).Scan(&current)

    var action string
    switch {
    case errors.Is(err, sql.ErrNoRows):
        _, err = tx.ExecContext(ctx,
            `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)`,
            messageID, userID, emoji)
        action = "added"
    case err != nil:
        return "", fmt.Errorf("failed to read reaction: %w", err)
    case current == emoji:
        _, err = tx.ExecContext(ctx,
            `DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2`,
            messageID, userID)
        action = "removed"
    default:
        _, err = tx.ExecContext(ctx,
            `UPDATE message_reactions SET emoji = $3 WHERE message_id = $1 AND user_id = $2`,
            messageID, userID, emoji)
        action = "replaced"
    }
    if err != nil {
        return "", fmt.Errorf("failed to toggle reaction: %w", err)
    }
    if err := tx.Commit(); err != nil {
        return "", fmt.Errorf("failed to commit transaction: %w", err)
    }
    return action, nil
}

func (r *postgresRepository) MessageReactions(ctx context.Context, messageIDs []int64) (map[int64]map[string]string, error) {
    reactions := make(map[int64]map[string]string)
    if len(messageIDs) == 0 {
        return reactions, nil
    }

    query, args, err := sqlx.In(
        `SELECT message_id, user_id, emoji FROM message_reactions WHERE message_id IN (?)`, messageIDs)
    if err != nil {
        return nil, fmt.Errorf("failed to build reactions query: %w", err)
    }
    query = r.db.Rebind(query)

    rows := []Reaction{}
    if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
        return nil, fmt.Errorf("failed to list reactions: %w", err)
    }
    for _, row := range rows {
        if reactions[row.MessageID] == nil {
            reactions[row.MessageID] = make(map[string]string)
        }
        reactions[row.MessageID][row.UserID] = row.Emoji
    }
    return reactions, nil
}

func (r *postgresRepository) AddDeletion(ctx context.Context, messageID int64, userID string) error {
    _, err := r.db.ExecContext(ctx, `
        INSERT INTO message_deletions (message_id, user_id, deleted_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id) DO NOTHING`,
        messageID, userID, time.Now())
    if err != nil {
        return fmt.Errorf("failed to record deletion: %w", err)
    }
    return nil
}

func (r *postgresRepository) MarkDeletedForEveryone(ctx context.Context, conversationID string, messageID int64, senderID string) (bool, error) {
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return false, fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    result, err := tx.ExecContext(ctx, `
        UPDATE messages
        SET text = $4, deleted_for_everyone = TRUE
        WHERE id = $1 AND conversation_id = $2 AND sender_id = $3
          AND NOT deleted_for_everyone`,
        messageID, conversationID, senderID, DeletedPlaceholder)
    if err != nil {
        return false, fmt.Errorf("failed to delete message: %w", err)
    }
    rows, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    if rows == 0 {
        return false, tx.Commit()
    }

    // A deleted message carries no reactions
    _, err = tx.ExecContext(ctx,
        `DELETE FROM message_reactions WHERE message_id = $1`, messageID)
    if err != nil {
        return false, fmt.Errorf("failed to clear reactions: %w", err)
    }

    return true, tx.Commit()
}
