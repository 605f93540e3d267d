// internal/chatrequest/repository.go

package chatrequest

import (
    "context"
)

// Repository defines the interface for chat request data operations
type Repository interface {
    CreatePending(ctx context.Context, request *ChatRequest) error
    Get(ctx context.Context, requestID string) (*ChatRequest, error)
    PendingBetween(ctx context.Context, fromUserID, toUserID string) (*ChatRequest, error)
    ListPendingFor(ctx context.Context, toUserID string) ([]*ChatRequest, error)
    Resolve(ctx context.Context, requestID, status string) (*ChatRequest, error)
}
