// internal/presence/handlers.go

package presence

import (
    "net/http"
    "strings"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/utils"
)

type Handler struct {
    service Service
}

func NewHandler(service Service) *Handler {
    return &Handler{service: service}
}

// GetPresence returns presence for a comma-separated list of user IDs
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
    raw := r.URL.Query().Get("user_ids")
    if raw == "" {
        utils.ErrorResponse(w, "user_ids query parameter required", http.StatusBadRequest)
        return
    }

    userIDs := strings.Split(raw, ",")
    snapshot, err := h.service.Snapshot(r.Context(), userIDs)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, snapshot, http.StatusOK)
}

// Heartbeat stamps activity for the calling user
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    if err := h.service.Heartbeat(r.Context(), userID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "heartbeat recorded", http.StatusOK)
}
