// internal/admin/handlers.go

package admin

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/utils"
)

type Handler struct {
    service Service
}

func NewHandler(service Service) *Handler {
    return &Handler{service: service}
}

type suspendRequest struct {
    Days int `json:"days" validate:"required,min=1,max=365"`
}

type memberLimitRequest struct {
    Limit int `json:"limit" validate:"required,min=1,max=100"`
}

// GetSettings returns the current policy snapshot (readable by everyone)
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
    utils.SuccessResponse(w, h.service.Settings(r.Context()), http.StatusOK)
}

// ToggleFeature flips one feature flag
func (h *Handler) ToggleFeature(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    flag := chi.URLParam(r, "flag")
    settings, err := h.service.ToggleFeature(r.Context(), flag, actorID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, settings, http.StatusOK)
}

// ToggleMaintenance flips the global maintenance gate
func (h *Handler) ToggleMaintenance(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    settings, err := h.service.ToggleMaintenance(r.Context(), actorID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, settings, http.StatusOK)
}

// SetMemberLimit updates the group roster cap
func (h *Handler) SetMemberLimit(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var req memberLimitRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request", http.StatusBadRequest)
        return
    }
    if err := utils.ValidateStruct(&req); err != nil {
        utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
        return
    }

    settings, err := h.service.SetMemberLimit(r.Context(), req.Limit, actorID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, settings, http.StatusOK)
}

// SuspendUser opens a suspension window for a user
func (h *Handler) SuspendUser(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var req suspendRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request", http.StatusBadRequest)
        return
    }
    if err := utils.ValidateStruct(&req); err != nil {
        utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
        return
    }

    targetID := chi.URLParam(r, "userId")
    if err := h.service.SuspendUser(r.Context(), targetID, req.Days, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "user suspended", http.StatusOK)
}

// ReinstateUser ends a suspension early
func (h *Handler) ReinstateUser(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    targetID := chi.URLParam(r, "userId")
    if err := h.service.ReinstateUser(r.Context(), targetID, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "user reinstated", http.StatusOK)
}

// VerifyUser marks a user as verified
func (h *Handler) VerifyUser(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    targetID := chi.URLParam(r, "userId")
    if err := h.service.VerifyUser(r.Context(), targetID, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "user verified", http.StatusOK)
}

// RemoveUser tombstones a user account
func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    targetID := chi.URLParam(r, "userId")
    if err := h.service.RemoveUser(r.Context(), targetID, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "user removed", http.StatusOK)
}

// DisableGroup suspends a group for a number of days
func (h *Handler) DisableGroup(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var req suspendRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request", http.StatusBadRequest)
        return
    }
    if err := utils.ValidateStruct(&req); err != nil {
        utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
        return
    }

    groupID := chi.URLParam(r, "groupId")
    if err := h.service.DisableGroup(r.Context(), groupID, req.Days, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "group disabled", http.StatusOK)
}

// DeleteGroup tombstones a group
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    groupID := chi.URLParam(r, "groupId")
    if err := h.service.DeleteGroup(r.Context(), groupID, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "group deleted", http.StatusOK)
}

// AddAdmin adds a user to the admins set
func (h *Handler) AddAdmin(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    targetID := chi.URLParam(r, "userId")
    if err := h.service.AddAdmin(r.Context(), targetID, actorID); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "admin added", http.StatusOK)
}

// GetAuditLog lists recent audit entries
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
    actorID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

    entries, err := h.service.ListAudit(r.Context(), actorID, limit, offset)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, entries, http.StatusOK)
}
