// internal/groups/handlers.go

package groups

import (
    "encoding/json"
    "net/http"

    "github.com/gorilla/mux"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/utils"
)

type Handler struct {
    service Service
}

func NewHandler(service Service) *Handler {
    return &Handler{service: service}
}

// CreateGroup creates a new group conversation
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var req CreateGroupRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request", http.StatusBadRequest)
        return
    }
    if err := utils.ValidateStruct(&req); err != nil {
        utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
        return
    }

    group, err := h.service.Create(r.Context(), req.Name, userID, req.Members)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, group, http.StatusCreated)
}

// GetGroup returns a group with its roster
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    groupID := mux.Vars(r)["id"]
    group, err := h.service.Get(r.Context(), groupID, userID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, group, http.StatusOK)
}

// AddMember adds a user to the roster
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    if err := h.service.AddMember(r.Context(), vars["id"], userID, vars["userId"]); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "member added", http.StatusOK)
}

// RemoveMember removes a user from the roster
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    if err := h.service.RemoveMember(r.Context(), vars["id"], userID, vars["userId"]); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "member removed", http.StatusOK)
}

// BanMember bans a user from the group
func (h *Handler) BanMember(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    if err := h.service.Ban(r.Context(), vars["id"], userID, vars["userId"]); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "member banned", http.StatusOK)
}

// PromoteMember promotes a member to group admin
func (h *Handler) PromoteMember(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    if err := h.service.Promote(r.Context(), vars["id"], userID, vars["userId"]); err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "member promoted", http.StatusOK)
}
