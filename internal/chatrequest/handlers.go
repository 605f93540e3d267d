// internal/chatrequest/handlers.go

package chatrequest

import (
    "encoding/json"
    "net/http"

    "github.com/gorilla/mux"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/utils"
)

// Handler handles chat request HTTP requests
type Handler struct {
    service Service
}

// NewHandler creates a new chat request handler
func NewHandler(service Service) *Handler {
    return &Handler{service: service}
}

// Send creates a pending chat request toward a verified recipient
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    var req SendRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
        return
    }
    if err := utils.ValidateStruct(&req); err != nil {
        utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
        return
    }

    request, err := h.service.Send(r.Context(), userID, req.ToUserID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, request, http.StatusCreated)
}

// ListPending lists requests waiting on the caller
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    requests, err := h.service.ListPending(r.Context(), userID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, requests, http.StatusOK)
}

// Approve accepts a pending request and unlocks the conversation
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
    h.resolve(w, r, StatusAccepted)
}

// Reject declines a pending request
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
    h.resolve(w, r, StatusRejected)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, status string) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    requestID := mux.Vars(r)["id"]

    var request *ChatRequest
    var err error
    if status == StatusAccepted {
        request, err = h.service.Approve(r.Context(), requestID, userID)
    } else {
        request, err = h.service.Reject(r.Context(), requestID, userID)
    }
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, request, http.StatusOK)
}
