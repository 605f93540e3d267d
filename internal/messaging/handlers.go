// internal/messaging/handlers.go

package messaging

import (
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/utils"
)

// Handler handles messaging HTTP and websocket requests
type Handler struct {
    service Service
    hub     *Hub
}

// NewHandler creates a new messaging handler
func NewHandler(service Service, hub *Hub) *Handler {
    return &Handler{
        service: service,
        hub:     hub,
    }
}

// HandleWebSocket upgrades the connection and attaches the client to
// the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        log.Printf("WebSocket upgrade failed: %v", err)
        return
    }

    client := NewClient(h.hub, conn, userID, h.service)
    h.hub.register <- client
    client.Start()
}

// ListConversations returns the caller's conversation directory
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

    summaries, err := h.service.ListConversations(r.Context(), userID, limit, offset)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, summaries, http.StatusOK)
}

// ListMessages returns a page of messages visible to the caller
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    conversationID := vars["id"]

    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    beforeID, _ := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)

    messages, err := h.service.ListMessages(r.Context(), conversationID, userID, limit, beforeID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, messages, http.StatusOK)
}

// SendMessage stores a message and fans it out
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    var req SendMessageRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    message, err := h.service.SendMessage(r.Context(), userID, &req)
    if err != nil {
        // A held first contact still stores the message
        if errors.Is(err, apperr.ErrPendingApproval) {
            utils.SuccessResponse(w, message, http.StatusAccepted)
            return
        }
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, message, http.StatusCreated)
}

// MarkDelivered advances a message to delivered
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
    h.advanceStatus(w, r, StatusDelivered)
}

// MarkSeen advances a message to seen
func (h *Handler) MarkSeen(w http.ResponseWriter, r *http.Request) {
    h.advanceStatus(w, r, StatusSeen)
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request, status string) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    conversationID := vars["id"]
    messageID, err := strconv.ParseInt(vars["messageId"], 10, 64)
    if err != nil {
        utils.ErrorResponse(w, "Invalid message ID", http.StatusBadRequest)
        return
    }

    if status == StatusSeen {
        err = h.service.MarkSeen(r.Context(), conversationID, messageID, userID)
    } else {
        err = h.service.MarkDelivered(r.Context(), conversationID, messageID, userID)
    }
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "Status updated", http.StatusOK)
}

// React toggles the caller's reaction on a message
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    conversationID := vars["id"]
    messageID, err := strconv.ParseInt(vars["messageId"], 10, 64)
    if err != nil {
        utils.ErrorResponse(w, "Invalid message ID", http.StatusBadRequest)
        return
    }

    var req ReactRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
        return
    }
    if err := utils.ValidateStruct(&req); err != nil {
        utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
        return
    }

    action, err := h.service.React(r.Context(), conversationID, messageID, userID, req.Emoji)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, map[string]interface{}{
        "message_id": messageID,
        "action":     action,
    }, http.StatusOK)
}

// DeleteMessage removes a message for the caller, or for everyone
// when scope=everyone and the caller is the sender
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    conversationID := vars["id"]
    messageID, err := strconv.ParseInt(vars["messageId"], 10, 64)
    if err != nil {
        utils.ErrorResponse(w, "Invalid message ID", http.StatusBadRequest)
        return
    }

    if r.URL.Query().Get("scope") == "everyone" {
        err = h.service.DeleteForEveryone(r.Context(), conversationID, messageID, userID)
    } else {
        err = h.service.DeleteForMe(r.Context(), conversationID, messageID, userID)
    }
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "Message deleted", http.StatusOK)
}

// StartTyping marks the caller as typing in a conversation
func (h *Handler) StartTyping(w http.ResponseWriter, r *http.Request) {
    h.updateTyping(w, r, true)
}

// StopTyping clears the caller's typing state
func (h *Handler) StopTyping(w http.ResponseWriter, r *http.Request) {
    h.updateTyping(w, r, false)
}

func (h *Handler) updateTyping(w http.ResponseWriter, r *http.Request, start bool) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    conversationID := mux.Vars(r)["id"]

    var err error
    if start {
        err = h.service.StartTyping(r.Context(), conversationID, userID)
    } else {
        err = h.service.StopTyping(r.Context(), conversationID, userID)
    }
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.MessageResponse(w, "Typing state updated", http.StatusOK)
}

// GetTypists lists users currently typing in a conversation
func (h *Handler) GetTypists(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.ErrorResponse(w, "Authentication required", http.StatusUnauthorized)
        return
    }

    conversationID := mux.Vars(r)["id"]

    visible, err := h.service.IsParticipant(r.Context(), conversationID, userID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }
    if !visible {
        utils.CoreErrorResponse(w, apperr.ErrNotFound)
        return
    }

    typists, err := h.service.Typists(r.Context(), conversationID)
    if err != nil {
        utils.CoreErrorResponse(w, err)
        return
    }

    utils.SuccessResponse(w, typists, http.StatusOK)
}
