// internal/messaging/routes.go

package messaging

import (
    "net/http"

    "github.com/gorilla/mux"
)

// RegisterRoutes sets up messaging routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware func(http.Handler) http.Handler) {
    // WebSocket endpoint (token accepted via query parameter)
    ws := router.PathPrefix("/ws").Subrouter()
    ws.Use(authMiddleware)
    ws.HandleFunc("", handler.HandleWebSocket).Methods("GET")

    api := router.PathPrefix("/api/v1").Subrouter()
    api.Use(authMiddleware)

    api.HandleFunc("/conversations", handler.ListConversations).Methods("GET")
    api.HandleFunc("/conversations/{id}/messages", handler.ListMessages).Methods("GET")
    api.HandleFunc("/messages", handler.SendMessage).Methods("POST")

    api.HandleFunc("/conversations/{id}/messages/{messageId}/delivered", handler.MarkDelivered).Methods("POST")
    api.HandleFunc("/conversations/{id}/messages/{messageId}/seen", handler.MarkSeen).Methods("POST")
    api.HandleFunc("/conversations/{id}/messages/{messageId}/reactions", handler.React).Methods("POST")
    api.HandleFunc("/conversations/{id}/messages/{messageId}", handler.DeleteMessage).Methods("DELETE")

    api.HandleFunc("/conversations/{id}/typing/start", handler.StartTyping).Methods("POST")
    api.HandleFunc("/conversations/{id}/typing/stop", handler.StopTyping).Methods("POST")
    api.HandleFunc("/conversations/{id}/typing", handler.GetTypists).Methods("GET")
}
