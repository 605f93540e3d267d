// internal/chatrequest/routes.go

package chatrequest

import (
    "net/http"

    "github.com/gorilla/mux"
)

// RegisterRoutes sets up chat request routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware func(http.Handler) http.Handler) {
    api := router.PathPrefix("/api/v1/chat-requests").Subrouter()
    api.Use(authMiddleware)

    api.HandleFunc("", handler.Send).Methods("POST")
    api.HandleFunc("", handler.ListPending).Methods("GET")
    api.HandleFunc("/{id}/approve", handler.Approve).Methods("POST")
    api.HandleFunc("/{id}/reject", handler.Reject).Methods("POST")
}
