// internal/presence/routes.go

package presence

import (
    "net/http"

    "github.com/gorilla/mux"
)

// RegisterRoutes registers presence routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware func(http.Handler) http.Handler) {
    api := router.PathPrefix("/api/v1/presence").Subrouter()
    api.Use(authMiddleware)

    api.HandleFunc("", handler.GetPresence).Methods("GET")
    api.HandleFunc("/heartbeat", handler.Heartbeat).Methods("POST")
}
