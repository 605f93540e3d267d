// internal/groups/routes.go

package groups

import (
    "net/http"

    "github.com/gorilla/mux"
)

// RegisterRoutes registers group management routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware func(http.Handler) http.Handler) {
    api := router.PathPrefix("/api/v1/groups").Subrouter()
    api.Use(authMiddleware)

    api.HandleFunc("", handler.CreateGroup).Methods("POST")
    api.HandleFunc("/{id}", handler.GetGroup).Methods("GET")
    api.HandleFunc("/{id}/members/{userId}", handler.AddMember).Methods("POST")
    api.HandleFunc("/{id}/members/{userId}", handler.RemoveMember).Methods("DELETE")
    api.HandleFunc("/{id}/members/{userId}/ban", handler.BanMember).Methods("POST")
    api.HandleFunc("/{id}/members/{userId}/promote", handler.PromoteMember).Methods("POST")
}
