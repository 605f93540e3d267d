// internal/admin/routes.go

package admin

import (
    "net/http"

    "github.com/go-chi/chi/v5"
)

// Routes builds the admin surface as a chi router, mounted under
// /api/v1/admin by the main router.
func Routes(handler *Handler, authMiddleware func(http.Handler) http.Handler) http.Handler {
    r := chi.NewRouter()
    r.Use(authMiddleware)

    // Settings are readable by every authenticated client so UIs can
    // gate behavior; mutations check the admins set in the service.
    r.Get("/settings", handler.GetSettings)

    r.Post("/settings/features/{flag}", handler.ToggleFeature)
    r.Post("/settings/maintenance", handler.ToggleMaintenance)
    r.Put("/settings/member-limit", handler.SetMemberLimit)

    r.Post("/users/{userId}/suspend", handler.SuspendUser)
    r.Post("/users/{userId}/reinstate", handler.ReinstateUser)
    r.Post("/users/{userId}/verify", handler.VerifyUser)
    r.Delete("/users/{userId}", handler.RemoveUser)

    r.Post("/groups/{groupId}/disable", handler.DisableGroup)
    r.Delete("/groups/{groupId}", handler.DeleteGroup)

    r.Post("/admins/{userId}", handler.AddAdmin)
    r.Get("/audit", handler.GetAuditLog)

    return r
}
