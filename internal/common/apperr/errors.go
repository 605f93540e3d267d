// internal/common/apperr/errors.go
// Shared error taxonomy for the coordination core.
// Every module reports failures through these sentinels so handlers
// can map them to HTTP status codes in one place.

package apperr

import (
    "errors"
    "net/http"
)

var (
    // ErrUnauthorized - actor lacks the required role or relationship
    ErrUnauthorized = errors.New("unauthorized")

    // ErrFeatureDisabled - the corresponding admin feature flag is off
    ErrFeatureDisabled = errors.New("feature disabled")

    // ErrMaintenanceMode - global maintenance gate is active
    ErrMaintenanceMode = errors.New("maintenance mode active")

    // ErrLimitExceeded - group roster is at the configured member limit
    ErrLimitExceeded = errors.New("limit exceeded")

    // ErrDuplicateRequest - a chat request is already pending for this pair
    ErrDuplicateRequest = errors.New("duplicate request")

    // ErrNotFound - stale reference to a deleted or unknown entity
    ErrNotFound = errors.New("not found")

    // ErrInvalidArgument - malformed input (empty text, out-of-range limit, ...)
    ErrInvalidArgument = errors.New("invalid argument")

    // ErrPendingApproval - conversation is held behind an unresolved chat request
    ErrPendingApproval = errors.New("pending recipient approval")
)

// HTTPStatus maps a core error to its HTTP status code.
// Unknown errors map to 500 so nothing is silently swallowed.
func HTTPStatus(err error) int {
    switch {
    case errors.Is(err, ErrUnauthorized):
        return http.StatusForbidden
    case errors.Is(err, ErrFeatureDisabled):
        return http.StatusForbidden
    case errors.Is(err, ErrMaintenanceMode):
        return http.StatusServiceUnavailable
    case errors.Is(err, ErrLimitExceeded):
        return http.StatusConflict
    case errors.Is(err, ErrDuplicateRequest):
        return http.StatusConflict
    case errors.Is(err, ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, ErrInvalidArgument):
        return http.StatusBadRequest
    case errors.Is(err, ErrPendingApproval):
        return http.StatusAccepted
    default:
        return http.StatusInternalServerError
    }
}
