// internal/common/utils/response.go
// Standardized API responses ensure consistency across all endpoints

package utils

import (
    "encoding/json"
    "net/http"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/apperr"
)

// Response is the standard API response structure
type Response struct {
    Success bool        `json:"success"`
    Message string      `json:"message,omitempty"`
    Data    interface{} `json:"data,omitempty"`
    Error   string      `json:"error,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(w http.ResponseWriter, data interface{}, statusCode int) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(statusCode)

    response := Response{
        Success: true,
        Data:    data,
    }

    json.NewEncoder(w).Encode(response)
}

// ErrorResponse sends an error response
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(statusCode)

    response := Response{
        Success: false,
        Error:   message,
    }

    json.NewEncoder(w).Encode(response)
}

// MessageResponse sends a simple message response
func MessageResponse(w http.ResponseWriter, message string, statusCode int) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(statusCode)

    response := Response{
        Success: true,
        Message: message,
    }

    json.NewEncoder(w).Encode(response)
}

// CoreErrorResponse maps a core error to its HTTP status and sends it.
// Handlers use this for every service-layer failure so the error
// taxonomy reaches the client with a consistent shape.
func CoreErrorResponse(w http.ResponseWriter, err error) {
    ErrorResponse(w, err.Error(), apperr.HTTPStatus(err))
}
