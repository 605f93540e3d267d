// internal/common/utils/validator.go
// Input validation using struct tags

package utils

import (
    "fmt"
    "strings"

    "github.com/go-playground/validator/v10"
)

// Global validator instance
var validate = validator.New()

// ValidateStruct validates a struct based on its tags
func ValidateStruct(s interface{}) error {
    err := validate.Struct(s)
    if err != nil {
        // Format validation errors into readable messages
        var errs []string
        for _, err := range err.(validator.ValidationErrors) {
            errs = append(errs, formatFieldError(err))
        }
        return fmt.Errorf("%s", strings.Join(errs, ", "))
    }
    return nil
}

// formatFieldError converts validator errors to human-readable messages
func formatFieldError(fe validator.FieldError) string {
    field := fe.Field()
    tag := fe.Tag()

    switch tag {
    case "required":
        return fmt.Sprintf("%s is required", field)
    case "min":
        return fmt.Sprintf("%s must be at least %s", field, fe.Param())
    case "max":
        return fmt.Sprintf("%s must be at most %s", field, fe.Param())
    case "oneof":
        return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
    case "uuid":
        return fmt.Sprintf("%s must be a valid UUID", field)
    default:
        return fmt.Sprintf("%s is invalid", field)
    }
}
