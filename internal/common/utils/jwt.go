// internal/common/utils/jwt.go
// Identity token validation
// The token itself is minted by the external identity provider;
// this side only verifies the signature and extracts the claims.

package utils

import (
    "errors"
    "fmt"

    "github.com/golang-jwt/jwt/v4"
)

// IdentityClaims are the claims carried by an identity token.
// UserID is the stable, opaque identifier every module keys on.
type IdentityClaims struct {
    UserID      string `json:"user_id"`
    DisplayName string `json:"display_name"`
    // Standard JWT claims
    ExpiresAt int64  `json:"exp"`
    IssuedAt  int64  `json:"iat"`
    Issuer    string `json:"iss"`
}

// GenerateIdentityToken creates a signed identity token.
// Used by tooling and tests; production tokens come from the identity provider.
func GenerateIdentityToken(claims *IdentityClaims, secret string) (string, error) {
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "user_id":      claims.UserID,
        "display_name": claims.DisplayName,
        "exp":          claims.ExpiresAt,
        "iat":          claims.IssuedAt,
        "iss":          claims.Issuer,
    })

    tokenString, err := token.SignedString([]byte(secret))
    if err != nil {
        return "", fmt.Errorf("failed to sign token: %w", err)
    }

    return tokenString, nil
}

// ValidateIdentityToken validates a token and returns its claims
func ValidateIdentityToken(tokenString string, secret string) (*IdentityClaims, error) {
    token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
        // Verify signing method
        if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
        }
        return []byte(secret), nil
    })

    if err != nil {
        return nil, err
    }

    claims, ok := token.Claims.(jwt.MapClaims)
    if !ok || !token.Valid {
        return nil, errors.New("invalid token")
    }

    userID := getStringClaim(claims, "user_id")
    if userID == "" {
        return nil, errors.New("missing user_id in token")
    }

    return &IdentityClaims{
        UserID:      userID,
        DisplayName: getStringClaim(claims, "display_name"),
        ExpiresAt:   getInt64Claim(claims, "exp"),
        IssuedAt:    getInt64Claim(claims, "iat"),
        Issuer:      getStringClaim(claims, "iss"),
    }, nil
}

// Helper functions to safely extract claims
func getStringClaim(claims jwt.MapClaims, key string) string {
    if val, ok := claims[key].(string); ok {
        return val
    }
    return ""
}

func getInt64Claim(claims jwt.MapClaims, key string) int64 {
    if val, ok := claims[key].(float64); ok {
        return int64(val)
    }
    return 0
}
