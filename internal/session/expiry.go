package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of a JWT access token without verifying its
// signature. It is informational only; expiry is enforced by the backend.
func ExpiresAt(accessToken string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
