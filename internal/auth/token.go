package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrTokenNotConfigured = errors.New("API token not configured")
	ErrInvalidToken       = errors.New("invalid API token")
)

// ValidateToken compares token against the configured API token
func ValidateToken(expected, token string) error {
	if expected == "" {
		return ErrTokenNotConfigured
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrInvalidToken
	}

	return nil
}

// ExtractToken extracts the token from an Authorization header
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	// Support "Bearer {token}" format
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("Authorization header must use Bearer scheme")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
