package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		token    string
		wantErr  error
	}{
		{name: "valid token", expected: "secret", token: "secret"},
		{name: "wrong token", expected: "secret", token: "guess", wantErr: ErrInvalidToken},
		{name: "empty token", expected: "secret", token: "", wantErr: ErrInvalidToken},
		{name: "prefix of token", expected: "secret", token: "sec", wantErr: ErrInvalidToken},
		{name: "not configured", expected: "", token: "anything", wantErr: ErrTokenNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToken(tt.expected, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		want        string
		wantErr     bool
		errContains string
	}{
		{name: "bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "token with spaces trimmed", header: "Bearer  abc123 ", want: "abc123"},
		{name: "missing header", header: "", wantErr: true, errContains: "missing Authorization header"},
		{name: "no scheme", header: "abc123", wantErr: true, errContains: "invalid Authorization header format"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: true, errContains: "Bearer scheme"},
		{name: "empty token", header: "Bearer  ", wantErr: true, errContains: "empty bearer token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ExtractToken() error = %v, want it to contain %q", err, tt.errContains)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
