package backendfactory

import (
	"strings"
	"testing"

	"github.com/toolsascode/migrun/internal/backends"
)

func TestNew(t *testing.T) {
	tests := []struct {
		input       string
		wantName    string
		wantDialect backends.Dialect
		wantErr     bool
	}{
		{"", "postgresql", backends.DialectPostgres, false},
		{"postgres", "postgresql", backends.DialectPostgres, false},
		{"PostgreSQL", "postgresql", backends.DialectPostgres, false},
		{"pgx", "pgx", backends.DialectPostgres, false},
		{"sqlite3", "sqlite", backends.DialectSQLite, false},
		{"mysql", "mysql", backends.DialectMySQL, false},
		{"etcd", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			backend, err := New(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q) expected error", tt.input)
				}
				if !strings.Contains(err.Error(), "unsupported backend") {
					t.Errorf("New(%q) error = %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.input, err)
			}
			if backend.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", backend.Name(), tt.wantName)
			}
			if backend.Dialect() != tt.wantDialect {
				t.Errorf("Dialect() = %q, want %q", backend.Dialect(), tt.wantDialect)
			}
		})
	}
}
