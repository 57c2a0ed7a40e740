package database

import (
	"testing"
)

func TestDialectIdentity(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		driver  string
		subdir  string
	}{
		{"sqlite", NewSQLiteDialect(), "sqlite3", "sqlite"},
		{"postgres", NewPostgresDialect(), "postgres", "postgres"},
		{"mysql", NewMySQLDialect(), "mysql", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.subdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.subdir)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	query := "SELECT id FROM tasks WHERE family_id = ? AND status = ?"

	t.Run("sqlite passthrough", func(t *testing.T) {
		if got := NewSQLiteDialect().RewriteQuery(query); got != query {
			t.Errorf("RewriteQuery() = %v, want unchanged", got)
		}
	})

	t.Run("mysql passthrough", func(t *testing.T) {
		if got := NewMySQLDialect().RewriteQuery(query); got != query {
			t.Errorf("RewriteQuery() = %v, want unchanged", got)
		}
	})

	t.Run("postgres numbered", func(t *testing.T) {
		want := "SELECT id FROM tasks WHERE family_id = $1 AND status = $2"
		if got := NewPostgresDialect().RewriteQuery(query); got != want {
			t.Errorf("RewriteQuery() = %v, want %v", got, want)
		}
	})

	t.Run("postgres many placeholders", func(t *testing.T) {
		got := NewPostgresDialect().RewriteQuery("INSERT INTO t VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		want := "INSERT INTO t VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"
		if got != want {
			t.Errorf("RewriteQuery() = %v, want %v", got, want)
		}
	})
}
