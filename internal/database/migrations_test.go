package database

import (
	"path/filepath"
	"testing"
)

func TestMigrationsCreateSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	tables := []string{
		"users", "refresh_tokens", "families", "family_members",
		"family_invites", "wallets", "transactions", "tasks",
		"task_assignments", "rewards", "redemptions",
	}
	for _, table := range tables {
		var name string
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		if err := db.QueryRow(query, table).Scan(&name); err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	// Running again is a no-op thanks to the migrations table
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Errorf("second RunMigrations() error = %v", err)
	}
}
