package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"famigo/internal/database"
	"famigo/internal/logger"
	"famigo/internal/models"
)

// testEnv wires all services against a fresh SQLite database
type testEnv struct {
	db       *database.DB
	auth     *AuthService
	families *FamilyService
	wallets  *WalletService
	tasks    *TaskService
	rewards  *RewardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	log := logger.New("test", "error")

	email, err := NewEmailService(context.Background(), "us-east-1", "", "", "http://localhost:8080", log)
	if err != nil {
		t.Fatalf("failed to create email service: %v", err)
	}

	wallets := NewWalletService(db)

	return &testEnv{
		db:       db,
		auth:     NewAuthService(db, "test-secret", 15*time.Minute, 24*time.Hour),
		families: NewFamilyService(db, email, log),
		wallets:  wallets,
		tasks:    NewTaskService(db, wallets),
		rewards:  NewRewardService(db, wallets, false),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, _, err := e.auth.Signup(email, "password123", nil, nil)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

// createFamily sets up a family with a parent owner and one child member
func (e *testEnv) createFamily(t *testing.T) (*models.Family, *models.User, *models.User, *models.FamilyMember) {
	t.Helper()

	parent := e.createUser(t, "parent@example.com")
	child := e.createUser(t, "child@example.com")

	family, err := e.families.CreateFamily("The Testers", parent.ID, nil)
	if err != nil {
		t.Fatalf("failed to create family: %v", err)
	}

	childMember, err := e.families.JoinBySecretCode(child.ID, family.SecretCode, nil)
	if err != nil {
		t.Fatalf("failed to join family: %v", err)
	}

	return family, parent, child, childMember
}

// giveChildPoints credits a member's wallet through a parent adjustment
func (e *testEnv) givePoints(t *testing.T, memberID, parentUserID string, amount int) {
	t.Helper()
	if _, err := e.wallets.Adjust(memberID, parentUserID, amount, nil); err != nil {
		t.Fatalf("failed to give points: %v", err)
	}
}
