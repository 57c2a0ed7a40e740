package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/security"
)

// UserRepository handles database operations for users and refresh tokens
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(email, passwordHash string, username, fullName *string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:           security.NewID(),
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO users (id, email, username, full_name, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, user.ID, user.Email, user.Username, user.FullName, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, username, full_name, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE email = ?
	`
	return r.scanUser(r.db.QueryRow(query, email))
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(username string) (*models.User, error) {
	query := `
		SELECT id, email, username, full_name, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE username = ?
	`
	return r.scanUser(r.db.QueryRow(query, username))
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id string) (*models.User, error) {
	query := `
		SELECT id, email, username, full_name, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	return r.scanUser(r.db.QueryRow(query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// CreateRefreshToken persists a new refresh token for a user
func (r *UserRepository) CreateRefreshToken(userID, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{
		ID:        security.NewID(),
		UserID:    userID,
		Token:     token,
		IsRevoked: false,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: &expiresAt,
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token, is_revoked, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, rt.ID, rt.UserID, rt.Token, rt.IsRevoked, rt.CreatedAt, rt.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return rt, nil
}

// GetRefreshToken retrieves a refresh token by its opaque value
func (r *UserRepository) GetRefreshToken(token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, is_revoked, created_at, expires_at
		FROM refresh_tokens
		WHERE token = ?
	`
	rt := &models.RefreshToken{}
	err := r.db.QueryRow(query, token).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.Token,
		&rt.IsRevoked,
		&rt.CreatedAt,
		&rt.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return rt, nil
}

// RevokeRefreshToken marks a refresh token as revoked
func (r *UserRepository) RevokeRefreshToken(token string) error {
	query := `UPDATE refresh_tokens SET is_revoked = ? WHERE token = ?`
	_, err := r.db.Exec(query, true, token)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes refresh tokens past their expiry
func (r *UserRepository) DeleteExpiredRefreshTokens() (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at IS NOT NULL AND expires_at < ?`
	result, err := r.db.Exec(query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return result.RowsAffected()
}
