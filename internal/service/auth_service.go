package service

import (
	"errors"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/repository"
	"famigo/internal/security"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrUserInactive        = errors.New("user account is inactive")
	ErrInvalidRefreshToken = errors.New("refresh token is invalid, expired or revoked")
)

// TokenPair is the credential set returned by signup, login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthService handles signup, login and token lifecycle. Access tokens are
// short-lived JWTs; refresh tokens are opaque, persisted and rotated on use.
type AuthService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	jwtSecret       string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(db *database.DB, jwtSecret string, accessTokenTTL, refreshTokenTTL time.Duration) *AuthService {
	return &AuthService{
		db:              db,
		userRepo:        repository.NewUserRepository(db),
		jwtSecret:       jwtSecret,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// Signup registers a new user and logs them in
func (s *AuthService) Signup(email, password string, username, fullName *string) (*models.User, *TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, errors.New("email and password are required")
	}

	existing, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	if username != nil && *username != "" {
		taken, err := s.userRepo.GetUserByUsername(*username)
		if err != nil {
			return nil, nil, err
		}
		if taken != nil {
			return nil, nil, ErrUsernameTaken
		}
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, hash, username, fullName)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login authenticates a user by email and password
func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// refresh token is revoked, so each token works once.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	rt, err := s.userRepo.GetRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if rt == nil || rt.IsRevoked || rt.IsExpired() {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetUserByID(rt.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidRefreshToken
	}

	if err := s.userRepo.RevokeRefreshToken(refreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(user.ID)
}

// Logout revokes a refresh token
func (s *AuthService) Logout(refreshToken string) error {
	return s.userRepo.RevokeRefreshToken(refreshToken)
}

// AuthenticateToken validates an access token and returns its user
func (s *AuthService) AuthenticateToken(accessToken string) (*models.User, error) {
	userID, err := security.ParseAccessToken(s.jwtSecret, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(userID string) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

// CleanupExpiredTokens deletes refresh tokens past their expiry. Called
// periodically by the background sweep.
func (s *AuthService) CleanupExpiredTokens() (int64, error) {
	return s.userRepo.DeleteExpiredRefreshTokens()
}

func (s *AuthService) issueTokens(userID string) (*TokenPair, error) {
	access, err := security.CreateAccessToken(s.jwtSecret, userID, s.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refresh, err := security.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.refreshTokenTTL)
	if _, err := s.userRepo.CreateRefreshToken(userID, refresh, expiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessTokenTTL.Seconds()),
	}, nil
}
