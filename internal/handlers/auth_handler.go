package handlers

import (
	"net/http"

	"famigo/internal/logger"
	"famigo/internal/models"
	"famigo/internal/service"
	"famigo/internal/validation"
)

// AuthHandler handles signup, login and token refresh
type AuthHandler struct {
	authService *service.AuthService
	validate    *validation.Validator
	log         *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, validate *validation.Validator, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
		log:         log,
	}
}

type signupRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=128"`
}

type authResponse struct {
	User   *models.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// Signup registers a new user account
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	user, tokens, err := h.authService.Signup(req.Email, req.Password, req.Username, req.FullName)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).Info("user signed up")
	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Token authenticates a user and issues a token pair
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	user, tokens, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).Info("user logged in")
	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates a refresh token into a new token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	tokens, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// Logout revokes a refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.authService.Logout(req.RefreshToken); err != nil {
		respondError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}
