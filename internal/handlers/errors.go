package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"famigo/internal/logger"
	"famigo/internal/security"
	"famigo/internal/service"
)

// errorResponse is the JSON body returned for every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes a response body with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError maps service errors onto HTTP status codes and writes a JSON
// error body. Unrecognized errors become opaque 500s so internals never leak.
func respondError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := statusForError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		message = "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrNotFamilyMember),
		errors.Is(err, service.ErrNotParent),
		errors.Is(err, service.ErrNotTaskEditor),
		errors.Is(err, service.ErrNotRequester):
		return http.StatusForbidden

	case errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrWalletNotFound),
		errors.Is(err, service.ErrRewardNotFound),
		errors.Is(err, service.ErrRedemptionNotFound),
		errors.Is(err, service.ErrInviteNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrTaskLocked),
		errors.Is(err, service.ErrTaskClosed),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusConflict

	case errors.Is(err, service.ErrInviteNotUsable):
		return http.StatusGone

	case errors.Is(err, service.ErrRewardInactive),
		errors.Is(err, service.ErrCrossFamilyAssignment),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPoints),
		errors.Is(err, service.ErrInvalidCost):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// respondBadRequest writes a 400 with the given message
func respondBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// decodeJSON parses a request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
