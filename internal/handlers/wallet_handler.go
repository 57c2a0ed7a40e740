package handlers

import (
	"net/http"

	"famigo/internal/logger"
	"famigo/internal/service"
	"famigo/internal/validation"
)

// WalletHandler handles point balance and ledger requests
type WalletHandler struct {
	walletService *service.WalletService
	validate      *validation.Validator
	log           *logger.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletService *service.WalletService, validate *validation.Validator, log *logger.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		validate:      validate,
		log:           log,
	}
}

// MyPoints returns the authenticated user's balance in each of their families
func (h *WalletHandler) MyPoints(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	points, err := h.walletService.GetPointsForUser(user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, points)
}

// ListTransactions returns a wallet's ledger, newest first
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	walletID := r.PathValue("id")

	transactions, err := h.walletService.ListTransactions(walletID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

type adjustRequest struct {
	Delta  int     `json:"delta" validate:"required"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=255"`
}

// Adjust applies a signed manual correction to a member's wallet
func (h *WalletHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	memberID := r.PathValue("id")

	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	wallet, err := h.walletService.Adjust(memberID, user.ID, req.Delta, req.Reason)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("member_id", memberID).Info("wallet adjusted")
	writeJSON(w, http.StatusOK, wallet)
}
