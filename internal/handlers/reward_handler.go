package handlers

import (
	"net/http"

	"famigo/internal/logger"
	"famigo/internal/service"
	"famigo/internal/validation"
)

// RewardHandler handles reward catalog and redemption requests
type RewardHandler struct {
	rewardService *service.RewardService
	validate      *validation.Validator
	log           *logger.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewardService *service.RewardService, validate *validation.Validator, log *logger.Logger) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		validate:      validate,
		log:           log,
	}
}

type createRewardRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty"`
	CostPoints  int     `json:"cost_points" validate:"min=0"`
}

// Create adds a reward to a family's catalog
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	var req createRewardRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	reward, err := h.rewardService.CreateReward(familyID, user.ID, req.Title, req.Description, req.CostPoints)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("reward_id", reward.ID).Info("reward created")
	writeJSON(w, http.StatusCreated, reward)
}

// ListForFamily lists a family's active rewards
func (h *RewardHandler) ListForFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	rewards, err := h.rewardService.ListRewards(familyID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, rewards)
}

// Deactivate retires a reward from the catalog
func (h *RewardHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	rewardID := r.PathValue("id")

	if err := h.rewardService.DeactivateReward(rewardID, user.ID); err != nil {
		respondError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Redeem requests a redemption of the reward for the authenticated user
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	rewardID := r.PathValue("id")

	redemption, err := h.rewardService.RequestRedemption(rewardID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("redemption_id", redemption.ID).Info("redemption requested")
	writeJSON(w, http.StatusCreated, redemption)
}

// Approve approves a requested redemption and debits the requester's wallet
func (h *RewardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	redemptionID := r.PathValue("id")

	redemption, err := h.rewardService.ApproveRedemption(redemptionID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("redemption_id", redemptionID).Info("redemption approved")
	writeJSON(w, http.StatusOK, redemption)
}

// Deliver marks an approved redemption as redeemed
func (h *RewardHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	redemptionID := r.PathValue("id")

	redemption, err := h.rewardService.DeliverRedemption(redemptionID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("redemption_id", redemptionID).Info("redemption delivered")
	writeJSON(w, http.StatusOK, redemption)
}

// Reject declines a requested redemption
func (h *RewardHandler) Reject(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	redemptionID := r.PathValue("id")

	redemption, err := h.rewardService.RejectRedemption(redemptionID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, redemption)
}

// Cancel withdraws the authenticated user's own redemption request
func (h *RewardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	redemptionID := r.PathValue("id")

	redemption, err := h.rewardService.CancelRedemption(redemptionID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, redemption)
}

// ListRedemptions lists a family's redemptions
func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	redemptions, err := h.rewardService.ListRedemptions(familyID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, redemptions)
}
