package handlers

import (
	"net/http"
	"time"

	"famigo/internal/logger"
	"famigo/internal/service"
	"famigo/internal/validation"
)

// FamilyHandler handles family, membership and invitation requests
type FamilyHandler struct {
	familyService *service.FamilyService
	validate      *validation.Validator
	log           *logger.Logger
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, validate *validation.Validator, log *logger.Logger) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		validate:      validate,
		log:           log,
	}
}

type createFamilyRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=128"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=128"`
}

// Create creates a new family owned by the authenticated user
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req createFamilyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	family, err := h.familyService.CreateFamily(req.Name, user.ID, req.DisplayName)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("family_id", family.ID).Info("family created")
	writeJSON(w, http.StatusCreated, family)
}

// ListMine lists the families the authenticated user belongs to
func (h *FamilyHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	families, err := h.familyService.ListFamiliesForUser(user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, families)
}

// Get retrieves a family with its members and balances
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	family, err := h.familyService.GetFamily(familyID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, family)
}

type createInviteRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	TTLHours *int    `json:"ttl_hours,omitempty" validate:"omitempty,min=1,max=720"`
}

// CreateInvite creates a single-use invitation into the family
func (h *FamilyHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	var ttl time.Duration
	if req.TTLHours != nil {
		ttl = time.Duration(*req.TTLHours) * time.Hour
	}

	invite, err := h.familyService.CreateInvite(r.Context(), familyID, user.ID, req.Email, ttl)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("family_id", familyID).Info("invite created")
	writeJSON(w, http.StatusCreated, invite)
}

// RevokeInvite revokes an unused invitation
func (h *FamilyHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	code := r.PathValue("code")

	if err := h.familyService.RevokeInvite(code, user.ID); err != nil {
		respondError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type joinRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=128"`
}

// JoinBySecret joins the family matching the secret code
func (h *FamilyHandler) JoinBySecret(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	code := r.PathValue("code")

	req, ok := h.decodeJoin(w, r)
	if !ok {
		return
	}

	member, err := h.familyService.JoinBySecretCode(user.ID, code, req.DisplayName)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("family_id", member.FamilyID).Info("joined family by secret code")
	writeJSON(w, http.StatusCreated, member)
}

// JoinByInvite consumes an invitation code and joins its family
func (h *FamilyHandler) JoinByInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	code := r.PathValue("code")

	req, ok := h.decodeJoin(w, r)
	if !ok {
		return
	}

	member, err := h.familyService.JoinByInvite(user.ID, code, req.DisplayName)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("family_id", member.FamilyID).Info("joined family by invite")
	writeJSON(w, http.StatusCreated, member)
}

// decodeJoin parses the optional join body; an empty body is fine
func (h *FamilyHandler) decodeJoin(w http.ResponseWriter, r *http.Request) (joinRequest, bool) {
	var req joinRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondBadRequest(w, "invalid JSON body")
			return req, false
		}
		if err := h.validate.Validate(req); err != nil {
			respondBadRequest(w, err.Error())
			return req, false
		}
	}
	return req, true
}
