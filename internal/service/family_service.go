package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/logger"
	"famigo/internal/models"
	"famigo/internal/repository"
	"famigo/internal/security"
)

var (
	ErrFamilyNotFound  = errors.New("family not found")
	ErrMemberNotFound  = errors.New("family member not found")
	ErrNotFamilyMember = errors.New("user is not a member of this family")
	ErrNotParent       = errors.New("action requires the PARENT role")
	ErrAlreadyMember   = errors.New("user is already a member of this family")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrInviteNotUsable = errors.New("invite is expired, revoked or already used")
)

const (
	familySecretCodeLength = 12
	inviteCodeLength       = 10
	defaultInviteTTL       = 7 * 24 * time.Hour
)

// FamilyService handles families, memberships and invitations. Creating a
// membership always creates its wallet in the same transaction, so every
// member has exactly one wallet from the moment they exist.
type FamilyService struct {
	db         *database.DB
	familyRepo *repository.FamilyRepository
	userRepo   *repository.UserRepository
	email      *EmailService
	log        *logger.Logger
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, email *EmailService, log *logger.Logger) *FamilyService {
	return &FamilyService{
		db:         db,
		familyRepo: repository.NewFamilyRepository(db),
		userRepo:   repository.NewUserRepository(db),
		email:      email,
		log:        log,
	}
}

// CreateFamily creates a family with the creator as its PARENT owner.
// The family, the owner membership and the owner's wallet are committed
// together.
func (s *FamilyService) CreateFamily(name, ownerUserID string, displayName *string) (*models.Family, error) {
	if name == "" {
		return nil, errors.New("family name is required")
	}

	secretCode, err := security.GenerateCode(familySecretCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret code: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	familyRepo := repository.NewFamilyRepository(tx)
	walletRepo := repository.NewWalletRepository(tx)

	family, err := familyRepo.CreateFamily(name, secretCode, &ownerUserID)
	if err != nil {
		return nil, err
	}

	member, err := familyRepo.CreateMember(family.ID, ownerUserID, models.RoleParent, displayName)
	if err != nil {
		return nil, err
	}

	if _, err := walletRepo.CreateWallet(member.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit family creation: %w", err)
	}

	return family, nil
}

// GetFamily retrieves a family with its members for a requesting user.
// Only members can see a family.
func (s *FamilyService) GetFamily(familyID, userID string) (*models.FamilyWithMembers, error) {
	if _, err := s.EnsureMember(userID, familyID); err != nil {
		return nil, err
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	members, err := s.familyRepo.ListMembersWithBalances(familyID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.MemberWithBalance{}
	}

	return &models.FamilyWithMembers{Family: *family, Members: members}, nil
}

// ListFamiliesForUser retrieves all families a user belongs to
func (s *FamilyService) ListFamiliesForUser(userID string) ([]models.Family, error) {
	families, err := s.familyRepo.ListFamiliesForUser(userID)
	if err != nil {
		return nil, err
	}
	if families == nil {
		families = []models.Family{}
	}
	return families, nil
}

// EnsureMember returns the user's membership in a family or ErrNotFamilyMember
func (s *FamilyService) EnsureMember(userID, familyID string) (*models.FamilyMember, error) {
	member, err := s.familyRepo.GetMemberByUserAndFamily(userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return nil, ErrNotFamilyMember
	}
	return member, nil
}

// EnsureParent returns the user's membership in a family if it carries the
// PARENT role
func (s *FamilyService) EnsureParent(userID, familyID string) (*models.FamilyMember, error) {
	member, err := s.EnsureMember(userID, familyID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.RoleParent {
		return nil, ErrNotParent
	}
	return member, nil
}

// JoinBySecretCode adds a user to the family matching the secret code as a
// CHILD member with a fresh wallet
func (s *FamilyService) JoinBySecretCode(userID, code string, displayName *string) (*models.FamilyMember, error) {
	family, err := s.familyRepo.GetFamilyBySecretCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	return s.addMember(family.ID, userID, displayName)
}

// JoinByInvite consumes a single-use invite and adds the user to its family
// as a CHILD member. Consuming the invite and creating the membership commit
// together, so a raced invite admits exactly one user.
func (s *FamilyService) JoinByInvite(userID, code string, displayName *string) (*models.FamilyMember, error) {
	invite, err := s.familyRepo.GetInviteByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invite: %w", err)
	}
	if invite == nil {
		return nil, ErrInviteNotFound
	}
	if invite.Revoked || invite.UsedAt != nil || invite.IsExpired() {
		return nil, ErrInviteNotUsable
	}

	existing, err := s.familyRepo.GetMemberByUserAndFamily(userID, invite.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	familyRepo := repository.NewFamilyRepository(tx)
	walletRepo := repository.NewWalletRepository(tx)

	ok, err := familyRepo.MarkInviteUsed(invite.ID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInviteNotUsable
	}

	member, err := familyRepo.CreateMember(invite.FamilyID, userID, models.RoleChild, displayName)
	if err != nil {
		return nil, err
	}

	if _, err := walletRepo.CreateWallet(member.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}

	return member, nil
}

func (s *FamilyService) addMember(familyID, userID string, displayName *string) (*models.FamilyMember, error) {
	existing, err := s.familyRepo.GetMemberByUserAndFamily(userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	familyRepo := repository.NewFamilyRepository(tx)
	walletRepo := repository.NewWalletRepository(tx)

	member, err := familyRepo.CreateMember(familyID, userID, models.RoleChild, displayName)
	if err != nil {
		return nil, err
	}

	if _, err := walletRepo.CreateWallet(member.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}

	return member, nil
}

// CreateInvite creates a single-use invitation into a family. Only a PARENT
// can invite. When an email address is given and the email service is
// configured, the invite code is mailed to the recipient.
func (s *FamilyService) CreateInvite(ctx context.Context, familyID, actorUserID string, toEmail *string, ttl time.Duration) (*models.FamilyInvite, error) {
	actor, err := s.EnsureParent(actorUserID, familyID)
	if err != nil {
		return nil, err
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	code, err := security.GenerateCode(inviteCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	expiresAt := time.Now().UTC().Add(ttl)

	invite, err := s.familyRepo.CreateInvite(familyID, code, &actor.ID, &expiresAt)
	if err != nil {
		return nil, err
	}

	if toEmail != nil && *toEmail != "" {
		inviterName := inviterDisplayName(actor, s.userRepo, actorUserID)
		if err := s.email.SendFamilyInvite(ctx, *toEmail, family.Name, inviterName, code); err != nil {
			// The invite is valid even if the email could not be delivered
			s.log.WithError(err).WithField("family_id", familyID).Warn("failed to send invite email")
		}
	}

	return invite, nil
}

// RevokeInvite revokes an unused invitation. Only a PARENT of the invite's
// family can revoke it.
func (s *FamilyService) RevokeInvite(code, actorUserID string) error {
	invite, err := s.familyRepo.GetInviteByCode(code)
	if err != nil {
		return fmt.Errorf("failed to look up invite: %w", err)
	}
	if invite == nil {
		return ErrInviteNotFound
	}

	if _, err := s.EnsureParent(actorUserID, invite.FamilyID); err != nil {
		return err
	}

	ok, err := s.familyRepo.RevokeInvite(invite.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInviteNotUsable
	}
	return nil
}

func inviterDisplayName(actor *models.FamilyMember, users *repository.UserRepository, userID string) string {
	if actor.DisplayName != nil && *actor.DisplayName != "" {
		return *actor.DisplayName
	}
	if user, err := users.GetUserByID(userID); err == nil && user != nil {
		if user.FullName != nil && *user.FullName != "" {
			return *user.FullName
		}
		return user.Email
	}
	return "A family member"
}
