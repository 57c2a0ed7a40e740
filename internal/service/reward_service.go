package service

import (
	"errors"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/repository"
)

var (
	ErrRewardNotFound     = errors.New("reward not found")
	ErrRewardInactive     = errors.New("reward is no longer available")
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrInvalidTransition  = errors.New("redemption is not in the required state")
	ErrNotRequester       = errors.New("only the requester can cancel a redemption")
	ErrInvalidCost        = errors.New("cost must not be negative")
)

// RewardService handles the reward catalog and the redemption flow.
// A redemption is REQUESTED first; approving it debits the requester's
// wallet, and delivering marks it REDEEMED. With auto-approval enabled a
// request debits and redeems in a single step.
type RewardService struct {
	db          *database.DB
	rewardRepo  *repository.RewardRepository
	familyRepo  *repository.FamilyRepository
	walletRepo  *repository.WalletRepository
	wallets     *WalletService
	autoApprove bool
}

// NewRewardService creates a new reward service
func NewRewardService(db *database.DB, wallets *WalletService, autoApprove bool) *RewardService {
	return &RewardService{
		db:          db,
		rewardRepo:  repository.NewRewardRepository(db),
		familyRepo:  repository.NewFamilyRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		wallets:     wallets,
		autoApprove: autoApprove,
	}
}

// CreateReward adds a reward to a family's catalog. Only a PARENT can create
// rewards.
func (s *RewardService) CreateReward(familyID, actorUserID, title string, description *string, costPoints int) (*models.Reward, error) {
	if title == "" {
		return nil, errors.New("reward title is required")
	}
	if costPoints < 0 {
		return nil, ErrInvalidCost
	}

	if _, err := s.ensureParent(actorUserID, familyID); err != nil {
		return nil, err
	}

	return s.rewardRepo.CreateReward(familyID, title, description, costPoints)
}

// ListRewards retrieves a family's active rewards for a member
func (s *RewardService) ListRewards(familyID, actorUserID string) ([]models.Reward, error) {
	if _, err := s.ensureMember(actorUserID, familyID); err != nil {
		return nil, err
	}

	rewards, err := s.rewardRepo.ListRewardsForFamily(familyID)
	if err != nil {
		return nil, err
	}
	if rewards == nil {
		rewards = []models.Reward{}
	}
	return rewards, nil
}

// DeactivateReward retires a reward from the catalog. Only a PARENT can
// deactivate. Existing redemptions keep their history.
func (s *RewardService) DeactivateReward(rewardID, actorUserID string) error {
	reward, err := s.rewardRepo.GetRewardByID(rewardID)
	if err != nil {
		return err
	}
	if reward == nil {
		return ErrRewardNotFound
	}

	if _, err := s.ensureParent(actorUserID, reward.FamilyID); err != nil {
		return err
	}

	return s.rewardRepo.DeactivateReward(rewardID)
}

// RequestRedemption claims a reward for the requesting member. Without
// auto-approval the redemption waits in REQUESTED and no points move. With
// auto-approval the wallet is debited and the redemption lands in REDEEMED
// within a single transaction.
func (s *RewardService) RequestRedemption(rewardID, actorUserID string) (*models.Redemption, error) {
	reward, err := s.rewardRepo.GetRewardByID(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	if !reward.IsActive {
		return nil, ErrRewardInactive
	}

	actor, err := s.ensureMember(actorUserID, reward.FamilyID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetWalletByMemberID(actor.ID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rewardRepo := repository.NewRewardRepository(tx)

	redemption, err := rewardRepo.CreateRedemption(rewardID, actor.ID, models.RedemptionRequested)
	if err != nil {
		return nil, err
	}

	if s.autoApprove {
		if reward.CostPoints > 0 {
			reason := fmt.Sprintf("Redeem '%s'", reward.Title)
			if err := s.wallets.Debit(tx, wallet.ID, reward.CostPoints, &reason, &redemption.ID, &actor.ID); err != nil {
				return nil, err
			}
		}

		now := time.Now().UTC()
		ok, err := rewardRepo.TransitionRedemption(redemption.ID, models.RedemptionRequested, models.RedemptionRedeemed, &actor.ID, &now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidTransition
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return s.rewardRepo.GetRedemptionByID(redemption.ID)
}

// ApproveRedemption approves a REQUESTED redemption and debits the
// requester's wallet. Only a PARENT can approve. The status flip and the
// debit share one transaction: if funds are short, the approval rolls back
// and the redemption stays REQUESTED. A concurrent double approve resolves
// to one winner through the status guard, so the wallet is debited once.
func (s *RewardService) ApproveRedemption(redemptionID, actorUserID string) (*models.Redemption, error) {
	redemption, reward, err := s.getRedemptionWithReward(redemptionID)
	if err != nil {
		return nil, err
	}

	actor, err := s.ensureParent(actorUserID, reward.FamilyID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetWalletByMemberID(redemption.RequestedByMemberID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rewardRepo := repository.NewRewardRepository(tx)

	ok, err := rewardRepo.TransitionRedemption(redemptionID, models.RedemptionRequested, models.RedemptionApproved, &actor.ID, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	// Free rewards approve without a ledger entry
	if reward.CostPoints > 0 {
		reason := fmt.Sprintf("Redeem '%s'", reward.Title)
		if err := s.wallets.Debit(tx, wallet.ID, reward.CostPoints, &reason, &redemptionID, &actor.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	return s.rewardRepo.GetRedemptionByID(redemptionID)
}

// DeliverRedemption marks an APPROVED redemption as REDEEMED once the reward
// has been handed over. Only a PARENT can deliver. No points move; the wallet
// was debited at approval.
func (s *RewardService) DeliverRedemption(redemptionID, actorUserID string) (*models.Redemption, error) {
	redemption, reward, err := s.getRedemptionWithReward(redemptionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ensureParent(actorUserID, reward.FamilyID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ok, err := s.rewardRepo.TransitionRedemption(redemption.ID, models.RedemptionApproved, models.RedemptionRedeemed, nil, &now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	return s.rewardRepo.GetRedemptionByID(redemptionID)
}

// RejectRedemption declines a REQUESTED redemption. Only a PARENT can reject.
func (s *RewardService) RejectRedemption(redemptionID, actorUserID string) (*models.Redemption, error) {
	redemption, reward, err := s.getRedemptionWithReward(redemptionID)
	if err != nil {
		return nil, err
	}

	actor, err := s.ensureParent(actorUserID, reward.FamilyID)
	if err != nil {
		return nil, err
	}

	ok, err := s.rewardRepo.TransitionRedemption(redemption.ID, models.RedemptionRequested, models.RedemptionRejected, &actor.ID, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	return s.rewardRepo.GetRedemptionByID(redemptionID)
}

// CancelRedemption withdraws a REQUESTED redemption. Only the requester can
// cancel their own request.
func (s *RewardService) CancelRedemption(redemptionID, actorUserID string) (*models.Redemption, error) {
	redemption, reward, err := s.getRedemptionWithReward(redemptionID)
	if err != nil {
		return nil, err
	}

	actor, err := s.ensureMember(actorUserID, reward.FamilyID)
	if err != nil {
		return nil, err
	}
	if redemption.RequestedByMemberID != actor.ID {
		return nil, ErrNotRequester
	}

	ok, err := s.rewardRepo.TransitionRedemption(redemption.ID, models.RedemptionRequested, models.RedemptionCancelled, nil, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	return s.rewardRepo.GetRedemptionByID(redemptionID)
}

// ListRedemptions retrieves a family's redemptions for a member
func (s *RewardService) ListRedemptions(familyID, actorUserID string) ([]models.Redemption, error) {
	if _, err := s.ensureMember(actorUserID, familyID); err != nil {
		return nil, err
	}

	redemptions, err := s.rewardRepo.ListRedemptionsForFamily(familyID)
	if err != nil {
		return nil, err
	}
	if redemptions == nil {
		redemptions = []models.Redemption{}
	}
	return redemptions, nil
}

func (s *RewardService) getRedemptionWithReward(redemptionID string) (*models.Redemption, *models.Reward, error) {
	redemption, err := s.rewardRepo.GetRedemptionByID(redemptionID)
	if err != nil {
		return nil, nil, err
	}
	if redemption == nil {
		return nil, nil, ErrRedemptionNotFound
	}

	reward, err := s.rewardRepo.GetRewardByID(redemption.RewardID)
	if err != nil {
		return nil, nil, err
	}
	if reward == nil {
		return nil, nil, ErrRewardNotFound
	}

	return redemption, reward, nil
}

func (s *RewardService) ensureMember(userID, familyID string) (*models.FamilyMember, error) {
	member, err := s.familyRepo.GetMemberByUserAndFamily(userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return nil, ErrNotFamilyMember
	}
	return member, nil
}

func (s *RewardService) ensureParent(userID, familyID string) (*models.FamilyMember, error) {
	member, err := s.ensureMember(userID, familyID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.RoleParent {
		return nil, ErrNotParent
	}
	return member, nil
}
