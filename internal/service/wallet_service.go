package service

import (
	"errors"
	"fmt"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/repository"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// MemberPoints is a user's balance in one family
type MemberPoints struct {
	FamilyID   string `json:"family_id"`
	FamilyName string `json:"family_name"`
	MemberID   string `json:"member_id"`
	Balance    int    `json:"balance"`
}

// WalletService handles point balances and the transaction ledger.
// Every balance mutation writes a matching ledger entry in the same
// transaction, so a wallet's balance always equals the sum of its entries.
type WalletService struct {
	db         *database.DB
	walletRepo *repository.WalletRepository
	familyRepo *repository.FamilyRepository
}

// NewWalletService creates a new wallet service
func NewWalletService(db *database.DB) *WalletService {
	return &WalletService{
		db:         db,
		walletRepo: repository.NewWalletRepository(db),
		familyRepo: repository.NewFamilyRepository(db),
	}
}

// GetWalletForMember retrieves a member's wallet
func (s *WalletService) GetWalletForMember(memberID string) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// GetPointsForUser retrieves the user's balance in every family they belong to
func (s *WalletService) GetPointsForUser(userID string) ([]MemberPoints, error) {
	memberships, err := s.familyRepo.ListMembershipsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	points := make([]MemberPoints, 0, len(memberships))
	for _, m := range memberships {
		wallet, err := s.walletRepo.GetWalletByMemberID(m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get wallet: %w", err)
		}
		if wallet == nil {
			continue
		}

		family, err := s.familyRepo.GetFamilyByID(m.FamilyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get family: %w", err)
		}
		name := ""
		if family != nil {
			name = family.Name
		}

		points = append(points, MemberPoints{
			FamilyID:   m.FamilyID,
			FamilyName: name,
			MemberID:   m.ID,
			Balance:    wallet.Balance,
		})
	}

	return points, nil
}

// ListTransactions retrieves a wallet's ledger for a requesting user. The
// wallet owner can always read it; other family members need the PARENT role.
func (s *WalletService) ListTransactions(walletID, requestingUserID string) ([]models.Transaction, error) {
	wallet, err := s.walletRepo.GetWalletByID(walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	owner, err := s.familyRepo.GetMemberByID(wallet.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet owner: %w", err)
	}
	if owner == nil {
		return nil, ErrWalletNotFound
	}

	if owner.UserID != requestingUserID {
		requester, err := s.familyRepo.GetMemberByUserAndFamily(requestingUserID, owner.FamilyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get requester membership: %w", err)
		}
		if requester == nil {
			return nil, ErrNotFamilyMember
		}
		if requester.Role != models.RoleParent {
			return nil, ErrNotParent
		}
	}

	transactions, err := s.walletRepo.ListTransactions(walletID)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}

// Credit adds points to a wallet and records an EARN entry. It runs against
// the caller's transaction so the credit commits atomically with whatever
// produced it.
func (s *WalletService) Credit(q database.DBTX, walletID string, amount int, reason *string, assignmentID, redemptionID, actorMemberID *string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	repo := repository.NewWalletRepository(q)
	if err := repo.AddToBalance(walletID, amount); err != nil {
		return err
	}

	return repo.InsertTransaction(&models.Transaction{
		WalletID:          walletID,
		Amount:            amount,
		Type:              models.TransactionEarn,
		Reason:            reason,
		TaskAssignmentID:  assignmentID,
		RedemptionID:      redemptionID,
		CreatedByMemberID: actorMemberID,
	})
}

// Debit removes points from a wallet and records a SPEND entry with a
// negative amount. It fails with ErrInsufficientFunds when the balance does
// not cover the amount; the guard is part of the UPDATE so concurrent debits
// cannot overdraw.
func (s *WalletService) Debit(q database.DBTX, walletID string, amount int, reason *string, redemptionID, actorMemberID *string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	repo := repository.NewWalletRepository(q)
	ok, err := repo.SubtractGuarded(walletID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}

	return repo.InsertTransaction(&models.Transaction{
		WalletID:          walletID,
		Amount:            -amount,
		Type:              models.TransactionSpend,
		Reason:            reason,
		RedemptionID:      redemptionID,
		CreatedByMemberID: actorMemberID,
	})
}

// Adjust applies a signed manual correction to a member's wallet. Only a
// PARENT in the member's family may adjust, and unlike Debit an adjustment
// may push the balance negative.
func (s *WalletService) Adjust(targetMemberID, actorUserID string, delta int, reason *string) (*models.Wallet, error) {
	target, err := s.familyRepo.GetMemberByID(targetMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}

	actor, err := s.familyRepo.GetMemberByUserAndFamily(actorUserID, target.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor membership: %w", err)
	}
	if actor == nil {
		return nil, ErrNotFamilyMember
	}
	if actor.Role != models.RoleParent {
		return nil, ErrNotParent
	}

	wallet, err := s.walletRepo.GetWalletByMemberID(targetMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repo := repository.NewWalletRepository(tx)
	if err := repo.AddToBalance(wallet.ID, delta); err != nil {
		return nil, err
	}
	err = repo.InsertTransaction(&models.Transaction{
		WalletID:          wallet.ID,
		Amount:            delta,
		Type:              models.TransactionAdjust,
		Reason:            reason,
		CreatedByMemberID: &actor.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	return s.walletRepo.GetWalletByID(wallet.ID)
}
