package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/security"
)

// WalletRepository handles database operations for wallets and their
// transaction ledger
type WalletRepository struct {
	db database.DBTX
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db database.DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// CreateWallet creates an empty wallet for a family member
func (r *WalletRepository) CreateWallet(memberID string) (*models.Wallet, error) {
	wallet := &models.Wallet{
		ID:        security.NewID(),
		MemberID:  memberID,
		Balance:   0,
		UpdatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO wallets (id, member_id, balance, updated_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, wallet.ID, wallet.MemberID, wallet.Balance, wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return wallet, nil
}

// GetWalletByID retrieves a wallet by ID
func (r *WalletRepository) GetWalletByID(id string) (*models.Wallet, error) {
	query := `
		SELECT id, member_id, balance, updated_at
		FROM wallets
		WHERE id = ?
	`
	return r.scanWallet(r.db.QueryRow(query, id))
}

// GetWalletByMemberID retrieves the wallet owned by a family member
func (r *WalletRepository) GetWalletByMemberID(memberID string) (*models.Wallet, error) {
	query := `
		SELECT id, member_id, balance, updated_at
		FROM wallets
		WHERE member_id = ?
	`
	return r.scanWallet(r.db.QueryRow(query, memberID))
}

func (r *WalletRepository) scanWallet(row *sql.Row) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := row.Scan(
		&wallet.ID,
		&wallet.MemberID,
		&wallet.Balance,
		&wallet.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return wallet, nil
}

// AddToBalance applies a signed delta to a wallet balance unconditionally.
// Used for credits and adjustments; debits go through SubtractGuarded.
func (r *WalletRepository) AddToBalance(walletID string, delta int) error {
	query := `UPDATE wallets SET balance = balance + ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, delta, time.Now().UTC(), walletID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	return nil
}

// SubtractGuarded debits a wallet only if the balance covers the amount.
// The balance check lives in the UPDATE itself so concurrent debits cannot
// overdraw; it returns false when funds were insufficient.
func (r *WalletRepository) SubtractGuarded(walletID string, amount int) (bool, error) {
	query := `
		UPDATE wallets
		SET balance = balance - ?, updated_at = ?
		WHERE id = ? AND balance >= ?
	`
	result, err := r.db.Exec(query, amount, time.Now().UTC(), walletID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit wallet: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// InsertTransaction appends an immutable ledger entry for a wallet
func (r *WalletRepository) InsertTransaction(t *models.Transaction) error {
	if t.ID == "" {
		t.ID = security.NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions (id, wallet_id, amount, type, reason, task_assignment_id, redemption_id, created_by_member_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, t.ID, t.WalletID, t.Amount, t.Type, t.Reason, t.TaskAssignmentID, t.RedemptionID, t.CreatedByMemberID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListTransactions retrieves a wallet's ledger, newest first
func (r *WalletRepository) ListTransactions(walletID string) ([]models.Transaction, error) {
	query := `
		SELECT id, wallet_id, amount, type, reason, task_assignment_id, redemption_id, created_by_member_id, created_at
		FROM transactions
		WHERE wallet_id = ?
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.Query(query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.Amount, &t.Type, &t.Reason,
			&t.TaskAssignmentID, &t.RedemptionID, &t.CreatedByMemberID, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// SumTransactions returns the signed sum of a wallet's ledger entries.
// The result must always equal the stored balance.
func (r *WalletRepository) SumTransactions(walletID string) (int, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE wallet_id = ?`
	var sum int
	if err := r.db.QueryRow(query, walletID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}
