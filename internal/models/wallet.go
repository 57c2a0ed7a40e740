package models

import "time"

// Wallet holds a member's point balance. It is created together with the
// membership and mutated only through transaction-producing ledger operations,
// so the balance always equals the sum of its transaction amounts.
type Wallet struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionType classifies a point movement
type TransactionType string

const (
	TransactionEarn   TransactionType = "EARN"
	TransactionSpend  TransactionType = "SPEND"
	TransactionAdjust TransactionType = "ADJUST"
)

// Transaction is an immutable signed point movement on a wallet
type Transaction struct {
	ID                string          `json:"id"`
	WalletID          string          `json:"wallet_id"`
	Amount            int             `json:"amount"`
	Type              TransactionType `json:"type"`
	Reason            *string         `json:"reason,omitempty"`
	TaskAssignmentID  *string         `json:"task_assignment_id,omitempty"`
	RedemptionID      *string         `json:"redemption_id,omitempty"`
	CreatedByMemberID *string         `json:"created_by_member_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
