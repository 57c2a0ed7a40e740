package models

import "time"

// Reward is a redeemable catalog item scoped to a family
type Reward struct {
	ID          string    `json:"id"`
	FamilyID    string    `json:"family_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	CostPoints  int       `json:"cost_points"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedemptionStatus is the lifecycle state of a redemption
type RedemptionStatus string

const (
	RedemptionRequested RedemptionStatus = "REQUESTED"
	RedemptionApproved  RedemptionStatus = "APPROVED"
	RedemptionRedeemed  RedemptionStatus = "REDEEMED"
	RedemptionRejected  RedemptionStatus = "REJECTED"
	RedemptionCancelled RedemptionStatus = "CANCELLED"
)

// Redemption is a member's claim against a reward. The wallet is debited
// when the redemption is approved, not when it is requested.
type Redemption struct {
	ID                  string           `json:"id"`
	RewardID            string           `json:"reward_id"`
	RequestedByMemberID string           `json:"requested_by_member_id"`
	ApprovedByMemberID  *string          `json:"approved_by_member_id,omitempty"`
	Status              RedemptionStatus `json:"status"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	RedeemedAt          *time.Time       `json:"redeemed_at,omitempty"`
}
