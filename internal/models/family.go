package models

import "time"

// MemberRole is the role a user holds within one family
type MemberRole string

const (
	RoleParent MemberRole = "PARENT"
	RoleChild  MemberRole = "CHILD"
)

// Family represents a household sharing tasks, rewards and points
type Family struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SecretCode string    `json:"secret_code"`
	OwnerID    *string   `json:"owner_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FamilyMember is a user's identity scoped to one family.
// A user has at most one membership per family, and every membership
// owns exactly one wallet.
type FamilyMember struct {
	ID          string     `json:"id"`
	FamilyID    string     `json:"family_id"`
	UserID      string     `json:"user_id"`
	Role        MemberRole `json:"role"`
	DisplayName *string    `json:"display_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FamilyInvite is a single-use invitation code into a family
type FamilyInvite struct {
	ID                string     `json:"id"`
	FamilyID          string     `json:"family_id"`
	Code              string     `json:"code"`
	CreatedByMemberID *string    `json:"created_by_member_id,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	UsedByUserID      *string    `json:"used_by_user_id,omitempty"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	Revoked           bool       `json:"revoked"`
}

// IsExpired checks if the invite has passed its expiry
func (i *FamilyInvite) IsExpired() bool {
	return i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt)
}

// MemberWithBalance combines a membership with its user info and wallet balance
type MemberWithBalance struct {
	FamilyMember
	WalletBalance int     `json:"wallet_balance"`
	Username      *string `json:"username,omitempty"`
	FullName      *string `json:"full_name,omitempty"`
	Email         string  `json:"email"`
}

// FamilyWithMembers combines a family with its member details
type FamilyWithMembers struct {
	Family
	Members []MemberWithBalance `json:"members"`
}
