package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/security"
)

// RewardRepository handles database operations for rewards and redemptions
type RewardRepository struct {
	db database.DBTX
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db database.DBTX) *RewardRepository {
	return &RewardRepository{db: db}
}

// CreateReward inserts a new reward into a family's catalog
func (r *RewardRepository) CreateReward(familyID, title string, description *string, costPoints int) (*models.Reward, error) {
	reward := &models.Reward{
		ID:          security.NewID(),
		FamilyID:    familyID,
		Title:       title,
		Description: description,
		CostPoints:  costPoints,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO rewards (id, family_id, title, description, cost_points, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, reward.ID, reward.FamilyID, reward.Title, reward.Description, reward.CostPoints, reward.IsActive, reward.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return reward, nil
}

// GetRewardByID retrieves a reward by ID
func (r *RewardRepository) GetRewardByID(id string) (*models.Reward, error) {
	query := `
		SELECT id, family_id, title, description, cost_points, is_active, created_at
		FROM rewards
		WHERE id = ?
	`
	reward := &models.Reward{}
	err := r.db.QueryRow(query, id).Scan(
		&reward.ID,
		&reward.FamilyID,
		&reward.Title,
		&reward.Description,
		&reward.CostPoints,
		&reward.IsActive,
		&reward.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return reward, nil
}

// ListRewardsForFamily retrieves a family's active rewards
func (r *RewardRepository) ListRewardsForFamily(familyID string) ([]models.Reward, error) {
	query := `
		SELECT id, family_id, title, description, cost_points, is_active, created_at
		FROM rewards
		WHERE family_id = ? AND is_active = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, familyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var rw models.Reward
		err := rows.Scan(
			&rw.ID, &rw.FamilyID, &rw.Title, &rw.Description,
			&rw.CostPoints, &rw.IsActive, &rw.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, rw)
	}

	return rewards, rows.Err()
}

// DeactivateReward retires a reward from the catalog without touching its
// redemption history
func (r *RewardRepository) DeactivateReward(id string) error {
	query := `UPDATE rewards SET is_active = ? WHERE id = ?`
	_, err := r.db.Exec(query, false, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate reward: %w", err)
	}
	return nil
}

// CreateRedemption inserts a redemption in the given initial state
func (r *RewardRepository) CreateRedemption(rewardID, requestedBy string, status models.RedemptionStatus) (*models.Redemption, error) {
	now := time.Now().UTC()
	redemption := &models.Redemption{
		ID:                  security.NewID(),
		RewardID:            rewardID,
		RequestedByMemberID: requestedBy,
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	query := `
		INSERT INTO redemptions (id, reward_id, requested_by_member_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, redemption.ID, redemption.RewardID, redemption.RequestedByMemberID, redemption.Status, redemption.CreatedAt, redemption.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}

	return redemption, nil
}

// GetRedemptionByID retrieves a redemption by ID
func (r *RewardRepository) GetRedemptionByID(id string) (*models.Redemption, error) {
	query := `
		SELECT id, reward_id, requested_by_member_id, approved_by_member_id, status, created_at, updated_at, redeemed_at
		FROM redemptions
		WHERE id = ?
	`
	redemption := &models.Redemption{}
	err := r.db.QueryRow(query, id).Scan(
		&redemption.ID,
		&redemption.RewardID,
		&redemption.RequestedByMemberID,
		&redemption.ApprovedByMemberID,
		&redemption.Status,
		&redemption.CreatedAt,
		&redemption.UpdatedAt,
		&redemption.RedeemedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}

	return redemption, nil
}

// ListRedemptionsForFamily retrieves redemptions against a family's rewards,
// newest first
func (r *RewardRepository) ListRedemptionsForFamily(familyID string) ([]models.Redemption, error) {
	query := `
		SELECT rd.id, rd.reward_id, rd.requested_by_member_id, rd.approved_by_member_id, rd.status, rd.created_at, rd.updated_at, rd.redeemed_at
		FROM redemptions rd
		JOIN rewards rw ON rw.id = rd.reward_id
		WHERE rw.family_id = ?
		ORDER BY rd.created_at DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var rd models.Redemption
		err := rows.Scan(
			&rd.ID, &rd.RewardID, &rd.RequestedByMemberID, &rd.ApprovedByMemberID,
			&rd.Status, &rd.CreatedAt, &rd.UpdatedAt, &rd.RedeemedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, rd)
	}

	return redemptions, rows.Err()
}

// TransitionRedemption moves a redemption from one status to another. The
// expected-status guard in the WHERE clause means concurrent transitions of
// the same redemption resolve to a single winner; it returns false when the
// redemption was not in the expected state.
func (r *RewardRepository) TransitionRedemption(id string, from, to models.RedemptionStatus, approvedBy *string, redeemedAt *time.Time) (bool, error) {
	query := `
		UPDATE redemptions
		SET status = ?, updated_at = ?,
		    approved_by_member_id = COALESCE(?, approved_by_member_id),
		    redeemed_at = COALESCE(?, redeemed_at)
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, to, time.Now().UTC(), approvedBy, redeemedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition redemption: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
