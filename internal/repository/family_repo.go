package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/security"
)

// FamilyRepository handles database operations for families, memberships and invites
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a new family with its secret join code
func (r *FamilyRepository) CreateFamily(name, secretCode string, ownerID *string) (*models.Family, error) {
	family := &models.Family{
		ID:         security.NewID(),
		Name:       name,
		SecretCode: secretCode,
		OwnerID:    ownerID,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO families (id, name, secret_code, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, family.ID, family.Name, family.SecretCode, family.OwnerID, family.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(id string) (*models.Family, error) {
	query := `
		SELECT id, name, secret_code, owner_id, created_at
		FROM families
		WHERE id = ?
	`
	return r.scanFamily(r.db.QueryRow(query, id))
}

// GetFamilyBySecretCode retrieves a family by its secret join code
func (r *FamilyRepository) GetFamilyBySecretCode(code string) (*models.Family, error) {
	query := `
		SELECT id, name, secret_code, owner_id, created_at
		FROM families
		WHERE secret_code = ?
	`
	return r.scanFamily(r.db.QueryRow(query, code))
}

func (r *FamilyRepository) scanFamily(row *sql.Row) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.SecretCode,
		&family.OwnerID,
		&family.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// CreateMember adds a user to a family with the given role
func (r *FamilyRepository) CreateMember(familyID, userID string, role models.MemberRole, displayName *string) (*models.FamilyMember, error) {
	member := &models.FamilyMember{
		ID:          security.NewID(),
		FamilyID:    familyID,
		UserID:      userID,
		Role:        role,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO family_members (id, family_id, user_id, role, display_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, member.ID, member.FamilyID, member.UserID, member.Role, member.DisplayName, member.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create family member: %w", err)
	}

	return member, nil
}

// GetMemberByID retrieves a membership by ID
func (r *FamilyRepository) GetMemberByID(id string) (*models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, display_name, created_at
		FROM family_members
		WHERE id = ?
	`
	return r.scanMember(r.db.QueryRow(query, id))
}

// GetMemberByUserAndFamily retrieves a user's membership in a specific family
func (r *FamilyRepository) GetMemberByUserAndFamily(userID, familyID string) (*models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, display_name, created_at
		FROM family_members
		WHERE user_id = ? AND family_id = ?
	`
	return r.scanMember(r.db.QueryRow(query, userID, familyID))
}

func (r *FamilyRepository) scanMember(row *sql.Row) (*models.FamilyMember, error) {
	member := &models.FamilyMember{}
	err := row.Scan(
		&member.ID,
		&member.FamilyID,
		&member.UserID,
		&member.Role,
		&member.DisplayName,
		&member.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}

	return member, nil
}

// ListMembershipsForUser retrieves all memberships a user holds
func (r *FamilyRepository) ListMembershipsForUser(userID string) ([]models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, display_name, created_at
		FROM family_members
		WHERE user_id = ?
		ORDER BY created_at
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []models.FamilyMember
	for rows.Next() {
		var m models.FamilyMember
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.DisplayName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// ListFamiliesForUser retrieves all families a user belongs to
func (r *FamilyRepository) ListFamiliesForUser(userID string) ([]models.Family, error) {
	query := `
		SELECT f.id, f.name, f.secret_code, f.owner_id, f.created_at
		FROM families f
		JOIN family_members m ON m.family_id = f.id
		WHERE m.user_id = ?
		ORDER BY f.created_at
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.SecretCode, &f.OwnerID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}

	return families, rows.Err()
}

// ListMembersWithBalances retrieves a family's members joined with their
// user details and wallet balances
func (r *FamilyRepository) ListMembersWithBalances(familyID string) ([]models.MemberWithBalance, error) {
	query := `
		SELECT m.id, m.family_id, m.user_id, m.role, m.display_name, m.created_at,
		       COALESCE(w.balance, 0), u.username, u.full_name, u.email
		FROM family_members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN wallets w ON w.member_id = m.id
		WHERE m.family_id = ?
		ORDER BY m.created_at
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.MemberWithBalance
	for rows.Next() {
		var m models.MemberWithBalance
		err := rows.Scan(
			&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.DisplayName, &m.CreatedAt,
			&m.WalletBalance, &m.Username, &m.FullName, &m.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// CreateInvite creates a single-use invitation into a family
func (r *FamilyRepository) CreateInvite(familyID, code string, createdBy *string, expiresAt *time.Time) (*models.FamilyInvite, error) {
	invite := &models.FamilyInvite{
		ID:                security.NewID(),
		FamilyID:          familyID,
		Code:              code,
		CreatedByMemberID: createdBy,
		ExpiresAt:         expiresAt,
	}

	query := `
		INSERT INTO family_invites (id, family_id, code, created_by_member_id, expires_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, invite.ID, invite.FamilyID, invite.Code, invite.CreatedByMemberID, invite.ExpiresAt, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	return invite, nil
}

// GetInviteByCode retrieves an invitation by its code
func (r *FamilyRepository) GetInviteByCode(code string) (*models.FamilyInvite, error) {
	query := `
		SELECT id, family_id, code, created_by_member_id, expires_at, used_by_user_id, used_at, revoked
		FROM family_invites
		WHERE code = ?
	`
	invite := &models.FamilyInvite{}
	err := r.db.QueryRow(query, code).Scan(
		&invite.ID,
		&invite.FamilyID,
		&invite.Code,
		&invite.CreatedByMemberID,
		&invite.ExpiresAt,
		&invite.UsedByUserID,
		&invite.UsedAt,
		&invite.Revoked,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}

	return invite, nil
}

// MarkInviteUsed consumes an invitation. Only an unused, unrevoked invite can
// be consumed; the conditional update makes concurrent joins race safely.
func (r *FamilyRepository) MarkInviteUsed(inviteID, userID string) (bool, error) {
	query := `
		UPDATE family_invites
		SET used_by_user_id = ?, used_at = ?
		WHERE id = ? AND used_at IS NULL AND revoked = ?
	`
	result, err := r.db.Exec(query, userID, time.Now().UTC(), inviteID, false)
	if err != nil {
		return false, fmt.Errorf("failed to mark invite used: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// RevokeInvite marks an unused invitation as revoked
func (r *FamilyRepository) RevokeInvite(inviteID string) (bool, error) {
	query := `
		UPDATE family_invites
		SET revoked = ?
		WHERE id = ? AND used_at IS NULL AND revoked = ?
	`
	result, err := r.db.Exec(query, true, inviteID, false)
	if err != nil {
		return false, fmt.Errorf("failed to revoke invite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
