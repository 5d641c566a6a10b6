package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/teamhub/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrOrgNotFound is returned when an organization is not found
	ErrOrgNotFound = errors.New("organization not found")

	// ErrNotMember is returned when a user is not a member of an organization
	ErrNotMember = errors.New("user is not a member of this organization")

	// ErrInsufficientPermissions is returned when a member is not the owner
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrOwnerMissing is returned when the would-be owner's user row is gone,
	// e.g. a deleted account still holding an unexpired token
	ErrOwnerMissing = errors.New("owner user does not exist")
)

// Service provides organization-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new organization service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// GetByID retrieves an organization by ID
func (s *Service) GetByID(ctx context.Context, orgID uuid.UUID) (*Org, error) {
	var org Org

	query := `
		SELECT id, name, owner_user_id, created_at, updated_at
		FROM orgs
		WHERE id = $1
	`

	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.OwnerUserID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// ListUserOrgs retrieves every organization the user owns or belongs to
func (s *Service) ListUserOrgs(ctx context.Context, userID uuid.UUID) ([]OrgWithRole, error) {
	query := `
		SELECT o.id, o.name, o.owner_user_id, o.created_at, o.updated_at, m.role
		FROM orgs o
		INNER JOIN org_memberships m ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orgs: %w", err)
	}
	defer rows.Close()

	orgs := []OrgWithRole{}
	for rows.Next() {
		var org OrgWithRole
		err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.OwnerUserID,
			&org.CreatedAt,
			&org.UpdatedAt,
			&org.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan org: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating org rows: %w", err)
	}

	return orgs, nil
}

// CreateWithOwner creates a new organization and makes the user its OWNER.
// Both rows are written in one transaction.
func (s *Service) CreateWithOwner(ctx context.Context, name string, userID uuid.UUID) (*Org, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var org Org
	query := `
		INSERT INTO orgs (name, owner_user_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_user_id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query, name, userID).Scan(
		&org.ID,
		&org.Name,
		&org.OwnerUserID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrOwnerMissing
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO org_memberships (org_id, user_id, role)
		VALUES ($1, $2, $3)
	`, org.ID, userID, RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &org, nil
}

// ListMembers retrieves all members of an organization, owner first
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]MemberInfo, error) {
	query := `
		SELECT m.user_id, u.email, u.name, m.role, m.created_at
		FROM org_memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.org_id = $1
		ORDER BY (m.role = 'OWNER') DESC, m.created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []MemberInfo{}
	for rows.Next() {
		var member MemberInfo
		err := rows.Scan(
			&member.UserID,
			&member.Email,
			&member.Name,
			&member.Role,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

// GetUserOrgRole retrieves a user's role in an organization.
// Returns ErrNotMember if the user is not a member.
func (s *Service) GetUserOrgRole(ctx context.Context, userID, orgID uuid.UUID) (OrgRole, error) {
	var role OrgRole

	query := `
		SELECT role FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
	`

	err := s.pool.QueryRow(ctx, query, orgID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug().
				Str("user_id", userID.String()).
				Str("org_id", orgID.String()).
				Msg("RBAC: User is not a member of organization")
			return "", ErrNotMember
		}
		return "", fmt.Errorf("failed to get org role: %w", err)
	}

	return role, nil
}

// RequireOrgMember checks that a user belongs to an organization and returns
// their role
func (s *Service) RequireOrgMember(ctx context.Context, userID, orgID uuid.UUID) (OrgRole, error) {
	return s.GetUserOrgRole(ctx, userID, orgID)
}

// RequireOwner checks that a user owns an organization.
// Returns ErrNotMember for outsiders and ErrInsufficientPermissions for
// plain members.
func (s *Service) RequireOwner(ctx context.Context, userID, orgID uuid.UUID) error {
	role, err := s.GetUserOrgRole(ctx, userID, orgID)
	if err != nil {
		return err
	}

	if role != RoleOwner {
		log.Warn().
			Str("user_id", userID.String()).
			Str("org_id", orgID.String()).
			Str("user_role", string(role)).
			Msg("RBAC: Owner required")
		return ErrInsufficientPermissions
	}

	return nil
}

// IsMember reports whether userID belongs to orgID
func (s *Service) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	_, err := s.GetUserOrgRole(ctx, userID, orgID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
