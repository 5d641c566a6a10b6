package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/teamhub/internal/db"
	"github.com/aliuyar1234/teamhub/internal/orgs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrTeamNotFound is returned for unknown teams and for teams in an
	// organization the caller does not belong to
	ErrTeamNotFound = errors.New("team not found")

	// ErrNotOrgMember is returned when a supervisor or member candidate is not
	// a member of the team's organization
	ErrNotOrgMember = errors.New("user is not a member of the team's organization")

	// ErrAlreadyTeamMember is returned when adding a user that is already on the team
	ErrAlreadyTeamMember = errors.New("user is already a member of this team")

	// ErrNotTeamMember is returned when removing a user that is not on the team
	ErrNotTeamMember = errors.New("user is not a member of this team")
)

// Service provides team-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new team service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const teamColumns = `
	t.id, t.org_id, t.name, t.supervisor_user_id, t.created_at, t.updated_at,
	COALESCE(
	  (SELECT array_agg(tm.user_id::text ORDER BY tm.created_at, tm.user_id)
	   FROM team_members tm WHERE tm.team_id = t.id),
	  '{}'
	)
`

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	var memberIDs []string
	if err := row.Scan(&t.ID, &t.OrgID, &t.Name, &t.SupervisorID, &t.CreatedAt, &t.UpdatedAt, &memberIDs); err != nil {
		return nil, err
	}

	t.MemberIDs = make([]uuid.UUID, 0, len(memberIDs))
	for _, raw := range memberIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid member id %q: %w", raw, err)
		}
		t.MemberIDs = append(t.MemberIDs, id)
	}
	return &t, nil
}

func collectTeams(rows pgx.Rows) ([]Team, error) {
	defer rows.Close()

	teams := []Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func orgRole(ctx context.Context, q querier, orgID, userID uuid.UUID) (orgs.OrgRole, error) {
	var role orgs.OrgRole
	err := q.QueryRow(ctx, `
		SELECT role FROM org_memberships WHERE org_id = $1 AND user_id = $2
	`, orgID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", orgs.ErrNotMember
		}
		return "", fmt.Errorf("failed to get org role: %w", err)
	}
	return role, nil
}

func requireOrgMembers(ctx context.Context, q querier, orgID uuid.UUID, userIDs ...uuid.UUID) error {
	for _, id := range userIDs {
		if _, err := orgRole(ctx, q, orgID, id); err != nil {
			if errors.Is(err, orgs.ErrNotMember) {
				return ErrNotOrgMember
			}
			return err
		}
	}
	return nil
}

// Create inserts a team and its initial members. The actor must own the
// organization; the supervisor and all members must belong to it.
func (s *Service) Create(ctx context.Context, actorUserID uuid.UUID, params CreateParams) (*Team, error) {
	if err := orgs.NewService(s.pool).RequireOwner(ctx, actorUserID, params.OrgID); err != nil {
		return nil, err
	}

	memberIDs := dedupe(params.MemberIDs)
	if err := requireOrgMembers(ctx, s.pool, params.OrgID, append([]uuid.UUID{params.SupervisorID}, memberIDs...)...); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var teamID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO teams (org_id, name, supervisor_user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, params.OrgID, params.Name, params.SupervisorID).Scan(&teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	for _, memberID := range memberIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)
		`, teamID, memberID); err != nil {
			return nil, fmt.Errorf("failed to add team member: %w", err)
		}
	}

	team, err := scanTeam(tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

// ListByOrg returns the teams of an organization the actor belongs to
func (s *Service) ListByOrg(ctx context.Context, actorUserID, orgID uuid.UUID) ([]Team, error) {
	if _, err := orgs.NewService(s.pool).RequireOrgMember(ctx, actorUserID, orgID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+teamColumns+`
		FROM teams t
		WHERE t.org_id = $1
		ORDER BY t.created_at ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	return collectTeams(rows)
}

// ListSupervised returns every team the user supervises, across organizations
func (s *Service) ListSupervised(ctx context.Context, userID uuid.UUID) ([]Team, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+teamColumns+`
		FROM teams t
		WHERE t.supervisor_user_id = $1
		ORDER BY t.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list supervised teams: %w", err)
	}

	return collectTeams(rows)
}

// lockForManage locks a team row inside tx and checks the actor may manage
// it: the organization owner or the current supervisor. Callers outside the
// organization see ErrTeamNotFound.
func lockForManage(ctx context.Context, tx pgx.Tx, teamID, actorUserID uuid.UUID) (*Team, error) {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to lock team: %w", err)
	}

	team, err := scanTeam(tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	role, err := orgRole(ctx, tx, team.OrgID, actorUserID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if role != orgs.RoleOwner && team.SupervisorID != actorUserID {
		log.Warn().
			Str("user_id", actorUserID.String()).
			Str("team_id", teamID.String()).
			Msg("RBAC: Owner or supervisor required")
		return nil, orgs.ErrInsufficientPermissions
	}

	return team, nil
}

// ChangeSupervisor hands the team to newSupervisorID and returns the previous
// supervisor
func (s *Service) ChangeSupervisor(ctx context.Context, actorUserID, teamID, newSupervisorID uuid.UUID) (*Team, uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	team, err := lockForManage(ctx, tx, teamID, actorUserID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if err := requireOrgMembers(ctx, tx, team.OrgID, newSupervisorID); err != nil {
		return nil, uuid.Nil, err
	}

	previous := team.SupervisorID
	err = tx.QueryRow(ctx, `
		UPDATE teams SET supervisor_user_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING supervisor_user_id, updated_at
	`, teamID, newSupervisorID).Scan(&team.SupervisorID, &team.UpdatedAt)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to update supervisor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, previous, nil
}

// AddMember puts an organization member on the team
func (s *Service) AddMember(ctx context.Context, actorUserID, teamID, userID uuid.UUID) (*Team, error) {
	return s.updateMembers(ctx, actorUserID, teamID, func(tx pgx.Tx, team *Team) error {
		if team.HasMember(userID) {
			return ErrAlreadyTeamMember
		}
		if err := requireOrgMembers(ctx, tx, team.OrgID, userID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)
		`, teamID, userID); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyTeamMember
			}
			return fmt.Errorf("failed to add team member: %w", err)
		}

		team.MemberIDs = append(team.MemberIDs, userID)
		return nil
	})
}

// RemoveMember takes a user off the team
func (s *Service) RemoveMember(ctx context.Context, actorUserID, teamID, userID uuid.UUID) (*Team, error) {
	return s.updateMembers(ctx, actorUserID, teamID, func(tx pgx.Tx, team *Team) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
		`, teamID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove team member: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotTeamMember
		}

		kept := team.MemberIDs[:0]
		for _, id := range team.MemberIDs {
			if id != userID {
				kept = append(kept, id)
			}
		}
		team.MemberIDs = kept
		return nil
	})
}

func (s *Service) updateMembers(ctx context.Context, actorUserID, teamID uuid.UUID, apply func(pgx.Tx, *Team) error) (*Team, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	team, err := lockForManage(ctx, tx, teamID, actorUserID)
	if err != nil {
		return nil, err
	}

	if err := apply(tx, team); err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `
		UPDATE teams SET updated_at = NOW() WHERE id = $1 RETURNING updated_at
	`, teamID).Scan(&team.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to touch team: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

// Delete removes the team and its member rows
func (s *Service) Delete(ctx context.Context, actorUserID, teamID uuid.UUID) (*Team, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	team, err := lockForManage(ctx, tx, teamID, actorUserID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID); err != nil {
		return nil, fmt.Errorf("failed to delete team: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}
