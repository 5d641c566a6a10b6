package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound is returned when no user has the requested ID
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when another account already uses the email
	ErrEmailTaken = errors.New("email address already registered")

	// ErrWrongPassword is returned by ChangePassword when the current password does not match
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrUserHasDependents is returned when the user still owns an organization or supervises a team
	ErrUserHasDependents = errors.New("user owns an organization or supervises a team")
)

const userColumns = `id, email, name, password_hash, created_at, updated_at`

// Service provides user-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new user service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create registers a new user. email and name must already be normalized.
func (s *Service) Create(ctx context.Context, email, name, password string) (*User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		email, name, passwordHash,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// List returns every user ordered by creation time
func (s *Service) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update applies the set fields of params. Unset fields keep their value.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, params UpdateParams) (*User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users
		SET email = COALESCE($2, email),
		    name = COALESCE($3, name),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		userID, params.Email, params.Name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Delete removes a user together with their memberships, team seats and sent
// invitations. Owners and supervisors must hand over first.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if db.IsForeignKeyViolation(err) {
			return nil, ErrUserHasDependents
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return user, nil
}

// ChangePassword verifies currentPassword and stores a hash of newPassword
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := auth.VerifyPassword(user.PasswordHash, currentPassword); err != nil {
		return ErrWrongPassword
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, newHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
