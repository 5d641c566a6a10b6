package orgs

import (
	"time"

	"github.com/google/uuid"
)

// OrgRole represents a user's role within an organization
type OrgRole string

const (
	RoleOwner  OrgRole = "OWNER"
	RoleMember OrgRole = "MEMBER"
)

// IsValid reports whether r is a known role
func (r OrgRole) IsValid() bool {
	return r == RoleOwner || r == RoleMember
}

// Org represents an organization in the system
type Org struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	OwnerUserID uuid.UUID `db:"owner_user_id" json:"owner"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// OrgWithRole combines org information with the caller's role
type OrgWithRole struct {
	Org
	Role OrgRole `db:"role" json:"role"`
}

// MemberInfo represents a member of an organization with their details
type MemberInfo struct {
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      OrgRole   `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
