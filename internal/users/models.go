package users

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// UpdateParams carries the optional fields of a profile update.
type UpdateParams struct {
	Email *string
	Name  *string
}

// Fields lists the names of the fields that are set, for audit meta.
func (p UpdateParams) Fields() []string {
	var fields []string
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	return fields
}
