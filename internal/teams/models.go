package teams

import (
	"time"

	"github.com/google/uuid"
)

// Team is a named group of organization members led by a supervisor
type Team struct {
	ID           uuid.UUID   `json:"id"`
	OrgID        uuid.UUID   `json:"organizationId"`
	Name         string      `json:"name"`
	SupervisorID uuid.UUID   `json:"supervisorId"`
	MemberIDs    []uuid.UUID `json:"memberIds"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// CreateParams holds the validated fields of a new team
type CreateParams struct {
	OrgID        uuid.UUID
	Name         string
	SupervisorID uuid.UUID
	MemberIDs    []uuid.UUID
}

// HasMember reports whether userID is on the team
func (t *Team) HasMember(userID uuid.UUID) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// dedupe drops repeated ids while keeping first-seen order
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
