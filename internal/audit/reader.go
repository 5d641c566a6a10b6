package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Reader lists audit events for the organization audit endpoint.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

type ListItem struct {
	ID          uuid.UUID      `json:"id"`
	Action      string         `json:"action"`
	OrgID       uuid.UUID      `json:"organizationId"`
	ActorUserID *uuid.UUID     `json:"actorUserId,omitempty"`
	ActorEmail  string         `json:"actorEmail,omitempty"`
	Meta        map[string]any `json:"meta"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (r *Reader) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]ListItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
		  al.id,
		  al.org_id,
		  al.actor_user_id,
		  u.email,
		  al.action,
		  al.meta,
		  al.created_at
		FROM audit_log al
		LEFT JOIN users u ON u.id = al.actor_user_id
		WHERE al.org_id = $1
		ORDER BY al.created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	out := []ListItem{}
	for rows.Next() {
		var item ListItem
		var actorUserID uuid.NullUUID
		var actorEmail *string
		var metaRaw []byte

		if err := rows.Scan(&item.ID, &item.OrgID, &actorUserID, &actorEmail, &item.Action, &metaRaw, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		if actorUserID.Valid {
			item.ActorUserID = &actorUserID.UUID
		}
		if actorEmail != nil {
			item.ActorEmail = *actorEmail
		}

		item.Meta = decodeMeta(item.ID, metaRaw)

		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return out, nil
}

// decodeMeta returns an empty map for missing or undecodable meta so one bad
// row does not fail the listing.
func decodeMeta(eventID uuid.UUID, raw []byte) map[string]any {
	meta := map[string]any{}
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		log.Warn().Err(err).Str("event_id", eventID.String()).Msg("Failed to decode audit meta")
		return map[string]any{}
	}
	return meta
}
