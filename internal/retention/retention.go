package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DeleteRespondedInvitations deletes accepted and rejected invitations
// answered more than retentionDays ago. Pending invitations are never touched.
// The function is idempotent.
//
// Returns the number of rows deleted.
func DeleteRespondedInvitations(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, fmt.Errorf("invitation retention must be at least 1 day (got: %d)", retentionDays)
	}

	tag, err := pool.Exec(ctx, `
		DELETE FROM invitations
		WHERE status <> 'pending'
		  AND responded_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete responded invitations: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteOldAuditEvents deletes audit_log rows older than retentionDays.
//
// Returns the number of rows deleted.
func DeleteOldAuditEvents(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, fmt.Errorf("audit retention must be at least 1 day (got: %d)", retentionDays)
	}

	tag, err := pool.Exec(ctx, `
		DELETE FROM audit_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RunRetentionJob executes both retention operations and logs the results.
// This is the entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, invitationDays, auditDays int) error {
	log.Info().
		Int("invitation_retention_days", invitationDays).
		Int("audit_retention_days", auditDays).
		Msg("Starting retention job")

	startTime := time.Now()

	invitationsDeleted, err := DeleteRespondedInvitations(ctx, pool, invitationDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete responded invitations")
		return fmt.Errorf("invitation cleanup failed: %w", err)
	}

	auditDeleted, err := DeleteOldAuditEvents(ctx, pool, auditDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old audit events")
		return fmt.Errorf("audit cleanup failed: %w", err)
	}

	log.Info().
		Int64("invitations_deleted", invitationsDeleted).
		Int64("audit_events_deleted", auditDeleted).
		Dur("duration", time.Since(startTime)).
		Msg("Retention job completed")

	return nil
}

// Schedule returns the cron spec for the retention job: every minute in dev so
// the job is easy to observe, 03:00 UTC daily otherwise.
func Schedule(isDev bool) string {
	if isDev {
		return "* * * * *"
	}
	return "0 3 * * *"
}
