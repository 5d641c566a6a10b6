package retention

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
)

func TestSchedule_ParsesWithStandardParser(t *testing.T) {
	for _, isDev := range []bool{true, false} {
		_, err := cron.ParseStandard(Schedule(isDev))
		require.NoError(t, err)
	}

	require.Equal(t, "0 3 * * *", Schedule(false))
}

func TestDeleteFunctions_RejectNonPositiveWindows(t *testing.T) {
	ctx := context.Background()

	// Checked before the pool is touched.
	_, err := DeleteRespondedInvitations(ctx, nil, 0)
	require.Error(t, err)

	_, err = DeleteOldAuditEvents(ctx, nil, -1)
	require.Error(t, err)
}
