package intake

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
)

func TestReply_RoundTrip(t *testing.T) {
	testCases := []struct {
		err      error
		sentinel error
		code     string
	}{
		{fmt.Errorf("%w: x", ErrBadRequest), ErrBadRequest, CodeBadRequest},
		{fmt.Errorf("schedule: %w", chs.ErrInvalidTask), chs.ErrInvalidTask, CodeInvalidTask},
		{chs.ErrUnknownCategory, chs.ErrUnknownCategory, CodeUnknownCategory},
		{chs.ErrNoServers, chs.ErrNoServers, CodeNoServers},
		{chs.ErrServerNotFound, chs.ErrServerNotFound, CodeServerNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			reply := failure(tc.err)
			require.Equal(t, tc.code, reply.Code)
			require.Equal(t, tc.err.Error(), reply.Error)

			require.ErrorIs(t, reply.Err(), tc.sentinel)
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		reply := failure(errors.New("disk on fire"))
		require.Equal(t, CodeInternal, reply.Code)
		require.ErrorIs(t, reply.Err(), ErrRemote)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, Reply{}.Err())
	})
}

func TestConfig_Subjects(t *testing.T) {
	cfg := Config{}
	SetDefaults(&cfg)

	require.Equal(t, DefaultConfig(), cfg)
	require.Equal(t, "chs.schedule", cfg.ScheduleSubject())
	require.Equal(t, "chs.release", cfg.ReleaseSubject())
	require.Equal(t, "chs.stats", cfg.StatsSubject())
	require.Equal(t, "chs.journal.compute", cfg.JournalSubject("compute"))
}
