package config

import (
	"os"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/season"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "settlement-worker", cfg.App.Name)
	assert.False(t, cfg.App.JobsDisabled)

	assert.Equal(t, uint64(10), cfg.Chain.ChainID)
	assert.Equal(t, uint64(900), cfg.Chain.LogChunkSize)

	assert.Equal(t, "sqlite", cfg.Storage.Type)

	assert.Equal(t, float64(100000), cfg.Settlement.WeeklyAllocatedPoints)
	assert.Equal(t, 0.30, cfg.Settlement.BuilderPoolShare)
	assert.Equal(t, 100, cfg.Settlement.TopBuilders)
	assert.Equal(t, 1, cfg.Settlement.WindowWeekday)
	assert.Equal(t, 3, cfg.Settlement.WindowHours)

	assert.Equal(t, uint(18), cfg.Reconcile.PriceDecimals)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 1 * * 1", cfg.Scheduler.WeeklyPayoutSpec)

	require.NoError(t, cfg.Validate())
}

func TestDefaultPayoutSpecFiresInsideWindow(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	schedule, err := cron.ParseStandard(cfg.Scheduler.WeeklyPayoutSpec)
	require.NoError(t, err)

	window := season.Window{
		Weekday: time.Weekday(cfg.Settlement.WindowWeekday),
		Hours:   cfg.Settlement.WindowHours,
	}

	// Wherever in the week the scheduler starts, its next few fire times
	// must land inside the settlement window or the job would always no-op
	next := schedule.Next(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	for i := 0; i < 4; i++ {
		assert.True(t, window.Contains(next), "cron fire time %s misses the settlement window", next)
		next = schedule.Next(next)
	}
}

func TestJobsDisabledKillSwitch(t *testing.T) {
	os.Setenv("JOBS_DISABLED", "1")
	defer os.Unsetenv("JOBS_DISABLED")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.App.JobsDisabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Chain.NodeURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.ConnectionString = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Settlement.WeeklyAllocatedPoints = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Settlement.BuilderPoolShare = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Settlement.WindowWeekday = 7
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Chain.LogChunkSize = 0
	assert.Error(t, cfg.Validate())
}
