package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/season"
	"github.com/scoutgame/settlement-worker/internal/storage"
)

type fakeHead struct{ head uint64 }

func (f *fakeHead) HeadBlock(ctx context.Context) (uint64, error) {
	return f.head, nil
}

type recordingNotifier struct {
	weeks   []string
	reports []*RunReport
}

func (n *recordingNotifier) NotifyWeeklySettlement(ctx context.Context, week string, report *RunReport) {
	n.weeks = append(n.weeks, week)
	n.reports = append(n.reports, report)
}

// insideWindow is Monday 2026-08-31 01:00 UTC; the week being settled is the
// one that just closed, 2026-W35
var insideWindow = time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)

func newTestRunner(store storage.Storage, settler *Settler) *Runner {
	return NewRunner(store, settler, &fakeHead{head: 1000}, &RunnerConfig{
		Season:      "2026-S1",
		TopBuilders: 100,
		Window:      season.Window{Weekday: time.Monday, Hours: 3},
	})
}

func TestRunnerSettlesRankedBuilders(t *testing.T) {
	store := newTestStorage(t, "test_runner")
	seedBuilder(t, store, "builder-1", "2026-S1")
	seedBuilder(t, store, "builder-2", "2026-S1")
	ctx := context.Background()

	require.NoError(t, store.SaveGemsTotal(ctx, "builder-1", "2026-W35", 10))
	require.NoError(t, store.SaveGemsTotal(ctx, "builder-2", "2026-W35", 4))

	settler := newTestSettler(store, &fakeOwnership{holders: map[string]map[common.Address]uint64{
		"builder-1": {scoutWalletA: 3, scoutWalletB: 7},
		"builder-2": {},
	}})
	runner := newTestRunner(store, settler)

	notifier := &recordingNotifier{}
	runner.SetNotifier(notifier)

	report, err := runner.RunAt(ctx, insideWindow)
	require.NoError(t, err)

	assert.Equal(t, "2026-W35", report.Week)
	assert.Equal(t, 2, report.Ranked)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 1, report.NoSupply) // builder-2 has no outstanding supply
	assert.Equal(t, 0, report.Failures)
	assert.False(t, report.WindowSkipped)

	event, err := store.GetPayoutEvent(ctx, "builder-1", "2026-W35")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, 1, event.Rank)

	// Notification fan-out ran once with the final report
	require.Len(t, notifier.weeks, 1)
	assert.Equal(t, "2026-W35", notifier.weeks[0])
	assert.Equal(t, report, notifier.reports[0])
}

func TestRunnerOutsideWindowIsNoop(t *testing.T) {
	store := newTestStorage(t, "test_runner_window")
	seedBuilder(t, store, "builder-1", "2026-S1")
	ctx := context.Background()

	require.NoError(t, store.SaveGemsTotal(ctx, "builder-1", "2026-W35", 10))

	settler := newTestSettler(store, &fakeOwnership{holders: map[string]map[common.Address]uint64{
		"builder-1": {scoutWalletA: 1},
	}})
	runner := newTestRunner(store, settler)

	// Wednesday is outside the Monday window
	wednesday := time.Date(2026, 9, 2, 1, 0, 0, 0, time.UTC)
	report, err := runner.RunAt(ctx, wednesday)
	require.NoError(t, err)
	assert.True(t, report.WindowSkipped)
	assert.Equal(t, 0, report.Settled)

	count, err := store.CountPayoutEvents(ctx, "2026-W35")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRunnerGlobalGuardSkipsSecondRun(t *testing.T) {
	store := newTestStorage(t, "test_runner_guard")
	seedBuilder(t, store, "builder-1", "2026-S1")
	ctx := context.Background()

	require.NoError(t, store.SaveGemsTotal(ctx, "builder-1", "2026-W35", 10))

	settler := newTestSettler(store, &fakeOwnership{holders: map[string]map[common.Address]uint64{
		"builder-1": {scoutWalletA: 1},
	}})
	runner := newTestRunner(store, settler)

	first, err := runner.RunAt(ctx, insideWindow)
	require.NoError(t, err)
	require.Equal(t, 1, first.Settled)

	// A retried trigger inside the same window hits the global guard
	second, err := runner.RunAt(ctx, insideWindow.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, second.GuardSkipped)
	assert.Equal(t, 0, second.Settled)

	count, err := store.CountPayoutEvents(ctx, "2026-W35")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// failingOwnership errors for one builder and delegates for the rest
type failingOwnership struct {
	inner   *fakeOwnership
	failFor string
}

func (f *failingOwnership) ResolveTokenOwnershipForBuilder(ctx context.Context, nft *models.BuilderNFT, floorBlock, closingBlock uint64) (map[common.Address]uint64, uint64, error) {
	if nft.BuilderID == f.failFor {
		return nil, 0, errors.New("rpc timeout")
	}
	return f.inner.ResolveTokenOwnershipForBuilder(ctx, nft, floorBlock, closingBlock)
}

func TestRunnerIsolatesBuilderFailures(t *testing.T) {
	store := newTestStorage(t, "test_runner_isolation")
	seedBuilder(t, store, "builder-1", "2026-S1")
	seedBuilder(t, store, "builder-2", "2026-S1")
	ctx := context.Background()

	require.NoError(t, store.SaveGemsTotal(ctx, "builder-1", "2026-W35", 10))
	require.NoError(t, store.SaveGemsTotal(ctx, "builder-2", "2026-W35", 5))

	ownership := &failingOwnership{
		inner: &fakeOwnership{holders: map[string]map[common.Address]uint64{
			"builder-1": {scoutWalletA: 1},
		}},
		failFor: "builder-2",
	}
	runner := newTestRunner(store, newTestSettler(store, ownership))

	report, err := runner.RunAt(ctx, insideWindow)
	require.NoError(t, err)

	// builder-2's RPC failure is counted and does not stop builder-1 from
	// settling
	assert.Equal(t, 2, report.Ranked)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 1, report.Settled)

	settled, err := store.GetPayoutEvent(ctx, "builder-1", "2026-W35")
	require.NoError(t, err)
	assert.NotNil(t, settled)

	failed, err := store.GetPayoutEvent(ctx, "builder-2", "2026-W35")
	require.NoError(t, err)
	assert.Nil(t, failed)
}

func TestRunnerEmptyLeaderboard(t *testing.T) {
	store := newTestStorage(t, "test_runner_empty")
	ctx := context.Background()

	settler := newTestSettler(store, &fakeOwnership{})
	runner := newTestRunner(store, settler)

	report, err := runner.RunAt(ctx, insideWindow)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Ranked)
	assert.Equal(t, 0, report.Settled)
}
