// File: internal/settlement/runner.go
package settlement

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/season"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// ChainHead reports the current chain head block number
type ChainHead interface {
	HeadBlock(ctx context.Context) (uint64, error)
}

// PayoutNotifier receives the run summary after settlement completes. The
// implementation is fire-and-forget; runner errors never depend on it.
type PayoutNotifier interface {
	NotifyWeeklySettlement(ctx context.Context, week string, report *RunReport)
}

// RunnerConfig holds weekly payout orchestrator configuration
type RunnerConfig struct {
	Season      string
	TopBuilders int
	Window      season.Window
}

// RunReport summarises one orchestrator run
type RunReport struct {
	Week           string `json:"week"`
	Ranked         int    `json:"ranked"`
	Settled        int    `json:"settled"`
	AlreadySettled int    `json:"already_settled"`
	NoSupply       int    `json:"no_supply"`
	Failures       int    `json:"failures"`
	WindowSkipped  bool   `json:"window_skipped"`
	GuardSkipped   bool   `json:"guard_skipped"`
}

// Runner settles the previous week's payouts for the ranked top builders
type Runner struct {
	storage  storage.Storage
	settler  *Settler
	head     ChainHead
	notifier PayoutNotifier
	config   *RunnerConfig
	logger   *logrus.Logger
}

// NewRunner creates a weekly payout runner
func NewRunner(store storage.Storage, settler *Settler, head ChainHead, config *RunnerConfig) *Runner {
	return &Runner{
		storage: store,
		settler: settler,
		head:    head,
		config:  config,
		logger:  utils.GetLogger(),
	}
}

// SetNotifier attaches the post-run notification sink
func (r *Runner) SetNotifier(notifier PayoutNotifier) {
	r.notifier = notifier
}

// Run settles the week that just closed, gated to the configured settlement
// window
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	return r.RunAt(ctx, time.Now().UTC())
}

// RunAt is Run with an explicit clock. Outside the settlement window it is a
// no-op. A global guard skips the whole run when any payout already exists
// for the target week, so a retried trigger cannot settle twice. Per-builder
// failures are isolated: one builder's error is logged and the loop moves on.
func (r *Runner) RunAt(ctx context.Context, now time.Time) (*RunReport, error) {
	week := season.PreviousWeek(now)
	report := &RunReport{Week: week}

	if !r.config.Window.Contains(now) {
		r.logger.WithFields(logrus.Fields{
			"week": week,
			"now":  now.Format(time.RFC3339),
		}).Info("Outside settlement window, skipping payout run")
		report.WindowSkipped = true
		return report, nil
	}

	existing, err := r.storage.CountPayoutEvents(ctx, week)
	if err != nil {
		return report, err
	}
	if existing > 0 {
		r.logger.WithFields(logrus.Fields{
			"week":    week,
			"payouts": existing,
		}).Info("Week already has payout events, skipping run")
		report.GuardSkipped = true
		return report, nil
	}

	ranked, err := r.storage.GetWeeklyLeaderboard(ctx, week, r.config.TopBuilders)
	if err != nil {
		return report, err
	}
	report.Ranked = len(ranked)

	closingBlock, err := r.head.HeadBlock(ctx)
	if err != nil {
		return report, err
	}

	for _, builder := range ranked {
		outcome, err := r.settler.Settle(ctx, SettleRequest{
			BuilderID:     builder.BuilderID,
			Week:          week,
			Season:        r.config.Season,
			Rank:          builder.Rank,
			GemsCollected: builder.GemsCollected,
			ClosingBlock:  closingBlock,
		})
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"builder_id": builder.BuilderID,
				"week":       week,
				"rank":       builder.Rank,
				"error":      err,
			}).Error("Builder settlement failed")
			report.Failures++
			continue
		}
		switch outcome {
		case OutcomeSettled:
			report.Settled++
		case OutcomeAlreadySettled:
			report.AlreadySettled++
		case OutcomeNoSupply:
			report.NoSupply++
		}
	}

	r.logger.WithFields(logrus.Fields{
		"week":     week,
		"ranked":   report.Ranked,
		"settled":  report.Settled,
		"failures": report.Failures,
	}).Info("Weekly payout run completed")

	if r.notifier != nil {
		r.notifier.NotifyWeeklySettlement(ctx, week, report)
	}

	return report, nil
}
