// File: internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/gasmonitor"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/reconcile"
	"github.com/scoutgame/settlement-worker/internal/season"
	"github.com/scoutgame/settlement-worker/internal/settlement"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// Config holds in-process cron configuration. Specs use standard five-field
// cron syntax evaluated in UTC.
type Config struct {
	WeeklyPayoutSpec string
	ReconcileSpec    string
	BalanceCheckSpec string
	Season           string
	// Disabled mirrors the global job kill switch
	Disabled bool
}

// Scheduler runs the worker's jobs on an in-process cron as an alternative to
// external HTTP triggers
type Scheduler struct {
	cron        *cron.Cron
	config      *Config
	runner      *settlement.Runner
	reconciler  *reconcile.Reconciler
	monitor     *gasmonitor.Monitor
	promMetrics *metrics.PrometheusMetrics
	logger      *logrus.Logger
}

// NewScheduler creates a scheduler wiring the three periodic jobs
func NewScheduler(config *Config, runner *settlement.Runner, reconciler *reconcile.Reconciler, monitor *gasmonitor.Monitor, promMetrics *metrics.PrometheusMetrics) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		config:      config,
		runner:      runner,
		reconciler:  reconciler,
		monitor:     monitor,
		promMetrics: promMetrics,
		logger:      utils.GetLogger(),
	}
}

// Start registers the cron entries and begins scheduling
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.WeeklyPayoutSpec, func() {
		s.runJob("weekly_payout", func(ctx context.Context) error {
			_, err := s.runner.Run(ctx)
			return err
		})
	}); err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid weekly payout cron spec", err.Error())
	}

	if _, err := s.cron.AddFunc(s.config.ReconcileSpec, func() {
		s.runJob("reconcile", func(ctx context.Context) error {
			_, err := s.reconciler.ReconcileSeason(ctx, s.config.Season, models.NFTTypeDefault)
			return err
		})
	}); err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid reconcile cron spec", err.Error())
	}

	if _, err := s.cron.AddFunc(s.config.BalanceCheckSpec, func() {
		s.runJob("balance_check", func(ctx context.Context) error {
			_, err := s.monitor.CheckBalances(ctx, season.CurrentWeek())
			return err
		})
	}); err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid balance check cron spec", err.Error())
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"weekly_payout": s.config.WeeklyPayoutSpec,
		"reconcile":     s.config.ReconcileSpec,
		"balance_check": s.config.BalanceCheckSpec,
	}).Info("Scheduler started")
	return nil
}

// Stop stops the cron and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runJob(name string, fn func(ctx context.Context) error) {
	if s.config.Disabled {
		s.logger.WithField("job", name).Warn("Job skipped, jobs are disabled")
		return
	}

	start := time.Now()
	err := fn(context.Background())
	duration := time.Since(start)

	if s.promMetrics != nil {
		s.promMetrics.RecordJobRun(name, err, duration)
	}

	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": duration.String(),
			"error":    err,
		}).Error("Scheduled job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"duration": duration.String(),
	}).Info("Scheduled job completed")
}
