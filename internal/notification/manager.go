// File: internal/notification/manager.go
package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/settlement"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// Manager fans settlement notifications out to the configured channels.
// Every delivery is best-effort: failures are logged, never returned to the
// settlement path.
type Manager struct {
	webhook *WebhookSender
	email   *EmailSender
	logger  *logrus.Logger
	metrics *metrics.PrometheusMetrics
}

// NewManager creates a notification manager. Either sender may be nil when
// that channel is not configured.
func NewManager(webhook *WebhookSender, email *EmailSender) *Manager {
	return &Manager{
		webhook: webhook,
		email:   email,
		logger:  utils.GetLogger(),
	}
}

// SetMetrics attaches a metrics recorder; the webhook channel records its
// own outcomes
func (m *Manager) SetMetrics(pm *metrics.PrometheusMetrics) {
	m.metrics = pm
	if m.webhook != nil {
		m.webhook.SetMetrics(pm)
	}
}

// NotifyWeeklySettlement reports a completed payout run on all channels
func (m *Manager) NotifyWeeklySettlement(ctx context.Context, week string, report *settlement.RunReport) {
	if m.webhook != nil {
		if err := m.webhook.Send(ctx, "weekly_settlement", report); err != nil {
			m.logger.WithFields(logrus.Fields{
				"week":  week,
				"error": err,
			}).Error("Failed to deliver settlement webhook")
		}
	}

	if m.email != nil {
		subject := fmt.Sprintf("Weekly payout settled: %s", week)
		body := fmt.Sprintf(
			"Week %s settlement completed.\n\nRanked builders: %d\nSettled: %d\nAlready settled: %d\nNo supply: %d\nFailures: %d\n",
			week, report.Ranked, report.Settled, report.AlreadySettled, report.NoSupply, report.Failures)
		if err := m.email.SendEmail(subject, body); err != nil {
			m.logger.WithFields(logrus.Fields{
				"week":  week,
				"error": err,
			}).Error("Failed to deliver settlement email")
			if m.metrics != nil {
				m.metrics.RecordNotificationFailure("email", "weekly_settlement")
			}
		} else if m.metrics != nil {
			m.metrics.RecordNotificationSent("email", "weekly_settlement")
		}
	}
}
