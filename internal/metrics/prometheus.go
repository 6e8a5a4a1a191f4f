package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the settlement worker
type PrometheusMetrics struct {
	// Job metrics
	JobRunsTotal     *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	JobFailuresTotal *prometheus.CounterVec

	// Settlement metrics
	SettlementsTotal       *prometheus.CounterVec
	ReceiptsCreatedTotal   prometheus.Counter
	PointsDistributedTotal prometheus.Counter

	// Reconciliation metrics
	TransferEventsSeenTotal prometheus.Counter
	EventsBackfilledTotal   *prometheus.CounterVec

	// Connection and RPC metrics
	ConnectionErrorsTotal *prometheus.CounterVec
	RPCRequestsTotal      *prometheus.CounterVec
	RPCRequestDuration    *prometheus.HistogramVec
	LatestPolledBlock     prometheus.Gauge

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsSentTotal    *prometheus.CounterVec
	NotificationFailuresTotal *prometheus.CounterVec

	// Balance monitor metrics
	BalanceAlertsTotal *prometheus.CounterVec
	PartnerShortfall   *prometheus.GaugeVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		JobRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_job_runs_total",
				Help: "Total number of job executions",
			},
			[]string{"job", "status"},
		),

		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_job_duration_seconds",
				Help:    "Duration of job executions",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"job"},
		),

		JobFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_job_failures_total",
				Help: "Total number of failed job executions",
			},
			[]string{"job"},
		),

		SettlementsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_settlements_total",
				Help: "Total number of builder settlements by outcome",
			},
			[]string{"outcome"},
		),

		ReceiptsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_receipts_created_total",
				Help: "Total number of points receipts written",
			},
		),

		PointsDistributedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_points_distributed_total",
				Help: "Total points distributed across all settlements",
			},
		),

		TransferEventsSeenTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_transfer_events_seen_total",
				Help: "Total number of on-chain transfer events fetched",
			},
		),

		EventsBackfilledTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_events_backfilled_total",
				Help: "Total number of ledger rows backfilled by the reconciler",
			},
			[]string{"kind"},
		),

		ConnectionErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_connection_errors_total",
				Help: "Total number of connection errors to chain nodes",
			},
			[]string{"endpoint", "error_type"},
		),

		RPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_rpc_requests_total",
				Help: "Total number of RPC requests made to chain nodes",
			},
			[]string{"endpoint", "method", "status"},
		),

		RPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_rpc_request_duration_seconds",
				Help:    "Duration of RPC requests to chain nodes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),

		LatestPolledBlock: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scout_latest_polled_block",
				Help: "Latest block number scanned for transfer events",
			},
		),

		DatabaseOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		NotificationsSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_notifications_sent_total",
				Help: "Total number of notifications sent",
			},
			[]string{"channel", "type"},
		),

		NotificationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_notification_failures_total",
				Help: "Total number of failed notifications",
			},
			[]string{"channel", "type"},
		),

		BalanceAlertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_balance_alerts_total",
				Help: "Total number of partner balance shortfall alerts",
			},
			[]string{"partner"},
		),

		PartnerShortfall: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scout_partner_shortfall_tokens",
				Help: "Current token shortfall per partner wallet (0 when funded)",
			},
			[]string{"partner"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scout_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scout_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// RecordJobRun records one job execution
func (m *PrometheusMetrics) RecordJobRun(job string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
		m.JobFailuresTotal.WithLabelValues(job).Inc()
	}
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordSettlement records one builder settlement outcome
func (m *PrometheusMetrics) RecordSettlement(outcome string) {
	m.SettlementsTotal.WithLabelValues(outcome).Inc()
}

// RecordReceipts records receipts and points written by one settlement
func (m *PrometheusMetrics) RecordReceipts(count int, points int64) {
	m.ReceiptsCreatedTotal.Add(float64(count))
	m.PointsDistributedTotal.Add(float64(points))
}

// RecordBackfill records ledger rows backfilled by kind (mint, transfer, burn)
func (m *PrometheusMetrics) RecordBackfill(kind string, count int) {
	m.EventsBackfilledTotal.WithLabelValues(kind).Add(float64(count))
}

// RecordTransferEventsSeen records fetched transfer events
func (m *PrometheusMetrics) RecordTransferEventsSeen(count int) {
	m.TransferEventsSeenTotal.Add(float64(count))
}

// RecordConnectionError records a connection error
func (m *PrometheusMetrics) RecordConnectionError(endpoint, errorType string) {
	m.ConnectionErrorsTotal.WithLabelValues(endpoint, errorType).Inc()
}

// RecordRPCRequest records an RPC request
func (m *PrometheusMetrics) RecordRPCRequest(endpoint, method, status string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	m.RPCRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// UpdateLatestPolledBlock updates the latest polled block metric
func (m *PrometheusMetrics) UpdateLatestPolledBlock(blockNumber uint64) {
	m.LatestPolledBlock.Set(float64(blockNumber))
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordNotificationSent records a sent notification
func (m *PrometheusMetrics) RecordNotificationSent(channel, notificationType string) {
	m.NotificationsSentTotal.WithLabelValues(channel, notificationType).Inc()
}

// RecordNotificationFailure records a failed notification
func (m *PrometheusMetrics) RecordNotificationFailure(channel, notificationType string) {
	m.NotificationFailuresTotal.WithLabelValues(channel, notificationType).Inc()
}

// RecordBalanceAlert records a partner shortfall alert
func (m *PrometheusMetrics) RecordBalanceAlert(partner string, shortfall int64) {
	m.BalanceAlertsTotal.WithLabelValues(partner).Inc()
	m.PartnerShortfall.WithLabelValues(partner).Set(float64(shortfall))
}

// ClearBalanceAlert marks a partner wallet as funded
func (m *PrometheusMetrics) ClearBalanceAlert(partner string) {
	m.PartnerShortfall.WithLabelValues(partner).Set(0)
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}
