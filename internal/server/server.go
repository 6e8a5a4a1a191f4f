// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/gasmonitor"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/ownership"
	"github.com/scoutgame/settlement-worker/internal/reconcile"
	"github.com/scoutgame/settlement-worker/internal/season"
	"github.com/scoutgame/settlement-worker/internal/settlement"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`

	// JobsDisabled is the global kill switch: when set, every job trigger
	// endpoint returns 503 without running anything
	JobsDisabled bool   `json:"jobs_disabled"`
	Season       string `json:"season"`
	ChainID      uint64 `json:"chain_id"`
	LaunchBlock  uint64 `json:"launch_block"`
}

// HTTPServer exposes the worker's job triggers, health and metrics endpoints.
// Each job is a POST endpoint invoked by an external scheduler.
type HTTPServer struct {
	config      *ServerConfig
	server      *http.Server
	router      *mux.Router
	storage     storage.Storage
	runner      *settlement.Runner
	reconciler  *reconcile.Reconciler
	monitor     *gasmonitor.Monitor
	resolver    *ownership.Resolver
	promMetrics *metrics.PrometheusMetrics
	logger      *logrus.Logger
	startTime   time.Time
	stopUpdater chan struct{}
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	config *ServerConfig,
	store storage.Storage,
	runner *settlement.Runner,
	reconciler *reconcile.Reconciler,
	monitor *gasmonitor.Monitor,
	resolver *ownership.Resolver,
	promMetrics *metrics.PrometheusMetrics,
) *HTTPServer {
	server := &HTTPServer{
		config:      config,
		storage:     store,
		runner:      runner,
		reconciler:  reconciler,
		monitor:     monitor,
		resolver:    resolver,
		promMetrics: promMetrics,
		logger:      utils.GetLogger(),
		startTime:   time.Now(),
		stopUpdater: make(chan struct{}),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.promMetrics != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Job trigger endpoints, invoked by the external scheduler
	jobs := api.PathPrefix("/jobs").Subrouter()
	jobs.Use(s.killSwitchMiddleware)
	jobs.HandleFunc("/weekly-payout", s.weeklyPayoutHandler).Methods("POST")
	jobs.HandleFunc("/reconcile", s.reconcileHandler).Methods("POST")
	jobs.HandleFunc("/balance-check", s.balanceCheckHandler).Methods("POST")
	jobs.HandleFunc("/resync-ownership", s.resyncOwnershipHandler).Methods("POST")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
		"jobs_disabled":   s.config.JobsDisabled,
	}).Info("Starting HTTP server")

	// Publish health gauges immediately so they appear on the first scrape
	if s.promMetrics != nil {
		s.updateHealthMetrics()
		go s.healthMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// healthMetricsUpdater refreshes uptime and component health gauges until
// the server stops
func (s *HTTPServer) healthMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateHealthMetrics()
		case <-s.stopUpdater:
			return
		}
	}
}

func (s *HTTPServer) updateHealthMetrics() {
	s.promMetrics.UpdateApplicationUptime(s.startTime)
	if s.storage != nil {
		s.promMetrics.UpdateComponentHealth("storage", s.storage.Ping() == nil)
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	close(s.stopUpdater)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Job Handlers

// weeklyPayoutHandler triggers the weekly payout run
func (s *HTTPServer) weeklyPayoutHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := s.runner.Run(r.Context())
	s.recordJob("weekly_payout", err, time.Since(start))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Weekly payout run failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}

// reconcileHandler triggers ledger reconciliation for the configured season
func (s *HTTPServer) reconcileHandler(w http.ResponseWriter, r *http.Request) {
	nftType := models.NFTTypeDefault
	if t := r.URL.Query().Get("nft_type"); t != "" {
		nftType = models.NFTType(t)
	}

	start := time.Now()
	report, err := s.reconciler.ReconcileSeason(r.Context(), s.config.Season, nftType)
	s.recordJob("reconcile", err, time.Since(start))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}

// balanceCheckHandler triggers the partner balance check for the current week
func (s *HTTPServer) balanceCheckHandler(w http.ResponseWriter, r *http.Request) {
	week := r.URL.Query().Get("week")
	if week == "" {
		week = season.CurrentWeek()
	}

	start := time.Now()
	report, err := s.monitor.CheckBalances(r.Context(), week)
	s.recordJob("balance_check", err, time.Since(start))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Balance check failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}

// resyncOwnershipHandler re-syncs transfer events for every registered NFT
// contract, resuming from the persisted poll cursor
func (s *HTTPServer) resyncOwnershipHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	nfts, err := s.storage.GetBuilderNFTs(r.Context(), s.config.Season, models.NFTTypeDefault)
	if err != nil {
		s.recordJob("resync_ownership", err, time.Since(start))
		s.writeError(w, http.StatusInternalServerError, "Failed to load builder NFTs", err)
		return
	}

	contracts := make(map[string]struct{})
	synced := 0
	for _, nft := range nfts {
		if _, seen := contracts[nft.ContractAddress]; seen {
			continue
		}
		contracts[nft.ContractAddress] = struct{}{}

		events, err := s.resolver.SyncTransferEvents(r.Context(), nft.Contract(), s.config.ChainID, s.config.LaunchBlock)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"contract": nft.ContractAddress,
				"error":    err,
			}).Error("Contract ownership sync failed")
			continue
		}
		synced += len(events)
	}

	s.recordJob("resync_ownership", nil, time.Since(start))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"contracts":     len(contracts),
		"events_synced": synced,
	})
}

// Health and Stats

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.storage.Ping(); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":        status,
		"timestamp":     time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":        time.Since(s.startTime).String(),
		"jobs_disabled": s.config.JobsDisabled,
	})
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	storageStats, err := s.storage.GetStorageStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve storage stats", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": time.Now(),
		"season":    s.config.Season,
		"week":      season.CurrentWeek(),
		"storage":   storageStats,
	})
}

// Utility Methods

func (s *HTTPServer) recordJob(job string, err error, duration time.Duration) {
	if s.promMetrics != nil {
		s.promMetrics.RecordJobRun(job, err, duration)
	}
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}
