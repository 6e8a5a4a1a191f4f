// File: internal/storage/metrics_wrapper.go
package storage

import (
	"context"
	"time"

	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/models"
)

// StorageWithMetrics wraps a storage implementation and records operation
// counts and latency for the write paths the worker exercises on every run
type StorageWithMetrics struct {
	Storage
	metrics *metrics.PrometheusMetrics
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(store Storage, m *metrics.PrometheusMetrics) *StorageWithMetrics {
	return &StorageWithMetrics{
		Storage: store,
		metrics: m,
	}
}

func (s *StorageWithMetrics) record(operation, table string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordDatabaseOperation(operation, table, status, time.Since(start))
}

// SavePurchaseEvent saves a purchase ledger row and records metrics
func (s *StorageWithMetrics) SavePurchaseEvent(ctx context.Context, event *models.NFTPurchaseEvent) error {
	start := time.Now()
	err := s.Storage.SavePurchaseEvent(ctx, event)
	s.record("insert", "nft_purchase_events", start, err)
	return err
}

// SaveGemsTotal upserts a weekly gems total and records metrics
func (s *StorageWithMetrics) SaveGemsTotal(ctx context.Context, builderID, week string, gems int64) error {
	start := time.Now()
	err := s.Storage.SaveGemsTotal(ctx, builderID, week, gems)
	s.record("upsert", "weekly_gems_totals", start, err)
	return err
}

// SavePartnerReward saves a partner reward obligation and records metrics
func (s *StorageWithMetrics) SavePartnerReward(ctx context.Context, reward *models.PartnerReward) error {
	start := time.Now()
	err := s.Storage.SavePartnerReward(ctx, reward)
	s.record("insert", "partner_rewards", start, err)
	return err
}

// SavePollEvent saves a poll cursor advance and records metrics
func (s *StorageWithMetrics) SavePollEvent(ctx context.Context, event *models.ContractPollEvent) error {
	start := time.Now()
	err := s.Storage.SavePollEvent(ctx, event)
	s.record("insert", "contract_poll_events", start, err)
	return err
}

// WithinTransaction runs a settlement transaction and records metrics
func (s *StorageWithMetrics) WithinTransaction(ctx context.Context, fn func(tx TxStore) error) error {
	start := time.Now()
	err := s.Storage.WithinTransaction(ctx, fn)
	s.record("transaction", "gems_payout_events", start, err)
	return err
}
