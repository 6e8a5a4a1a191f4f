package connection

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/config"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// Manager defines the chain connection manager interface
type Manager interface {
	GetClient() (*ethclient.Client, error)
	GetClientWithContext(ctx context.Context) (*ethclient.Client, error)
	HealthCheck() error
	GetLatestBlockNumber() (uint64, error)
	IsConnected() bool
	Close() error
	Stats() ConnectionStats

	// Read surface used by the settlement components
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ConnectionManager implements the Manager interface
type ConnectionManager struct {
	config       *config.ChainConfig
	primaryURL   string
	backupURLs   []string
	currentIndex int
	client       *ethclient.Client
	mu           sync.RWMutex
	logger       *logrus.Logger
	metrics      *metrics.PrometheusMetrics

	// Request counters live outside the mutex; GetClientWithContext bumps
	// them on the hot path where only a read lock is held
	totalRequests  atomic.Uint64
	failedRequests atomic.Uint64
	reconnects     atomic.Uint64

	stats           ConnectionStats
	lastHealthCheck time.Time
	isHealthy       bool
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	Reconnects      uint64    `json:"reconnects"`
	CurrentURL      string    `json:"current_url"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	IsHealthy       bool      `json:"is_healthy"`
	ChainID         uint64    `json:"chain_id"`
	LatestBlock     uint64    `json:"latest_block"`
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(cfg *config.ChainConfig) *ConnectionManager {
	return &ConnectionManager{
		config:       cfg,
		primaryURL:   cfg.NodeURL,
		backupURLs:   cfg.BackupNodes,
		currentIndex: 0,
		logger:       utils.GetLogger(),
		stats: ConnectionStats{
			CurrentURL: cfg.NodeURL,
			ChainID:    cfg.ChainID,
		},
	}
}

// SetMetrics attaches a metrics recorder; RPC calls and connection errors
// are recorded once one is set
func (cm *ConnectionManager) SetMetrics(m *metrics.PrometheusMetrics) {
	cm.metrics = m
}

// GetClient returns the current client connection
func (cm *ConnectionManager) GetClient() (*ethclient.Client, error) {
	return cm.GetClientWithContext(context.Background())
}

// GetClientWithContext returns the current client with context
func (cm *ConnectionManager) GetClientWithContext(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.RLock()
	client := cm.client
	lastCheck := cm.lastHealthCheck
	cm.mu.RUnlock()

	if client == nil {
		return cm.connect(ctx)
	}

	// Test the connection if it's been a while since last health check
	if time.Since(lastCheck) > time.Minute {
		if err := cm.quickHealthCheck(ctx, client); err != nil {
			cm.logger.WithError(err).Warn("Client health check failed, reconnecting")
			return cm.reconnect(ctx)
		}
	}

	cm.totalRequests.Add(1)
	return client, nil
}

// connect establishes a new connection
func (cm *ConnectionManager) connect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	urls := cm.getAllURLs()

	for attempt := 0; attempt < cm.config.RetryAttempts; attempt++ {
		for i, url := range urls {
			cm.logger.WithFields(logrus.Fields{"url": url, "attempt": attempt + 1}).
				Info("Attempting connection")

			client, err := cm.dialWithTimeout(ctx, url)
			if err != nil {
				cm.logger.WithFields(logrus.Fields{"url": url, "error": err}).Warn("Connection failed")
				cm.failedRequests.Add(1)
				if cm.metrics != nil {
					cm.metrics.RecordConnectionError(url, "dial_failed")
				}
				continue
			}

			// Verify the connection works
			if err := cm.quickHealthCheck(ctx, client); err != nil {
				client.Close()
				cm.logger.WithFields(logrus.Fields{"url": url, "error": err}).
					Warn("Health check failed after connection")
				if cm.metrics != nil {
					cm.metrics.RecordConnectionError(url, "health_check_failed")
				}
				continue
			}

			cm.client = client
			cm.currentIndex = i
			cm.stats.CurrentURL = url
			cm.stats.LastConnectedAt = time.Now()
			cm.isHealthy = true
			cm.lastHealthCheck = time.Now()

			cm.logger.WithField("url", url).Info("Successfully connected to chain node")
			return client, nil
		}

		if attempt < cm.config.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cm.config.RetryDelay):
				// Continue to next attempt
			}
		}
	}

	return nil, utils.NewAppError(utils.ErrCodeConnection, "Failed to connect to any chain node",
		"All connection attempts exhausted")
}

// reconnect tries to reconnect to chain nodes
func (cm *ConnectionManager) reconnect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}
	cm.mu.Unlock()
	cm.reconnects.Add(1)

	return cm.connect(ctx)
}

// dialWithTimeout creates a connection with timeout
func (cm *ConnectionManager) dialWithTimeout(ctx context.Context, url string) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.config.RequestTimeout)
	defer cancel()

	return ethclient.DialContext(dialCtx, url)
}

// quickHealthCheck performs a quick health check
func (cm *ConnectionManager) quickHealthCheck(ctx context.Context, client *ethclient.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := client.ChainID(checkCtx)
	return err
}

// HealthCheck performs a comprehensive health check
func (cm *ConnectionManager) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.setUnhealthy()
		return err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		cm.setUnhealthy()
		return utils.NewAppError(utils.ErrCodeConnection, "Failed to get chain ID", err.Error())
	}

	if chainID.Uint64() != cm.config.ChainID {
		cm.setUnhealthy()
		return utils.NewAppError(utils.ErrCodeConnection,
			"Chain ID mismatch",
			fmt.Sprintf("expected %d, got %d", cm.config.ChainID, chainID.Uint64()))
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		cm.setUnhealthy()
		return utils.NewAppError(utils.ErrCodeConnection, "Failed to get latest block", err.Error())
	}

	cm.mu.Lock()
	cm.stats.LatestBlock = blockNumber
	cm.stats.LastHealthCheck = time.Now()
	cm.stats.IsHealthy = true
	cm.lastHealthCheck = time.Now()
	cm.isHealthy = true
	cm.mu.Unlock()

	cm.logger.WithFields(logrus.Fields{
		"chain_id":     chainID.Uint64(),
		"latest_block": blockNumber,
		"url":          cm.stats.CurrentURL,
	}).Info("Health check passed")

	return nil
}

func (cm *ConnectionManager) setUnhealthy() {
	cm.mu.Lock()
	cm.isHealthy = false
	cm.stats.IsHealthy = false
	cm.mu.Unlock()
}

// GetLatestBlockNumber returns the latest block number
func (cm *ConnectionManager) GetLatestBlockNumber() (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return cm.BlockNumber(ctx)
}

// BlockNumber returns the latest block number
func (cm *ConnectionManager) BlockNumber(ctx context.Context) (uint64, error) {
	start := time.Now()
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.observeRPC("eth_blockNumber", start, err)
		return 0, err
	}

	blockNumber, err := client.BlockNumber(ctx)
	cm.observeRPC("eth_blockNumber", start, err)
	if err != nil {
		return 0, err
	}

	cm.mu.Lock()
	cm.stats.LatestBlock = blockNumber
	cm.mu.Unlock()

	return blockNumber, nil
}

// FilterLogs queries chain logs
func (cm *ConnectionManager) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	start := time.Now()
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.observeRPC("eth_getLogs", start, err)
		return nil, err
	}
	logs, err := client.FilterLogs(ctx, query)
	cm.observeRPC("eth_getLogs", start, err)
	return logs, err
}

// CallContract executes a read-only contract call, optionally at a past block
func (cm *ConnectionManager) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	start := time.Now()
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.observeRPC("eth_call", start, err)
		return nil, err
	}
	out, err := client.CallContract(ctx, msg, blockNumber)
	cm.observeRPC("eth_call", start, err)
	return out, err
}

// BalanceAt returns the native balance of an account
func (cm *ConnectionManager) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	start := time.Now()
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.observeRPC("eth_getBalance", start, err)
		return nil, err
	}
	balance, err := client.BalanceAt(ctx, account, blockNumber)
	cm.observeRPC("eth_getBalance", start, err)
	return balance, err
}

// observeRPC records one RPC round trip against the current endpoint
func (cm *ConnectionManager) observeRPC(method string, start time.Time, err error) {
	if cm.metrics == nil {
		return
	}

	cm.mu.RLock()
	endpoint := cm.stats.CurrentURL
	cm.mu.RUnlock()

	status := "success"
	if err != nil {
		status = "error"
		cm.metrics.RecordConnectionError(endpoint, "rpc_call_failed")
	}
	cm.metrics.RecordRPCRequest(endpoint, method, status, time.Since(start))
}

// IsConnected returns whether the manager is connected
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client != nil && cm.isHealthy
}

// Close closes the connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}

	cm.isHealthy = false
	cm.logger.Info("Connection manager closed")
	return nil
}

// Stats returns a point-in-time snapshot of connection statistics
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	snapshot := cm.stats
	cm.mu.RUnlock()

	snapshot.TotalRequests = cm.totalRequests.Load()
	snapshot.FailedRequests = cm.failedRequests.Load()
	snapshot.Reconnects = cm.reconnects.Load()
	return snapshot
}

// getAllURLs returns all available URLs starting from current index
func (cm *ConnectionManager) getAllURLs() []string {
	urls := []string{cm.primaryURL}
	urls = append(urls, cm.backupURLs...)

	// Start from current index for load balancing
	if cm.currentIndex > 0 && cm.currentIndex < len(urls) {
		rotated := make([]string, len(urls))
		copy(rotated, urls[cm.currentIndex:])
		copy(rotated[len(urls)-cm.currentIndex:], urls[:cm.currentIndex])
		return rotated
	}

	return urls
}
