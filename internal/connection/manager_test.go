package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/config"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// newFakeNode serves just enough JSON-RPC for the manager to connect and
// poll: chain id 10 and a fixed head block
func newFakeNode(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result := ""
		switch req.Method {
		case "eth_chainId":
			result = "0xa"
		case "eth_blockNumber":
			result = "0x64"
		case "eth_getBalance":
			result = "0x0"
		default:
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(nodeURL string) *ConnectionManager {
	utils.InitLogger("error", "text", "stdout", "")
	return NewConnectionManager(&config.ChainConfig{
		NodeURL:        nodeURL,
		ChainID:        10,
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  1,
		RetryDelay:     10 * time.Millisecond,
	})
}

func TestManagerConnectsAndPolls(t *testing.T) {
	node := newFakeNode(t)
	cm := newTestManager(node.URL)
	defer cm.Close()

	head, err := cm.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), head)
	assert.True(t, cm.IsConnected())

	stats := cm.Stats()
	assert.Equal(t, node.URL, stats.CurrentURL)
	assert.Equal(t, uint64(100), stats.LatestBlock)
}

func TestHealthCheckRejectsWrongChainID(t *testing.T) {
	node := newFakeNode(t)
	cm := newTestManager(node.URL)
	cm.config.ChainID = 999
	defer cm.Close()

	// The initial connect only requires the node to answer; the full health
	// check verifies the chain id matches configuration
	err := cm.HealthCheck()
	require.Error(t, err)
	assert.False(t, cm.IsConnected())
}

func TestStatsSnapshotUnderConcurrentRequests(t *testing.T) {
	node := newFakeNode(t)
	cm := newTestManager(node.URL)
	defer cm.Close()

	ctx := context.Background()
	_, err := cm.GetClientWithContext(ctx)
	require.NoError(t, err)

	const workers = 20
	const callsPerWorker = 5

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerWorker; j++ {
				_, err := cm.BlockNumber(ctx)
				assert.NoError(t, err)
				cm.Stats()
			}
		}()
	}
	wg.Wait()

	// Every BlockNumber call fetches the client once; none may be lost to
	// concurrent increments
	stats := cm.Stats()
	assert.Equal(t, uint64(workers*callsPerWorker), stats.TotalRequests)
	assert.Equal(t, uint64(0), stats.FailedRequests)

	t.Logf("✓ Counted %d requests across %d workers", stats.TotalRequests, workers)
}

func TestManagerRecordsRPCMetrics(t *testing.T) {
	node := newFakeNode(t)
	cm := newTestManager(node.URL)
	defer cm.Close()

	m := metrics.NewPrometheusMetrics()
	cm.SetMetrics(m)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := cm.BlockNumber(ctx)
		require.NoError(t, err)
	}

	counter := m.RPCRequestsTotal.WithLabelValues(node.URL, "eth_blockNumber", "success")
	assert.Equal(t, float64(3), testutil.ToFloat64(counter))
}

func TestRegistryReusesManagersPerChain(t *testing.T) {
	registry := NewRegistry(&config.ChainConfig{
		NodeURL:        "http://localhost:4444",
		ChainID:        10,
		RequestTimeout: time.Second,
		RetryAttempts:  1,
		RetryDelay:     time.Millisecond,
	})
	defer registry.Close()

	first := registry.Manager("2026-S1", 10)
	again := registry.Manager("2026-S1", 10)
	other := registry.Manager("2026-S1", 42)

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
	assert.Equal(t, uint64(42), other.config.ChainID)
}
