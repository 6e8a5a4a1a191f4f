package gasmonitor

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// Throwaway test key, never funded anywhere
const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

const testTokenContract = "0x00000000000000000000000000000000000000dd"

// fakeBalanceReader serves one fixed token balance in base units
type fakeBalanceReader struct {
	balance *big.Int
	err     error
}

func (f *fakeBalanceReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return common.LeftPadBytes(f.balance.Bytes(), 32), nil
}

func (f *fakeBalanceReader) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

type recordingAlertSender struct {
	alerts []*Alert
}

func (s *recordingAlertSender) SendBalanceAlert(ctx context.Context, alert *Alert) error {
	s.alerts = append(s.alerts, alert)
	return nil
}

func newTestStorage(t *testing.T, name string) storage.Storage {
	t.Helper()
	utils.InitLogger("error", "text", "stdout", "")

	path := "./" + name + ".db"
	t.Cleanup(func() { os.Remove(path) })

	store, err := storage.NewStorage(&storage.StorageConfig{
		Type:               "sqlite",
		ConnectionString:   path,
		MaxConnections:     10,
		MaxIdleTime:        15 * time.Minute,
		TransactionTimeout: 100 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	return store
}

func seedRewards(t *testing.T, store storage.Storage, partner, week string, amounts map[models.RewardSource]int64) {
	t.Helper()
	ctx := context.Background()
	for source, amount := range amounts {
		id, err := utils.GenerateID()
		require.NoError(t, err)
		require.NoError(t, store.SavePartnerReward(ctx, &models.PartnerReward{
			ID:      id,
			Partner: partner,
			Week:    week,
			Source:  source,
			Amount:  amount,
		}))
	}
}

func testPartner() PartnerConfig {
	return PartnerConfig{
		Name:          "optimism",
		PrivateKey:    testPrivateKey,
		TokenContract: testTokenContract,
		TokenDecimals: 18,
	}
}

// wholeTokens converts a whole-token amount into 18-decimal base units
func wholeTokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestCheckBalancesAlertsOnShortfall(t *testing.T) {
	store := newTestStorage(t, "test_monitor_shortfall")
	seedRewards(t, store, "optimism", "2026-W35", map[models.RewardSource]int64{
		models.RewardSourceReferral:     50,
		models.RewardSourceNewScout:     20,
		models.RewardSourceContribution: 10,
	})

	sender := &recordingAlertSender{}
	monitor := NewMonitor(&fakeBalanceReader{balance: wholeTokens(50)}, store, sender, []PartnerConfig{testPartner()})

	report, err := monitor.CheckBalances(context.Background(), "2026-W35")
	require.NoError(t, err)

	assert.Equal(t, 1, report.PartnersChecked)
	require.Len(t, report.Alerts, 1)

	// Required 80 across all reward sources against a balance of 50
	alert := report.Alerts[0]
	assert.Equal(t, "optimism", alert.Partner)
	assert.Equal(t, "2026-W35", alert.Week)
	assert.Equal(t, int64(80), alert.Required)
	assert.Equal(t, int64(50), alert.Balance)
	assert.Equal(t, int64(30), alert.Shortfall)

	require.Len(t, sender.alerts, 1)
	assert.Equal(t, alert, sender.alerts[0])

	t.Logf("✓ Shortfall alert: required=%d balance=%d", alert.Required, alert.Balance)
}

func TestCheckBalancesFundedWalletIsQuiet(t *testing.T) {
	store := newTestStorage(t, "test_monitor_funded")
	seedRewards(t, store, "optimism", "2026-W35", map[models.RewardSource]int64{
		models.RewardSourceReferral: 80,
	})

	sender := &recordingAlertSender{}
	monitor := NewMonitor(&fakeBalanceReader{balance: wholeTokens(80)}, store, sender, []PartnerConfig{testPartner()})

	report, err := monitor.CheckBalances(context.Background(), "2026-W35")
	require.NoError(t, err)

	assert.Equal(t, 1, report.PartnersChecked)
	assert.Empty(t, report.Alerts)
	assert.Empty(t, sender.alerts)
}

func TestCheckBalancesSkipsUnconfiguredPartner(t *testing.T) {
	store := newTestStorage(t, "test_monitor_unconfigured")

	partners := []PartnerConfig{
		{Name: "no-key", TokenContract: testTokenContract},
		{Name: "no-contract", PrivateKey: testPrivateKey},
		{Name: "bad-key", PrivateKey: "not-hex", TokenContract: testTokenContract},
	}
	monitor := NewMonitor(&fakeBalanceReader{balance: wholeTokens(0)}, store, nil, partners)

	report, err := monitor.CheckBalances(context.Background(), "2026-W35")
	require.NoError(t, err)

	assert.Equal(t, 0, report.PartnersChecked)
	assert.Equal(t, 3, report.PartnersSkipped)
	assert.Empty(t, report.Alerts)
}

func TestCheckBalancesRPCFailureAssumesZero(t *testing.T) {
	store := newTestStorage(t, "test_monitor_rpc_fail")
	seedRewards(t, store, "optimism", "2026-W35", map[models.RewardSource]int64{
		models.RewardSourceReferral: 10,
	})

	sender := &recordingAlertSender{}
	reader := &fakeBalanceReader{err: errors.New("connection refused")}
	monitor := NewMonitor(reader, store, sender, []PartnerConfig{testPartner()})

	report, err := monitor.CheckBalances(context.Background(), "2026-W35")
	require.NoError(t, err)

	// An unreadable balance counts as zero so the alert still fires
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, int64(0), report.Alerts[0].Balance)
	assert.Equal(t, int64(10), report.Alerts[0].Shortfall)
}

func TestCheckBalancesNoObligations(t *testing.T) {
	store := newTestStorage(t, "test_monitor_no_rewards")

	monitor := NewMonitor(&fakeBalanceReader{balance: wholeTokens(0)}, store, nil, []PartnerConfig{testPartner()})

	report, err := monitor.CheckBalances(context.Background(), "2026-W35")
	require.NoError(t, err)

	// Zero required against zero balance is not a shortfall
	assert.Equal(t, 1, report.PartnersChecked)
	assert.Empty(t, report.Alerts)
}
