package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

func newTestStorage(t *testing.T, name string) Storage {
	t.Helper()
	utils.InitLogger("error", "text", "stdout", "")

	path := "./" + name + ".db"
	t.Cleanup(func() { os.Remove(path) })

	store, err := NewStorage(&StorageConfig{
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

func saveTestNFT(t *testing.T, store Storage, builderID string) *models.BuilderNFT {
	t.Helper()
	nft := &models.BuilderNFT{
		ID:              builderID + "-nft",
		BuilderID:       builderID,
		Season:          "2026-S1",
		NFTType:         models.NFTTypeDefault,
		TokenID:         1,
		ContractAddress: "0x00000000000000000000000000000000000000cc",
		ChainID:         10,
		CurrentPrice:    "1000000000000000000",
	}
	require.NoError(t, store.SaveBuilderNFT(context.Background(), nft))
	return nft
}

func TestPurchaseEventDuplicateIsIgnored(t *testing.T) {
	store := newTestStorage(t, "test_store_purchase_dup")
	ctx := context.Background()
	nft := saveTestNFT(t, store, "builder-1")

	event := &models.NFTPurchaseEvent{
		ID:              "evt-1",
		BuilderNFTID:    nft.ID,
		TxHash:          "0xaaaa",
		LogIndex:        3,
		BlockNumber:     100,
		TokensPurchased: 2,
		RecipientWallet: "0x00000000000000000000000000000000000000aa",
		PointsValue:     6,
		Type:            models.PurchaseEventMint,
	}
	require.NoError(t, store.SavePurchaseEvent(ctx, event))

	// Same (tx_hash, log_index) for the same NFT under a different row ID
	// must not create a second ledger row
	duplicate := *event
	duplicate.ID = "evt-2"
	duplicate.PointsValue = 999
	require.NoError(t, store.SavePurchaseEvent(ctx, &duplicate))

	exists, err := store.HasPurchaseEvent(ctx, "0xaaaa", 3)
	require.NoError(t, err)
	assert.True(t, exists)

	season := "2026-S1"
	rows, err := store.GetPurchaseEvents(ctx, models.PurchaseEventFilter{Season: &season})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "evt-1", rows[0].ID)
	assert.Equal(t, int64(6), rows[0].PointsValue)
}

func TestGetScoutWalletMissReturnsNil(t *testing.T) {
	store := newTestStorage(t, "test_store_scout_miss")
	ctx := context.Background()

	scout, err := store.GetScoutWallet(ctx, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Nil(t, scout)

	require.NoError(t, store.SaveScoutWallet(ctx, &models.ScoutWallet{
		Address: "0x00000000000000000000000000000000000000aa",
		ScoutID: "scout-a",
	}))

	scout, err = store.GetScoutWallet(ctx, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	require.NotNil(t, scout)
	assert.Equal(t, "scout-a", scout.ScoutID)
}

func TestLeaderboardRanksByGems(t *testing.T) {
	store := newTestStorage(t, "test_store_leaderboard")
	ctx := context.Background()

	require.NoError(t, store.SaveGemsTotal(ctx, "builder-low", "2026-W35", 3))
	require.NoError(t, store.SaveGemsTotal(ctx, "builder-high", "2026-W35", 12))
	require.NoError(t, store.SaveGemsTotal(ctx, "builder-zero", "2026-W35", 0))
	require.NoError(t, store.SaveGemsTotal(ctx, "builder-other-week", "2026-W36", 99))

	ranked, err := store.GetWeeklyLeaderboard(ctx, "2026-W35", 100)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "builder-high", ranked[0].BuilderID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, int64(12), ranked[0].GemsCollected)
	assert.Equal(t, "builder-low", ranked[1].BuilderID)
	assert.Equal(t, 2, ranked[1].Rank)

	// Upsert replaces a builder's weekly total rather than accumulating
	require.NoError(t, store.SaveGemsTotal(ctx, "builder-low", "2026-W35", 20))
	ranked, err = store.GetWeeklyLeaderboard(ctx, "2026-W35", 100)
	require.NoError(t, err)
	assert.Equal(t, "builder-low", ranked[0].BuilderID)
	assert.Equal(t, int64(20), ranked[0].GemsCollected)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	store := newTestStorage(t, "test_store_rollback")
	ctx := context.Background()

	err := store.WithinTransaction(ctx, func(tx TxStore) error {
		if err := tx.CreatePayoutEvent(ctx, &models.GemsPayoutEvent{
			ID:        "payout-1",
			BuilderID: "builder-1",
			Week:      "2026-W35",
			Season:    "2026-S1",
			Rank:      1,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return errors.New("settlement aborted")
	})
	require.Error(t, err)

	// The payout written before the error must not survive the rollback
	event, err := store.GetPayoutEvent(ctx, "builder-1", "2026-W35")
	require.NoError(t, err)
	assert.Nil(t, event)

	count, err := store.CountPayoutEvents(ctx, "2026-W35")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTransactionCommitsSettlementRows(t *testing.T) {
	store := newTestStorage(t, "test_store_commit")
	ctx := context.Background()
	now := time.Now()

	err := store.WithinTransaction(ctx, func(tx TxStore) error {
		if err := tx.CreatePayoutEvent(ctx, &models.GemsPayoutEvent{
			ID:           "payout-1",
			BuilderID:    "builder-1",
			Week:         "2026-W35",
			Season:       "2026-S1",
			PointsEarned: 100,
			Rank:         1,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if err := tx.CreatePointsReceipt(ctx, &models.PointsReceipt{
			ID:            "receipt-1",
			PayoutEventID: "payout-1",
			RecipientID:   "builder-1",
			RecipientType: models.RecipientBuilder,
			Points:        30,
			Season:        "2026-S1",
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		return tx.IncrementSeasonPoints(ctx, "builder-1", "2026-S1", 30)
	})
	require.NoError(t, err)

	event, err := store.GetPayoutEvent(ctx, "builder-1", "2026-W35")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(100), event.PointsEarned)

	receipts, err := store.GetPointsReceipts(ctx, "payout-1")
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, int64(30), receipts[0].Points)

	points, err := store.GetSeasonPoints(ctx, "builder-1", "2026-S1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), points)

	// Season points accumulate across settlements
	err = store.WithinTransaction(ctx, func(tx TxStore) error {
		return tx.IncrementSeasonPoints(ctx, "builder-1", "2026-S1", 70)
	})
	require.NoError(t, err)

	points, err = store.GetSeasonPoints(ctx, "builder-1", "2026-S1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), points)
}

func TestPollCursorTracksHighestBlock(t *testing.T) {
	store := newTestStorage(t, "test_store_poll_cursor")
	ctx := context.Background()
	contract := "0x00000000000000000000000000000000000000cc"

	block, err := store.GetLatestPolledBlock(ctx, contract, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block)

	require.NoError(t, store.SavePollEvent(ctx, &models.ContractPollEvent{
		ContractAddress: contract,
		ChainID:         10,
		FromBlock:       0,
		ToBlock:         899,
	}))
	require.NoError(t, store.SavePollEvent(ctx, &models.ContractPollEvent{
		ContractAddress: contract,
		ChainID:         10,
		FromBlock:       900,
		ToBlock:         1799,
	}))

	block, err = store.GetLatestPolledBlock(ctx, contract, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1799), block)

	// Cursors are scoped per chain
	block, err = store.GetLatestPolledBlock(ctx, contract, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block)
}

func TestSumPartnerRewardsGroupsBySource(t *testing.T) {
	store := newTestStorage(t, "test_store_partner_rewards")
	ctx := context.Background()

	save := func(id, partner, week string, source models.RewardSource, amount int64) {
		require.NoError(t, store.SavePartnerReward(ctx, &models.PartnerReward{
			ID: id, Partner: partner, Week: week, Source: source, Amount: amount,
		}))
	}
	save("r1", "optimism", "2026-W35", models.RewardSourceReferral, 30)
	save("r2", "optimism", "2026-W35", models.RewardSourceReferral, 20)
	save("r3", "optimism", "2026-W35", models.RewardSourceNewScout, 10)
	save("r4", "optimism", "2026-W36", models.RewardSourceReferral, 99)
	save("r5", "base", "2026-W35", models.RewardSourceReferral, 99)

	sums, err := store.SumPartnerRewards(ctx, "optimism", "2026-W35")
	require.NoError(t, err)
	assert.Equal(t, map[models.RewardSource]int64{
		models.RewardSourceReferral: 50,
		models.RewardSourceNewScout: 10,
	}, sums)
}
