package ownership

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/models"
)

var (
	walletA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	walletB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	zero    = common.Address{}
)

func transfer(from, to common.Address, tokenID, amount uint64, block uint64, logIndex uint) *models.TokenTransfer {
	return &models.TokenTransfer{
		BlockNumber: block,
		LogIndex:    logIndex,
		From:        from,
		To:          to,
		TokenID:     tokenID,
		Amount:      amount,
	}
}

func TestReplayMintTransferBurn(t *testing.T) {
	sheet := ReplayTransfers([]*models.TokenTransfer{
		transfer(zero, walletA, 1, 10, 100, 0),   // mint 10 to A
		transfer(walletA, walletB, 1, 4, 101, 0), // A sends 4 to B
		transfer(walletB, zero, 1, 1, 102, 0),    // B burns 1
	})

	holders := sheet.Holders(1)
	assert.Equal(t, uint64(6), holders[walletA])
	assert.Equal(t, uint64(3), holders[walletB])
	assert.Equal(t, uint64(9), sheet.TotalSupply(1))
}

func TestReplayDropsZeroBalances(t *testing.T) {
	sheet := ReplayTransfers([]*models.TokenTransfer{
		transfer(zero, walletA, 1, 5, 100, 0),
		transfer(walletA, walletB, 1, 5, 101, 0),
	})

	holders := sheet.Holders(1)
	_, stillHolding := holders[walletA]
	assert.False(t, stillHolding, "wallet with zero balance must not appear")
	assert.Equal(t, uint64(5), holders[walletB])
}

func TestReplayIndependentTokens(t *testing.T) {
	sheet := ReplayTransfers([]*models.TokenTransfer{
		transfer(zero, walletA, 1, 3, 100, 0),
		transfer(zero, walletA, 2, 7, 100, 1),
	})

	assert.Equal(t, uint64(3), sheet.TotalSupply(1))
	assert.Equal(t, uint64(7), sheet.TotalSupply(2))
	assert.ElementsMatch(t, []uint64{1, 2}, sheet.TokenIDs())
}

func TestBatchExpansionEquivalence(t *testing.T) {
	// A batch expanded into N single-transfer records must replay to the
	// same balances as N separate single transfers in the same order
	batch := []*models.TokenTransfer{
		transfer(zero, walletA, 1, 5, 100, 0),
		transfer(zero, walletA, 2, 3, 100, 0),
		transfer(zero, walletB, 1, 2, 100, 0),
	}
	singles := []*models.TokenTransfer{
		transfer(zero, walletA, 1, 5, 100, 0),
		transfer(zero, walletA, 2, 3, 100, 1),
		transfer(zero, walletB, 1, 2, 100, 2),
	}

	fromBatch := ReplayTransfers(batch)
	fromSingles := ReplayTransfers(singles)

	require.Equal(t, fromSingles.Holders(1), fromBatch.Holders(1))
	require.Equal(t, fromSingles.Holders(2), fromBatch.Holders(2))
	require.Equal(t, fromSingles.TotalSupply(1), fromBatch.TotalSupply(1))
	require.Equal(t, fromSingles.TotalSupply(2), fromBatch.TotalSupply(2))
}

func TestSortTransfers(t *testing.T) {
	transfers := []*models.TokenTransfer{
		{BlockNumber: 200, TxIndex: 0, LogIndex: 0},
		{BlockNumber: 100, TxIndex: 1, LogIndex: 0},
		{BlockNumber: 100, TxIndex: 0, LogIndex: 2},
		{BlockNumber: 100, TxIndex: 0, LogIndex: 1},
	}

	SortTransfers(transfers)

	assert.Equal(t, uint64(100), transfers[0].BlockNumber)
	assert.Equal(t, uint(1), transfers[0].LogIndex)
	assert.Equal(t, uint(2), transfers[1].LogIndex)
	assert.Equal(t, uint(1), transfers[2].TxIndex)
	assert.Equal(t, uint64(200), transfers[3].BlockNumber)
}

func TestHoldersReturnsCopy(t *testing.T) {
	sheet := ReplayTransfers([]*models.TokenTransfer{
		transfer(zero, walletA, 1, 5, 100, 0),
	})

	holders := sheet.Holders(1)
	holders[walletA] = 999

	assert.Equal(t, uint64(5), sheet.Holders(1)[walletA])
}
