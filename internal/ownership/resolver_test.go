package ownership

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/models"
)

// fakeChainReader serves canned logs and records the block ranges queried
type fakeChainReader struct {
	logs    []types.Log
	head    uint64
	queries []ethereum.FilterQuery
}

func (f *fakeChainReader) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	f.queries = append(f.queries, query)
	var matched []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= query.FromBlock.Uint64() && log.BlockNumber <= query.ToBlock.Uint64() {
			matched = append(matched, log)
		}
	}
	return matched, nil
}

func (f *fakeChainReader) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChainReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	out, err := nftABI.Methods["getTokenPurchasePrice"].Outputs.Pack(big.NewInt(1000))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func singleLog(t *testing.T, contract common.Address, from, to common.Address, tokenID, amount int64, block uint64, logIndex uint) types.Log {
	t.Helper()
	data, err := nftABI.Events["TransferSingle"].Inputs.NonIndexed().Pack(big.NewInt(tokenID), big.NewInt(amount))
	require.NoError(t, err)
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{TransferSingleTopic, addressTopic(common.Address{}), addressTopic(from), addressTopic(to)},
		Data:        data,
		BlockNumber: block,
		Index:       logIndex,
		TxHash:      common.HexToHash("0x01"),
	}
}

func batchLog(t *testing.T, contract common.Address, from, to common.Address, tokenIDs, amounts []int64, block uint64, logIndex uint) types.Log {
	t.Helper()
	ids := make([]*big.Int, len(tokenIDs))
	values := make([]*big.Int, len(amounts))
	for i := range tokenIDs {
		ids[i] = big.NewInt(tokenIDs[i])
		values[i] = big.NewInt(amounts[i])
	}
	data, err := nftABI.Events["TransferBatch"].Inputs.NonIndexed().Pack(ids, values)
	require.NoError(t, err)
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{TransferBatchTopic, addressTopic(common.Address{}), addressTopic(from), addressTopic(to)},
		Data:        data,
		BlockNumber: block,
		Index:       logIndex,
		TxHash:      common.HexToHash("0x02"),
	}
}

func TestDecodeTransferSingleLog(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	log := singleLog(t, contract, common.Address{}, walletA, 7, 3, 500, 2)

	transfers, err := DecodeTransferLog(log)
	require.NoError(t, err)
	require.Len(t, transfers, 1)

	tr := transfers[0]
	assert.Equal(t, uint64(7), tr.TokenID)
	assert.Equal(t, uint64(3), tr.Amount)
	assert.Equal(t, walletA, tr.To)
	assert.Equal(t, models.TransferMint, tr.Kind())
	assert.Equal(t, uint64(500), tr.BlockNumber)
	assert.Equal(t, uint(2), tr.LogIndex)
}

func TestDecodeTransferBatchLog(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	log := batchLog(t, contract, walletA, walletB, []int64{1, 2, 3}, []int64{10, 20, 30}, 600, 0)

	transfers, err := DecodeTransferLog(log)
	require.NoError(t, err)
	require.Len(t, transfers, 3)

	for i, tr := range transfers {
		assert.Equal(t, uint64(i+1), tr.TokenID)
		assert.Equal(t, uint64((i+1)*10), tr.Amount)
		assert.Equal(t, walletA, tr.From)
		assert.Equal(t, walletB, tr.To)
		assert.Equal(t, log.TxHash, tr.TxHash)
		assert.Equal(t, models.TransferSend, tr.Kind())
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	log := types.Log{
		Topics: []common.Hash{common.HexToHash("0xdead"), {}, {}, {}},
	}
	_, err := DecodeTransferLog(log)
	assert.Error(t, err)
}

func TestFetchTransferEventsChunksRanges(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	reader := &fakeChainReader{
		logs: []types.Log{
			singleLog(t, contract, common.Address{}, walletA, 1, 5, 100, 0),
			singleLog(t, contract, common.Address{}, walletB, 1, 2, 2500, 0),
		},
		head: 3000,
	}

	resolver := NewResolver(reader, nil, &ResolverConfig{LogChunkSize: 900})

	transfers, err := resolver.FetchTransferEvents(context.Background(), contract, 0, 2999)
	require.NoError(t, err)
	require.Len(t, transfers, 2)

	// 3000 blocks at 900 per chunk needs 4 queries
	require.Len(t, reader.queries, 4)
	assert.Equal(t, uint64(0), reader.queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(899), reader.queries[0].ToBlock.Uint64())
	assert.Equal(t, uint64(2700), reader.queries[3].FromBlock.Uint64())
	assert.Equal(t, uint64(2999), reader.queries[3].ToBlock.Uint64())

	// Both transfer topics are requested in one OR position
	require.Len(t, reader.queries[0].Topics, 1)
	assert.ElementsMatch(t, []common.Hash{TransferSingleTopic, TransferBatchTopic}, reader.queries[0].Topics[0])

	// Results come back ordered by block
	assert.Equal(t, uint64(100), transfers[0].BlockNumber)
	assert.Equal(t, uint64(2500), transfers[1].BlockNumber)
}

func TestResolveTokenOwnership(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	reader := &fakeChainReader{
		logs: []types.Log{
			singleLog(t, contract, common.Address{}, walletA, 1, 10, 100, 0),
			batchLog(t, contract, walletA, walletB, []int64{1}, []int64{4}, 200, 0),
		},
		head: 1000,
	}

	resolver := NewResolver(reader, nil, &ResolverConfig{LogChunkSize: 900})

	sheet, err := resolver.ResolveTokenOwnership(context.Background(), contract, 0, 999)
	require.NoError(t, err)

	holders := sheet.Holders(1)
	assert.Equal(t, uint64(6), holders[walletA])
	assert.Equal(t, uint64(4), holders[walletB])
	assert.Equal(t, uint64(10), sheet.TotalSupply(1))
}

func TestTokenPriceAt(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	resolver := NewResolver(&fakeChainReader{}, nil, &ResolverConfig{LogChunkSize: 900})

	price, err := resolver.TokenPriceAt(context.Background(), contract, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), price.Int64())
}
