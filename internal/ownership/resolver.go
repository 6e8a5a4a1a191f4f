// File: internal/ownership/resolver.go
package ownership

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// ChainReader is the read-only chain surface the resolver needs. It is
// satisfied by connection.ConnectionManager and by fakes in tests.
type ChainReader interface {
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ResolverConfig holds ownership resolver configuration
type ResolverConfig struct {
	// LogChunkSize bounds each getLogs block range so a single RPC call stays
	// within provider limits and progress is resumable
	LogChunkSize uint64
}

// Resolver computes NFT token balances from raw on-chain transfer logs
type Resolver struct {
	reader  ChainReader
	storage storage.Storage
	config  *ResolverConfig
	logger  *logrus.Logger
	metrics *metrics.PrometheusMetrics
}

// NewResolver creates a new ownership resolver
func NewResolver(reader ChainReader, store storage.Storage, config *ResolverConfig) *Resolver {
	if config.LogChunkSize == 0 {
		config.LogChunkSize = 900
	}
	return &Resolver{
		reader:  reader,
		storage: store,
		config:  config,
		logger:  utils.GetLogger(),
	}
}

// SetMetrics attaches a metrics recorder for poll progress
func (r *Resolver) SetMetrics(m *metrics.PrometheusMetrics) {
	r.metrics = m
}

// HeadBlock returns the current chain head block number
func (r *Resolver) HeadBlock(ctx context.Context) (uint64, error) {
	head, err := r.reader.BlockNumber(ctx)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get chain head", err.Error())
	}
	return head, nil
}

// FetchTransferEvents returns all TransferSingle and TransferBatch events for
// a contract in [fromBlock, toBlock], with batch events expanded into
// equivalent single-transfer records. The merged result is sorted by
// (block, tx index, log index): replay order determines balances, so the
// ordering is a correctness requirement.
func (r *Resolver) FetchTransferEvents(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]*models.TokenTransfer, error) {
	var transfers []*models.TokenTransfer

	for start := fromBlock; start <= toBlock; start += r.config.LogChunkSize {
		end := start + r.config.LogChunkSize - 1
		if end > toBlock {
			end = toBlock
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{contract},
			Topics:    [][]common.Hash{{TransferSingleTopic, TransferBatchTopic}},
		}

		logs, err := r.reader.FilterLogs(ctx, query)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to filter transfer logs", err.Error())
		}

		for _, log := range logs {
			decoded, err := DecodeTransferLog(log)
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"tx_hash":   log.TxHash.Hex(),
					"log_index": log.Index,
					"error":     err,
				}).Warn("Failed to decode transfer log")
				continue
			}
			transfers = append(transfers, decoded...)
		}
	}

	SortTransfers(transfers)
	return transfers, nil
}

// SyncTransferEvents fetches transfer events resuming from the persisted poll
// cursor, records the scanned range, and returns the new events. floorBlock is
// used on the first run when no cursor exists.
func (r *Resolver) SyncTransferEvents(ctx context.Context, contract common.Address, chainID, floorBlock uint64) ([]*models.TokenTransfer, error) {
	lastPolled, err := r.storage.GetLatestPolledBlock(ctx, contract.Hex(), chainID)
	if err != nil {
		return nil, err
	}

	fromBlock := floorBlock
	if lastPolled >= floorBlock {
		fromBlock = lastPolled + 1
	}

	head, err := r.reader.BlockNumber(ctx)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get chain head", err.Error())
	}
	if fromBlock > head {
		return nil, nil
	}

	transfers, err := r.FetchTransferEvents(ctx, contract, fromBlock, head)
	if err != nil {
		return nil, err
	}

	if err := r.storage.SavePollEvent(ctx, &models.ContractPollEvent{
		ContractAddress: contract.Hex(),
		ChainID:         chainID,
		FromBlock:       fromBlock,
		ToBlock:         head,
	}); err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.UpdateLatestPolledBlock(head)
	}

	r.logger.WithFields(logrus.Fields{
		"contract":   contract.Hex(),
		"from_block": fromBlock,
		"to_block":   head,
		"events":     len(transfers),
	}).Info("Transfer events synced")

	return transfers, nil
}

// ResolveTokenOwnership replays transfer events for a contract from
// floorBlock up to closingBlock and returns the resulting balance sheet
func (r *Resolver) ResolveTokenOwnership(ctx context.Context, contract common.Address, floorBlock, closingBlock uint64) (BalanceSheet, error) {
	transfers, err := r.FetchTransferEvents(ctx, contract, floorBlock, closingBlock)
	if err != nil {
		return nil, err
	}
	return ReplayTransfers(transfers), nil
}

// ResolveTokenOwnershipForBuilder returns the holder balances and outstanding
// supply for one builder's token as of closingBlock
func (r *Resolver) ResolveTokenOwnershipForBuilder(ctx context.Context, nft *models.BuilderNFT, floorBlock, closingBlock uint64) (map[common.Address]uint64, uint64, error) {
	sheet, err := r.ResolveTokenOwnership(ctx, nft.Contract(), floorBlock, closingBlock)
	if err != nil {
		return nil, 0, err
	}
	holders := sheet.Holders(nft.TokenID)
	return holders, sheet.TotalSupply(nft.TokenID), nil
}

// TokenPriceAt reads the purchase price of a token at a specific past block
func (r *Resolver) TokenPriceAt(ctx context.Context, contract common.Address, tokenID, blockNumber uint64) (*big.Int, error) {
	input, err := nftABI.Pack("getTokenPurchasePrice", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to pack price call", err.Error())
	}

	output, err := r.reader.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to read token price", err.Error())
	}

	results, err := nftABI.Unpack("getTokenPurchasePrice", output)
	if err != nil || len(results) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to decode token price", "")
	}
	price, ok := results[0].(*big.Int)
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Unexpected token price type", "")
	}
	return price, nil
}

// DecodeTransferLog decodes a TransferSingle or TransferBatch log into
// single-transfer records. Batch events yield one record per (id, value)
// pair sharing the parent's transaction hash and block number.
func DecodeTransferLog(log types.Log) ([]*models.TokenTransfer, error) {
	if len(log.Topics) < 4 {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Transfer log missing topics", log.TxHash.Hex())
	}

	operator := common.BytesToAddress(log.Topics[1].Bytes())
	from := common.BytesToAddress(log.Topics[2].Bytes())
	to := common.BytesToAddress(log.Topics[3].Bytes())

	base := models.TokenTransfer{
		BlockNumber: log.BlockNumber,
		TxIndex:     log.TxIndex,
		LogIndex:    log.Index,
		TxHash:      log.TxHash,
		Operator:    operator,
		From:        from,
		To:          to,
	}

	switch log.Topics[0] {
	case TransferSingleTopic:
		values, err := nftABI.Unpack("TransferSingle", log.Data)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to unpack TransferSingle", err.Error())
		}
		id := values[0].(*big.Int)
		amount := values[1].(*big.Int)

		transfer := base
		transfer.TokenID = id.Uint64()
		transfer.Amount = amount.Uint64()
		return []*models.TokenTransfer{&transfer}, nil

	case TransferBatchTopic:
		values, err := nftABI.Unpack("TransferBatch", log.Data)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to unpack TransferBatch", err.Error())
		}
		ids := values[0].([]*big.Int)
		amounts := values[1].([]*big.Int)
		if len(ids) != len(amounts) {
			return nil, utils.NewAppError(utils.ErrCodeBlockchain, "TransferBatch ids/values length mismatch", log.TxHash.Hex())
		}

		transfers := make([]*models.TokenTransfer, 0, len(ids))
		for i := range ids {
			transfer := base
			transfer.TokenID = ids[i].Uint64()
			transfer.Amount = amounts[i].Uint64()
			transfers = append(transfers, &transfer)
		}
		return transfers, nil

	default:
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Unknown transfer topic", log.Topics[0].Hex())
	}
}

// SortTransfers orders transfers by (block, tx index, log index)
func SortTransfers(transfers []*models.TokenTransfer) {
	sort.SliceStable(transfers, func(i, j int) bool {
		a, b := transfers[i], transfers[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TxIndex != b.TxIndex {
			return a.TxIndex < b.TxIndex
		}
		return a.LogIndex < b.LogIndex
	})
}
