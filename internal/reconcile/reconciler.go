// File: internal/reconcile/reconciler.go
package reconcile

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/ownership"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// TransferKey uniquely identifies one on-chain transfer. It is a structured
// composite key used for set membership when diffing the chain against the
// purchase ledger.
type TransferKey struct {
	TxHash   common.Hash
	LogIndex uint
	From     common.Address
	To       common.Address
	TokenID  uint64
	Amount   uint64
}

// Config holds reconciler configuration
type Config struct {
	// LaunchBlock is the block the season's NFT contract was deployed at.
	// Reconciliation never looks earlier than this.
	LaunchBlock uint64
	// PriceDecimals is the number of base-unit decimals in on-chain purchase
	// prices. Prices are divided by 10^PriceDecimals to get point values.
	PriceDecimals uint
}

// Report summarises one reconciliation run
type Report struct {
	ContractsScanned int `json:"contracts_scanned"`
	ChainEvents      int `json:"chain_events"`
	LedgerRows       int `json:"ledger_rows"`
	MintsBackfilled  int `json:"mints_backfilled"`
	TransfersAdded   int `json:"transfers_added"`
	BurnsAdded       int `json:"burns_added"`
	Failures         int `json:"failures"`
}

// Reconciler compares on-chain transfer events against the off-chain purchase
// ledger and backfills missing rows
type Reconciler struct {
	resolver *ownership.Resolver
	storage  storage.Storage
	config   *Config
	logger   *logrus.Logger
	metrics  *metrics.PrometheusMetrics
}

// NewReconciler creates a new event reconciler
func NewReconciler(resolver *ownership.Resolver, store storage.Storage, config *Config) *Reconciler {
	return &Reconciler{
		resolver: resolver,
		storage:  store,
		config:   config,
		logger:   utils.GetLogger(),
	}
}

// SetMetrics attaches a metrics recorder for chain events and backfills
func (r *Reconciler) SetMetrics(m *metrics.PrometheusMetrics) {
	r.metrics = m
}

// ReconcileSeason diffs all on-chain transfer events since the season launch
// block against the purchase ledger and backfills any missing rows. Per-event
// failures are logged and counted but never abort the batch; re-running is
// safe because the (tx_hash, log_index, builder_nft_id) uniqueness constraint
// rejects duplicates.
func (r *Reconciler) ReconcileSeason(ctx context.Context, season string, nftType models.NFTType) (*Report, error) {
	nfts, err := r.storage.GetBuilderNFTs(ctx, season, nftType)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	// Builder NFTs in one season share a contract; group so each contract's
	// logs are fetched once.
	byContract := make(map[common.Address]map[uint64]*models.BuilderNFT)
	for _, nft := range nfts {
		contract := nft.Contract()
		if byContract[contract] == nil {
			byContract[contract] = make(map[uint64]*models.BuilderNFT)
		}
		byContract[contract][nft.TokenID] = nft
	}

	head, err := r.resolver.HeadBlock(ctx)
	if err != nil {
		return nil, err
	}

	for contract, tokens := range byContract {
		if err := r.reconcileContract(ctx, contract, tokens, season, head, report); err != nil {
			r.logger.WithFields(logrus.Fields{
				"contract": contract.Hex(),
				"season":   season,
				"error":    err,
			}).Error("Contract reconciliation failed")
			report.Failures++
			continue
		}
		report.ContractsScanned++
	}

	r.logger.WithFields(logrus.Fields{
		"season":            season,
		"contracts":         report.ContractsScanned,
		"chain_events":      report.ChainEvents,
		"mints_backfilled":  report.MintsBackfilled,
		"transfers_added":   report.TransfersAdded,
		"burns_added":       report.BurnsAdded,
		"failures":          report.Failures,
	}).Info("Reconciliation completed")

	if r.metrics != nil {
		r.metrics.RecordTransferEventsSeen(report.ChainEvents)
		r.metrics.RecordBackfill("mint", report.MintsBackfilled)
		r.metrics.RecordBackfill("transfer", report.TransfersAdded)
		r.metrics.RecordBackfill("burn", report.BurnsAdded)
	}

	return report, nil
}

func (r *Reconciler) reconcileContract(ctx context.Context, contract common.Address, tokens map[uint64]*models.BuilderNFT, season string, head uint64, report *Report) error {
	transfers, err := r.resolver.FetchTransferEvents(ctx, contract, r.config.LaunchBlock, head)
	if err != nil {
		return err
	}
	report.ChainEvents += len(transfers)

	known, err := r.ledgerKeys(ctx, season, tokens)
	if err != nil {
		return err
	}
	report.LedgerRows += len(known)

	for _, transfer := range transfers {
		nft, ok := tokens[transfer.TokenID]
		if !ok {
			// Token on this contract not registered for the season, skip
			continue
		}
		if _, exists := known[keyOf(transfer)]; exists {
			continue
		}
		if err := r.backfill(ctx, contract, nft, transfer, report); err != nil {
			r.logger.WithFields(logrus.Fields{
				"tx_hash":   transfer.TxHash.Hex(),
				"log_index": transfer.LogIndex,
				"token_id":  transfer.TokenID,
				"error":     err,
			}).Error("Failed to backfill transfer event")
			report.Failures++
		}
	}
	return nil
}

// ledgerKeys builds the set of transfer keys derivable from existing purchase
// ledger rows for the season's tokens
func (r *Reconciler) ledgerKeys(ctx context.Context, season string, tokens map[uint64]*models.BuilderNFT) (map[TransferKey]struct{}, error) {
	tokenByNFTID := make(map[string]uint64, len(tokens))
	for id, nft := range tokens {
		tokenByNFTID[nft.ID] = id
	}

	rows, err := r.storage.GetPurchaseEvents(ctx, models.PurchaseEventFilter{Season: &season})
	if err != nil {
		return nil, err
	}

	keys := make(map[TransferKey]struct{}, len(rows))
	for _, row := range rows {
		tokenID, ok := tokenByNFTID[row.BuilderNFTID]
		if !ok {
			continue
		}
		var from common.Address
		if row.SenderWallet != nil {
			from = common.HexToAddress(*row.SenderWallet)
		}
		keys[TransferKey{
			TxHash:   common.HexToHash(row.TxHash),
			LogIndex: row.LogIndex,
			From:     from,
			To:       common.HexToAddress(row.RecipientWallet),
			TokenID:  tokenID,
			Amount:   row.TokensPurchased,
		}] = struct{}{}
	}
	return keys, nil
}

// backfill inserts a ledger row for one missing on-chain transfer. Burns and
// secondary transfers carry zero point value; genuine mints get the historical
// purchase price at their block and a resolved scout identity.
func (r *Reconciler) backfill(ctx context.Context, contract common.Address, nft *models.BuilderNFT, transfer *models.TokenTransfer, report *Report) error {
	id, err := utils.GenerateID()
	if err != nil {
		return err
	}

	event := &models.NFTPurchaseEvent{
		ID:              id,
		BuilderNFTID:    nft.ID,
		TxHash:          transfer.TxHash.Hex(),
		LogIndex:        transfer.LogIndex,
		BlockNumber:     transfer.BlockNumber,
		TokensPurchased: transfer.Amount,
		RecipientWallet: utils.NormalizeAddress(transfer.To.Hex()),
		CreatedAt:       time.Now().UTC(),
	}

	switch transfer.Kind() {
	case models.TransferMint:
		event.Type = models.PurchaseEventMint
		price, err := r.resolver.TokenPriceAt(ctx, contract, transfer.TokenID, transfer.BlockNumber)
		if err != nil {
			return err
		}
		event.PointsValue = pointsFromPrice(price, transfer.Amount, r.config.PriceDecimals)

		scout, err := r.storage.GetScoutWallet(ctx, event.RecipientWallet)
		if err != nil {
			return err
		}
		if scout == nil {
			r.logger.WithField("wallet", event.RecipientWallet).Warn("Mint recipient has no scout identity")
		} else {
			event.ScoutID = &scout.ScoutID
		}
		report.MintsBackfilled++

	case models.TransferBurn:
		sender := utils.NormalizeAddress(transfer.From.Hex())
		event.Type = models.PurchaseEventBurn
		event.SenderWallet = &sender
		report.BurnsAdded++

	default:
		sender := utils.NormalizeAddress(transfer.From.Hex())
		event.Type = models.PurchaseEventTransfer
		event.SenderWallet = &sender
		report.TransfersAdded++
	}

	return r.storage.SavePurchaseEvent(ctx, event)
}

func keyOf(t *models.TokenTransfer) TransferKey {
	return TransferKey{
		TxHash:   t.TxHash,
		LogIndex: t.LogIndex,
		From:     t.From,
		To:       t.To,
		TokenID:  t.TokenID,
		Amount:   t.Amount,
	}
}

// pointsFromPrice converts an on-chain unit price into a point value for the
// given number of tokens, truncating fractional base units
func pointsFromPrice(price *big.Int, amount uint64, decimals uint) int64 {
	total := new(big.Int).Mul(price, new(big.Int).SetUint64(amount))
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Div(total, divisor).Int64()
}
