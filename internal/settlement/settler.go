// File: internal/settlement/settler.go
package settlement

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/allocation"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/internal/storage"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// OwnershipSource resolves a builder NFT's holder balances as of a block
type OwnershipSource interface {
	ResolveTokenOwnershipForBuilder(ctx context.Context, nft *models.BuilderNFT, floorBlock, closingBlock uint64) (map[common.Address]uint64, uint64, error)
}

// PostCommitHook runs after a settlement transaction commits. Hooks are
// best-effort: failures are logged and never unwind the committed settlement.
type PostCommitHook func(ctx context.Context, event *models.GemsPayoutEvent, receipts []*models.PointsReceipt)

// Outcome classifies how one settlement attempt ended
type Outcome string

const (
	OutcomeSettled        Outcome = "settled"
	OutcomeAlreadySettled Outcome = "already_settled"
	OutcomeNoSupply       Outcome = "no_supply"
	OutcomeSkipped        Outcome = "skipped"
)

// Config holds settlement configuration
type Config struct {
	WeeklyAllocatedPoints int64
	NormalisationFactor   float64
	BuilderPoolShare      float64
	LaunchBlock           uint64
	NFTType               models.NFTType
}

// SettleRequest is one builder's settlement input for a week
type SettleRequest struct {
	BuilderID     string
	Week          string
	Season        string
	Rank          int
	GemsCollected int64
	// ClosingBlock is the chain block the ownership snapshot is taken at
	ClosingBlock uint64
}

// Settler performs the atomic weekly settlement for one builder
type Settler struct {
	storage   storage.Storage
	ownership OwnershipSource
	policy    allocation.RankDecayPolicy
	config    *Config
	hooks     []PostCommitHook
	logger    *logrus.Logger
	metrics   *metrics.PrometheusMetrics
}

// NewSettler creates a new settler
func NewSettler(store storage.Storage, ownership OwnershipSource, policy allocation.RankDecayPolicy, config *Config) *Settler {
	if config.NFTType == "" {
		config.NFTType = models.NFTTypeDefault
	}
	return &Settler{
		storage:   store,
		ownership: ownership,
		policy:    policy,
		config:    config,
		logger:    utils.GetLogger(),
	}
}

// AddPostCommitHook registers a best-effort hook run after each committed
// settlement
func (s *Settler) AddPostCommitHook(hook PostCommitHook) {
	s.hooks = append(s.hooks, hook)
}

// SetMetrics attaches a metrics recorder for settlement outcomes and receipts
func (s *Settler) SetMetrics(m *metrics.PrometheusMetrics) {
	s.metrics = m
}

// Settle records one builder's weekly payout. The (builder, week) unique
// constraint is the idempotency gate: an existing payout event makes this a
// logged no-op. All row writes happen in one transaction; any failure rolls
// the whole settlement back so no partial receipts can exist.
func (s *Settler) Settle(ctx context.Context, req SettleRequest) (Outcome, error) {
	outcome, err := s.settle(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordSettlement(string(outcome))
	}
	return outcome, err
}

func (s *Settler) settle(ctx context.Context, req SettleRequest) (Outcome, error) {
	existing, err := s.storage.GetPayoutEvent(ctx, req.BuilderID, req.Week)
	if err != nil {
		return OutcomeSkipped, err
	}
	if existing != nil {
		s.logger.WithFields(logrus.Fields{
			"builder_id": req.BuilderID,
			"week":       req.Week,
		}).Info("Payout already settled, skipping")
		return OutcomeAlreadySettled, nil
	}

	nft, err := s.storage.GetBuilderNFT(ctx, req.BuilderID, req.Season, s.config.NFTType)
	if err != nil {
		return OutcomeSkipped, err
	}
	if nft == nil {
		s.logger.WithFields(logrus.Fields{
			"builder_id": req.BuilderID,
			"season":     req.Season,
		}).Warn("Builder has no registered NFT, skipping settlement")
		return OutcomeSkipped, nil
	}

	holders, supply, err := s.ownership.ResolveTokenOwnershipForBuilder(ctx, nft, s.config.LaunchBlock, req.ClosingBlock)
	if err != nil {
		return OutcomeSkipped, err
	}

	result := allocation.Allocate(allocation.Input{
		Rank:                  req.Rank,
		GemsCollected:         req.GemsCollected,
		WeeklyAllocatedPoints: s.config.WeeklyAllocatedPoints,
		NormalisationFactor:   s.config.NormalisationFactor,
		BuilderPoolShare:      s.config.BuilderPoolShare,
		Holders:               holders,
	}, s.policy)

	if supply == 0 || !result.Distributed() {
		s.logger.WithFields(logrus.Fields{
			"builder_id": req.BuilderID,
			"week":       req.Week,
		}).Info("No outstanding NFT supply, nothing to distribute")
		return OutcomeNoSupply, nil
	}

	event, receipts, err := s.buildRows(ctx, req, result)
	if err != nil {
		return OutcomeSkipped, err
	}

	err = s.storage.WithinTransaction(ctx, func(tx storage.TxStore) error {
		if err := tx.CreatePayoutEvent(ctx, event); err != nil {
			return err
		}
		activityID, err := utils.GenerateID()
		if err != nil {
			return err
		}
		if err := tx.CreateBuilderActivity(ctx, &models.BuilderActivity{
			ID:            activityID,
			BuilderID:     req.BuilderID,
			Type:          "gems_payout",
			PayoutEventID: event.ID,
			Week:          req.Week,
			CreatedAt:     event.CreatedAt,
		}); err != nil {
			return err
		}
		for _, receipt := range receipts {
			if err := tx.CreatePointsReceipt(ctx, receipt); err != nil {
				return err
			}
			if err := tx.IncrementSeasonPoints(ctx, receipt.RecipientID, req.Season, receipt.Points); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OutcomeSkipped, err
	}

	s.logger.WithFields(logrus.Fields{
		"builder_id":     req.BuilderID,
		"week":           req.Week,
		"rank":           req.Rank,
		"points_earned":  event.PointsEarned,
		"receipts":       len(receipts),
		"total_supply":   supply,
	}).Info("Settlement committed")

	if s.metrics != nil {
		var points int64
		for _, receipt := range receipts {
			points += receipt.Points
		}
		s.metrics.RecordReceipts(len(receipts), points)
	}

	for _, hook := range s.hooks {
		hook(ctx, event, receipts)
	}

	return OutcomeSettled, nil
}

// buildRows materialises the payout event and receipts for a computed
// allocation. Scout identities are resolved before the transaction opens to
// keep the write window short.
func (s *Settler) buildRows(ctx context.Context, req SettleRequest, result *allocation.Result) (*models.GemsPayoutEvent, []*models.PointsReceipt, error) {
	eventID, err := utils.GenerateID()
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()

	event := &models.GemsPayoutEvent{
		ID:            eventID,
		BuilderID:     req.BuilderID,
		Week:          req.Week,
		Season:        req.Season,
		GemsCollected: req.GemsCollected,
		PointsEarned:  result.EarnableScoutPoints,
		Rank:          req.Rank,
		CreatedAt:     now,
	}

	receipts := []*models.PointsReceipt{{
		ID:            utils.CreateReceiptID(eventID, req.BuilderID),
		PayoutEventID: eventID,
		RecipientID:   req.BuilderID,
		RecipientType: models.RecipientBuilder,
		Points:        result.BuilderPoints,
		Season:        req.Season,
		CreatedAt:     now,
	}}

	for _, share := range result.ScoutShares {
		wallet := utils.NormalizeAddress(share.Wallet.Hex())
		scout, err := s.storage.GetScoutWallet(ctx, wallet)
		if err != nil {
			return nil, nil, err
		}
		if scout == nil {
			s.logger.WithFields(logrus.Fields{
				"wallet":     wallet,
				"builder_id": req.BuilderID,
			}).Warn("Holder wallet has no scout identity, share not credited")
			continue
		}
		receipts = append(receipts, &models.PointsReceipt{
			ID:            utils.CreateReceiptID(eventID, scout.ScoutID),
			PayoutEventID: eventID,
			RecipientID:   scout.ScoutID,
			RecipientType: models.RecipientScout,
			Points:        share.Points,
			Season:        req.Season,
			CreatedAt:     now,
		})
	}

	return event, receipts, nil
}
