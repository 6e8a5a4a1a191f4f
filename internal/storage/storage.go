// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// Storage defines the interface for settlement storage operations
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Builder NFT operations
	SaveBuilderNFT(ctx context.Context, nft *models.BuilderNFT) error
	GetBuilderNFT(ctx context.Context, builderID, season string, nftType models.NFTType) (*models.BuilderNFT, error)
	GetBuilderNFTs(ctx context.Context, season string, nftType models.NFTType) ([]*models.BuilderNFT, error)
	UpdateBuilderNFTPrice(ctx context.Context, id, price string) error

	// Scout wallet operations
	SaveScoutWallet(ctx context.Context, wallet *models.ScoutWallet) error
	GetScoutWallet(ctx context.Context, address string) (*models.ScoutWallet, error)

	// Purchase ledger operations
	SavePurchaseEvent(ctx context.Context, event *models.NFTPurchaseEvent) error
	GetPurchaseEvents(ctx context.Context, filter models.PurchaseEventFilter) ([]*models.NFTPurchaseEvent, error)
	HasPurchaseEvent(ctx context.Context, txHash string, logIndex uint) (bool, error)

	// Gems and leaderboard operations
	SaveGemsTotal(ctx context.Context, builderID, week string, gems int64) error
	GetWeeklyLeaderboard(ctx context.Context, week string, limit int) ([]*models.RankedBuilder, error)

	// Payout operations
	GetPayoutEvent(ctx context.Context, builderID, week string) (*models.GemsPayoutEvent, error)
	CountPayoutEvents(ctx context.Context, week string) (int64, error)
	GetPointsReceipts(ctx context.Context, payoutEventID string) ([]*models.PointsReceipt, error)
	GetSeasonPoints(ctx context.Context, recipientID, season string) (int64, error)

	// Partner reward operations
	SavePartnerReward(ctx context.Context, reward *models.PartnerReward) error
	SumPartnerRewards(ctx context.Context, partner, week string) (map[models.RewardSource]int64, error)

	// Poll cursor operations
	GetLatestPolledBlock(ctx context.Context, contract string, chainID uint64) (uint64, error)
	SavePollEvent(ctx context.Context, event *models.ContractPollEvent) error

	// Statistics
	GetStorageStats(ctx context.Context) (*StorageStats, error)

	// WithinTransaction runs fn inside one database transaction. All writes
	// made through the TxStore commit or roll back together. The transaction
	// carries an extended timeout because one settlement may touch many
	// holder rows.
	WithinTransaction(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the write surface available inside a settlement transaction
type TxStore interface {
	CreatePayoutEvent(ctx context.Context, event *models.GemsPayoutEvent) error
	CreateBuilderActivity(ctx context.Context, activity *models.BuilderActivity) error
	CreatePointsReceipt(ctx context.Context, receipt *models.PointsReceipt) error
	IncrementSeasonPoints(ctx context.Context, recipientID, season string, points int64) error
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalPurchaseEvents int64  `json:"total_purchase_events"`
	TotalPayoutEvents   int64  `json:"total_payout_events"`
	TotalReceipts       int64  `json:"total_receipts"`
	TotalBuilderNFTs    int64  `json:"total_builder_nfts"`
	LatestPolledBlock   uint64 `json:"latest_polled_block"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type               string        `json:"type"`
	ConnectionString   string        `json:"connection_string"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleTime        time.Duration `json:"max_idle_time"`
	TransactionTimeout time.Duration `json:"transaction_timeout"`
}

// NewStorage creates a storage implementation based on the configured type
func NewStorage(config *StorageConfig) (Storage, error) {
	switch config.Type {
	case "sqlite", "":
		return NewSQLiteStorage(config), nil
	case "postgres":
		return NewPostgresStorage(config), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported storage type", config.Type)
	}
}
