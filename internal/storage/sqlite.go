// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/scoutgame/settlement-worker/internal/models"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// SQLiteStorage implements Storage interface using SQLite
type SQLiteStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable foreign keys", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting database migrations")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// SaveBuilderNFT saves or replaces a builder NFT
func (s *SQLiteStorage) SaveBuilderNFT(ctx context.Context, nft *models.BuilderNFT) error {
	query := `
		INSERT OR REPLACE INTO builder_nfts
		(id, builder_id, season, nft_type, token_id, contract_address, chain_id, current_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if nft.CreatedAt.IsZero() {
		nft.CreatedAt = now
	}
	nft.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		nft.ID, nft.BuilderID, nft.Season, string(nft.NFTType), nft.TokenID,
		utils.NormalizeAddress(nft.ContractAddress), nft.ChainID, nft.CurrentPrice,
		nft.CreatedAt, nft.UpdatedAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save builder NFT", err.Error())
	}
	return nil
}

// GetBuilderNFT returns one builder NFT by its (builder, season, type) identity
func (s *SQLiteStorage) GetBuilderNFT(ctx context.Context, builderID, season string, nftType models.NFTType) (*models.BuilderNFT, error) {
	query := `
		SELECT id, builder_id, season, nft_type, token_id, contract_address, chain_id, current_price, created_at, updated_at
		FROM builder_nfts WHERE builder_id = ? AND season = ? AND nft_type = ?
	`
	return scanBuilderNFT(s.db.QueryRowContext(ctx, query, builderID, season, string(nftType)))
}

// GetBuilderNFTs returns all builder NFTs for a season and type
func (s *SQLiteStorage) GetBuilderNFTs(ctx context.Context, season string, nftType models.NFTType) ([]*models.BuilderNFT, error) {
	query := `
		SELECT id, builder_id, season, nft_type, token_id, contract_address, chain_id, current_price, created_at, updated_at
		FROM builder_nfts WHERE season = ? AND nft_type = ? ORDER BY token_id
	`
	rows, err := s.db.QueryContext(ctx, query, season, string(nftType))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query builder NFTs", err.Error())
	}
	defer rows.Close()

	var nfts []*models.BuilderNFT
	for rows.Next() {
		nft, err := scanBuilderNFT(rows)
		if err != nil {
			return nil, err
		}
		nfts = append(nfts, nft)
	}
	return nfts, rows.Err()
}

// UpdateBuilderNFTPrice refreshes the current mint price of an NFT
func (s *SQLiteStorage) UpdateBuilderNFTPrice(ctx context.Context, id, price string) error {
	query := `UPDATE builder_nfts SET current_price = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, price, time.Now(), id)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to update NFT price", err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Builder NFT not found", id)
	}
	return nil
}

// SaveScoutWallet saves or replaces a scout wallet mapping
func (s *SQLiteStorage) SaveScoutWallet(ctx context.Context, wallet *models.ScoutWallet) error {
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = time.Now()
	}
	query := `INSERT OR REPLACE INTO scout_wallets (address, scout_id, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		utils.NormalizeAddress(wallet.Address), wallet.ScoutID, wallet.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save scout wallet", err.Error())
	}
	return nil
}

// GetScoutWallet resolves an address to a scout identity
func (s *SQLiteStorage) GetScoutWallet(ctx context.Context, address string) (*models.ScoutWallet, error) {
	query := `SELECT address, scout_id, created_at FROM scout_wallets WHERE address = ?`
	wallet := &models.ScoutWallet{}
	err := s.db.QueryRowContext(ctx, query, utils.NormalizeAddress(address)).
		Scan(&wallet.Address, &wallet.ScoutID, &wallet.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get scout wallet", err.Error())
	}
	return wallet, nil
}

// SavePurchaseEvent inserts a purchase event. The unique index on
// (tx_hash, log_index, builder_nft_id) makes re-inserting the same on-chain
// event a no-op conflict.
func (s *SQLiteStorage) SavePurchaseEvent(ctx context.Context, event *models.NFTPurchaseEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	query := `
		INSERT OR IGNORE INTO nft_purchase_events
		(id, builder_nft_id, tx_hash, log_index, block_number, tokens_purchased,
		 sender_wallet, recipient_wallet, scout_id, points_value, paid_in_points, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.BuilderNFTID, event.TxHash, event.LogIndex, event.BlockNumber,
		event.TokensPurchased, event.SenderWallet, utils.NormalizeAddress(event.RecipientWallet),
		event.ScoutID, event.PointsValue, event.PaidInPoints, string(event.Type), event.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save purchase event", err.Error())
	}
	return nil
}

// GetPurchaseEvents queries purchase events by filter
func (s *SQLiteStorage) GetPurchaseEvents(ctx context.Context, filter models.PurchaseEventFilter) ([]*models.NFTPurchaseEvent, error) {
	query := `
		SELECT p.id, p.builder_nft_id, p.tx_hash, p.log_index, p.block_number, p.tokens_purchased,
		       p.sender_wallet, p.recipient_wallet, p.scout_id, p.points_value, p.paid_in_points, p.type, p.created_at
		FROM nft_purchase_events p
	`
	var args []interface{}
	var conds []string

	if filter.Season != nil || filter.NFTType != nil {
		query += ` JOIN builder_nfts n ON n.id = p.builder_nft_id`
		if filter.Season != nil {
			conds = append(conds, "n.season = ?")
			args = append(args, *filter.Season)
		}
		if filter.NFTType != nil {
			conds = append(conds, "n.nft_type = ?")
			args = append(args, string(*filter.NFTType))
		}
	}
	if filter.BuilderNFTID != nil {
		conds = append(conds, "p.builder_nft_id = ?")
		args = append(args, *filter.BuilderNFTID)
	}
	if filter.FromBlock != nil {
		conds = append(conds, "p.block_number >= ?")
		args = append(args, *filter.FromBlock)
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY p.block_number, p.log_index"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query purchase events", err.Error())
	}
	defer rows.Close()

	var events []*models.NFTPurchaseEvent
	for rows.Next() {
		event := &models.NFTPurchaseEvent{}
		var eventType string
		if err := rows.Scan(&event.ID, &event.BuilderNFTID, &event.TxHash, &event.LogIndex,
			&event.BlockNumber, &event.TokensPurchased, &event.SenderWallet, &event.RecipientWallet,
			&event.ScoutID, &event.PointsValue, &event.PaidInPoints, &eventType, &event.CreatedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan purchase event", err.Error())
		}
		event.Type = models.PurchaseEventType(eventType)
		events = append(events, event)
	}
	return events, rows.Err()
}

// HasPurchaseEvent reports whether an on-chain event is already recorded
func (s *SQLiteStorage) HasPurchaseEvent(ctx context.Context, txHash string, logIndex uint) (bool, error) {
	var count int64
	query := `SELECT COUNT(*) FROM nft_purchase_events WHERE tx_hash = ? AND log_index = ?`
	if err := s.db.QueryRowContext(ctx, query, txHash, logIndex).Scan(&count); err != nil {
		return false, utils.NewAppError(utils.ErrCodeDatabase, "Failed to check purchase event", err.Error())
	}
	return count > 0, nil
}

// SaveGemsTotal upserts a builder's weekly gems total
func (s *SQLiteStorage) SaveGemsTotal(ctx context.Context, builderID, week string, gems int64) error {
	query := `
		INSERT INTO gems_ledger (builder_id, week, gems_collected, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (builder_id, week) DO UPDATE SET gems_collected = excluded.gems_collected, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, builderID, week, gems, time.Now())
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save gems total", err.Error())
	}
	return nil
}

// GetWeeklyLeaderboard returns the top builders by gems for a week, ranked
// from 1 in descending gem order
func (s *SQLiteStorage) GetWeeklyLeaderboard(ctx context.Context, week string, limit int) ([]*models.RankedBuilder, error) {
	query := `
		SELECT builder_id, gems_collected FROM gems_ledger
		WHERE week = ? AND gems_collected > 0
		ORDER BY gems_collected DESC, builder_id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, week, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query leaderboard", err.Error())
	}
	defer rows.Close()

	var ranked []*models.RankedBuilder
	rank := 0
	for rows.Next() {
		rank++
		entry := &models.RankedBuilder{Rank: rank}
		if err := rows.Scan(&entry.BuilderID, &entry.GemsCollected); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan leaderboard entry", err.Error())
		}
		ranked = append(ranked, entry)
	}
	return ranked, rows.Err()
}

// GetPayoutEvent returns the payout event for (builder, week), or nil
func (s *SQLiteStorage) GetPayoutEvent(ctx context.Context, builderID, week string) (*models.GemsPayoutEvent, error) {
	query := `
		SELECT id, builder_id, week, season, gems_collected, points_earned, rank, created_at
		FROM gems_payout_events WHERE builder_id = ? AND week = ?
	`
	event := &models.GemsPayoutEvent{}
	err := s.db.QueryRowContext(ctx, query, builderID, week).Scan(
		&event.ID, &event.BuilderID, &event.Week, &event.Season,
		&event.GemsCollected, &event.PointsEarned, &event.Rank, &event.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get payout event", err.Error())
	}
	return event, nil
}

// CountPayoutEvents counts payout events for a week
func (s *SQLiteStorage) CountPayoutEvents(ctx context.Context, week string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM gems_payout_events WHERE week = ?`
	if err := s.db.QueryRowContext(ctx, query, week).Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count payout events", err.Error())
	}
	return count, nil
}

// GetPointsReceipts returns all receipts for a payout event
func (s *SQLiteStorage) GetPointsReceipts(ctx context.Context, payoutEventID string) ([]*models.PointsReceipt, error) {
	query := `
		SELECT id, payout_event_id, recipient_id, recipient_type, points, season, created_at
		FROM points_receipts WHERE payout_event_id = ? ORDER BY recipient_id
	`
	rows, err := s.db.QueryContext(ctx, query, payoutEventID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query receipts", err.Error())
	}
	defer rows.Close()

	var receipts []*models.PointsReceipt
	for rows.Next() {
		receipt := &models.PointsReceipt{}
		var recipientType string
		if err := rows.Scan(&receipt.ID, &receipt.PayoutEventID, &receipt.RecipientID,
			&recipientType, &receipt.Points, &receipt.Season, &receipt.CreatedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan receipt", err.Error())
		}
		receipt.RecipientType = models.RecipientType(recipientType)
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// GetSeasonPoints returns a recipient's running season points total
func (s *SQLiteStorage) GetSeasonPoints(ctx context.Context, recipientID, season string) (int64, error) {
	var points int64
	query := `SELECT points_earned FROM season_stats WHERE recipient_id = ? AND season = ?`
	err := s.db.QueryRowContext(ctx, query, recipientID, season).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get season points", err.Error())
	}
	return points, nil
}

// SavePartnerReward inserts a scheduled partner reward obligation
func (s *SQLiteStorage) SavePartnerReward(ctx context.Context, reward *models.PartnerReward) error {
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = time.Now()
	}
	query := `
		INSERT OR REPLACE INTO partner_rewards (id, partner, week, source, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		reward.ID, reward.Partner, reward.Week, string(reward.Source), reward.Amount, reward.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save partner reward", err.Error())
	}
	return nil
}

// SumPartnerRewards totals a partner's weekly obligations per reward source
func (s *SQLiteStorage) SumPartnerRewards(ctx context.Context, partner, week string) (map[models.RewardSource]int64, error) {
	query := `SELECT source, COALESCE(SUM(amount), 0) FROM partner_rewards WHERE partner = ? AND week = ? GROUP BY source`
	rows, err := s.db.QueryContext(ctx, query, partner, week)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to sum partner rewards", err.Error())
	}
	defer rows.Close()

	totals := make(map[models.RewardSource]int64)
	for rows.Next() {
		var source string
		var amount int64
		if err := rows.Scan(&source, &amount); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan partner reward", err.Error())
		}
		totals[models.RewardSource(source)] = amount
	}
	return totals, rows.Err()
}

// GetLatestPolledBlock returns the highest block already scanned for a contract
func (s *SQLiteStorage) GetLatestPolledBlock(ctx context.Context, contract string, chainID uint64) (uint64, error) {
	var block sql.NullInt64
	query := `SELECT MAX(to_block) FROM contract_poll_events WHERE contract_address = ? AND chain_id = ?`
	err := s.db.QueryRowContext(ctx, query, utils.NormalizeAddress(contract), chainID).Scan(&block)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get latest polled block", err.Error())
	}
	if !block.Valid {
		return 0, nil
	}
	return uint64(block.Int64), nil
}

// SavePollEvent records a scanned block range for a contract
func (s *SQLiteStorage) SavePollEvent(ctx context.Context, event *models.ContractPollEvent) error {
	query := `
		INSERT OR REPLACE INTO contract_poll_events (contract_address, chain_id, from_block, to_block)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		utils.NormalizeAddress(event.ContractAddress), event.ChainID, event.FromBlock, event.ToBlock)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save poll event", err.Error())
	}
	return nil
}

// GetStorageStats returns storage statistics
func (s *SQLiteStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM nft_purchase_events`, &stats.TotalPurchaseEvents},
		{`SELECT COUNT(*) FROM gems_payout_events`, &stats.TotalPayoutEvents},
		{`SELECT COUNT(*) FROM points_receipts`, &stats.TotalReceipts},
		{`SELECT COUNT(*) FROM builder_nfts`, &stats.TotalBuilderNFTs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to collect storage stats", err.Error())
		}
	}

	var block sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(to_block) FROM contract_poll_events`).Scan(&block); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to collect storage stats", err.Error())
	}
	if block.Valid {
		stats.LatestPolledBlock = uint64(block.Int64)
	}

	return stats, nil
}

// WithinTransaction runs fn inside one SQLite transaction with the configured
// extended timeout
func (s *SQLiteStorage) WithinTransaction(ctx context.Context, fn func(tx TxStore) error) error {
	timeout := s.config.TransactionTimeout
	if timeout == 0 {
		timeout = 100 * time.Second
	}
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin transaction", err.Error())
	}
	defer tx.Rollback()

	if err := fn(&sqliteTxStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit transaction", err.Error())
	}
	return nil
}

// sqliteTxStore is the transactional write surface for SQLite
type sqliteTxStore struct {
	tx *sql.Tx
}

func (t *sqliteTxStore) CreatePayoutEvent(ctx context.Context, event *models.GemsPayoutEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO gems_payout_events (id, builder_id, week, season, gems_collected, points_earned, rank, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		event.ID, event.BuilderID, event.Week, event.Season,
		event.GemsCollected, event.PointsEarned, event.Rank, event.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create payout event", err.Error())
	}
	return nil
}

func (t *sqliteTxStore) CreateBuilderActivity(ctx context.Context, activity *models.BuilderActivity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO builder_activities (id, builder_id, type, payout_event_id, week, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		activity.ID, activity.BuilderID, activity.Type, activity.PayoutEventID,
		activity.Week, activity.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create builder activity", err.Error())
	}
	return nil
}

func (t *sqliteTxStore) CreatePointsReceipt(ctx context.Context, receipt *models.PointsReceipt) error {
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO points_receipts (id, payout_event_id, recipient_id, recipient_type, points, season, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		receipt.ID, receipt.PayoutEventID, receipt.RecipientID, string(receipt.RecipientType),
		receipt.Points, receipt.Season, receipt.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create points receipt", err.Error())
	}
	return nil
}

func (t *sqliteTxStore) IncrementSeasonPoints(ctx context.Context, recipientID, season string, points int64) error {
	query := `
		INSERT INTO season_stats (recipient_id, season, points_earned, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (recipient_id, season) DO UPDATE SET
			points_earned = points_earned + excluded.points_earned,
			updated_at = excluded.updated_at
	`
	_, err := t.tx.ExecContext(ctx, query, recipientID, season, points, time.Now())
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to increment season points", err.Error())
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBuilderNFT(row rowScanner) (*models.BuilderNFT, error) {
	nft := &models.BuilderNFT{}
	var nftType string
	err := row.Scan(&nft.ID, &nft.BuilderID, &nft.Season, &nftType, &nft.TokenID,
		&nft.ContractAddress, &nft.ChainID, &nft.CurrentPrice, &nft.CreatedAt, &nft.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan builder NFT", err.Error())
	}
	nft.NFTType = models.NFTType(nftType)
	return nft, nil
}
