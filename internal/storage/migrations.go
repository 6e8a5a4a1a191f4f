package storage

import (
	"time"
)

// Migration represents a database migration
type Migration struct {
	ID          int       `db:"id"`
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create builder_nfts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS builder_nfts (
					id TEXT PRIMARY KEY,
					builder_id TEXT NOT NULL,
					season TEXT NOT NULL,
					nft_type TEXT NOT NULL,
					token_id INTEGER NOT NULL,
					contract_address TEXT NOT NULL,
					chain_id INTEGER NOT NULL,
					current_price TEXT NOT NULL DEFAULT '0',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_builder_nfts_identity
					ON builder_nfts(builder_id, season, nft_type);
				CREATE INDEX IF NOT EXISTS idx_builder_nfts_contract ON builder_nfts(contract_address);
			`,
		},
		{
			Version:     "002",
			Description: "Create scout_wallets table",
			SQL: `
				CREATE TABLE IF NOT EXISTS scout_wallets (
					address TEXT PRIMARY KEY,
					scout_id TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_scout_wallets_scout ON scout_wallets(scout_id);
			`,
		},
		{
			Version:     "003",
			Description: "Create nft_purchase_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS nft_purchase_events (
					id TEXT PRIMARY KEY,
					builder_nft_id TEXT NOT NULL,
					tx_hash TEXT NOT NULL,
					log_index INTEGER NOT NULL,
					block_number INTEGER NOT NULL,
					tokens_purchased INTEGER NOT NULL,
					sender_wallet TEXT,
					recipient_wallet TEXT NOT NULL,
					scout_id TEXT,
					points_value INTEGER NOT NULL DEFAULT 0,
					paid_in_points BOOLEAN DEFAULT FALSE,
					type TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (builder_nft_id) REFERENCES builder_nfts (id)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_purchase_events_unique
					ON nft_purchase_events(tx_hash, log_index, builder_nft_id);
				CREATE INDEX IF NOT EXISTS idx_purchase_events_nft ON nft_purchase_events(builder_nft_id);
				CREATE INDEX IF NOT EXISTS idx_purchase_events_block ON nft_purchase_events(block_number);
			`,
		},
		{
			Version:     "004",
			Description: "Create gems_payout_events and points_receipts tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS gems_payout_events (
					id TEXT PRIMARY KEY,
					builder_id TEXT NOT NULL,
					week TEXT NOT NULL,
					season TEXT NOT NULL,
					gems_collected INTEGER NOT NULL,
					points_earned INTEGER NOT NULL,
					rank INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_payout_events_unique
					ON gems_payout_events(builder_id, week);
				CREATE INDEX IF NOT EXISTS idx_payout_events_week ON gems_payout_events(week);

				CREATE TABLE IF NOT EXISTS points_receipts (
					id TEXT PRIMARY KEY,
					payout_event_id TEXT NOT NULL,
					recipient_id TEXT NOT NULL,
					recipient_type TEXT NOT NULL,
					points INTEGER NOT NULL,
					season TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (payout_event_id) REFERENCES gems_payout_events (id)
				);

				CREATE INDEX IF NOT EXISTS idx_receipts_payout ON points_receipts(payout_event_id);
				CREATE INDEX IF NOT EXISTS idx_receipts_recipient ON points_receipts(recipient_id);
			`,
		},
		{
			Version:     "005",
			Description: "Create builder_activities and season_stats tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS builder_activities (
					id TEXT PRIMARY KEY,
					builder_id TEXT NOT NULL,
					type TEXT NOT NULL,
					payout_event_id TEXT NOT NULL,
					week TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_activities_builder ON builder_activities(builder_id);

				CREATE TABLE IF NOT EXISTS season_stats (
					recipient_id TEXT NOT NULL,
					season TEXT NOT NULL,
					points_earned INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (recipient_id, season)
				);
			`,
		},
		{
			Version:     "006",
			Description: "Create gems_ledger table",
			SQL: `
				CREATE TABLE IF NOT EXISTS gems_ledger (
					builder_id TEXT NOT NULL,
					week TEXT NOT NULL,
					gems_collected INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (builder_id, week)
				);

				CREATE INDEX IF NOT EXISTS idx_gems_ledger_week ON gems_ledger(week);
			`,
		},
		{
			Version:     "007",
			Description: "Create contract_poll_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS contract_poll_events (
					contract_address TEXT NOT NULL,
					chain_id INTEGER NOT NULL,
					from_block INTEGER NOT NULL,
					to_block INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (contract_address, chain_id, to_block)
				);
			`,
		},
		{
			Version:     "008",
			Description: "Create partner_rewards table",
			SQL: `
				CREATE TABLE IF NOT EXISTS partner_rewards (
					id TEXT PRIMARY KEY,
					partner TEXT NOT NULL,
					week TEXT NOT NULL,
					source TEXT NOT NULL,
					amount INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_partner_rewards_week ON partner_rewards(partner, week);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create builder_nfts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS builder_nfts (
					id TEXT PRIMARY KEY,
					builder_id TEXT NOT NULL,
					season TEXT NOT NULL,
					nft_type TEXT NOT NULL,
					token_id BIGINT NOT NULL,
					contract_address TEXT NOT NULL,
					chain_id BIGINT NOT NULL,
					current_price TEXT NOT NULL DEFAULT '0',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_builder_nfts_identity
					ON builder_nfts(builder_id, season, nft_type);
				CREATE INDEX IF NOT EXISTS idx_builder_nfts_contract ON builder_nfts(contract_address);
			`,
		},
		{
			Version:     "002",
			Description: "Create scout_wallets table",
			SQL: `
				CREATE TABLE IF NOT EXISTS scout_wallets (
					address TEXT PRIMARY KEY,
					scout_id TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_scout_wallets_scout ON scout_wallets(scout_id);
			`,
		},
		{
			Version:     "003",
			Description: "Create nft_purchase_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS nft_purchase_events (
					id TEXT PRIMARY KEY,
					builder_nft_id TEXT NOT NULL,
					tx_hash TEXT NOT NULL,
					log_index INTEGER NOT NULL,
					block_number BIGINT NOT NULL,
					tokens_purchased BIGINT NOT NULL,
					sender_wallet TEXT,
					recipient_wallet TEXT NOT NULL,
					scout_id TEXT,
					points_value BIGINT NOT NULL DEFAULT 0,
					paid_in_points BOOLEAN DEFAULT FALSE,
					type TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					CONSTRAINT fk_purchase_events_nft FOREIGN KEY (builder_nft_id) REFERENCES builder_nfts (id)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_purchase_events_unique
					ON nft_purchase_events(tx_hash, log_index, builder_nft_id);
				CREATE INDEX IF NOT EXISTS idx_purchase_events_nft ON nft_purchase_events(builder_nft_id);
				CREATE INDEX IF NOT EXISTS idx_purchase_events_block ON nft_purchase_events(block_number);
			`,
		},
		{
			Version:     "004",
			Description: "Create gems_payout_events and points_receipts tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS gems_payout_events (
					id TEXT PRIMARY KEY,
					builder_id TEXT NOT NULL,
					week TEXT NOT NULL,
					season TEXT NOT NULL,
					gems_collected BIGINT NOT NULL,
					points_earned BIGINT NOT NULL,
					rank INTEGER NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_payout_events_unique
					ON gems_payout_events(builder_id, week);
				CREATE INDEX IF NOT EXISTS idx_payout_events_week ON gems_payout_events(week);

				CREATE TABLE IF NOT EXISTS points_receipts (
					id TEXT PRIMARY KEY,
					payout_event_id TEXT NOT NULL,
					recipient_id TEXT NOT NULL,
					recipient_type TEXT NOT NULL,
					points BIGINT NOT NULL,
					season TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					CONSTRAINT fk_receipts_payout FOREIGN KEY (payout_event_id) REFERENCES gems_payout_events (id)
				);

				CREATE INDEX IF NOT EXISTS idx_receipts_payout ON points_receipts(payout_event_id);
				CREATE INDEX IF NOT EXISTS idx_receipts_recipient ON points_receipts(recipient_id);
			`,
		},
		{
			Version:     "005",
			Description: "Create builder_activities and season_stats tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS builder_activities (
					id TEXT PRIMARY KEY,
					builder_id TEXT NOT NULL,
					type TEXT NOT NULL,
					payout_event_id TEXT NOT NULL,
					week TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_activities_builder ON builder_activities(builder_id);

				CREATE TABLE IF NOT EXISTS season_stats (
					recipient_id TEXT NOT NULL,
					season TEXT NOT NULL,
					points_earned BIGINT NOT NULL DEFAULT 0,
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					PRIMARY KEY (recipient_id, season)
				);
			`,
		},
		{
			Version:     "006",
			Description: "Create gems_ledger table",
			SQL: `
				CREATE TABLE IF NOT EXISTS gems_ledger (
					builder_id TEXT NOT NULL,
					week TEXT NOT NULL,
					gems_collected BIGINT NOT NULL DEFAULT 0,
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					PRIMARY KEY (builder_id, week)
				);

				CREATE INDEX IF NOT EXISTS idx_gems_ledger_week ON gems_ledger(week);
			`,
		},
		{
			Version:     "007",
			Description: "Create contract_poll_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS contract_poll_events (
					contract_address TEXT NOT NULL,
					chain_id BIGINT NOT NULL,
					from_block BIGINT NOT NULL,
					to_block BIGINT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					PRIMARY KEY (contract_address, chain_id, to_block)
				);
			`,
		},
		{
			Version:     "008",
			Description: "Create partner_rewards table",
			SQL: `
				CREATE TABLE IF NOT EXISTS partner_rewards (
					id TEXT PRIMARY KEY,
					partner TEXT NOT NULL,
					week TEXT NOT NULL,
					source TEXT NOT NULL,
					amount BIGINT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_partner_rewards_week ON partner_rewards(partner, week);
			`,
		},
	}
}
