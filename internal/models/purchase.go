package models

import "time"

// PurchaseEventType classifies a recorded on-chain event
type PurchaseEventType string

const (
	// PurchaseEventMint is a primary mint carrying a real purchase price
	PurchaseEventMint PurchaseEventType = "mint"
	// PurchaseEventTransfer is a secondary-market transfer, zero point value
	PurchaseEventTransfer PurchaseEventType = "transfer"
	// PurchaseEventBurn is a transfer to the null address, zero point value
	PurchaseEventBurn PurchaseEventType = "burn"
)

// NFTPurchaseEvent is one successful mint or transfer of a builder NFT.
// (TxHash, LogIndex, BuilderNFTID) is unique and prevents double-recording
// the same on-chain event; batch transfers share one log but touch distinct
// token ids, so the NFT id is part of the identity.
type NFTPurchaseEvent struct {
	ID              string            `json:"id" db:"id"`
	BuilderNFTID    string            `json:"builder_nft_id" db:"builder_nft_id"`
	TxHash          string            `json:"tx_hash" db:"tx_hash"`
	LogIndex        uint              `json:"log_index" db:"log_index"`
	BlockNumber     uint64            `json:"block_number" db:"block_number"`
	TokensPurchased uint64            `json:"tokens_purchased" db:"tokens_purchased"`
	SenderWallet    *string           `json:"sender_wallet,omitempty" db:"sender_wallet"` // nil for primary mint
	RecipientWallet string            `json:"recipient_wallet" db:"recipient_wallet"`
	ScoutID         *string           `json:"scout_id,omitempty" db:"scout_id"`
	PointsValue     int64             `json:"points_value" db:"points_value"`
	PaidInPoints    bool              `json:"paid_in_points" db:"paid_in_points"`
	Type            PurchaseEventType `json:"type" db:"type"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// PurchaseEventFilter for querying purchase events
type PurchaseEventFilter struct {
	BuilderNFTID *string  `json:"builder_nft_id,omitempty"`
	Season       *string  `json:"season,omitempty"`
	NFTType      *NFTType `json:"nft_type,omitempty"`
	FromBlock    *uint64  `json:"from_block,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
}
