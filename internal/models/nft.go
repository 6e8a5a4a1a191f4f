package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NFTType distinguishes the two builder NFT collections per season
type NFTType string

const (
	NFTTypeDefault     NFTType = "default"
	NFTTypeStarterPack NFTType = "starter_pack"
)

// BuilderNFT represents one builder's NFT for a season. Identity is immutable
// once minted; only the price is refreshed.
type BuilderNFT struct {
	ID              string    `json:"id" db:"id"`
	BuilderID       string    `json:"builder_id" db:"builder_id"`
	Season          string    `json:"season" db:"season"`
	NFTType         NFTType   `json:"nft_type" db:"nft_type"`
	TokenID         uint64    `json:"token_id" db:"token_id"`
	ContractAddress string    `json:"contract_address" db:"contract_address"`
	ChainID         uint64    `json:"chain_id" db:"chain_id"`
	CurrentPrice    string    `json:"current_price" db:"current_price"` // wei, decimal string
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Contract returns the contract address in typed form
func (n *BuilderNFT) Contract() common.Address {
	return common.HexToAddress(n.ContractAddress)
}

// ScoutWallet maps an on-chain address to an internal scout identity
type ScoutWallet struct {
	Address   string    `json:"address" db:"address"` // normalized lowercase hex
	ScoutID   string    `json:"scout_id" db:"scout_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
