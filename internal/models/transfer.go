package models

import (
	"github.com/ethereum/go-ethereum/common"
)

// TransferKind classifies a replayed ERC-1155 transfer
type TransferKind string

const (
	TransferMint TransferKind = "MINT"
	TransferBurn TransferKind = "BURN"
	TransferSend TransferKind = "SEND"
)

// TokenTransfer is a single-transfer record. TransferBatch logs are expanded
// into one TokenTransfer per (tokenId, amount) pair sharing the parent's
// transaction hash and block number.
type TokenTransfer struct {
	BlockNumber uint64         `json:"block_number"`
	TxIndex     uint           `json:"tx_index"`
	LogIndex    uint           `json:"log_index"`
	TxHash      common.Hash    `json:"tx_hash"`
	Operator    common.Address `json:"operator"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	TokenID     uint64         `json:"token_id"`
	Amount      uint64         `json:"amount"`
}

// Kind classifies the transfer by its null-address sides
func (t *TokenTransfer) Kind() TransferKind {
	zero := common.Address{}
	switch {
	case t.From == zero:
		return TransferMint
	case t.To == zero:
		return TransferBurn
	default:
		return TransferSend
	}
}

// ContractPollEvent records the block range already scanned for a monitored
// contract, making log polling incremental and resumable.
type ContractPollEvent struct {
	ContractAddress string `json:"contract_address" db:"contract_address"`
	ChainID         uint64 `json:"chain_id" db:"chain_id"`
	FromBlock       uint64 `json:"from_block" db:"from_block"`
	ToBlock         uint64 `json:"to_block" db:"to_block"`
}
