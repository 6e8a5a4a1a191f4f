// File: internal/ownership/sheet.go
package ownership

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/scoutgame/settlement-worker/internal/models"
)

// BalanceSheet maps token ID to wallet balances. Wallets whose balance drops
// to zero are removed so Holders never reports empty positions.
type BalanceSheet map[uint64]map[common.Address]uint64

// ReplayTransfers builds a balance sheet by applying transfers in order.
// The slice must already be sorted by (block, tx index, log index).
func ReplayTransfers(transfers []*models.TokenTransfer) BalanceSheet {
	sheet := make(BalanceSheet)
	for _, t := range transfers {
		sheet.Apply(t)
	}
	return sheet
}

// Apply applies one transfer to the sheet. Mints have no sender side and
// burns no recipient side, per the ERC-1155 null-address convention.
func (s BalanceSheet) Apply(t *models.TokenTransfer) {
	balances, ok := s[t.TokenID]
	if !ok {
		balances = make(map[common.Address]uint64)
		s[t.TokenID] = balances
	}

	kind := t.Kind()

	if kind != models.TransferMint {
		remaining := balances[t.From]
		if t.Amount >= remaining {
			delete(balances, t.From)
		} else {
			balances[t.From] = remaining - t.Amount
		}
	}

	if kind != models.TransferBurn && t.Amount > 0 {
		balances[t.To] += t.Amount
	}
}

// Holders returns a copy of the wallet balances for a token
func (s BalanceSheet) Holders(tokenID uint64) map[common.Address]uint64 {
	holders := make(map[common.Address]uint64, len(s[tokenID]))
	for wallet, amount := range s[tokenID] {
		holders[wallet] = amount
	}
	return holders
}

// TotalSupply returns the outstanding supply of a token
func (s BalanceSheet) TotalSupply(tokenID uint64) uint64 {
	var total uint64
	for _, amount := range s[tokenID] {
		total += amount
	}
	return total
}

// TokenIDs returns all token IDs with at least one holder
func (s BalanceSheet) TokenIDs() []uint64 {
	ids := make([]uint64, 0, len(s))
	for id, balances := range s {
		if len(balances) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
