package models

import "time"

// RewardSource identifies one of the independently-computed weekly
// reward programs a partner wallet must cover
type RewardSource string

const (
	RewardSourceReferral     RewardSource = "referral"
	RewardSourceNewScout     RewardSource = "new_scout"
	RewardSourceContribution RewardSource = "contribution"
)

// PartnerReward is one scheduled reward obligation for a partner wallet.
// Amount is denominated in whole tokens, matching how balance checks read
// wallet holdings.
type PartnerReward struct {
	ID        string       `json:"id" db:"id"`
	Partner   string       `json:"partner" db:"partner"`
	Week      string       `json:"week" db:"week"`
	Source    RewardSource `json:"source" db:"source"`
	Amount    int64        `json:"amount" db:"amount"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
