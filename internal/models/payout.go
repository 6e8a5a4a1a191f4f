package models

import "time"

// GemsPayoutEvent records one week's settlement for one builder.
// (BuilderID, Week) is unique and is the idempotency gate for settlement.
type GemsPayoutEvent struct {
	ID            string    `json:"id" db:"id"`
	BuilderID     string    `json:"builder_id" db:"builder_id"`
	Week          string    `json:"week" db:"week"` // ISO week, e.g. 2026-W35
	Season        string    `json:"season" db:"season"`
	GemsCollected int64     `json:"gems_collected" db:"gems_collected"`
	PointsEarned  int64     `json:"points_earned" db:"points_earned"`
	Rank          int       `json:"rank" db:"rank"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RecipientType identifies who a points receipt credits
type RecipientType string

const (
	RecipientBuilder RecipientType = "builder"
	RecipientScout   RecipientType = "scout"
)

// PointsReceipt credits points to a single recipient for one payout event
type PointsReceipt struct {
	ID            string        `json:"id" db:"id"`
	PayoutEventID string        `json:"payout_event_id" db:"payout_event_id"`
	RecipientID   string        `json:"recipient_id" db:"recipient_id"`
	RecipientType RecipientType `json:"recipient_type" db:"recipient_type"`
	Points        int64         `json:"points" db:"points"`
	Season        string        `json:"season" db:"season"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// BuilderActivity is the activity-feed record linked to a payout event
type BuilderActivity struct {
	ID            string    `json:"id" db:"id"`
	BuilderID     string    `json:"builder_id" db:"builder_id"`
	Type          string    `json:"type" db:"type"` // gems_payout
	PayoutEventID string    `json:"payout_event_id" db:"payout_event_id"`
	Week          string    `json:"week" db:"week"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RankedBuilder is one entry of the weekly leaderboard used by the
// payout orchestrator
type RankedBuilder struct {
	BuilderID     string `json:"builder_id" db:"builder_id"`
	Rank          int    `json:"rank" db:"rank"`
	GemsCollected int64  `json:"gems_collected" db:"gems_collected"`
}
