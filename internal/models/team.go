package models

import "time"

// Team is a group of students inside a room. Crystals is the only balance stored outside the ledger.
type Team struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	Name       string    `db:"name" json:"name"`
	LeaderCode *string   `db:"leader_code" json:"leader_code,omitempty"`
	Crystals   int       `db:"crystals" json:"crystals"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TeamFilter constrains team listing.
type TeamFilter struct {
	OwnerID string
	RoomID  string
	IDs     []string
}

// CrystalReason labels a crystal balance movement.
type CrystalReason string

const (
	CrystalReasonAccrual  CrystalReason = "accrual"
	CrystalReasonReversal CrystalReason = "reversal"
	CrystalReasonPurchase CrystalReason = "purchase"
)

// CrystalMovement records one signed change to a team's crystal balance.
type CrystalMovement struct {
	ID         string        `db:"id" json:"id"`
	TeamID     string        `db:"team_id" json:"team_id"`
	EntryID    *string       `db:"entry_id" json:"entry_id,omitempty"`
	PurchaseID *string       `db:"purchase_id" json:"purchase_id,omitempty"`
	Amount     int           `db:"amount" json:"amount"`
	Reason     CrystalReason `db:"reason" json:"reason"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}
