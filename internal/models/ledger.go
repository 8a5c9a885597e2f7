package models

import "time"

// AttributionKind tags which side of the roster a ledger entry credits.
type AttributionKind string

const (
	AttributeTeam    AttributionKind = "team"
	AttributeStudent AttributionKind = "student"
)

// EntryKind distinguishes activity grants from automatic completion bonuses.
type EntryKind string

const (
	EntryKindGrant           EntryKind = "grant"
	EntryKindCompletionBonus EntryKind = "completion_bonus"
)

// Attribution is the set of teams or students an entry credits. Exactly one kind per entry.
type Attribution struct {
	Kind AttributionKind `json:"kind"`
	IDs  []string        `json:"ids"`
}

// Includes reports whether id is one of the attributed ids.
func (a Attribution) Includes(id string) bool {
	for _, v := range a.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// LedgerEntry is an append-only XP record. Only Reversed may change after insert, false to true.
type LedgerEntry struct {
	ID             string          `db:"id" json:"id"`
	OwnerID        string          `db:"owner_id" json:"owner_id"`
	RoomID         string          `db:"room_id" json:"room_id"`
	ActivityTypeID string          `db:"activity_type_id" json:"activity_type_id"`
	GrantID        string          `db:"grant_id" json:"grant_id"`
	IdempotencyKey string          `db:"idempotency_key" json:"-"`
	Kind           EntryKind       `db:"kind" json:"kind"`
	AttributedTo   AttributionKind `db:"attributed_to" json:"attributed_to"`
	XP             int             `db:"xp" json:"xp"`
	Reversed       bool            `db:"reversed" json:"reversed"`
	ReversedAt     *time.Time      `db:"reversed_at" json:"reversed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`

	TeamIDs    []string `db:"-" json:"team_ids"`
	StudentIDs []string `db:"-" json:"student_ids"`
}

// Attribution returns the tagged attribution of the entry.
func (e LedgerEntry) Attribution() Attribution {
	if e.AttributedTo == AttributeTeam {
		return Attribution{Kind: AttributeTeam, IDs: e.TeamIDs}
	}
	return Attribution{Kind: AttributeStudent, IDs: e.StudentIDs}
}

// LedgerFilter constrains ledger reads.
type LedgerFilter struct {
	OwnerID         string
	RoomID          string
	TeamIDs         []string
	StudentIDs      []string
	IncludeReversed bool
	Limit           int
	Offset          int
}

// TeamLedger is the flat data needed to total one team: its current roster,
// every live entry touching the team or a current member, and XP spent in the shop.
type TeamLedger struct {
	Team    Team
	Members []Student
	Entries []LedgerEntry
	SpentXP int
}

// RoomLedger is the flat data needed to rank a whole room.
type RoomLedger struct {
	RoomID   string
	Teams    []Team
	Students []Student
	Entries  []LedgerEntry
	SpentXP  map[string]int
}
