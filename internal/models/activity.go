package models

import "time"

// AttributionMode decides whether an activity is granted to students or to teams.
type AttributionMode string

const (
	ModePerStudent AttributionMode = "per_student"
	ModePerTeam    AttributionMode = "per_team"
)

// ActivityType is a catalog entry; XP is signed (negative values are penalties).
type ActivityType struct {
	ID          string          `db:"id" json:"id"`
	OwnerID     string          `db:"owner_id" json:"owner_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	XP          int             `db:"xp" json:"xp"`
	Mode        AttributionMode `db:"mode" json:"mode"`
	IsBonus     bool            `db:"is_bonus" json:"is_bonus"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
