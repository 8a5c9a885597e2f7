package models

import "time"

// StudentClass is one of the three fixed character classes.
type StudentClass string

const (
	ClassResearcher   StudentClass = "Researcher"
	ClassCommunicator StudentClass = "Communicator"
	ClassEngineer     StudentClass = "Engineer"
)

// Valid reports whether c is a known class.
func (c StudentClass) Valid() bool {
	switch c {
	case ClassResearcher, ClassCommunicator, ClassEngineer:
		return true
	}
	return false
}

// Student belongs to a room and optionally to a team. Individual XP is derived from the ledger.
type Student struct {
	ID                 string       `db:"id" json:"id"`
	OwnerID            string       `db:"owner_id" json:"owner_id"`
	RoomID             string       `db:"room_id" json:"room_id"`
	TeamID             *string      `db:"team_id" json:"team_id,omitempty"`
	Name               string       `db:"name" json:"name"`
	Class              StudentClass `db:"class" json:"class"`
	PowerUsedThisPhase bool         `db:"power_used_this_phase" json:"power_used_this_phase"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
}

// OnTeam reports whether the student is currently a member of teamID.
func (s Student) OnTeam(teamID string) bool {
	return s.TeamID != nil && *s.TeamID == teamID
}

// StudentFilter constrains student listing.
type StudentFilter struct {
	OwnerID string
	RoomID  string
	TeamID  string
	IDs     []string
}
