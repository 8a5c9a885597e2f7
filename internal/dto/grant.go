package dto

import "github.com/noah-isme/classquest-api/internal/models"

// GrantRequest awards an activity to students or teams of one room.
// StudentIDs is used for per-student activities, TeamIDs for per-team ones.
type GrantRequest struct {
	RoomID         string   `json:"room_id" validate:"required"`
	ActivityTypeID string   `json:"activity_type_id" validate:"required"`
	StudentIDs     []string `json:"student_ids" validate:"omitempty,dive,required"`
	TeamIDs        []string `json:"team_ids" validate:"omitempty,dive,required"`
	GrantID        string   `json:"grant_id,omitempty" validate:"omitempty,max=64"`
}

// GrantResult summarises what a grant wrote.
type GrantResult struct {
	GrantID         string               `json:"grant_id"`
	XPGranted       int                  `json:"xp_granted"`
	CrystalsGranted int                  `json:"crystals_granted"`
	BonusTeamIDs    []string             `json:"bonus_team_ids,omitempty"`
	Entries         []models.LedgerEntry `json:"entries"`
}

// PartialGrantDetails is attached to a partial grant failure.
type PartialGrantDetails struct {
	GrantID       string   `json:"grant_id"`
	AppliedTeams  []string `json:"applied_teams"`
	FailedTeams   []string `json:"failed_teams"`
	StudentsEntry bool     `json:"students_entry_applied"`
}

// ReverseResult reports a reversal and the crystals taken back.
type ReverseResult struct {
	Entry            models.LedgerEntry `json:"entry"`
	CrystalsReversed int                `json:"crystals_reversed"`
}

// LedgerQuery filters ledger history listing.
type LedgerQuery struct {
	RoomID          string `form:"room_id"`
	TeamID          string `form:"team_id"`
	StudentID       string `form:"student_id"`
	IncludeReversed bool   `form:"include_reversed"`
	Limit           int    `form:"limit"`
	Offset          int    `form:"offset"`
}

// LedgerEntryView is a history row with the activity name resolved.
type LedgerEntryView struct {
	models.LedgerEntry
	ActivityName string `json:"activity_name"`
}
