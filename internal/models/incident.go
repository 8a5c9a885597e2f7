package models

import "time"

// IncidentStatus tracks the handling of a disciplinary incident.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentOpen, IncidentInProgress, IncidentResolved:
		return true
	}
	return false
}

// Incident ("ocorrência") is reported against a team by the teacher or the team leader.
type Incident struct {
	ID          string         `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"owner_id"`
	TeamID      string         `db:"team_id" json:"team_id"`
	Description string         `db:"description" json:"description"`
	Status      IncidentStatus `db:"status" json:"status"`
	ReportedBy  string         `db:"reported_by" json:"reported_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// IncidentFilter constrains incident listing.
type IncidentFilter struct {
	OwnerID string
	TeamID  string
	Status  IncidentStatus
}
