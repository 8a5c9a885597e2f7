package models

import "time"

// Transfer logs a student moving between teams. No XP moves with it.
type Transfer struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	FromTeamID string    `db:"from_team_id" json:"from_team_id"`
	ToTeamID   string    `db:"to_team_id" json:"to_team_id"`
	PhaseID    *string   `db:"phase_id" json:"phase_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
