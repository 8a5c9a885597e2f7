package models

import "time"

// Phase is a bounded period; at most one is active per owner.
type Phase struct {
	ID        string     `db:"id" json:"id"`
	OwnerID   string     `db:"owner_id" json:"owner_id"`
	Name      string     `db:"name" json:"name"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Active    bool       `db:"active" json:"active"`
}
