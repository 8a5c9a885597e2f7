package models

import "time"

// RoomStatus marks whether a room is in use.
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "active"
	RoomStatusInactive RoomStatus = "inactive"
)

// Room groups teams and students of one class ("sala").
type Room struct {
	ID         string     `db:"id" json:"id"`
	OwnerID    string     `db:"owner_id" json:"owner_id"`
	Name       string     `db:"name" json:"name"`
	GradeLabel string     `db:"grade_label" json:"grade_label"`
	Shift      string     `db:"shift" json:"shift"`
	Status     RoomStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
