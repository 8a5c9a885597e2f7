package dto

import "github.com/noah-isme/classquest-api/internal/progression"

// TeamXPView is a team's derived standing.
type TeamXPView struct {
	TeamID   string               `json:"team_id"`
	RoomID   string               `json:"room_id"`
	Name     string               `json:"name"`
	XP       int                  `json:"xp"`
	Crystals int                  `json:"crystals"`
	Level    progression.Level    `json:"level"`
	Progress progression.Progress `json:"progress"`
}

// StudentXPView is a student's individual derived XP.
type StudentXPView struct {
	StudentID string  `json:"student_id"`
	RoomID    string  `json:"room_id"`
	TeamID    *string `json:"team_id,omitempty"`
	Name      string  `json:"name"`
	Class     string  `json:"class"`
	XP        int     `json:"xp"`
}

// TeamStanding is one ranked row of a room's team table.
type TeamStanding struct {
	Rank int `json:"rank"`
	TeamXPView
	Members int `json:"members"`
}

// StudentStanding is one ranked row of a room's student table.
type StudentStanding struct {
	Rank int `json:"rank"`
	StudentXPView
	PowerUnlocked bool `json:"power_unlocked"`
	PowerUsed     bool `json:"power_used"`
}

// LevelQuery resolves a level for an arbitrary XP value.
type LevelQuery struct {
	XP int `form:"xp"`
}
