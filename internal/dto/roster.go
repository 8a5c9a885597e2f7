package dto

// StartPhaseRequest opens a new phase for the caller.
type StartPhaseRequest struct {
	RoomID string `json:"room_id" validate:"required"`
	Name   string `json:"name" validate:"required,max=120"`
}

// TransferRequest moves a student between teams of the same room.
type TransferRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	FromTeamID string `json:"from_team_id" validate:"required"`
	ToTeamID   string `json:"to_team_id" validate:"required,nefield=FromTeamID"`
}

// PowerUsageRequest sets a student's power usage flag for the current phase.
type PowerUsageRequest struct {
	Used bool `json:"used"`
}

// BulkPowerUsageRequest sets the flag for every student of a room.
type BulkPowerUsageRequest struct {
	Used bool `json:"used"`
}

// LeaderCodeResult returns a freshly issued leader code.
type LeaderCodeResult struct {
	TeamID string `json:"team_id"`
	Code   string `json:"code"`
}
