package dto

import "github.com/noah-isme/classquest-api/internal/models"

// CreateIncidentRequest files an incident against a team.
type CreateIncidentRequest struct {
	TeamID      string `json:"team_id" validate:"required"`
	Description string `json:"description" validate:"required,max=2000"`
}

// PortalIncidentRequest is filed by a leader for the session team.
type PortalIncidentRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

// UpdateIncidentRequest moves an incident through its lifecycle.
type UpdateIncidentRequest struct {
	Status models.IncidentStatus `json:"status" validate:"required,oneof=open in_progress resolved"`
}

// IncidentQuery filters incident listing.
type IncidentQuery struct {
	TeamID string `form:"team_id"`
	Status string `form:"status"`
}

// CreateArtifactRequest adds an artifact to the catalog.
type CreateArtifactRequest struct {
	Name        string        `json:"name" validate:"required,max=120"`
	Rarity      models.Rarity `json:"rarity" validate:"required,oneof=Simples Ouro Diamante Platina Encantado"`
	Description string        `json:"description" validate:"max=2000"`
}

// AwardArtifactRequest gives an artifact to exactly one team or one student.
type AwardArtifactRequest struct {
	TeamID    string `json:"team_id" validate:"required_without=StudentID,excluded_with=StudentID"`
	StudentID string `json:"student_id" validate:"required_without=TeamID,excluded_with=TeamID"`
}

// PortalSnapshot is the leader view of their own team.
type PortalSnapshot struct {
	Team      TeamXPView             `json:"team"`
	RoomName  string                 `json:"room_name"`
	Members   []StudentStanding      `json:"members"`
	Artifacts []models.ArtifactAward `json:"artifacts"`
	Phase     *models.Phase          `json:"phase,omitempty"`
}
