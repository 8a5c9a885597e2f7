package models

import "time"

// Rarity grades collectible artifacts.
type Rarity string

const (
	RaritySimple    Rarity = "Simples"
	RarityGold      Rarity = "Ouro"
	RarityDiamond   Rarity = "Diamante"
	RarityPlatinum  Rarity = "Platina"
	RarityEnchanted Rarity = "Encantado"
)

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	switch r {
	case RaritySimple, RarityGold, RarityDiamond, RarityPlatinum, RarityEnchanted:
		return true
	}
	return false
}

// Artifact is a catalog collectible.
type Artifact struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	Rarity      Rarity    `db:"rarity" json:"rarity"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ArtifactAward assigns an artifact to exactly one team or one student.
type ArtifactAward struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	ArtifactID string    `db:"artifact_id" json:"artifact_id"`
	TeamID     *string   `db:"team_id" json:"team_id,omitempty"`
	StudentID  *string   `db:"student_id" json:"student_id,omitempty"`
	AwardedAt  time.Time `db:"awarded_at" json:"awarded_at"`

	ArtifactName string `db:"artifact_name" json:"artifact_name,omitempty"`
	Rarity       Rarity `db:"rarity" json:"rarity,omitempty"`
}
