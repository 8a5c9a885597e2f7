package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
)

// ArtifactRepository persists the artifact catalog and awards.
type ArtifactRepository struct {
	db *sqlx.DB
}

// NewArtifactRepository constructs the repository.
func NewArtifactRepository(db *sqlx.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create inserts a catalog artifact.
func (r *ArtifactRepository) Create(ctx context.Context, artifact *models.Artifact) error {
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO artifacts (id, owner_id, name, rarity, description, created_at)
	VALUES (:id, :owner_id, :name, :rarity, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, artifact); err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

// GetByID fetches an artifact inside the owner scope.
func (r *ArtifactRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Artifact, error) {
	const query = `SELECT id, owner_id, name, rarity, description, created_at FROM artifacts WHERE id = $1 AND owner_id = $2`
	var artifact models.Artifact
	if err := r.db.GetContext(ctx, &artifact, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return &artifact, nil
}

// List returns the owner's catalog.
func (r *ArtifactRepository) List(ctx context.Context, ownerID string) ([]models.Artifact, error) {
	const query = `SELECT id, owner_id, name, rarity, description, created_at FROM artifacts WHERE owner_id = $1 ORDER BY name`
	var artifacts []models.Artifact
	if err := r.db.SelectContext(ctx, &artifacts, query, ownerID); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return artifacts, nil
}

// Award records an artifact given to a team or a student.
func (r *ArtifactRepository) Award(ctx context.Context, award *models.ArtifactAward) error {
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	if award.AwardedAt.IsZero() {
		award.AwardedAt = time.Now().UTC()
	}
	const query = `INSERT INTO artifact_awards (id, owner_id, artifact_id, team_id, student_id, awarded_at)
	VALUES (:id, :owner_id, :artifact_id, :team_id, :student_id, :awarded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, award); err != nil {
		return fmt.Errorf("award artifact: %w", err)
	}
	return nil
}

// ListForTeam returns awards held by the team and by its current members, newest first.
func (r *ArtifactRepository) ListForTeam(ctx context.Context, ownerID, teamID string) ([]models.ArtifactAward, error) {
	const query = `SELECT aw.id, aw.owner_id, aw.artifact_id, aw.team_id, aw.student_id, aw.awarded_at,
       a.name AS artifact_name, a.rarity
	FROM artifact_awards aw
	JOIN artifacts a ON a.id = aw.artifact_id
	WHERE aw.owner_id = $1
	AND (aw.team_id = $2 OR aw.student_id IN (SELECT id FROM students WHERE team_id = $2))
	ORDER BY aw.awarded_at DESC`
	var awards []models.ArtifactAward
	if err := r.db.SelectContext(ctx, &awards, query, ownerID, teamID); err != nil {
		return nil, fmt.Errorf("list team artifacts: %w", err)
	}
	return awards, nil
}
