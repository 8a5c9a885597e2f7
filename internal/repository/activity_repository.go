package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
)

// ActivityRepository reads the activity type catalog.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, owner_id, name, description, xp, mode, is_bonus, created_at`

// GetByID fetches an activity type inside the owner scope.
func (r *ActivityRepository) GetByID(ctx context.Context, ownerID, id string) (*models.ActivityType, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_types WHERE id = $1 AND owner_id = $2`
	var activity models.ActivityType
	if err := r.db.GetContext(ctx, &activity, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get activity type: %w", err)
	}
	return &activity, nil
}

// List returns the owner's catalog.
func (r *ActivityRepository) List(ctx context.Context, ownerID string) ([]models.ActivityType, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_types WHERE owner_id = $1 ORDER BY name`
	var activities []models.ActivityType
	if err := r.db.SelectContext(ctx, &activities, query, ownerID); err != nil {
		return nil, fmt.Errorf("list activity types: %w", err)
	}
	return activities, nil
}
