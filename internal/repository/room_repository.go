package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
)

// RoomRepository reads rooms of a teacher.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = `id, owner_id, name, grade_label, shift, status, created_at`

// GetByID fetches a room inside the owner scope.
func (r *RoomRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 AND owner_id = $2`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// List returns the owner's rooms ordered by name.
func (r *RoomRepository) List(ctx context.Context, ownerID string) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE owner_id = $1 ORDER BY name`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, ownerID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}
