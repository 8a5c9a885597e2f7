package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classquest-api/internal/models"
)

// StudentRepository handles student roster reads and power flag writes.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, owner_id, room_id, team_id, name, class, power_used_this_phase, created_at`

// GetByID fetches a student inside the owner scope.
func (r *StudentRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND owner_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// List returns students matching the filter ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	return listStudents(ctx, r.db, filter)
}

func listStudents(ctx context.Context, q sqlx.QueryerContext, filter models.StudentFilter) ([]models.Student, error) {
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)))
	}
	if filter.TeamID != "" {
		args = append(args, filter.TeamID)
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY name`

	var students []models.Student
	if err := sqlx.SelectContext(ctx, q, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// SetPowerUsed updates one student's power flag.
func (r *StudentRepository) SetPowerUsed(ctx context.Context, ownerID, id string, used bool) error {
	const query = `UPDATE students SET power_used_this_phase = $3 WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, used)
	if err != nil {
		return fmt.Errorf("set power used: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check power update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetRoomPowerUsed updates the flag for every student of a room and returns how many changed.
func (r *StudentRepository) SetRoomPowerUsed(ctx context.Context, ownerID, roomID string, used bool) (int64, error) {
	const query = `UPDATE students SET power_used_this_phase = $3
	WHERE room_id = $1 AND owner_id = $2 AND power_used_this_phase <> $3`
	res, err := r.db.ExecContext(ctx, query, roomID, ownerID, used)
	if err != nil {
		return 0, fmt.Errorf("set room power used: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check room power rows: %w", err)
	}
	return rows, nil
}
