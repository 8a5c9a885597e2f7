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

// TeamRepository reads teams and manages leader codes.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs the repository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, owner_id, room_id, name, leader_code, crystals, created_at`

// GetByID fetches a team inside the owner scope.
func (r *TeamRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 AND owner_id = $2`
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &team, nil
}

// GetByLeaderCode resolves a portal access code. Codes are globally unique.
func (r *TeamRepository) GetByLeaderCode(ctx context.Context, code string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE leader_code = $1`
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get team by leader code: %w", err)
	}
	return &team, nil
}

// List returns teams matching the filter ordered by name.
func (r *TeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, error) {
	return listTeams(ctx, r.db, filter)
}

func listTeams(ctx context.Context, q sqlx.QueryerContext, filter models.TeamFilter) ([]models.Team, error) {
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY name`

	var teams []models.Team
	if err := sqlx.SelectContext(ctx, q, &teams, query, args...); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// SetLeaderCode stores a new access code. A code held by another team yields ErrDuplicateLeaderCode.
func (r *TeamRepository) SetLeaderCode(ctx context.Context, ownerID, id, code string) error {
	const query = `UPDATE teams SET leader_code = $3 WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, code)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLeaderCode
		}
		return fmt.Errorf("set leader code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check leader code rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
