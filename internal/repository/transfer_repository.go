package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/database"
)

// TransferParams describes a move; LimitPerPhase 0 means unlimited.
type TransferParams struct {
	OwnerID       string
	StudentID     string
	FromTeamID    string
	ToTeamID      string
	LimitPerPhase int
}

// TransferFilter constrains transfer listing.
type TransferFilter struct {
	OwnerID   string
	StudentID string
	TeamID    string
	PhaseID   string
}

// TransferRepository moves students between teams and keeps the transfer log.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository constructs the repository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Transfer locks the student, checks the move against current membership, room and the
// per-phase limit, updates the student's team and appends the log row.
func (r *TransferRepository) Transfer(ctx context.Context, params TransferParams) (*models.Transfer, error) {
	var transfer models.Transfer
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var student models.Student
		if err := tx.GetContext(ctx, &student,
			`SELECT `+studentColumns+` FROM students WHERE id = $1 AND owner_id = $2 FOR UPDATE`, params.StudentID, params.OwnerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock student: %w", err)
		}
		if !student.OnTeam(params.FromTeamID) {
			return ErrMembershipChanged
		}

		var teams []struct {
			ID     string `db:"id"`
			RoomID string `db:"room_id"`
		}
		if err := tx.SelectContext(ctx, &teams,
			`SELECT id, room_id FROM teams WHERE owner_id = $1 AND id = ANY($2) ORDER BY id FOR UPDATE`,
			params.OwnerID, pq.Array([]string{params.FromTeamID, params.ToTeamID})); err != nil {
			return fmt.Errorf("lock teams: %w", err)
		}
		if len(teams) != 2 {
			return sql.ErrNoRows
		}
		for _, team := range teams {
			if team.RoomID != student.RoomID {
				return ErrCrossRoom
			}
		}

		var phaseID *string
		var active []string
		if err := tx.SelectContext(ctx, &active, `SELECT id FROM phases WHERE owner_id = $1 AND active = TRUE`, params.OwnerID); err != nil {
			return fmt.Errorf("load active phase: %w", err)
		}
		if len(active) > 0 {
			phaseID = &active[0]
		}
		if params.LimitPerPhase > 0 && phaseID != nil {
			var used int
			if err := tx.GetContext(ctx, &used,
				`SELECT COUNT(*) FROM transfers WHERE phase_id = $1 AND from_team_id = $2`, *phaseID, params.FromTeamID); err != nil {
				return fmt.Errorf("count phase transfers: %w", err)
			}
			if used >= params.LimitPerPhase {
				return ErrTransferLimit
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE students SET team_id = $2 WHERE id = $1`, student.ID, params.ToTeamID); err != nil {
			return fmt.Errorf("move student: %w", err)
		}
		transfer = models.Transfer{
			ID:         uuid.NewString(),
			OwnerID:    params.OwnerID,
			StudentID:  student.ID,
			FromTeamID: params.FromTeamID,
			ToTeamID:   params.ToTeamID,
			PhaseID:    phaseID,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO transfers (id, owner_id, student_id, from_team_id, to_team_id, phase_id, created_at)
	VALUES (:id, :owner_id, :student_id, :from_team_id, :to_team_id, :phase_id, :created_at)`, &transfer); err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// List returns transfers matching the filter, newest first.
func (r *TransferRepository) List(ctx context.Context, filter TransferFilter) ([]models.Transfer, error) {
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TeamID != "" {
		args = append(args, filter.TeamID)
		conditions = append(conditions, fmt.Sprintf("(from_team_id = $%d OR to_team_id = $%d)", len(args), len(args)))
	}
	if filter.PhaseID != "" {
		args = append(args, filter.PhaseID)
		conditions = append(conditions, fmt.Sprintf("phase_id = $%d", len(args)))
	}
	query := `SELECT id, owner_id, student_id, from_team_id, to_team_id, phase_id, created_at FROM transfers WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`
	var transfers []models.Transfer
	if err := r.db.SelectContext(ctx, &transfers, query, args...); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}
