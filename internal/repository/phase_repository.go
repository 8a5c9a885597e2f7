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
	"github.com/noah-isme/classquest-api/pkg/database"
)

// PhaseTransition reports what a phase start changed.
type PhaseTransition struct {
	Started       models.Phase `json:"started"`
	ClosedPhaseID *string      `json:"closed_phase_id,omitempty"`
	StudentsReset int64        `json:"students_reset"`
}

// PhaseRepository persists phases and the per-phase power reset.
type PhaseRepository struct {
	db *sqlx.DB
}

// NewPhaseRepository constructs the repository.
func NewPhaseRepository(db *sqlx.DB) *PhaseRepository {
	return &PhaseRepository{db: db}
}

const phaseColumns = `id, owner_id, name, started_at, ended_at, active`

// Start closes the owner's active phase, opens a new one and clears every student's power
// flag, all in one transaction.
func (r *PhaseRepository) Start(ctx context.Context, ownerID, name string) (*PhaseTransition, error) {
	now := time.Now().UTC()
	out := &PhaseTransition{Started: models.Phase{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		StartedAt: now,
		Active:    true,
	}}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var closed []string
		if err := tx.SelectContext(ctx, &closed,
			`UPDATE phases SET active = FALSE, ended_at = $2 WHERE owner_id = $1 AND active = TRUE RETURNING id`, ownerID, now); err != nil {
			return fmt.Errorf("close active phase: %w", err)
		}
		if len(closed) > 0 {
			out.ClosedPhaseID = &closed[0]
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO phases (id, owner_id, name, started_at, ended_at, active)
	VALUES (:id, :owner_id, :name, :started_at, :ended_at, :active)`, &out.Started); err != nil {
			return fmt.Errorf("insert phase: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE students SET power_used_this_phase = FALSE WHERE owner_id = $1`, ownerID)
		if err != nil {
			return fmt.Errorf("reset power flags: %w", err)
		}
		if out.StudentsReset, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("check reset rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Active returns the owner's active phase or sql.ErrNoRows.
func (r *PhaseRepository) Active(ctx context.Context, ownerID string) (*models.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE owner_id = $1 AND active = TRUE`
	var phase models.Phase
	if err := r.db.GetContext(ctx, &phase, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get active phase: %w", err)
	}
	return &phase, nil
}

// List returns the owner's phases, newest first.
func (r *PhaseRepository) List(ctx context.Context, ownerID string) ([]models.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE owner_id = $1 ORDER BY started_at DESC`
	var phases []models.Phase
	if err := r.db.SelectContext(ctx, &phases, query, ownerID); err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	return phases, nil
}
