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

	"github.com/noah-isme/classquest-api/internal/models"
)

// IncidentRepository persists team incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentColumns = `id, owner_id, team_id, description, status, reported_by, created_at`

// Create inserts a new incident.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if incident.Status == "" {
		incident.Status = models.IncidentOpen
	}
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO incidents (id, owner_id, team_id, description, status, reported_by, created_at)
	VALUES (:id, :owner_id, :team_id, :description, :status, :reported_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetByID fetches an incident inside the owner scope.
func (r *IncidentRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 AND owner_id = $2`
	var incident models.Incident
	if err := r.db.GetContext(ctx, &incident, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &incident, nil
}

// List returns incidents matching the filter, newest first.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, error) {
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}
	if filter.TeamID != "" {
		args = append(args, filter.TeamID)
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`
	var incidents []models.Incident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateStatus sets the status of an incident.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, ownerID, id string, status models.IncidentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE incidents SET status = $3 WHERE id = $1 AND owner_id = $2`, id, ownerID, status)
	if err != nil {
		return fmt.Errorf("update incident status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check incident rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
