package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

// Reporter tags stored on incidents.
const (
	ReporterTeacher = "teacher"
	ReporterLeader  = "leader"
)

type incidentStore interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, error)
	UpdateStatus(ctx context.Context, ownerID, id string, status models.IncidentStatus) error
}

type teamReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*models.Team, error)
}

// IncidentService records incidents reported against teams.
type IncidentService struct {
	repo      incidentStore
	teams     teamReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs the service.
func NewIncidentService(repo incidentStore, teams teamReader, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{repo: repo, teams: teams, validator: validate, logger: logger}
}

// Create files an incident. Leaders always file against their own team.
func (s *IncidentService) Create(ctx context.Context, actor models.Actor, req dto.CreateIncidentRequest) (*models.Incident, error) {
	reporter := ReporterTeacher
	if actor.Leader {
		req.TeamID = actor.TeamID
		reporter = ReporterLeader
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid incident payload")
	}
	if _, err := s.teams.GetByID(ctx, actor.OwnerID, req.TeamID); err != nil {
		return nil, repoError(err, "team not found", "failed to load team")
	}

	incident := &models.Incident{
		OwnerID:     actor.OwnerID,
		TeamID:      req.TeamID,
		Description: req.Description,
		Status:      models.IncidentOpen,
		ReportedBy:  reporter,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, repoError(err, "team not found", "failed to create incident")
	}
	return incident, nil
}

// List returns incidents, optionally filtered by team and status.
func (s *IncidentService) List(ctx context.Context, actor models.Actor, query dto.IncidentQuery) ([]models.Incident, error) {
	filter := models.IncidentFilter{OwnerID: actor.OwnerID, TeamID: query.TeamID, Status: models.IncidentStatus(query.Status)}
	if actor.Leader {
		filter.TeamID = actor.TeamID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown incident status")
	}
	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "incidents not found", "failed to list incidents")
	}
	return incidents, nil
}

// UpdateStatus moves an incident to any of the known statuses.
func (s *IncidentService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req dto.UpdateIncidentRequest) (*models.Incident, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot update incidents")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid incident status")
	}
	if err := s.repo.UpdateStatus(ctx, actor.OwnerID, id, req.Status); err != nil {
		return nil, repoError(err, "incident not found", "failed to update incident")
	}
	incident, err := s.repo.GetByID(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, repoError(err, "incident not found", "failed to load incident")
	}
	return incident, nil
}
