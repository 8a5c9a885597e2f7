package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type phaseStore interface {
	Start(ctx context.Context, ownerID, name string) (*repository.PhaseTransition, error)
	Active(ctx context.Context, ownerID string) (*models.Phase, error)
	List(ctx context.Context, ownerID string) ([]models.Phase, error)
}

// PhaseService opens phases. Opening one closes the previous phase and clears every
// student's power usage in the owner's scope.
type PhaseService struct {
	repo      phaseStore
	rooms     roomReader
	notifier  StandingsNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPhaseService constructs the service.
func NewPhaseService(repo phaseStore, rooms roomReader, notifier StandingsNotifier, validate *validator.Validate, logger *zap.Logger) *PhaseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhaseService{repo: repo, rooms: rooms, notifier: notifier, validator: validate, logger: logger}
}

// Start opens a new phase for the room's owner.
func (s *PhaseService) Start(ctx context.Context, actor models.Actor, req dto.StartPhaseRequest) (*repository.PhaseTransition, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot start phases")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid phase payload")
	}
	if _, err := s.rooms.GetByID(ctx, actor.OwnerID, req.RoomID); err != nil {
		return nil, repoError(err, "room not found", "failed to load room")
	}

	transition, err := s.repo.Start(ctx, actor.OwnerID, req.Name)
	if err != nil {
		return nil, repoError(err, "phase not found", "failed to start phase")
	}
	fields := []zap.Field{
		zap.String("phase_id", transition.Started.ID),
		zap.Int64("students_reset", transition.StudentsReset),
	}
	if transition.ClosedPhaseID != nil {
		fields = append(fields, zap.String("closed_phase_id", *transition.ClosedPhaseID))
	}
	s.logger.Info("phase started", fields...)

	if s.notifier != nil {
		s.notifier.RoomChanged(ctx, actor.OwnerID, req.RoomID)
	}
	return transition, nil
}

// Active returns the owner's active phase or nil when none is open.
func (s *PhaseService) Active(ctx context.Context, actor models.Actor) (*models.Phase, error) {
	phase, err := s.repo.Active(ctx, actor.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoError(err, "phase not found", "failed to load active phase")
	}
	return phase, nil
}

// List returns the owner's phases, newest first.
func (s *PhaseService) List(ctx context.Context, actor models.Actor) ([]models.Phase, error) {
	phases, err := s.repo.List(ctx, actor.OwnerID)
	if err != nil {
		return nil, repoError(err, "phases not found", "failed to list phases")
	}
	return phases, nil
}
