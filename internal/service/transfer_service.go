package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type transferStore interface {
	Transfer(ctx context.Context, params repository.TransferParams) (*models.Transfer, error)
	List(ctx context.Context, filter repository.TransferFilter) ([]models.Transfer, error)
}

// TransferService moves students between teams. No XP moves with the student: their own
// entries follow them and count toward whichever team they are on.
type TransferService struct {
	repo      transferStore
	students  studentReader
	notifier  StandingsNotifier
	rules     config.GameConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTransferService constructs the service.
func NewTransferService(repo transferStore, students studentReader, notifier StandingsNotifier, rules config.GameConfig, validate *validator.Validate, logger *zap.Logger) *TransferService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{repo: repo, students: students, notifier: notifier, rules: rules, validator: validate, logger: logger}
}

// Transfer moves a student from one team to another of the same room.
func (s *TransferService) Transfer(ctx context.Context, actor models.Actor, req dto.TransferRequest) (*models.Transfer, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot transfer students")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid transfer payload")
	}
	student, err := s.students.GetByID(ctx, actor.OwnerID, req.StudentID)
	if err != nil {
		return nil, repoError(err, "student not found", "failed to load student")
	}

	transfer, err := s.repo.Transfer(ctx, repository.TransferParams{
		OwnerID:       actor.OwnerID,
		StudentID:     req.StudentID,
		FromTeamID:    req.FromTeamID,
		ToTeamID:      req.ToTeamID,
		LimitPerPhase: s.rules.TransfersPerPhase,
	})
	switch {
	case errors.Is(err, repository.ErrMembershipChanged):
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not on the origin team")
	case errors.Is(err, repository.ErrCrossRoom):
		return nil, appErrors.Clone(appErrors.ErrValidation, "teams belong to different rooms")
	case errors.Is(err, repository.ErrTransferLimit):
		return nil, appErrors.Clone(appErrors.ErrTransferLimit, "")
	case err != nil:
		return nil, repoError(err, "team not found", "failed to transfer student")
	}

	s.logger.Info("student transferred",
		zap.String("student_id", transfer.StudentID),
		zap.String("from_team_id", transfer.FromTeamID),
		zap.String("to_team_id", transfer.ToTeamID),
	)
	if s.notifier != nil {
		s.notifier.RoomChanged(ctx, actor.OwnerID, student.RoomID)
	}
	return transfer, nil
}

// List returns the transfer log filtered by student or team.
func (s *TransferService) List(ctx context.Context, actor models.Actor, studentID, teamID string) ([]models.Transfer, error) {
	transfers, err := s.repo.List(ctx, repository.TransferFilter{OwnerID: actor.OwnerID, StudentID: studentID, TeamID: teamID})
	if err != nil {
		return nil, repoError(err, "transfers not found", "failed to list transfers")
	}
	return transfers, nil
}
