package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type artifactStore interface {
	Create(ctx context.Context, artifact *models.Artifact) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Artifact, error)
	List(ctx context.Context, ownerID string) ([]models.Artifact, error)
	Award(ctx context.Context, award *models.ArtifactAward) error
	ListForTeam(ctx context.Context, ownerID, teamID string) ([]models.ArtifactAward, error)
}

// ArtifactService manages the collectible catalog and its awards. Artifacts carry no XP.
type ArtifactService struct {
	repo      artifactStore
	teams     teamReader
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewArtifactService constructs the service.
func NewArtifactService(repo artifactStore, teams teamReader, students studentReader, validate *validator.Validate, logger *zap.Logger) *ArtifactService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactService{repo: repo, teams: teams, students: students, validator: validate, logger: logger}
}

func (s *ArtifactService) Create(ctx context.Context, actor models.Actor, req dto.CreateArtifactRequest) (*models.Artifact, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot edit the artifact catalog")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid artifact payload")
	}
	artifact := &models.Artifact{OwnerID: actor.OwnerID, Name: req.Name, Rarity: req.Rarity, Description: req.Description}
	if err := s.repo.Create(ctx, artifact); err != nil {
		return nil, repoError(err, "artifact not found", "failed to create artifact")
	}
	return artifact, nil
}

func (s *ArtifactService) List(ctx context.Context, actor models.Actor) ([]models.Artifact, error) {
	artifacts, err := s.repo.List(ctx, actor.OwnerID)
	if err != nil {
		return nil, repoError(err, "artifacts not found", "failed to list artifacts")
	}
	return artifacts, nil
}

// Award gives an artifact to exactly one team or one student.
func (s *ArtifactService) Award(ctx context.Context, actor models.Actor, artifactID string, req dto.AwardArtifactRequest) (*models.ArtifactAward, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot award artifacts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "award needs exactly one of team_id or student_id")
	}
	artifact, err := s.repo.GetByID(ctx, actor.OwnerID, artifactID)
	if err != nil {
		return nil, repoError(err, "artifact not found", "failed to load artifact")
	}

	award := &models.ArtifactAward{OwnerID: actor.OwnerID, ArtifactID: artifact.ID, ArtifactName: artifact.Name, Rarity: artifact.Rarity}
	if req.TeamID != "" {
		if _, err := s.teams.GetByID(ctx, actor.OwnerID, req.TeamID); err != nil {
			return nil, repoError(err, "team not found", "failed to load team")
		}
		award.TeamID = &req.TeamID
	} else {
		if _, err := s.students.GetByID(ctx, actor.OwnerID, req.StudentID); err != nil {
			return nil, repoError(err, "student not found", "failed to load student")
		}
		award.StudentID = &req.StudentID
	}
	if err := s.repo.Award(ctx, award); err != nil {
		return nil, repoError(err, "artifact not found", "failed to award artifact")
	}
	return award, nil
}

// ListForTeam returns the artifacts held by a team and its current members.
func (s *ArtifactService) ListForTeam(ctx context.Context, actor models.Actor, teamID string) ([]models.ArtifactAward, error) {
	if actor.Leader && actor.TeamID != teamID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders can only read their own team")
	}
	if _, err := s.teams.GetByID(ctx, actor.OwnerID, teamID); err != nil {
		return nil, repoError(err, "team not found", "failed to load team")
	}
	awards, err := s.repo.ListForTeam(ctx, actor.OwnerID, teamID)
	if err != nil {
		return nil, repoError(err, "team not found", "failed to list artifacts")
	}
	return awards, nil
}
