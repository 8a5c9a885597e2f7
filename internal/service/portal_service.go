package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/progression"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

const (
	leaderCodeDigits   = 6
	leaderCodeAttempts = 5
)

var leaderCodeSpace = big.NewInt(1_000_000)

type leaderCodeStore interface {
	GetByLeaderCode(ctx context.Context, code string) (*models.Team, error)
	SetLeaderCode(ctx context.Context, ownerID, id, code string) error
}

type activePhaseReader interface {
	Active(ctx context.Context, ownerID string) (*models.Phase, error)
}

type teamArtifactReader interface {
	ListForTeam(ctx context.Context, ownerID, teamID string) ([]models.ArtifactAward, error)
}

// PortalService authenticates team leaders by access code and builds their team view.
type PortalService struct {
	teams     leaderCodeStore
	ledger    teamLedgerReader
	rooms     roomReader
	phases    activePhaseReader
	artifacts teamArtifactReader
	rules     config.GameConfig
	logger    *zap.Logger
	generate  func() (string, error)
}

// NewPortalService constructs the service.
func NewPortalService(
	teams leaderCodeStore,
	ledger teamLedgerReader,
	rooms roomReader,
	phases activePhaseReader,
	artifacts teamArtifactReader,
	rules config.GameConfig,
	logger *zap.Logger,
) *PortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalService{
		teams:     teams,
		ledger:    ledger,
		rooms:     rooms,
		phases:    phases,
		artifacts: artifacts,
		rules:     rules,
		logger:    logger,
		generate:  generateLeaderCode,
	}
}

// Resolve returns the team owning code. Malformed and unknown codes are both unauthorized.
func (s *PortalService) Resolve(ctx context.Context, code string) (*models.Team, error) {
	if !validLeaderCode(code) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid leader code")
	}
	team, err := s.teams.GetByLeaderCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid leader code")
		}
		return nil, appErrors.Storage(err, "failed to resolve leader code")
	}
	return team, nil
}

// IssueCode assigns a fresh unique code to a team, replacing any previous one.
func (s *PortalService) IssueCode(ctx context.Context, actor models.Actor, teamID string) (*dto.LeaderCodeResult, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot issue codes")
	}
	for attempt := 1; attempt <= leaderCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate leader code")
		}
		err = s.teams.SetLeaderCode(ctx, actor.OwnerID, teamID, code)
		if errors.Is(err, repository.ErrDuplicateLeaderCode) {
			s.logger.Debug("leader code collision", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, repoError(err, "team not found", "failed to store leader code")
		}
		return &dto.LeaderCodeResult{TeamID: teamID, Code: code}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique leader code, try again")
}

// Snapshot is the leader's view of their own team.
func (s *PortalService) Snapshot(ctx context.Context, actor models.Actor) (*dto.PortalSnapshot, error) {
	ledger, err := s.ledger.TeamLedger(ctx, nil, actor.OwnerID, actor.TeamID)
	if err != nil {
		return nil, repoError(err, "team not found", "failed to load team ledger")
	}
	team := teamView(ledger, s.rules)

	members := make([]dto.StudentStanding, 0, len(ledger.Members))
	for _, member := range ledger.Members {
		members = append(members, dto.StudentStanding{
			StudentXPView: studentView(member, studentXP(member.ID, ledger.Entries)),
			PowerUnlocked: progression.IsPowerUnlocked(member.Class, team.Level.Number),
			PowerUsed:     member.PowerUsedThisPhase,
		})
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].XP != members[j].XP {
			return members[i].XP > members[j].XP
		}
		return members[i].Name < members[j].Name
	})
	for i := range members {
		members[i].Rank = i + 1
	}

	snapshot := &dto.PortalSnapshot{Team: team, Members: members}
	if room, err := s.rooms.GetByID(ctx, actor.OwnerID, ledger.Team.RoomID); err == nil {
		snapshot.RoomName = room.Name
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Storage(err, "failed to load room")
	}
	if snapshot.Artifacts, err = s.artifacts.ListForTeam(ctx, actor.OwnerID, actor.TeamID); err != nil {
		return nil, repoError(err, "team not found", "failed to list artifacts")
	}
	phase, err := s.phases.Active(ctx, actor.OwnerID)
	switch {
	case err == nil:
		snapshot.Phase = phase
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Storage(err, "failed to load active phase")
	}
	return snapshot, nil
}

func generateLeaderCode() (string, error) {
	n, err := rand.Int(rand.Reader, leaderCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", leaderCodeDigits, n.Int64()), nil
}

func validLeaderCode(code string) bool {
	if len(code) != leaderCodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
