package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/progression"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type powerStore interface {
	GetByID(ctx context.Context, ownerID, id string) (*models.Student, error)
	SetPowerUsed(ctx context.Context, ownerID, id string, used bool) error
	SetRoomPowerUsed(ctx context.Context, ownerID, roomID string, used bool) (int64, error)
}

// PowerService tracks per-phase power usage.
type PowerService struct {
	students powerStore
	ledger   teamLedgerReader
	rooms    roomReader
	notifier StandingsNotifier
	rules    config.GameConfig
	logger   *zap.Logger
}

// NewPowerService constructs the service.
func NewPowerService(students powerStore, ledger teamLedgerReader, rooms roomReader, notifier StandingsNotifier, rules config.GameConfig, logger *zap.Logger) *PowerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PowerService{students: students, ledger: ledger, rooms: rooms, notifier: notifier, rules: rules, logger: logger}
}

// SetUsed marks or clears a student's power usage. Marking requires the power to be
// unlocked at the team's current level.
func (s *PowerService) SetUsed(ctx context.Context, actor models.Actor, studentID string, used bool) (*models.Student, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot change power usage")
	}
	student, err := s.students.GetByID(ctx, actor.OwnerID, studentID)
	if err != nil {
		return nil, repoError(err, "student not found", "failed to load student")
	}

	if used {
		if student.TeamID == nil {
			return nil, appErrors.Clone(appErrors.ErrPowerLocked, "student has no team")
		}
		ledger, err := s.ledger.TeamLedger(ctx, nil, actor.OwnerID, *student.TeamID)
		if err != nil {
			return nil, repoError(err, "team not found", "failed to load team ledger")
		}
		level := progression.LevelFor(TeamLedgerXP(ledger, s.rules))
		if !progression.IsPowerUnlocked(student.Class, level.Number) {
			power, _ := progression.PowerFor(student.Class)
			return nil, appErrors.Clone(appErrors.ErrPowerLocked,
				fmt.Sprintf("%s power unlocks at level %d, team is level %d", student.Class, power.RequiredLevel, level.Number))
		}
	}

	if err := s.students.SetPowerUsed(ctx, actor.OwnerID, student.ID, used); err != nil {
		return nil, repoError(err, "student not found", "failed to update power usage")
	}
	student.PowerUsedThisPhase = used
	if s.notifier != nil {
		s.notifier.RoomChanged(ctx, actor.OwnerID, student.RoomID)
	}
	return student, nil
}

// SetRoomUsed sets the flag for every student of a room and returns how many rows changed.
// It is a teacher override and does not check unlocks.
func (s *PowerService) SetRoomUsed(ctx context.Context, actor models.Actor, roomID string, used bool) (int64, error) {
	if actor.Leader {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot change power usage")
	}
	if _, err := s.rooms.GetByID(ctx, actor.OwnerID, roomID); err != nil {
		return 0, repoError(err, "room not found", "failed to load room")
	}
	n, err := s.students.SetRoomPowerUsed(ctx, actor.OwnerID, roomID, used)
	if err != nil {
		return 0, repoError(err, "room not found", "failed to update power usage")
	}
	s.logger.Info("room power usage updated", zap.String("room_id", roomID), zap.Bool("used", used), zap.Int64("students", n))
	if s.notifier != nil {
		s.notifier.RoomChanged(ctx, actor.OwnerID, roomID)
	}
	return n, nil
}
