package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

const maxLedgerPage = 500

type ledgerStore interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
	Reverse(ctx context.Context, ownerID, id string) (*models.LedgerEntry, int, error)
}

type activityCatalog interface {
	List(ctx context.Context, ownerID string) ([]models.ActivityType, error)
}

// LedgerService exposes ledger history and reversals.
type LedgerService struct {
	ledger     ledgerStore
	activities activityCatalog
	notifier   StandingsNotifier
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewLedgerService constructs the service.
func NewLedgerService(ledger ledgerStore, activities activityCatalog, notifier StandingsNotifier, metrics *MetricsService, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{ledger: ledger, activities: activities, notifier: notifier, metrics: metrics, logger: logger}
}

// Reverse marks an entry reversed and takes back the crystals it credited. Reversing twice
// fails with ALREADY_REVERSED and changes nothing.
func (s *LedgerService) Reverse(ctx context.Context, actor models.Actor, id string) (*dto.ReverseResult, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot reverse ledger entries")
	}
	entry, crystals, err := s.ledger.Reverse(ctx, actor.OwnerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyReversed) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReversed, "")
		}
		return nil, repoError(err, "ledger entry not found", "failed to reverse ledger entry")
	}

	s.metrics.RecordReversal()
	s.logger.Info("ledger entry reversed",
		zap.String("entry_id", entry.ID),
		zap.Int("xp", entry.XP),
		zap.Int("crystals_reversed", crystals),
	)
	if s.notifier != nil {
		s.notifier.RoomChanged(ctx, actor.OwnerID, entry.RoomID)
	}
	return &dto.ReverseResult{Entry: *entry, CrystalsReversed: crystals}, nil
}

// History lists entries newest first with activity names resolved.
func (s *LedgerService) History(ctx context.Context, actor models.Actor, query dto.LedgerQuery) ([]dto.LedgerEntryView, error) {
	filter := models.LedgerFilter{
		OwnerID:         actor.OwnerID,
		RoomID:          query.RoomID,
		IncludeReversed: query.IncludeReversed,
		Limit:           query.Limit,
		Offset:          query.Offset,
	}
	if actor.Leader {
		query.TeamID = actor.TeamID
		query.StudentID = ""
	}
	if query.TeamID != "" {
		filter.TeamIDs = []string{query.TeamID}
	}
	if query.StudentID != "" {
		filter.StudentIDs = []string{query.StudentID}
	}
	if filter.Limit <= 0 || filter.Limit > maxLedgerPage {
		filter.Limit = maxLedgerPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "ledger not found", "failed to list ledger entries")
	}
	catalog, err := s.activities.List(ctx, actor.OwnerID)
	if err != nil {
		return nil, repoError(err, "activity types not found", "failed to load activity types")
	}
	names := make(map[string]string, len(catalog))
	for _, a := range catalog {
		names[a.ID] = a.Name
	}

	views := make([]dto.LedgerEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, dto.LedgerEntryView{LedgerEntry: entry, ActivityName: names[entry.ActivityTypeID]})
	}
	return views, nil
}
