package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/middleware/requestid"
)

// grantAttempts bounds the retries of a single entry write. Keys are deterministic so a
// retry never applies an entry twice.
const grantAttempts = 3

type grantLedger interface {
	ClaimGrant(ctx context.Context, ownerID, grantID, fingerprint string) error
	InsertEntry(ctx context.Context, entry *models.LedgerEntry, credits []repository.CrystalCredit) (bool, error)
}

type activityReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*models.ActivityType, error)
}

type roomReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*models.Room, error)
}

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type teamLister interface {
	List(ctx context.Context, filter models.TeamFilter) ([]models.Team, error)
}

// StandingsNotifier is told whenever a write may have changed a room's totals.
type StandingsNotifier interface {
	RoomChanged(ctx context.Context, ownerID, roomID string)
}

type plannedEntry struct {
	entry   models.LedgerEntry
	credits []repository.CrystalCredit
	teamID  string
	xp      int
}

func (p plannedEntry) crystals() int {
	total := 0
	for _, c := range p.credits {
		total += c.Amount
	}
	return total
}

// GrantService appends activity grants, completion bonuses and crystal accruals to the ledger.
type GrantService struct {
	ledger     grantLedger
	activities activityReader
	rooms      roomReader
	students   studentLister
	teams      teamLister
	notifier   StandingsNotifier
	metrics    *MetricsService
	rules      config.GameConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGrantService constructs the service. notifier and metrics may be nil.
func NewGrantService(
	ledger grantLedger,
	activities activityReader,
	rooms roomReader,
	students studentLister,
	teams teamLister,
	notifier StandingsNotifier,
	metrics *MetricsService,
	rules config.GameConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *GrantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrantService{
		ledger:     ledger,
		activities: activities,
		rooms:      rooms,
		students:   students,
		teams:      teams,
		notifier:   notifier,
		metrics:    metrics,
		rules:      rules,
		validator:  validate,
		logger:     logger,
	}
}

// Grant awards an activity to the given students or teams of a room. Everything is validated
// before the first write. Each ledger entry is atomic with its crystal credits; if some team
// entries cannot be written the call fails with PARTIAL_GRANT and repeating it with the same
// grant id completes only what is missing. A grant id reused for a different request fails with
// CONFLICT before anything is written.
func (s *GrantService) Grant(ctx context.Context, actor models.Actor, req dto.GrantRequest) (*dto.GrantResult, error) {
	if actor.Leader {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders cannot grant XP")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grant payload")
	}

	room, err := s.rooms.GetByID(ctx, actor.OwnerID, req.RoomID)
	if err != nil {
		return nil, repoError(err, "room not found", "failed to load room")
	}
	activity, err := s.activities.GetByID(ctx, actor.OwnerID, req.ActivityTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "activity type not found")
		}
		return nil, repoError(err, "activity type not found", "failed to load activity type")
	}

	grantID := s.grantID(ctx, req.GrantID)
	var (
		plan       []plannedEntry
		bonusTeams []string
		targets    []string
	)
	switch activity.Mode {
	case models.ModePerStudent:
		if len(req.TeamIDs) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "per-student activities take student_ids")
		}
		targets = uniqueIDs(req.StudentIDs)
		plan, bonusTeams, err = s.planStudents(ctx, actor, room, activity, grantID, targets)
	case models.ModePerTeam:
		if len(req.StudentIDs) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "per-team activities take team_ids")
		}
		targets = uniqueIDs(req.TeamIDs)
		plan, err = s.planTeams(ctx, actor, room, activity, grantID, targets)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("activity type has unknown mode %q", activity.Mode))
	}
	if err != nil {
		return nil, err
	}

	if err := s.ledger.ClaimGrant(ctx, actor.OwnerID, grantID, grantFingerprint(room.ID, activity.ID, targets)); err != nil {
		if errors.Is(err, repository.ErrGrantIDReused) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("grant id %s was already used for a different grant", grantID))
		}
		s.logger.Error("grant claim failed", zap.String("grant_id", grantID), zap.Error(err))
		return nil, appErrors.Storage(err, "failed to record grant")
	}

	return s.apply(ctx, actor, room.ID, grantID, plan, bonusTeams)
}

func (s *GrantService) planStudents(ctx context.Context, actor models.Actor, room *models.Room, activity *models.ActivityType, grantID string, ids []string) ([]plannedEntry, []string, error) {
	if len(ids) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "student_ids must not be empty")
	}
	roster, err := s.students.List(ctx, models.StudentFilter{OwnerID: actor.OwnerID, RoomID: room.ID})
	if err != nil {
		return nil, nil, repoError(err, "room not found", "failed to load room roster")
	}
	teams, err := s.teams.List(ctx, models.TeamFilter{OwnerID: actor.OwnerID, RoomID: room.ID})
	if err != nil {
		return nil, nil, repoError(err, "room not found", "failed to load room teams")
	}

	inRoom := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		inRoom[student.ID] = struct{}{}
	}
	targeted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := inRoom[id]; !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in room %s", id, room.ID))
		}
		targeted[id] = struct{}{}
	}

	members := make(map[string]int)
	hits := make(map[string]int)
	for _, student := range roster {
		if student.TeamID == nil {
			continue
		}
		members[*student.TeamID]++
		if _, ok := targeted[student.ID]; ok {
			hits[*student.TeamID]++
		}
	}

	students := plannedEntry{
		entry: models.LedgerEntry{
			OwnerID:        actor.OwnerID,
			RoomID:         room.ID,
			ActivityTypeID: activity.ID,
			GrantID:        grantID,
			IdempotencyKey: grantID + ":students",
			Kind:           models.EntryKindGrant,
			AttributedTo:   models.AttributeStudent,
			XP:             activity.XP,
			StudentIDs:     ids,
		},
		xp: activity.XP * len(ids),
	}
	for _, team := range teams {
		if amount := crystalsFor(activity.XP*hits[team.ID], s.rules); amount > 0 {
			students.credits = append(students.credits, repository.CrystalCredit{TeamID: team.ID, Amount: amount})
		}
	}
	plan := []plannedEntry{students}

	var bonusTeams []string
	bonus := s.rules.CompletionBonusXP
	if bonus <= 0 {
		return plan, nil, nil
	}
	for _, team := range teams {
		if members[team.ID] == 0 || hits[team.ID] != members[team.ID] {
			continue
		}
		entry := plannedEntry{
			entry: models.LedgerEntry{
				OwnerID:        actor.OwnerID,
				RoomID:         room.ID,
				ActivityTypeID: activity.ID,
				GrantID:        grantID,
				IdempotencyKey: grantID + ":bonus:" + team.ID,
				Kind:           models.EntryKindCompletionBonus,
				AttributedTo:   models.AttributeTeam,
				XP:             bonus,
				TeamIDs:        []string{team.ID},
			},
			teamID: team.ID,
			xp:     bonus,
		}
		if amount := crystalsFor(bonus, s.rules); amount > 0 {
			entry.credits = []repository.CrystalCredit{{TeamID: team.ID, Amount: amount}}
		}
		plan = append(plan, entry)
		bonusTeams = append(bonusTeams, team.ID)
	}
	return plan, bonusTeams, nil
}

func (s *GrantService) planTeams(ctx context.Context, actor models.Actor, room *models.Room, activity *models.ActivityType, grantID string, ids []string) ([]plannedEntry, error) {
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "team_ids must not be empty")
	}
	teams, err := s.teams.List(ctx, models.TeamFilter{OwnerID: actor.OwnerID, RoomID: room.ID, IDs: ids})
	if err != nil {
		return nil, repoError(err, "room not found", "failed to load teams")
	}
	found := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		found[team.ID] = struct{}{}
	}

	plan := make([]plannedEntry, 0, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("team %s is not in room %s", id, room.ID))
		}
		entry := plannedEntry{
			entry: models.LedgerEntry{
				OwnerID:        actor.OwnerID,
				RoomID:         room.ID,
				ActivityTypeID: activity.ID,
				GrantID:        grantID,
				IdempotencyKey: grantID + ":team:" + id,
				Kind:           models.EntryKindGrant,
				AttributedTo:   models.AttributeTeam,
				XP:             activity.XP,
				TeamIDs:        []string{id},
			},
			teamID: id,
			xp:     activity.XP,
		}
		if amount := crystalsFor(activity.XP, s.rules); amount > 0 {
			entry.credits = []repository.CrystalCredit{{TeamID: id, Amount: amount}}
		}
		plan = append(plan, entry)
	}
	return plan, nil
}

func (s *GrantService) apply(ctx context.Context, actor models.Actor, roomID, grantID string, plan []plannedEntry, bonusTeams []string) (*dto.GrantResult, error) {
	result := &dto.GrantResult{GrantID: grantID, BonusTeamIDs: bonusTeams}
	details := dto.PartialGrantDetails{GrantID: grantID}
	var firstErr error

	for i := range plan {
		p := &plan[i]
		inserted, err := s.insert(ctx, p)
		if err != nil {
			s.logger.Error("grant entry failed",
				zap.String("grant_id", grantID),
				zap.String("idempotency_key", p.entry.IdempotencyKey),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			if p.teamID == "" {
				// Bonuses hang off the student entry; without it nothing else is written.
				return nil, appErrors.Storage(err, "failed to record grant")
			}
			details.FailedTeams = append(details.FailedTeams, p.teamID)
			continue
		}

		if p.teamID == "" {
			details.StudentsEntry = true
		} else {
			details.AppliedTeams = append(details.AppliedTeams, p.teamID)
		}
		xp := p.xp
		if !inserted {
			xp = p.entry.XP * len(p.entry.Attribution().IDs)
		}
		result.XPGranted += xp
		result.CrystalsGranted += p.crystals()
		result.Entries = append(result.Entries, p.entry)
		if inserted {
			s.metrics.RecordGrant(p.xp, p.crystals())
		} else {
			s.logger.Debug("grant entry already recorded", zap.String("idempotency_key", p.entry.IdempotencyKey))
		}
	}

	if len(result.Entries) > 0 && s.notifier != nil {
		s.notifier.RoomChanged(ctx, actor.OwnerID, roomID)
	}
	if len(details.FailedTeams) == 0 {
		return result, nil
	}
	if len(result.Entries) == 0 {
		return nil, appErrors.Storage(firstErr, "failed to record grant")
	}
	partial := appErrors.WithDetails(appErrors.Clone(appErrors.ErrPartialGrant, ""), details)
	partial.Err = firstErr
	return nil, partial
}

func (s *GrantService) insert(ctx context.Context, p *plannedEntry) (bool, error) {
	var err error
	for attempt := 1; attempt <= grantAttempts; attempt++ {
		entry := p.entry
		var inserted bool
		inserted, err = s.ledger.InsertEntry(ctx, &entry, p.credits)
		if err == nil {
			p.entry = entry
			return inserted, nil
		}
		if ctx.Err() != nil {
			return false, err
		}
		s.logger.Warn("retrying grant entry",
			zap.String("idempotency_key", p.entry.IdempotencyKey),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return false, err
}

// grantID prefers the caller's id, then the request id, so client retries land on the same keys.
func (s *GrantService) grantID(ctx context.Context, requested string) string {
	if requested != "" {
		return requested
	}
	if id := requestid.FromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// grantFingerprint identifies the request a grant id was first used for. Target order is
// irrelevant.
func grantFingerprint(roomID, activityID string, targets []string) string {
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(roomID + "\x00" + activityID + "\x00" + strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
