package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/progression"
	"github.com/noah-isme/classquest-api/pkg/cache"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/export"
	"github.com/noah-isme/classquest-api/pkg/jobs"
)

// JobStandingsRefresh is the job type that recomputes a room's cached standings.
const JobStandingsRefresh = "standings.refresh"

// Standings kinds, also used as cache key suffixes.
const (
	StandingsTeams    = "teams"
	StandingsStudents = "students"
)

type roomLedgerReader interface {
	RoomLedger(ctx context.Context, ownerID, roomID string) (*models.RoomLedger, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type standingsRefresh struct {
	OwnerID string
	RoomID  string
}

// StandingsExport is a rendered standings document.
type StandingsExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// StandingsService ranks the teams and students of a room and keeps the ranking cached.
type StandingsService struct {
	ledger roomLedgerReader
	rooms  roomReader
	cache  *CacheService
	queue  jobEnqueuer
	rules  config.GameConfig
	ttl    time.Duration
	logger *zap.Logger
}

// NewStandingsService constructs the service. cache and queue may be nil.
func NewStandingsService(ledger roomLedgerReader, rooms roomReader, cacheSvc *CacheService, queue jobEnqueuer, rules config.GameConfig, ttl time.Duration, logger *zap.Logger) *StandingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandingsService{ledger: ledger, rooms: rooms, cache: cacheSvc, queue: queue, rules: rules, ttl: ttl, logger: logger}
}

// SetQueue attaches the refresh queue once it has been built around HandleRefresh.
func (s *StandingsService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Teams returns the team ranking of a room, best first.
func (s *StandingsService) Teams(ctx context.Context, actor models.Actor, roomID string) ([]dto.TeamStanding, error) {
	if _, err := s.rooms.GetByID(ctx, actor.OwnerID, roomID); err != nil {
		return nil, repoError(err, "room not found", "failed to load room")
	}
	var cached []dto.TeamStanding
	if gen, ok := s.cache.Generation(ctx, cache.StandingsGenerationKey(roomID)); ok &&
		s.cache.Get(ctx, cache.StandingsKey(roomID, gen, StandingsTeams), &cached) {
		return cached, nil
	}
	teams, _, err := s.compute(ctx, actor.OwnerID, roomID)
	return teams, err
}

// Students returns the individual ranking of a room, best first.
func (s *StandingsService) Students(ctx context.Context, actor models.Actor, roomID string) ([]dto.StudentStanding, error) {
	if _, err := s.rooms.GetByID(ctx, actor.OwnerID, roomID); err != nil {
		return nil, repoError(err, "room not found", "failed to load room")
	}
	var cached []dto.StudentStanding
	if gen, ok := s.cache.Generation(ctx, cache.StandingsGenerationKey(roomID)); ok &&
		s.cache.Get(ctx, cache.StandingsKey(roomID, gen, StandingsStudents), &cached) {
		return cached, nil
	}
	_, students, err := s.compute(ctx, actor.OwnerID, roomID)
	return students, err
}

// Export renders one of the rankings as CSV or PDF.
func (s *StandingsService) Export(ctx context.Context, actor models.Actor, roomID, kind, format string) (*StandingsExport, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, validationError(err, "unsupported export format")
	}
	room, err := s.rooms.GetByID(ctx, actor.OwnerID, roomID)
	if err != nil {
		return nil, repoError(err, "room not found", "failed to load room")
	}

	var table export.Table
	switch kind {
	case "", StandingsTeams:
		kind = StandingsTeams
		teams, err := s.Teams(ctx, actor, roomID)
		if err != nil {
			return nil, err
		}
		table = teamTable(room.Name, teams)
	case StandingsStudents:
		students, err := s.Students(ctx, actor, roomID)
		if err != nil {
			return nil, err
		}
		table = studentTable(room.Name, students)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown standings kind %q", kind))
	}

	renderer := export.ForFormat(f)
	body, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render standings")
	}
	return &StandingsExport{
		Filename:    fmt.Sprintf("standings-%s-%s.%s", kind, roomID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// RoomChanged moves the room to a new cache generation, drops the old rankings and schedules
// a recompute.
func (s *StandingsService) RoomChanged(ctx context.Context, ownerID, roomID string) {
	s.cache.Bump(ctx, cache.StandingsGenerationKey(roomID))
	s.cache.Invalidate(ctx, cache.StandingsPattern(roomID))
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobStandingsRefresh,
		Key:     JobStandingsRefresh + ":" + roomID,
		Payload: standingsRefresh{OwnerID: ownerID, RoomID: roomID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to schedule standings refresh", zap.String("room_id", roomID), zap.Error(err))
	}
}

// HandleRefresh is the queue handler for JobStandingsRefresh.
func (s *StandingsService) HandleRefresh(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(standingsRefresh)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	_, _, err := s.compute(ctx, payload.OwnerID, payload.RoomID)
	return err
}

func (s *StandingsService) compute(ctx context.Context, ownerID, roomID string) ([]dto.TeamStanding, []dto.StudentStanding, error) {
	// The generation is read before the ledger. A write committed during the load bumps it,
	// so a ranking that misses that write lands under a key no later read uses.
	gen, cacheable := s.cache.Generation(ctx, cache.StandingsGenerationKey(roomID))
	ledger, err := s.ledger.RoomLedger(ctx, ownerID, roomID)
	if err != nil {
		return nil, nil, repoError(err, "room not found", "failed to load room ledger")
	}
	teams, students := rankRoom(ledger, s.rules)
	if cacheable {
		s.cache.Set(ctx, cache.StandingsKey(roomID, gen, StandingsTeams), teams, s.ttl)
		s.cache.Set(ctx, cache.StandingsKey(roomID, gen, StandingsStudents), students, s.ttl)
	}
	return teams, students, nil
}

// rankRoom totals every team and student of a room in one pass over the entries.
func rankRoom(ledger *models.RoomLedger, rules config.GameConfig) ([]dto.TeamStanding, []dto.StudentStanding) {
	direct := make(map[string]int)
	individual := make(map[string]int)
	for _, entry := range ledger.Entries {
		if entry.Reversed {
			continue
		}
		attribution := entry.Attribution()
		for _, id := range attribution.IDs {
			if attribution.Kind == models.AttributeTeam {
				direct[id] += entry.XP
			} else {
				individual[id] += entry.XP
			}
		}
	}

	raw := make(map[string]int, len(ledger.Teams))
	members := make(map[string]int, len(ledger.Teams))
	for _, team := range ledger.Teams {
		raw[team.ID] = direct[team.ID]
	}
	for _, student := range ledger.Students {
		if student.TeamID == nil {
			continue
		}
		raw[*student.TeamID] += individual[student.ID]
		members[*student.TeamID]++
	}

	teams := make([]dto.TeamStanding, 0, len(ledger.Teams))
	levels := make(map[string]int, len(ledger.Teams))
	for _, team := range ledger.Teams {
		xp := teamXP(raw[team.ID], ledger.SpentXP[team.ID], rules)
		view := buildTeamView(team, xp)
		levels[team.ID] = view.Level.Number
		teams = append(teams, dto.TeamStanding{TeamXPView: view, Members: members[team.ID]})
	}
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].XP != teams[j].XP {
			return teams[i].XP > teams[j].XP
		}
		return teams[i].Name < teams[j].Name
	})
	for i := range teams {
		teams[i].Rank = i + 1
	}

	students := make([]dto.StudentStanding, 0, len(ledger.Students))
	for _, student := range ledger.Students {
		xp := individual[student.ID]
		if xp < 0 {
			xp = 0
		}
		level := 0
		if student.TeamID != nil {
			level = levels[*student.TeamID]
		}
		students = append(students, dto.StudentStanding{
			StudentXPView: studentView(student, xp),
			PowerUnlocked: progression.IsPowerUnlocked(student.Class, level),
			PowerUsed:     student.PowerUsedThisPhase,
		})
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].XP != students[j].XP {
			return students[i].XP > students[j].XP
		}
		return students[i].Name < students[j].Name
	})
	for i := range students {
		students[i].Rank = i + 1
	}
	return teams, students
}

func teamTable(roomName string, teams []dto.TeamStanding) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("%s - team standings", roomName),
		Columns: []string{"Rank", "Team", "Level", "XP", "Progress", "Crystals", "Members"},
	}
	for _, t := range teams {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(t.Rank),
			t.Name,
			fmt.Sprintf("%d - %s", t.Level.Number, t.Level.Name),
			strconv.Itoa(t.XP),
			fmt.Sprintf("%.0f%%", t.Progress.Percent),
			strconv.Itoa(t.Crystals),
			strconv.Itoa(t.Members),
		})
	}
	return table
}

func studentTable(roomName string, students []dto.StudentStanding) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("%s - student standings", roomName),
		Columns: []string{"Rank", "Student", "Class", "XP", "Power"},
	}
	for _, st := range students {
		power := "locked"
		switch {
		case st.PowerUsed:
			power = "used"
		case st.PowerUnlocked:
			power = "available"
		}
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(st.Rank),
			st.Name,
			st.Class,
			strconv.Itoa(st.XP),
			power,
		})
	}
	return table
}
