package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/progression"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type progressLedger interface {
	TeamLedger(ctx context.Context, q sqlx.QueryerContext, ownerID, teamID string) (*models.TeamLedger, error)
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
}

type studentReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*models.Student, error)
}

// ProgressService derives team and student totals from the ledger.
type ProgressService struct {
	ledger   progressLedger
	students studentReader
	rules    config.GameConfig
	logger   *zap.Logger
}

// NewProgressService constructs the service.
func NewProgressService(ledger progressLedger, students studentReader, rules config.GameConfig, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{ledger: ledger, students: students, rules: rules, logger: logger}
}

// TeamXP returns the team's derived XP, level and progress.
func (s *ProgressService) TeamXP(ctx context.Context, actor models.Actor, teamID string) (*dto.TeamXPView, error) {
	if actor.Leader && actor.TeamID != teamID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders can only read their own team")
	}
	ledger, err := s.ledger.TeamLedger(ctx, nil, actor.OwnerID, teamID)
	if err != nil {
		return nil, repoError(err, "team not found", "failed to load team ledger")
	}
	view := teamView(ledger, s.rules)
	return &view, nil
}

// StudentXP returns the student's individual XP.
func (s *ProgressService) StudentXP(ctx context.Context, actor models.Actor, studentID string) (*dto.StudentXPView, error) {
	student, err := s.students.GetByID(ctx, actor.OwnerID, studentID)
	if err != nil {
		return nil, repoError(err, "student not found", "failed to load student")
	}
	if actor.Leader && !student.OnTeam(actor.TeamID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not on the session team")
	}
	entries, err := s.ledger.List(ctx, models.LedgerFilter{OwnerID: actor.OwnerID, StudentIDs: []string{student.ID}})
	if err != nil {
		return nil, repoError(err, "student not found", "failed to load student ledger")
	}
	view := studentView(*student, studentXP(student.ID, entries))
	return &view, nil
}

// teamRawXP sums live entries that credit teamID directly plus student entries for each
// current member. Student entries for former members no longer count.
func teamRawXP(teamID string, members map[string]struct{}, entries []models.LedgerEntry) int {
	total := 0
	for _, entry := range entries {
		if entry.Reversed {
			continue
		}
		attribution := entry.Attribution()
		switch attribution.Kind {
		case models.AttributeTeam:
			if attribution.Includes(teamID) {
				total += entry.XP
			}
		case models.AttributeStudent:
			for _, id := range attribution.IDs {
				if _, ok := members[id]; ok {
					total += entry.XP
				}
			}
		}
	}
	return total
}

// teamXP applies the shop spend (XP currency only) and the floor at zero.
func teamXP(raw, spentXP int, rules config.GameConfig) int {
	if !rules.CrystalBacked() {
		raw -= spentXP
	}
	if raw < 0 {
		return 0
	}
	return raw
}

// studentXP sums live student entries naming studentID, floored at zero.
func studentXP(studentID string, entries []models.LedgerEntry) int {
	total := 0
	for _, entry := range entries {
		if entry.Reversed {
			continue
		}
		attribution := entry.Attribution()
		if attribution.Kind == models.AttributeStudent && attribution.Includes(studentID) {
			total += entry.XP
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

func memberSet(members []models.Student) map[string]struct{} {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m.ID] = struct{}{}
	}
	return set
}

// TeamLedgerXP totals a loaded team ledger.
func TeamLedgerXP(ledger *models.TeamLedger, rules config.GameConfig) int {
	raw := teamRawXP(ledger.Team.ID, memberSet(ledger.Members), ledger.Entries)
	return teamXP(raw, ledger.SpentXP, rules)
}

func teamView(ledger *models.TeamLedger, rules config.GameConfig) dto.TeamXPView {
	xp := TeamLedgerXP(ledger, rules)
	return buildTeamView(ledger.Team, xp)
}

func buildTeamView(team models.Team, xp int) dto.TeamXPView {
	return dto.TeamXPView{
		TeamID:   team.ID,
		RoomID:   team.RoomID,
		Name:     team.Name,
		XP:       xp,
		Crystals: team.Crystals,
		Level:    progression.LevelFor(xp),
		Progress: progression.ProgressToNext(xp),
	}
}

func studentView(student models.Student, xp int) dto.StudentXPView {
	return dto.StudentXPView{
		StudentID: student.ID,
		RoomID:    student.RoomID,
		TeamID:    student.TeamID,
		Name:      student.Name,
		Class:     string(student.Class),
		XP:        xp,
	}
}

// crystalsFor is the crystal accrual for a positive XP amount: whole steps only.
func crystalsFor(xp int, rules config.GameConfig) int {
	if !rules.CrystalBacked() || xp <= 0 {
		return 0
	}
	step := rules.CrystalStep
	if step <= 0 {
		step = 10
	}
	return xp / step * step
}
