package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

func testRules() config.GameConfig {
	return config.GameConfig{
		CurrencyMode:      config.CurrencyCrystals,
		CompletionBonusXP: 10,
		CrystalStep:       10,
		TransfersPerPhase: 1,
	}
}

func studentEntry(xp int, ids ...string) models.LedgerEntry {
	return models.LedgerEntry{AttributedTo: models.AttributeStudent, XP: xp, StudentIDs: ids}
}

func teamEntry(xp int, ids ...string) models.LedgerEntry {
	return models.LedgerEntry{AttributedTo: models.AttributeTeam, XP: xp, TeamIDs: ids}
}

func TestTeamRawXPCountsCurrentMembersOnly(t *testing.T) {
	members := map[string]struct{}{"a": {}, "b": {}}
	entries := []models.LedgerEntry{
		studentEntry(5, "a", "b", "z"),
		teamEntry(7, "t1"),
		teamEntry(100, "t2"),
		studentEntry(50, "z"),
	}

	assert.Equal(t, 17, teamRawXP("t1", members, entries))
}

func TestReversedEntriesNeverCount(t *testing.T) {
	members := map[string]struct{}{"a": {}}
	base := []models.LedgerEntry{studentEntry(4, "a"), teamEntry(6, "t1")}

	for _, extra := range []models.LedgerEntry{studentEntry(30, "a"), teamEntry(-20, "t1")} {
		extra.Reversed = true
		with := append(append([]models.LedgerEntry{}, base...), extra)
		assert.Equal(t, teamRawXP("t1", members, base), teamRawXP("t1", members, with))
		assert.Equal(t, studentXP("a", base), studentXP("a", with))
	}
}

func TestTotalsNeverNegative(t *testing.T) {
	rules := testRules()
	members := map[string]struct{}{"a": {}}
	entries := []models.LedgerEntry{teamEntry(-15, "t1"), studentEntry(-3, "a")}

	assert.Equal(t, -18, teamRawXP("t1", members, entries))
	assert.Equal(t, 0, teamXP(teamRawXP("t1", members, entries), 0, rules))
	assert.Equal(t, 0, studentXP("a", entries))
}

func TestTeamXPSubtractsSpendOnlyInXPMode(t *testing.T) {
	crystals := testRules()
	legacy := testRules()
	legacy.CurrencyMode = config.CurrencyXP

	assert.Equal(t, 120, teamXP(120, 50, crystals))
	assert.Equal(t, 70, teamXP(120, 50, legacy))
	assert.Equal(t, 0, teamXP(20, 50, legacy))
}

func TestCrystalsFor(t *testing.T) {
	rules := testRules()
	cases := map[int]int{-10: 0, 0: 0, 6: 0, 10: 10, 25: 20, 99: 90}
	for xp, want := range cases {
		assert.Equal(t, want, crystalsFor(xp, rules), "xp=%d", xp)
	}

	legacy := testRules()
	legacy.CurrencyMode = config.CurrencyXP
	assert.Zero(t, crystalsFor(50, legacy))
}

func TestProgressServiceTeamXP(t *testing.T) {
	store := newMemStore()
	store.addRoom("r1")
	store.addTeam("t1", "r1", 0)
	store.addStudent("a", "r1", "t1", models.ClassCommunicator)
	store.entries = append(store.entries,
		&models.LedgerEntry{ID: "e1", OwnerID: testOwner, RoomID: "r1", AttributedTo: models.AttributeTeam, XP: 150, TeamIDs: []string{"t1"}},
		&models.LedgerEntry{ID: "e2", OwnerID: testOwner, RoomID: "r1", AttributedTo: models.AttributeStudent, XP: 40, StudentIDs: []string{"a"}},
	)
	svc := NewProgressService(memLedger{store}, memStudents{store}, testRules(), nil)

	view, err := svc.TeamXP(context.Background(), teacher(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 190, view.XP)
	assert.Equal(t, 3, view.Level.Number)

	student, err := svc.StudentXP(context.Background(), teacher(), "a")
	require.NoError(t, err)
	assert.Equal(t, 40, student.XP)

	_, err = svc.TeamXP(context.Background(), teacher(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestProgressServiceLeaderScope(t *testing.T) {
	store := newMemStore()
	store.addRoom("r1")
	store.addTeam("t1", "r1", 0)
	store.addTeam("t2", "r1", 0)
	store.addStudent("a", "r1", "t1", models.ClassEngineer)
	store.addStudent("b", "r1", "t2", models.ClassEngineer)
	svc := NewProgressService(memLedger{store}, memStudents{store}, testRules(), nil)

	_, err := svc.TeamXP(context.Background(), leader("t1"), "t1")
	require.NoError(t, err)
	_, err = svc.TeamXP(context.Background(), leader("t1"), "t2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.StudentXP(context.Background(), leader("t1"), "a")
	require.NoError(t, err)
	_, err = svc.StudentXP(context.Background(), leader("t1"), "b")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
