package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

func newLedgerFixture(t *testing.T) (*grantFixture, *LedgerService) {
	t.Helper()
	f := newGrantFixture(testRules())
	svc := NewLedgerService(memLedger{f.store}, memActivities{f.store}, f.notifier, f.metrics, nil)
	return f, svc
}

func TestReverseRestoresAggregates(t *testing.T) {
	f, svc := newLedgerFixture(t)
	_, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "lab", TeamIDs: []string{"t1"}, GrantID: "g0"})
	require.NoError(t, err)
	before := f.teamXP(t, "t1")

	res, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "lab", TeamIDs: []string{"t1"}, GrantID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, 40, f.store.crystals("t1"))

	reversed, err := svc.Reverse(context.Background(), teacher(), res.Entries[0].ID)
	require.NoError(t, err)
	assert.True(t, reversed.Entry.Reversed)
	assert.Equal(t, 20, reversed.CrystalsReversed)
	assert.Equal(t, before, f.teamXP(t, "t1"))
	assert.Equal(t, 20, f.store.crystals("t1"))
	assert.Equal(t, uint64(1), f.metrics.Snapshot().Reversals)
}

func TestReverseTwiceFails(t *testing.T) {
	f, svc := newLedgerFixture(t)
	res, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "quiz", StudentIDs: []string{"a"}})
	require.NoError(t, err)
	id := res.Entries[0].ID

	_, err = svc.Reverse(context.Background(), teacher(), id)
	require.NoError(t, err)
	xp := f.studentXP(t, "a")

	_, err = svc.Reverse(context.Background(), teacher(), id)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyReversed)
	assert.Equal(t, xp, f.studentXP(t, "a"))
	assert.Equal(t, uint64(1), f.metrics.Snapshot().Reversals)
}

func TestReverseClampsCrystalsAtBalance(t *testing.T) {
	f, svc := newLedgerFixture(t)
	res, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "lab", TeamIDs: []string{"t1"}})
	require.NoError(t, err)
	f.store.teams["t1"].Crystals = 5

	reversed, err := svc.Reverse(context.Background(), teacher(), res.Entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reversed.CrystalsReversed)
	assert.Zero(t, f.store.crystals("t1"))
}

func TestReverseErrors(t *testing.T) {
	_, svc := newLedgerFixture(t)

	_, err := svc.Reverse(context.Background(), teacher(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Reverse(context.Background(), leader("t1"), "missing")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestHistoryResolvesActivityNames(t *testing.T) {
	f, svc := newLedgerFixture(t)
	_, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "lab", TeamIDs: []string{"t1", "t2"}})
	require.NoError(t, err)
	res, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "quiz", StudentIDs: []string{"c"}})
	require.NoError(t, err)
	_, err = svc.Reverse(context.Background(), teacher(), res.Entries[0].ID)
	require.NoError(t, err)

	views, err := svc.History(context.Background(), teacher(), dto.LedgerQuery{RoomID: "r1"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, "Atividade lab", v.ActivityName)
	}

	all, err := svc.History(context.Background(), teacher(), dto.LedgerQuery{RoomID: "r1", IncludeReversed: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := svc.History(context.Background(), leader("t2"), dto.LedgerQuery{TeamID: "t1"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, []string{"t2"}, own[0].TeamIDs)
	assert.Equal(t, models.AttributeTeam, own[0].AttributedTo)
}

func TestLeaderHistoryIgnoresStudentFilter(t *testing.T) {
	f, svc := newLedgerFixture(t)
	ctx := context.Background()
	_, err := f.svc.Grant(ctx, teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "lab", TeamIDs: []string{"t2"}})
	require.NoError(t, err)
	_, err = f.svc.Grant(ctx, teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "quiz", StudentIDs: []string{"a"}})
	require.NoError(t, err)

	views, err := svc.History(ctx, leader("t2"), dto.LedgerQuery{StudentID: "a"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []string{"t2"}, views[0].TeamIDs)
	assert.Empty(t, views[0].StudentIDs)

	byStudent, err := svc.History(ctx, teacher(), dto.LedgerQuery{StudentID: "a"})
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	assert.Equal(t, []string{"a"}, byStudent[0].StudentIDs)
}
