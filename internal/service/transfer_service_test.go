package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type memTransfers struct {
	*memStore
	log []models.Transfer
	err error
}

func (r *memTransfers) Transfer(ctx context.Context, params repository.TransferParams) (*models.Transfer, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	student := r.students[params.StudentID]
	if !student.OnTeam(params.FromTeamID) {
		return nil, repository.ErrMembershipChanged
	}
	if r.teams[params.FromTeamID].RoomID != r.teams[params.ToTeamID].RoomID {
		return nil, repository.ErrCrossRoom
	}
	used := 0
	for _, tr := range r.log {
		if tr.FromTeamID == params.FromTeamID {
			used++
		}
	}
	if params.LimitPerPhase > 0 && used >= params.LimitPerPhase {
		return nil, repository.ErrTransferLimit
	}
	to := params.ToTeamID
	student.TeamID = &to
	tr := models.Transfer{ID: uuid.NewString(), OwnerID: params.OwnerID, StudentID: student.ID, FromTeamID: params.FromTeamID, ToTeamID: to}
	r.log = append(r.log, tr)
	return &tr, nil
}

func (r *memTransfers) List(ctx context.Context, filter repository.TransferFilter) ([]models.Transfer, error) {
	var out []models.Transfer
	for _, tr := range r.log {
		if filter.StudentID != "" && tr.StudentID != filter.StudentID {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

func TestTransferMovesStudentXPWithStudent(t *testing.T) {
	f := newGrantFixture(testRules())
	_, err := f.svc.Grant(context.Background(), teacher(), dto.GrantRequest{RoomID: "r1", ActivityTypeID: "quiz", StudentIDs: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, 3, f.teamXP(t, "t1"))

	transfers := &memTransfers{memStore: f.store}
	svc := NewTransferService(transfers, memStudents{f.store}, f.notifier, testRules(), nil, nil)

	tr, err := svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "a", FromTeamID: "t1", ToTeamID: "t2"})
	require.NoError(t, err)
	assert.Equal(t, "t2", tr.ToTeamID)

	assert.Equal(t, 0, f.teamXP(t, "t1"))
	assert.Equal(t, 3, f.teamXP(t, "t2"))
	assert.Equal(t, 3, f.studentXP(t, "a"))
	assert.Contains(t, f.notifier.calls(), "r1")

	log, err := svc.List(context.Background(), teacher(), "a", "")
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestTransferErrorMapping(t *testing.T) {
	f := newGrantFixture(testRules())
	transfers := &memTransfers{memStore: f.store}
	svc := NewTransferService(transfers, memStudents{f.store}, nil, testRules(), nil, nil)

	_, err := svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "c", FromTeamID: "t1", ToTeamID: "t2"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "a", FromTeamID: "t1", ToTeamID: "t9"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "a", FromTeamID: "t1", ToTeamID: "t1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "a", FromTeamID: "t1", ToTeamID: "t2"})
	require.NoError(t, err)
	_, err = svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "b", FromTeamID: "t1", ToTeamID: "t2"})
	assert.ErrorIs(t, err, appErrors.ErrTransferLimit)

	_, err = svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "ghost", FromTeamID: "t1", ToTeamID: "t2"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Transfer(context.Background(), leader("t1"), dto.TransferRequest{StudentID: "b", FromTeamID: "t1", ToTeamID: "t2"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	transfers.err = errors.New("connection refused")
	_, err = svc.Transfer(context.Background(), teacher(), dto.TransferRequest{StudentID: "d", FromTeamID: "t2", ToTeamID: "t1"})
	assert.ErrorIs(t, err, appErrors.ErrStorage)
}
