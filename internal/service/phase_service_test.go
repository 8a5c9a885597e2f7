package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type memPhases struct {
	*memStore
	phases   []models.Phase
	startErr error
}

func (r *memPhases) Start(ctx context.Context, ownerID, name string) (*repository.PhaseTransition, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	out := &repository.PhaseTransition{}
	for i := range r.phases {
		if r.phases[i].OwnerID == ownerID && r.phases[i].Active {
			r.phases[i].Active = false
			r.phases[i].EndedAt = &now
			id := r.phases[i].ID
			out.ClosedPhaseID = &id
		}
	}
	for _, s := range r.students {
		if s.OwnerID == ownerID && s.PowerUsedThisPhase {
			s.PowerUsedThisPhase = false
			out.StudentsReset++
		}
	}
	out.Started = models.Phase{ID: uuid.NewString(), OwnerID: ownerID, Name: name, StartedAt: now, Active: true}
	r.phases = append(r.phases, out.Started)
	return out, nil
}

func (r *memPhases) Active(ctx context.Context, ownerID string) (*models.Phase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.phases {
		if p.OwnerID == ownerID && p.Active {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memPhases) List(ctx context.Context, ownerID string) ([]models.Phase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Phase
	for i := len(r.phases) - 1; i >= 0; i-- {
		if r.phases[i].OwnerID == ownerID {
			out = append(out, r.phases[i])
		}
	}
	return out, nil
}

func TestStartPhaseClearsPowerUsage(t *testing.T) {
	store := newMemStore()
	store.addRoom("r1")
	store.addTeam("t1", "r1", 0)
	store.addStudent("a", "r1", "t1", models.ClassCommunicator)
	store.addStudent("b", "r1", "t1", models.ClassEngineer)
	store.addStudent("c", "r1", "", models.ClassResearcher)
	store.students["a"].PowerUsedThisPhase = true
	store.students["c"].PowerUsedThisPhase = true
	phases := &memPhases{memStore: store}
	notifier := &notifierSpy{}
	svc := NewPhaseService(phases, memRooms{store}, notifier, nil, nil)

	active, err := svc.Active(context.Background(), teacher())
	require.NoError(t, err)
	assert.Nil(t, active)

	first, err := svc.Start(context.Background(), teacher(), dto.StartPhaseRequest{RoomID: "r1", Name: "Fase 1"})
	require.NoError(t, err)
	assert.Nil(t, first.ClosedPhaseID)
	assert.Equal(t, int64(2), first.StudentsReset)
	for _, s := range store.students {
		assert.False(t, s.PowerUsedThisPhase, s.ID)
	}

	store.students["b"].PowerUsedThisPhase = true
	second, err := svc.Start(context.Background(), teacher(), dto.StartPhaseRequest{RoomID: "r1", Name: "Fase 2"})
	require.NoError(t, err)
	require.NotNil(t, second.ClosedPhaseID)
	assert.Equal(t, first.Started.ID, *second.ClosedPhaseID)
	assert.False(t, store.students["b"].PowerUsedThisPhase)

	active, err = svc.Active(context.Background(), teacher())
	require.NoError(t, err)
	assert.Equal(t, "Fase 2", active.Name)

	list, err := svc.List(context.Background(), teacher())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[1].Active)
	assert.Equal(t, []string{"r1", "r1"}, notifier.calls())
}

func TestStartPhaseRejections(t *testing.T) {
	store := newMemStore()
	store.addRoom("r1")
	phases := &memPhases{memStore: store}
	svc := NewPhaseService(phases, memRooms{store}, nil, nil, nil)

	_, err := svc.Start(context.Background(), leader("t1"), dto.StartPhaseRequest{RoomID: "r1", Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Start(context.Background(), teacher(), dto.StartPhaseRequest{RoomID: "r1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Start(context.Background(), teacher(), dto.StartPhaseRequest{RoomID: "nope", Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	phases.startErr = errors.New("deadlock detected")
	_, err = svc.Start(context.Background(), teacher(), dto.StartPhaseRequest{RoomID: "r1", Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrStorage)
	assert.Empty(t, phases.phases)
}
