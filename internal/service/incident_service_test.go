package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type incidentRepoStub struct {
	items map[string]*models.Incident
}

func (s *incidentRepoStub) Create(ctx context.Context, incident *models.Incident) error {
	incident.ID = uuid.NewString()
	cp := *incident
	s.items[incident.ID] = &cp
	return nil
}

func (s *incidentRepoStub) GetByID(ctx context.Context, ownerID, id string) (*models.Incident, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (s *incidentRepoStub) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, error) {
	var out []models.Incident
	for _, item := range s.items {
		if filter.TeamID != "" && item.TeamID != filter.TeamID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *incidentRepoStub) UpdateStatus(ctx context.Context, ownerID, id string, status models.IncidentStatus) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	return nil
}

func newIncidentFixture() (*incidentRepoStub, *IncidentService) {
	store := newMemStore()
	store.addRoom("r1")
	store.addTeam("t1", "r1", 0)
	store.addTeam("t2", "r1", 0)
	repo := &incidentRepoStub{items: map[string]*models.Incident{}}
	return repo, NewIncidentService(repo, memTeams{store}, nil, nil)
}

func TestIncidentLifecycle(t *testing.T) {
	_, svc := newIncidentFixture()
	ctx := context.Background()

	incident, err := svc.Create(ctx, teacher(), dto.CreateIncidentRequest{TeamID: "t1", Description: "Conversa paralela"})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentOpen, incident.Status)
	assert.Equal(t, ReporterTeacher, incident.ReportedBy)

	updated, err := svc.UpdateStatus(ctx, teacher(), incident.ID, dto.UpdateIncidentRequest{Status: models.IncidentResolved})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentResolved, updated.Status)

	// Any status may follow any other.
	updated, err = svc.UpdateStatus(ctx, teacher(), incident.ID, dto.UpdateIncidentRequest{Status: models.IncidentOpen})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentOpen, updated.Status)

	_, err = svc.UpdateStatus(ctx, teacher(), incident.ID, dto.UpdateIncidentRequest{Status: "archived"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.UpdateStatus(ctx, teacher(), "missing", dto.UpdateIncidentRequest{Status: models.IncidentResolved})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLeaderIncidentsScopedToOwnTeam(t *testing.T) {
	_, svc := newIncidentFixture()
	ctx := context.Background()

	incident, err := svc.Create(ctx, leader("t2"), dto.CreateIncidentRequest{TeamID: "t1", Description: "Material quebrado"})
	require.NoError(t, err)
	assert.Equal(t, "t2", incident.TeamID)
	assert.Equal(t, ReporterLeader, incident.ReportedBy)

	_, err = svc.Create(ctx, teacher(), dto.CreateIncidentRequest{TeamID: "t1", Description: "Atraso"})
	require.NoError(t, err)

	own, err := svc.List(ctx, leader("t2"), dto.IncidentQuery{TeamID: "t1"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "t2", own[0].TeamID)

	all, err := svc.List(ctx, teacher(), dto.IncidentQuery{Status: "open"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, teacher(), dto.IncidentQuery{Status: "weird"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(ctx, leader("t2"), incident.ID, dto.UpdateIncidentRequest{Status: models.IncidentResolved})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, teacher(), dto.CreateIncidentRequest{TeamID: "t404", Description: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
