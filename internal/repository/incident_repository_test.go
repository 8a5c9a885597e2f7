package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/models"
)

func TestIncidentRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO incidents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	incident := &models.Incident{OwnerID: "owner", TeamID: "t1", Description: "barulho", ReportedBy: "leader"}
	require.NoError(t, repo.Create(context.Background(), incident))
	assert.NotEmpty(t, incident.ID)
	assert.Equal(t, models.IncidentOpen, incident.Status)

	mock.ExpectQuery(regexp.QuoteMeta("FROM incidents WHERE owner_id = $1 AND team_id = $2 AND status = $3")).
		WithArgs("owner", "t1", models.IncidentOpen).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "team_id", "description", "status", "reported_by", "created_at"}).
			AddRow(incident.ID, "owner", "t1", "barulho", "open", "leader", time.Now()))
	list, err := repo.List(context.Background(), models.IncidentFilter{OwnerID: "owner", TeamID: "t1", Status: models.IncidentOpen})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE incidents SET status = $3")).
		WithArgs("i1", "owner", models.IncidentResolved).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), "owner", "i1", models.IncidentResolved)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
