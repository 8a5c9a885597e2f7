package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseStartClosesPreviousAndResetsPowers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE phases SET active = FALSE, ended_at = $2 WHERE owner_id = $1 AND active = TRUE RETURNING id")).
		WithArgs("owner", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("phase-old"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO phases")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET power_used_this_phase = FALSE WHERE owner_id = $1")).
		WithArgs("owner").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	out, err := repo.Start(context.Background(), "owner", "Fase 2")
	require.NoError(t, err)
	require.NotNil(t, out.ClosedPhaseID)
	assert.Equal(t, "phase-old", *out.ClosedPhaseID)
	assert.True(t, out.Started.Active)
	assert.Equal(t, "Fase 2", out.Started.Name)
	assert.EqualValues(t, 3, out.StudentsReset)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhaseStartRollsBackWhenResetFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE phases SET active = FALSE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO phases")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Start(context.Background(), "owner", "Fase 1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
