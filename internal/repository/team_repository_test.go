package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teamCols = []string{"id", "owner_id", "room_id", "name", "leader_code", "crystals", "created_at"}

func TestTeamRepositoryGetByLeaderCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeamRepository(db)

	rows := sqlmock.NewRows(teamCols).AddRow("team-1", "owner", "room-1", "Fênix", "123456", 40, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teams WHERE leader_code = $1")).
		WithArgs("123456").
		WillReturnRows(rows)

	team, err := repo.GetByLeaderCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "team-1", team.ID)
	assert.Equal(t, 40, team.Crystals)
	require.NotNil(t, team.LeaderCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepositorySetLeaderCodeDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeamRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teams SET leader_code = $3")).
		WithArgs("team-1", "owner", "654321").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.SetLeaderCode(context.Background(), "owner", "team-1", "654321")
	require.ErrorIs(t, err, ErrDuplicateLeaderCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
