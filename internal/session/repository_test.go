package session

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func sessionRows(id string, userID int, status string, start time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "type", "pair_link_id", "status", "start_time",
		"end_time", "duration_seconds", "minutes_billed", "cost_cents", "initial_balance", "transcript",
	}).AddRow(id, userID, TypeSolo, nil, status, start, nil, nil, nil, nil, 30, nil)
}

func TestCreate_SnapshotsInitialBalance(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery("INSERT INTO voice_sessions").
		WithArgs(sqlmock.AnyArg(), 1, TypeSolo, nil, 30).
		WillReturnRows(sessionRows("sess-1", 1, StatusInitiated, time.Now()))

	s, err := repo.Create(context.Background(), 1, TypeSolo, nil, 30)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, 30, s.InitialBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery("SELECT (.+) FROM voice_sessions WHERE id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMarkTerminal_ClaimsOnlyInitiated(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	now := time.Now()

	mock.ExpectExec("UPDATE voice_sessions").
		WithArgs("sess-1", StatusEnded, sqlmock.AnyArg(), 120).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.MarkTerminal(context.Background(), "sess-1", StatusEnded, now, 120)
	require.NoError(t, err)
	assert.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkTerminal_AlreadyTerminal(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	// Conditional WHERE matches no row when the session left "initiated".
	mock.ExpectExec("UPDATE voice_sessions").
		WithArgs("sess-1", StatusAbandoned, sqlmock.AnyArg(), 300).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.MarkTerminal(context.Background(), "sess-1", StatusAbandoned, time.Now(), 300)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestFindStale_QueriesInitiatedBeforeCutoff(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	cutoff := time.Now().Add(-2 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM voice_sessions").
		WithArgs(cutoff, 100).
		WillReturnRows(sessionRows("sess-old", 3, StatusInitiated, cutoff.Add(-time.Hour)))

	stale, err := repo.FindStale(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "sess-old", stale[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
