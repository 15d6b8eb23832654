package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examops/examsched-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestAssignmentRepositoryReplaceForEvent(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assignments WHERE event_id = $1`)).
		WithArgs("event-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO assignments`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO assignments`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignments := []models.Assignment{
		{EventID: "event-1", RoomID: "room-b", SeatNumber: 1, ParticipantID: "p-1"},
		{EventID: "event-1", RoomID: "room-b", SeatNumber: 2, ParticipantID: "p-2"},
	}
	err := repo.ReplaceForEvent(context.Background(), "event-1", assignments)
	require.NoError(t, err)
	assert.NotEmpty(t, assignments[0].ID)
	assert.False(t, assignments[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceForEventEmptyBatch(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assignments WHERE event_id = $1`)).
		WithArgs("event-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForEvent(context.Background(), "event-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListDetailsByEvent(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"event_id", "room_id", "room_name", "department", "capacity", "seat_number", "participant_id", "external_ref", "last_name", "first_name", "email"}).
		AddRow("event-1", "room-b", "Amphi B", "Informatique", 3, 1, "p-4", "CNE 010", "Rami", "Sara", "sara@example.test").
		AddRow("event-1", "room-b", "Amphi B", "Informatique", 3, 2, "p-2", "CNE 050", "Alaoui", "Nour", "nour@example.test")

	mock.ExpectQuery(regexp.QuoteMeta(`JOIN participants p ON p.id = a.participant_id`)).
		WithArgs("event-1").
		WillReturnRows(rows)

	details, err := repo.ListDetailsByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "Amphi B", details[0].RoomName)
	assert.Equal(t, 1, details[0].SeatNumber)
	assert.Equal(t, "CNE 050", details[1].ExternalRef)
}
