package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/repository"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type fakeEventRepo struct {
	event *models.Event
	err   error
}

func (f *fakeEventRepo) FindByID(context.Context, string) (*models.Event, error) {
	return f.event, f.err
}

type fakeRoomRepo struct {
	rooms []models.Room
}

func (f *fakeRoomRepo) FindByIDs(context.Context, []string) ([]models.Room, error) {
	return f.rooms, nil
}

type fakeParticipantRepo struct {
	participants []models.Participant
}

func (f *fakeParticipantRepo) FindByIDs(context.Context, []string) ([]models.Participant, error) {
	return f.participants, nil
}

type fakeBookingLedger struct {
	reserveErr error
	reserved   []string
	released   bool
}

func (f *fakeBookingLedger) ReserveWithTx(_ context.Context, _ *sqlx.Tx, eventID string, roomIDs []string, _, _, _ string) ([]models.Booking, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.reserved = roomIDs
	bookings := make([]models.Booking, len(roomIDs))
	for i, id := range roomIDs {
		bookings[i] = models.Booking{ID: "bk-" + id, RoomID: id, EventID: eventID}
	}
	return bookings, nil
}

func (f *fakeBookingLedger) ReleaseByEventWithTx(context.Context, *sqlx.Tx, string) error {
	f.released = true
	return nil
}

func (f *fakeBookingLedger) ListByEvent(context.Context, string) ([]models.Booking, error) {
	return nil, nil
}

type fakeAssignmentStore struct {
	replaced   []models.Assignment
	replaceErr error
	details    []repository.SeatDetail
}

func (f *fakeAssignmentStore) ReplaceForEventWithTx(_ context.Context, _ *sqlx.Tx, _ string, assignments []models.Assignment) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced = assignments
	return nil
}

func (f *fakeAssignmentStore) ListDetailsByEvent(context.Context, string) ([]repository.SeatDetail, error) {
	return f.details, nil
}

type fakeDispatcher struct {
	dispatched []string
	err        error
}

func (f *fakeDispatcher) Dispatch(eventID string) error {
	f.dispatched = append(f.dispatched, eventID)
	return f.err
}

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() { _ = sqlxDB.Close() }
}

func examEvent() *models.Event {
	return &models.Event{
		ID:        "event-1",
		Kind:      models.EventKindExam,
		Title:     "Analyse 2",
		Date:      "2026-06-10",
		StartTime: "08:00",
		EndTime:   "10:00",
	}
}

func fourParticipants() []models.Participant {
	return []models.Participant{
		{ID: "p-1", ExternalRef: "CNE 100"},
		{ID: "p-2", ExternalRef: "CNE 050"},
		{ID: "p-3", ExternalRef: "CNE 200"},
		{ID: "p-4", ExternalRef: "CNE 010"},
	}
}

func twoRooms() []models.Room {
	return []models.Room{
		{ID: "room-a", Name: "Salle A", Capacity: 2},
		{ID: "room-b", Name: "Amphi B", Capacity: 3},
	}
}

func TestSchedulingCommitEndToEnd(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	bookings := &fakeBookingLedger{}
	assignments := &fakeAssignmentStore{}
	dispatcher := &fakeDispatcher{}
	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: fourParticipants()},
		Bookings:     bookings,
		Assignments:  assignments,
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Dispatcher:   dispatcher,
		Tx:           db,
	})

	result, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
	})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 4)

	// Amphi B seats 1..3 take refs 010, 050, 100; Salle A seat 1 takes 200.
	assert.Equal(t, "room-b", result.Assignments[0].RoomID)
	assert.Equal(t, "p-4", result.Assignments[0].ParticipantID)
	assert.Equal(t, "p-2", result.Assignments[1].ParticipantID)
	assert.Equal(t, "p-1", result.Assignments[2].ParticipantID)
	assert.Equal(t, "room-a", result.Assignments[3].RoomID)
	assert.Equal(t, 1, result.Assignments[3].SeatNumber)
	assert.Equal(t, "p-3", result.Assignments[3].ParticipantID)

	assert.Equal(t, []string{"room-a", "room-b"}, bookings.reserved)
	assert.Equal(t, result.Assignments, assignments.replaced)
	assert.Equal(t, []string{"event-1"}, dispatcher.dispatched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingCommitConflictRollsBack(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectRollback()

	conflict := appErrors.RoomConflict("room-a", "booking-9")
	assignments := &fakeAssignmentStore{}
	dispatcher := &fakeDispatcher{}
	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: fourParticipants()},
		Bookings:     &fakeBookingLedger{reserveErr: conflict},
		Assignments:  assignments,
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Dispatcher:   dispatcher,
		Tx:           db,
	})

	_, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRoomBooked.Code, appErr.Code)
	assert.Empty(t, assignments.replaced)
	assert.Empty(t, dispatcher.dispatched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingCommitCapacityExceededBeforeTransaction(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()

	participants := make([]models.Participant, 6)
	ids := make([]string, 6)
	for i := range participants {
		id := "p-" + string(rune('1'+i))
		participants[i] = models.Participant{ID: id, ExternalRef: id}
		ids[i] = id
	}

	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: participants},
		Bookings:     &fakeBookingLedger{},
		Assignments:  &fakeAssignmentStore{},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	_, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: ids,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErr.Code)
	detail, ok := appErr.Details.(*appErrors.CapacityError)
	require.True(t, ok)
	assert.Equal(t, 1, detail.Shortfall)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingCommitUnknownParticipant(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()

	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: fourParticipants()[:3]},
		Bookings:     &fakeBookingLedger{},
		Assignments:  &fakeAssignmentStore{},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	_, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a"},
		ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "p-4")
}

func TestSchedulingCommitEventNotFound(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()

	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{err: sql.ErrNoRows},
		Rooms:        &fakeRoomRepo{},
		Participants: &fakeParticipantRepo{},
		Bookings:     &fakeBookingLedger{},
		Assignments:  &fakeAssignmentStore{},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	_, err := svc.Commit(context.Background(), "event-x", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a"},
		ParticipantIDs: []string{"p-1"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSchedulingCommitDispatchFailureDoesNotRollBack(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: fourParticipants()},
		Bookings:     &fakeBookingLedger{},
		Assignments:  &fakeAssignmentStore{},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Dispatcher:   &fakeDispatcher{err: errors.New("renderer down")},
		Tx:           db,
	})

	result, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Bookings, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingCancelReleasesAndClears(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	bookings := &fakeBookingLedger{}
	assignments := &fakeAssignmentStore{}
	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{},
		Participants: &fakeParticipantRepo{},
		Bookings:     bookings,
		Assignments:  assignments,
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	require.NoError(t, svc.Cancel(context.Background(), "event-1"))
	assert.True(t, bookings.released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingRepartitionGroupsByRoom(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()

	details := []repository.SeatDetail{
		{EventID: "event-1", RoomID: "room-b", RoomName: "Amphi B", Capacity: 3, SeatNumber: 1, ExternalRef: "CNE 010", LastName: "Rami", FirstName: "Sara"},
		{EventID: "event-1", RoomID: "room-b", RoomName: "Amphi B", Capacity: 3, SeatNumber: 2, ExternalRef: "CNE 050", LastName: "Alaoui", FirstName: "Nour"},
		{EventID: "event-1", RoomID: "room-a", RoomName: "Salle A", Capacity: 2, SeatNumber: 1, ExternalRef: "CNE 200", LastName: "Bennis", FirstName: "Omar"},
	}
	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{},
		Participants: &fakeParticipantRepo{},
		Bookings:     &fakeBookingLedger{},
		Assignments:  &fakeAssignmentStore{details: details},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	report, err := svc.Repartition(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	require.Len(t, report.Summary, 2)
	assert.Equal(t, "room-b", report.Summary[0].RoomID)
	assert.Equal(t, 2, report.Summary[0].Assigned)
	assert.Equal(t, 3, report.Summary[0].Capacity)
	assert.Equal(t, "room-a", report.Summary[1].RoomID)
	assert.Equal(t, 1, report.Summary[1].Assigned)
}

// contentionLedger trips its overlap flag whenever two goroutines are inside
// a mutating call at the same time.
type contentionLedger struct {
	active  int32
	overlap int32
}

func (l *contentionLedger) enter() {
	if atomic.AddInt32(&l.active, 1) > 1 {
		atomic.StoreInt32(&l.overlap, 1)
	}
	time.Sleep(time.Millisecond)
}

func (l *contentionLedger) exit() {
	atomic.AddInt32(&l.active, -1)
}

func (l *contentionLedger) ReserveWithTx(_ context.Context, _ *sqlx.Tx, eventID string, roomIDs []string, _, _, _ string) ([]models.Booking, error) {
	l.enter()
	defer l.exit()
	bookings := make([]models.Booking, len(roomIDs))
	for i, id := range roomIDs {
		bookings[i] = models.Booking{ID: "bk-" + id, RoomID: id, EventID: eventID}
	}
	return bookings, nil
}

func (l *contentionLedger) ReleaseByEventWithTx(context.Context, *sqlx.Tx, string) error {
	l.enter()
	defer l.exit()
	return nil
}

func (l *contentionLedger) ListByEvent(context.Context, string) ([]models.Booking, error) {
	return nil, nil
}

func TestSchedulingSerializesMutationsPerEvent(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()

	const workers = 2
	const iterations = 3
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < workers*iterations*2; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	ledger := &contentionLedger{}
	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: fourParticipants()},
		Bookings:     ledger,
		Assignments:  &fakeAssignmentStore{},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	req := dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				_, err := svc.Commit(context.Background(), "event-1", req)
				assert.NoError(t, err)
				assert.NoError(t, svc.Cancel(context.Background(), "event-1"))
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&ledger.overlap), "mutating calls for one event interleaved")
	assert.Empty(t, svc.eventLocks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingEventLockReleasedAfterUse(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewSchedulingService(SchedulingServiceParams{
		Events:       &fakeEventRepo{event: examEvent()},
		Rooms:        &fakeRoomRepo{rooms: twoRooms()},
		Participants: &fakeParticipantRepo{participants: fourParticipants()},
		Bookings:     &fakeBookingLedger{},
		Assignments:  &fakeAssignmentStore{},
		Seating:      NewSeatingService(nil),
		Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
		Tx:           db,
	})

	_, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
	})
	require.NoError(t, err)
	assert.Empty(t, svc.eventLocks)
}

func TestSchedulingReservationMetricsByOutcome(t *testing.T) {
	metrics := NewMetricsService()

	commitWith := func(reserveErr error) {
		db, mock, cleanup := newTxMock(t)
		defer cleanup()
		mock.ExpectBegin()
		mock.ExpectRollback()

		svc := NewSchedulingService(SchedulingServiceParams{
			Events:       &fakeEventRepo{event: examEvent()},
			Rooms:        &fakeRoomRepo{rooms: twoRooms()},
			Participants: &fakeParticipantRepo{participants: fourParticipants()},
			Bookings:     &fakeBookingLedger{reserveErr: reserveErr},
			Assignments:  &fakeAssignmentStore{},
			Seating:      NewSeatingService(nil),
			Availability: NewAvailabilityService(&stubLedger{}, nil, nil, nil),
			Tx:           db,
			Metrics:      metrics,
		})
		_, err := svc.Commit(context.Background(), "event-1", dto.ScheduleCommitRequest{
			RoomIDs:        []string{"room-a", "room-b"},
			ParticipantIDs: []string{"p-1", "p-2", "p-3", "p-4"},
		})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	}

	commitWith(appErrors.RoomConflict("room-a", "booking-9"))
	commitWith(errors.New("connection reset"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reserveTotal.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reserveTotal.WithLabelValues("error")))
}
