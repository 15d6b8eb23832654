package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/repository"
	"github.com/examops/examsched-api/internal/service"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type stubEventRepo struct {
	event *models.Event
}

func (s *stubEventRepo) FindByID(context.Context, string) (*models.Event, error) {
	return s.event, nil
}

type stubRoomRepo struct {
	rooms []models.Room
}

func (s *stubRoomRepo) FindByIDs(context.Context, []string) ([]models.Room, error) {
	return s.rooms, nil
}

type stubParticipantRepo struct {
	participants []models.Participant
}

func (s *stubParticipantRepo) FindByIDs(context.Context, []string) ([]models.Participant, error) {
	return s.participants, nil
}

type stubBookingLedger struct {
	err error
}

func (s *stubBookingLedger) ReserveWithTx(_ context.Context, _ *sqlx.Tx, eventID string, roomIDs []string, _, _, _ string) ([]models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	bookings := make([]models.Booking, len(roomIDs))
	for i, id := range roomIDs {
		bookings[i] = models.Booking{ID: "bk-" + id, RoomID: id, EventID: eventID}
	}
	return bookings, nil
}

func (s *stubBookingLedger) ReleaseByEventWithTx(context.Context, *sqlx.Tx, string) error {
	return nil
}

func (s *stubBookingLedger) ListByEvent(context.Context, string) ([]models.Booking, error) {
	return nil, nil
}

type stubAssignmentStore struct{}

func (s *stubAssignmentStore) ReplaceForEventWithTx(context.Context, *sqlx.Tx, string, []models.Assignment) error {
	return nil
}

func (s *stubAssignmentStore) ListDetailsByEvent(context.Context, string) ([]repository.SeatDetail, error) {
	return nil, nil
}

type commitEnvelope struct {
	Data  *dto.ScheduleCommitResponse `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func newSchedulingHandler(t *testing.T, reserveErr error, expectCommit bool) (*EventHandler, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	if expectCommit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}

	scheduler := service.NewSchedulingService(service.SchedulingServiceParams{
		Events: &stubEventRepo{event: &models.Event{
			ID: "event-1", Date: "2026-06-10", StartTime: "08:00", EndTime: "10:00",
		}},
		Rooms: &stubRoomRepo{rooms: []models.Room{
			{ID: "room-a", Name: "Salle A", Capacity: 2},
			{ID: "room-b", Name: "Amphi B", Capacity: 3},
		}},
		Participants: &stubParticipantRepo{participants: []models.Participant{
			{ID: "p-1", ExternalRef: "CNE 100"},
			{ID: "p-2", ExternalRef: "CNE 050"},
			{ID: "p-3", ExternalRef: "CNE 200"},
			{ID: "p-4", ExternalRef: "CNE 010"},
		}},
		Bookings:    &stubBookingLedger{err: reserveErr},
		Assignments: &stubAssignmentStore{},
		Seating:     service.NewSeatingService(nil),
		Tx:          sqlxDB,
	})
	handler := NewEventHandler(nil, scheduler, nil)
	return handler, func() { _ = sqlxDB.Close() }
}

func commitRequest(t *testing.T, participantIDs []string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(dto.ScheduleCommitRequest{
		RoomIDs:        []string{"room-a", "room-b"},
		ParticipantIDs: participantIDs,
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/events/event-1/assignments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestEventHandlerCommitScheduleSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, cleanup := newSchedulingHandler(t, nil, true)
	defer cleanup()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = commitRequest(t, []string{"p-1", "p-2", "p-3", "p-4"})
	c.Params = gin.Params{{Key: "id", Value: "event-1"}}

	handler.CommitSchedule(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope commitEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	assert.Equal(t, "event-1", envelope.Data.EventID)
	assert.Len(t, envelope.Data.Bookings, 2)
	assert.Len(t, envelope.Data.Assignments, 4)
}

func TestEventHandlerCommitScheduleConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, cleanup := newSchedulingHandler(t, appErrors.RoomConflict("room-a", "booking-9"), false)
	defer cleanup()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = commitRequest(t, []string{"p-1", "p-2", "p-3", "p-4"})
	c.Params = gin.Params{{Key: "id", Value: "event-1"}}

	handler.CommitSchedule(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope commitEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ROOM_BOOKED", envelope.Error.Code)
	assert.Equal(t, "room-a", envelope.Error.Details["room_id"])
	assert.Equal(t, "booking-9", envelope.Error.Details["conflicting_booking_id"])
}

func TestEventHandlerCommitScheduleCapacityExceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	defer sqlxDB.Close()

	participants := make([]models.Participant, 6)
	ids := make([]string, 6)
	for i := range participants {
		id := "p-" + string(rune('1'+i))
		participants[i] = models.Participant{ID: id, ExternalRef: id}
		ids[i] = id
	}
	scheduler := service.NewSchedulingService(service.SchedulingServiceParams{
		Events: &stubEventRepo{event: &models.Event{
			ID: "event-1", Date: "2026-06-10", StartTime: "08:00", EndTime: "10:00",
		}},
		Rooms: &stubRoomRepo{rooms: []models.Room{
			{ID: "room-a", Capacity: 2},
			{ID: "room-b", Capacity: 3},
		}},
		Participants: &stubParticipantRepo{participants: participants},
		Bookings:     &stubBookingLedger{},
		Assignments:  &stubAssignmentStore{},
		Seating:      service.NewSeatingService(nil),
		Tx:           sqlxDB,
	})
	handler := NewEventHandler(nil, scheduler, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = commitRequest(t, ids)
	c.Params = gin.Params{{Key: "id", Value: "event-1"}}

	handler.CommitSchedule(c)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope commitEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CAPACITY_EXCEEDED", envelope.Error.Code)
	assert.Equal(t, float64(1), envelope.Error.Details["shortfall"])
}

func TestEventHandlerCommitScheduleInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/events/event-1/assignments", bytes.NewReader([]byte("{")))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "event-1"}}

	handler.CommitSchedule(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
