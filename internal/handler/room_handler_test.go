package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/service"
)

type stubAvailabilityLedger struct {
	occupied  []string
	available []models.Room
}

func (s *stubAvailabilityLedger) FindOccupiedRoomIDs(context.Context, string, string, string, string) ([]string, error) {
	return s.occupied, nil
}

func (s *stubAvailabilityLedger) FindAvailableRooms(context.Context, string, string, string, string) ([]models.Room, error) {
	return s.available, nil
}

type availabilityEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAvailabilityHandler(ledger *stubAvailabilityLedger) *RoomHandler {
	availability := service.NewAvailabilityService(ledger, nil, nil, nil)
	return NewRoomHandler(nil, availability)
}

func TestRoomHandlerOccupiedSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAvailabilityHandler(&stubAvailabilityLedger{occupied: []string{"room-1", "room-2"}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rooms/occupied?date=2026-06-10&start=08:00&end=10:00", nil)

	handler.Occupied(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope availabilityEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var ids []string
	require.NoError(t, json.Unmarshal(envelope.Data, &ids))
	assert.Equal(t, []string{"room-1", "room-2"}, ids)
}

func TestRoomHandlerOccupiedInvalidSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAvailabilityHandler(&stubAvailabilityLedger{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rooms/occupied?date=2026-06-10&start=12:00&end=10:00", nil)

	handler.Occupied(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope availabilityEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestRoomHandlerAvailableSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAvailabilityHandler(&stubAvailabilityLedger{
		available: []models.Room{{ID: "room-1", Name: "Salle A", Capacity: 20}},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rooms/availability?date=2026-06-10&start=08:00&end=10:00&department=Informatique", nil)

	handler.Available(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope availabilityEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var rooms []models.Room
	require.NoError(t, json.Unmarshal(envelope.Data, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "Salle A", rooms[0].Name)
}

func TestRoomHandlerAvailableMissingDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAvailabilityHandler(&stubAvailabilityLedger{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rooms/availability?start=08:00&end=10:00", nil)

	handler.Available(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
