package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

func TestSeatingPlanFillsLargestRoomFirst(t *testing.T) {
	svc := NewSeatingService(nil)

	participants := []models.Participant{
		{ID: "p-1", ExternalRef: "CNE 100"},
		{ID: "p-2", ExternalRef: "CNE 050"},
		{ID: "p-3", ExternalRef: "CNE 200"},
		{ID: "p-4", ExternalRef: "CNE 010"},
	}
	rooms := []models.Room{
		{ID: "room-a", Name: "Salle A", Capacity: 2},
		{ID: "room-b", Name: "Amphi B", Capacity: 3},
	}

	assignments, summary, err := svc.Plan("event-1", participants, rooms)
	require.NoError(t, err)
	require.Len(t, assignments, 4)

	// Amphi B (capacity 3) fills first with refs in ascending order.
	assert.Equal(t, "room-b", assignments[0].RoomID)
	assert.Equal(t, 1, assignments[0].SeatNumber)
	assert.Equal(t, "p-4", assignments[0].ParticipantID)

	assert.Equal(t, "room-b", assignments[1].RoomID)
	assert.Equal(t, 2, assignments[1].SeatNumber)
	assert.Equal(t, "p-2", assignments[1].ParticipantID)

	assert.Equal(t, "room-b", assignments[2].RoomID)
	assert.Equal(t, 3, assignments[2].SeatNumber)
	assert.Equal(t, "p-1", assignments[2].ParticipantID)

	assert.Equal(t, "room-a", assignments[3].RoomID)
	assert.Equal(t, 1, assignments[3].SeatNumber)
	assert.Equal(t, "p-3", assignments[3].ParticipantID)

	require.Len(t, summary, 2)
	assert.Equal(t, "room-b", summary[0].RoomID)
	assert.Equal(t, 3, summary[0].Assigned)
	assert.Equal(t, "room-a", summary[1].RoomID)
	assert.Equal(t, 1, summary[1].Assigned)
}

func TestSeatingPlanDeterministicAcrossInputOrder(t *testing.T) {
	svc := NewSeatingService(nil)

	participants := []models.Participant{
		{ID: "p-1", ExternalRef: "CNE 100"},
		{ID: "p-2", ExternalRef: "CNE 050"},
		{ID: "p-3", ExternalRef: "CNE 200"},
	}
	shuffled := []models.Participant{participants[2], participants[0], participants[1]}
	rooms := []models.Room{
		{ID: "room-a", Capacity: 2},
		{ID: "room-b", Capacity: 3},
	}
	reversedRooms := []models.Room{rooms[1], rooms[0]}

	first, _, err := svc.Plan("event-1", participants, rooms)
	require.NoError(t, err)
	second, _, err := svc.Plan("event-1", shuffled, reversedRooms)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSeatingPlanCapacityTieBreaksByRoomID(t *testing.T) {
	svc := NewSeatingService(nil)

	participants := []models.Participant{{ID: "p-1", ExternalRef: "CNE 001"}}
	rooms := []models.Room{
		{ID: "room-z", Capacity: 5},
		{ID: "room-a", Capacity: 5},
	}

	assignments, _, err := svc.Plan("event-1", participants, rooms)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "room-a", assignments[0].RoomID)
}

func TestSeatingPlanCapacityExceeded(t *testing.T) {
	svc := NewSeatingService(nil)

	participants := make([]models.Participant, 6)
	for i := range participants {
		participants[i] = models.Participant{ID: string(rune('a' + i)), ExternalRef: string(rune('a' + i))}
	}
	rooms := []models.Room{
		{ID: "room-a", Capacity: 2},
		{ID: "room-b", Capacity: 3},
	}

	_, _, err := svc.Plan("event-1", participants, rooms)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErr.Code)

	detail, ok := appErr.Details.(*appErrors.CapacityError)
	require.True(t, ok)
	assert.Equal(t, 1, detail.Shortfall)
}

func TestSeatingPlanLeavesUnusedRoomsOutOfSummary(t *testing.T) {
	svc := NewSeatingService(nil)

	participants := []models.Participant{
		{ID: "p-1", ExternalRef: "CNE 001"},
		{ID: "p-2", ExternalRef: "CNE 002"},
	}
	rooms := []models.Room{
		{ID: "room-a", Capacity: 10},
		{ID: "room-b", Capacity: 4},
	}

	assignments, summary, err := svc.Plan("event-1", participants, rooms)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	require.Len(t, summary, 1)
	assert.Equal(t, "room-a", summary[0].RoomID)
	assert.Equal(t, 2, summary[0].Assigned)
}

func TestSeatingPlanZeroParticipants(t *testing.T) {
	svc := NewSeatingService(nil)

	assignments, summary, err := svc.Plan("event-1", nil, []models.Room{{ID: "room-a", Capacity: 5}})
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Empty(t, summary)
}
