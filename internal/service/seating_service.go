package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

// SeatingService computes deterministic seat assignments. It is a pure
// planner: participants and rooms arrive as explicit arguments and nothing is
// read from shared state, so the same input set always yields the same map.
type SeatingService struct {
	logger *zap.Logger
}

// NewSeatingService instantiates SeatingService.
func NewSeatingService(logger *zap.Logger) *SeatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatingService{logger: logger}
}

// Plan partitions participants into rooms and assigns 1-based seat numbers.
//
// Participants are ordered by external ref ascending (tie-broken by id) so the
// seating is independent of arrival order from CSV imports or API responses.
// Rooms are ordered by capacity descending (tie-broken by id) so larger rooms
// fill first and unused rooms are predictable. Seats fill 1..capacity in one
// pass; rooms left empty are absent from the summary. This is a greedy
// bin-fill, not a packing optimization: the goal is a stable, explainable seat
// map.
func (s *SeatingService) Plan(eventID string, participants []models.Participant, rooms []models.Room) ([]models.Assignment, []models.RoomSummary, error) {
	totalCapacity := 0
	for _, room := range rooms {
		totalCapacity += room.Capacity
	}
	if totalCapacity < len(participants) {
		shortfall := len(participants) - totalCapacity
		s.logger.Warn("seating capacity exceeded",
			zap.String("event_id", eventID),
			zap.Int("participants", len(participants)),
			zap.Int("capacity", totalCapacity))
		return nil, nil, appErrors.CapacityExceeded(shortfall)
	}

	orderedParticipants := make([]models.Participant, len(participants))
	copy(orderedParticipants, participants)
	sort.Slice(orderedParticipants, func(i, j int) bool {
		if orderedParticipants[i].ExternalRef != orderedParticipants[j].ExternalRef {
			return orderedParticipants[i].ExternalRef < orderedParticipants[j].ExternalRef
		}
		return orderedParticipants[i].ID < orderedParticipants[j].ID
	})

	orderedRooms := make([]models.Room, len(rooms))
	copy(orderedRooms, rooms)
	sort.Slice(orderedRooms, func(i, j int) bool {
		if orderedRooms[i].Capacity != orderedRooms[j].Capacity {
			return orderedRooms[i].Capacity > orderedRooms[j].Capacity
		}
		return orderedRooms[i].ID < orderedRooms[j].ID
	})

	assignments := make([]models.Assignment, 0, len(orderedParticipants))
	summaries := make([]models.RoomSummary, 0, len(orderedRooms))

	next := 0
	for _, room := range orderedRooms {
		if next >= len(orderedParticipants) {
			break
		}
		assigned := 0
		for seat := 1; seat <= room.Capacity && next < len(orderedParticipants); seat++ {
			assignments = append(assignments, models.Assignment{
				EventID:       eventID,
				RoomID:        room.ID,
				SeatNumber:    seat,
				ParticipantID: orderedParticipants[next].ID,
			})
			next++
			assigned++
		}
		summaries = append(summaries, models.RoomSummary{
			RoomID:     room.ID,
			RoomName:   room.Name,
			Department: room.Department,
			Assigned:   assigned,
			Capacity:   room.Capacity,
		})
	}

	return assignments, summaries, nil
}
