package dto

import "github.com/examops/examsched-api/internal/models"

// AvailabilityQuery identifies a time slot and room pool to probe.
type AvailabilityQuery struct {
	Date       string `form:"date" json:"date" validate:"required"`
	StartTime  string `form:"start" json:"start" validate:"required"`
	EndTime    string `form:"end" json:"end" validate:"required"`
	Department string `form:"department" json:"department"`
}

// ExcludeRoomsRequest is the second leg of the occupied-then-subtract call
// shape the admin frontend uses.
type ExcludeRoomsRequest struct {
	ExcludeIDs []string `json:"excludeIds"`
}

// ScheduleCommitRequest finalizes an event's room and participant selection.
type ScheduleCommitRequest struct {
	RoomIDs        []string `json:"roomIds" validate:"required,min=1,dive,required"`
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
}

// ScheduleCommitResponse returns the committed seat map and distribution.
type ScheduleCommitResponse struct {
	EventID     string               `json:"event_id"`
	Bookings    []models.Booking     `json:"bookings"`
	Assignments []models.Assignment  `json:"assignments"`
	Summary     []models.RoomSummary `json:"summary"`
}

// RepartitionRow is one line of the distribution report: a seated participant
// with their room and seat.
type RepartitionRow struct {
	RoomID      string `json:"room_id"`
	RoomName    string `json:"room_name"`
	SeatNumber  int    `json:"seat_number"`
	ExternalRef string `json:"external_ref"`
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
}

// RepartitionReport groups the event's seat map with per-room totals.
type RepartitionReport struct {
	EventID string               `json:"event_id"`
	Rows    []RepartitionRow     `json:"rows"`
	Summary []models.RoomSummary `json:"summary"`
}

// ImportResult summarises a participant CSV ingestion.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ConvocationLink is a signed download reference for a generated document.
type ConvocationLink struct {
	FileName  string `json:"file_name"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
