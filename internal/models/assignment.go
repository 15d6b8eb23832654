package models

import "time"

// Assignment seats one participant in one room for one event. Seat numbers are
// 1-based and contiguous per (event, room). Assignments are replaced as a batch
// whenever an event is re-scheduled, never patched seat by seat.
type Assignment struct {
	ID            string    `db:"id" json:"id"`
	EventID       string    `db:"event_id" json:"event_id"`
	RoomID        string    `db:"room_id" json:"room_id"`
	SeatNumber    int       `db:"seat_number" json:"seat_number"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RoomSummary is the per-room distribution line shown to administrators:
// assigned count against capacity. Rooms with no assignments are not listed.
type RoomSummary struct {
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	Department string `json:"department"`
	Assigned   int    `json:"assigned"`
	Capacity   int    `json:"capacity"`
}
