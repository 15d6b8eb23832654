package models

import (
	"regexp"
	"time"
)

// Booking records that a room is occupied by an event during a half-open
// interval [StartTime, EndTime) on a given date. Date is formatted 2006-01-02,
// times as zero-padded HH:MM so lexicographic comparison matches clock order.
type Booking struct {
	ID        string    `db:"id" json:"id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Date      string    `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClock reports whether s is a zero-padded HH:MM clock value.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ValidDate reports whether s parses as a 2006-01-02 calendar day.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// overlaps reports whether two half-open [start, end) intervals intersect.
// Intervals that touch exactly at an endpoint do not overlap. The booking
// repository enforces the same predicate in SQL at reserve time; this is the
// reference form the tests pin down.
func overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}
