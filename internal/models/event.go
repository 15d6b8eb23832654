package models

import "time"

// Event kinds. A concours is structurally identical to an exam for scheduling
// purposes; candidates take the place of students.
const (
	EventKindExam     = "EXAM"
	EventKindConcours = "CONCOURS"
)

// Event is an exam or concours session to be scheduled into rooms.
type Event struct {
	ID         string    `db:"id" json:"id"`
	Kind       string    `db:"kind" json:"kind"`
	Title      string    `db:"title" json:"title"`
	ModuleName string    `db:"module_name" json:"module_name"`
	Department string    `db:"department" json:"department"`
	Date       string    `db:"date" json:"date"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EventFilter describes query params for listing events.
type EventFilter struct {
	Kind       string
	Department string
	Date       string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}
