package models

import "time"

// Room categories. Amphitheaters may be department-agnostic and are pooled
// separately from regular classrooms.
const (
	RoomCategoryAmphitheater = "AMPHITHEATER"
	RoomCategoryClassroom    = "CLASSROOM"
)

// Room represents an examination room. Capacity is always positive; the
// scheduling core treats rooms as read-only.
type Room struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Capacity   int       `db:"capacity" json:"capacity"`
	Category   string    `db:"category" json:"category"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	Department string
	Category   string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}
