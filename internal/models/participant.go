package models

import "time"

// Participant is a student or concours candidate. ExternalRef holds the
// CNE/CIN/student number used on seat cards; it also drives the deterministic
// seating order.
type Participant struct {
	ID          string    `db:"id" json:"id"`
	ExternalRef string    `db:"external_ref" json:"external_ref"`
	LastName    string    `db:"last_name" json:"last_name"`
	FirstName   string    `db:"first_name" json:"first_name"`
	Email       string    `db:"email" json:"email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DisplayName renders "LAST First" for seat cards and convocations.
func (p Participant) DisplayName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.LastName + " " + p.FirstName
}

// ParticipantFilter describes query params for listing participants.
type ParticipantFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
