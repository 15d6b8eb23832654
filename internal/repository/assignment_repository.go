package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examops/examsched-api/internal/models"
)

// AssignmentRepository persists seat assignments. Assignments for an event are
// always written as a full batch replacing the previous one.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// SeatDetail joins an assignment with its participant and room for reporting
// and convocation rendering.
type SeatDetail struct {
	EventID       string `db:"event_id" json:"event_id"`
	RoomID        string `db:"room_id" json:"room_id"`
	RoomName      string `db:"room_name" json:"room_name"`
	Department    string `db:"department" json:"department"`
	Capacity      int    `db:"capacity" json:"capacity"`
	SeatNumber    int    `db:"seat_number" json:"seat_number"`
	ParticipantID string `db:"participant_id" json:"participant_id"`
	ExternalRef   string `db:"external_ref" json:"external_ref"`
	LastName      string `db:"last_name" json:"last_name"`
	FirstName     string `db:"first_name" json:"first_name"`
	Email         string `db:"email" json:"email"`
}

// ReplaceForEvent discards all prior assignments for the event and writes the
// new batch within one transaction, so seat numbers never mix generations.
func (r *AssignmentRepository) ReplaceForEvent(ctx context.Context, eventID string, assignments []models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.ReplaceForEventWithTx(ctx, tx, eventID, assignments); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// ReplaceForEventWithTx performs the delete-then-insert batch inside the
// caller's transaction.
func (r *AssignmentRepository) ReplaceForEventWithTx(ctx context.Context, tx *sqlx.Tx, eventID string, assignments []models.Assignment) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}

	now := time.Now().UTC()
	for i := range assignments {
		payload := assignments[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx,
			`INSERT INTO assignments (id, event_id, room_id, seat_number, participant_id, created_at) VALUES (:id, :event_id, :room_id, :seat_number, :participant_id, :created_at)`,
			&payload); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		assignments[i] = payload
	}

	return nil
}

// ListByEvent returns the event's assignments in room then seat order.
func (r *AssignmentRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Assignment, error) {
	const query = `SELECT id, event_id, room_id, seat_number, participant_id, created_at FROM assignments WHERE event_id = $1 ORDER BY room_id ASC, seat_number ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, eventID); err != nil {
		return nil, fmt.Errorf("list assignments by event: %w", err)
	}
	return assignments, nil
}

// ListDetailsByEvent returns the event's seat map joined with participant and
// room attributes, the shape the distribution report and convocations consume.
func (r *AssignmentRepository) ListDetailsByEvent(ctx context.Context, eventID string) ([]SeatDetail, error) {
	const query = `SELECT a.event_id, a.room_id, r.name AS room_name, r.department, r.capacity, a.seat_number, a.participant_id, p.external_ref, p.last_name, p.first_name, p.email
		FROM assignments a
		JOIN rooms r ON r.id = a.room_id
		JOIN participants p ON p.id = a.participant_id
		WHERE a.event_id = $1
		ORDER BY r.name ASC, a.seat_number ASC`
	var details []SeatDetail
	if err := r.db.SelectContext(ctx, &details, query, eventID); err != nil {
		return nil, fmt.Errorf("list assignment details: %w", err)
	}
	return details, nil
}

// DeleteByEvent removes every assignment for the event.
func (r *AssignmentRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}
