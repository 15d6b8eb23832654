package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

// BookingRepository is the booking ledger: it records which rooms are occupied
// during which intervals and guards reservation commits against races.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = "id, room_id, event_id, date, start_time, end_time, created_at"

// FindOccupiedRoomIDs returns every room with a booking on date whose interval
// overlaps [start, end), restricted to rooms of the given department when one
// is provided. Intervals touching at an endpoint do not overlap.
func (r *BookingRepository) FindOccupiedRoomIDs(ctx context.Context, date, start, end, department string) ([]string, error) {
	query := `SELECT DISTINCT b.room_id FROM bookings b JOIN rooms r ON r.id = b.room_id WHERE b.date = $1 AND b.start_time < $3 AND b.end_time > $2`
	args := []interface{}{date, start, end}
	if department != "" {
		query += ` AND r.department = $4`
		args = append(args, department)
	}
	query += ` ORDER BY b.room_id ASC`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("find occupied rooms: %w", err)
	}
	return ids, nil
}

// FindAvailableRooms returns the department's rooms not booked in an
// overlapping interval, expressed as a relational anti-join rather than two
// round trips.
func (r *BookingRepository) FindAvailableRooms(ctx context.Context, date, start, end, department string) ([]models.Room, error) {
	query := `SELECT r.id, r.name, r.department, r.capacity, r.category, r.created_at, r.updated_at
		FROM rooms r
		WHERE r.id NOT IN (
			SELECT b.room_id FROM bookings b WHERE b.date = $1 AND b.start_time < $3 AND b.end_time > $2
		)`
	args := []interface{}{date, start, end}
	if department != "" {
		query += ` AND r.department = $4`
		args = append(args, department)
	}
	query += ` ORDER BY r.name ASC`

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("find available rooms: %w", err)
	}
	return rooms, nil
}

// Reserve atomically books every requested room for the event in its own
// transaction. Either all rooms are booked or none.
func (r *BookingRepository) Reserve(ctx context.Context, eventID string, roomIDs []string, date, start, end string) ([]models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reserve: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var bookings []models.Booking
	bookings, err = r.ReserveWithTx(ctx, tx, eventID, roomIDs, date, start, end)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reserve: %w", err)
	}
	return bookings, nil
}

// ReserveWithTx replaces the event's bookings inside the caller's transaction.
// Room rows are locked in deterministic id order, the event's previous
// bookings are dropped, then every room's overlap check is repeated under the
// lock. The first conflict rejects the whole batch; availability read by the
// caller may be stale, so this commit-time re-check is authoritative.
func (r *BookingRepository) ReserveWithTx(ctx context.Context, tx *sqlx.Tx, eventID string, roomIDs []string, date, start, end string) ([]models.Booking, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	if len(roomIDs) == 0 {
		return nil, fmt.Errorf("reserve requires at least one room")
	}

	lockQuery, lockArgs, err := sqlx.In(`SELECT id FROM rooms WHERE id IN (?) ORDER BY id ASC FOR UPDATE`, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("build room lock query: %w", err)
	}
	lockQuery = tx.Rebind(lockQuery)
	var lockedIDs []string
	if err := tx.SelectContext(ctx, &lockedIDs, lockQuery, lockArgs...); err != nil {
		return nil, fmt.Errorf("lock rooms: %w", err)
	}
	if len(lockedIDs) != len(uniqueStrings(roomIDs)) {
		return nil, missingRoomError(roomIDs, lockedIDs)
	}

	// Dropping the event's own bookings first makes the edit flow atomic and
	// keeps an event from conflicting with itself when the slot is unchanged.
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE event_id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("clear event bookings: %w", err)
	}

	for _, roomID := range lockedIDs {
		var conflictID string
		checkErr := tx.GetContext(ctx, &conflictID,
			`SELECT id FROM bookings WHERE room_id = $1 AND date = $2 AND start_time < $4 AND end_time > $3 LIMIT 1`,
			roomID, date, start, end)
		if checkErr == nil {
			return nil, appErrors.RoomConflict(roomID, conflictID)
		}
		if !isNoRows(checkErr) {
			return nil, fmt.Errorf("check booking overlap: %w", checkErr)
		}
	}

	now := time.Now().UTC()
	bookings := make([]models.Booking, 0, len(lockedIDs))
	for _, roomID := range lockedIDs {
		booking := models.Booking{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			EventID:   eventID,
			Date:      date,
			StartTime: start,
			EndTime:   end,
			CreatedAt: now,
		}
		if _, err := sqlx.NamedExecContext(ctx, tx,
			`INSERT INTO bookings (id, room_id, event_id, date, start_time, end_time, created_at) VALUES (:id, :room_id, :event_id, :date, :start_time, :end_time, :created_at)`,
			&booking); err != nil {
			return nil, fmt.Errorf("insert booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// ReleaseByEvent deletes every booking held by the event.
func (r *BookingRepository) ReleaseByEvent(ctx context.Context, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("release bookings: %w", err)
	}
	return nil
}

// ReleaseByEventWithTx deletes the event's bookings inside the caller's transaction.
func (r *BookingRepository) ReleaseByEventWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("release bookings: %w", err)
	}
	return nil
}

// ListByEvent returns the event's bookings ordered by room.
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE event_id = $1 ORDER BY room_id ASC", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, eventID); err != nil {
		return nil, fmt.Errorf("list bookings by event: %w", err)
	}
	return bookings, nil
}

// CountFromDate counts a room's bookings on or after the given day, used to
// block deletion of rooms still referenced by upcoming events.
func (r *BookingRepository) CountFromDate(ctx context.Context, roomID, fromDate string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE room_id = $1 AND date >= $2`, roomID, fromDate); err != nil {
		return 0, fmt.Errorf("count room bookings: %w", err)
	}
	return count, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func missingRoomError(requested, found []string) error {
	foundSet := make(map[string]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := foundSet[id]; !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %s not found", id))
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "room not found")
}
