package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/repository"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type schedulingEventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type schedulingRoomRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Room, error)
}

type schedulingParticipantRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Participant, error)
}

type bookingLedger interface {
	ReserveWithTx(ctx context.Context, tx *sqlx.Tx, eventID string, roomIDs []string, date, start, end string) ([]models.Booking, error)
	ReleaseByEventWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error
	ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error)
}

type assignmentStore interface {
	ReplaceForEventWithTx(ctx context.Context, tx *sqlx.Tx, eventID string, assignments []models.Assignment) error
	ListDetailsByEvent(ctx context.Context, eventID string) ([]repository.SeatDetail, error)
}

// convocationDispatcher hands a committed schedule to the notification side.
// Dispatch failures are logged, never propagated: a booked exam stays booked
// even when its convocations cannot be produced right away.
type convocationDispatcher interface {
	Dispatch(eventID string) error
}

// SchedulingService coordinates the full scheduling flow: availability was
// already shown to the operator, so Commit re-checks bookings at write time,
// seats participants deterministically and persists both in one transaction.
//
// All mutating operations for a given event are serialized through a per-event
// lock; concurrent edits from multiple admin sessions therefore cannot
// interleave their release/reserve sequences.
type SchedulingService struct {
	events       schedulingEventRepository
	rooms        schedulingRoomRepository
	participants schedulingParticipantRepository
	bookings     bookingLedger
	assignments  assignmentStore
	seating      *SeatingService
	availability *AvailabilityService
	dispatcher   convocationDispatcher
	tx           txProvider
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger

	locksMu    sync.Mutex
	eventLocks map[string]*eventLock
}

// eventLock is a refcounted mutex; the entry is dropped from the map once the
// last holder releases it, so the map only grows with live contention.
type eventLock struct {
	mu   sync.Mutex
	refs int
}

// SchedulingServiceParams groups the service dependencies.
type SchedulingServiceParams struct {
	Events       schedulingEventRepository
	Rooms        schedulingRoomRepository
	Participants schedulingParticipantRepository
	Bookings     bookingLedger
	Assignments  assignmentStore
	Seating      *SeatingService
	Availability *AvailabilityService
	Dispatcher   convocationDispatcher
	Tx           txProvider
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
}

// NewSchedulingService instantiates SchedulingService.
func NewSchedulingService(p SchedulingServiceParams) *SchedulingService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &SchedulingService{
		events:       p.Events,
		rooms:        p.Rooms,
		participants: p.Participants,
		bookings:     p.Bookings,
		assignments:  p.Assignments,
		seating:      p.Seating,
		availability: p.Availability,
		dispatcher:   p.Dispatcher,
		tx:           p.Tx,
		metrics:      p.Metrics,
		validator:    p.Validator,
		logger:       p.Logger,
		eventLocks:   make(map[string]*eventLock),
	}
}

// lockEvent serializes mutating flows per event. The returned func releases
// the lock and drops the map entry when no other goroutine is waiting on it.
func (s *SchedulingService) lockEvent(eventID string) func() {
	s.locksMu.Lock()
	l, ok := s.eventLocks[eventID]
	if !ok {
		l = &eventLock{}
		s.eventLocks[eventID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.eventLocks, eventID)
		}
		s.locksMu.Unlock()
	}
}

// Commit finalizes the event's room and participant selection: it replaces the
// event's bookings and seat assignments atomically, then hands the result to
// the convocation pipeline. Any failure leaves the event's previous bookings
// and assignments untouched.
func (s *SchedulingService) Commit(ctx context.Context, eventID string, req dto.ScheduleCommitRequest) (*dto.ScheduleCommitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	unlock := s.lockEvent(eventID)
	defer unlock()

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	participants, err := s.participants.FindByIDs(ctx, req.ParticipantIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participants")
	}
	if missing := missingIDs(req.ParticipantIDs, participantIDSet(participants)); missing != "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("participant %s not found", missing))
	}

	rooms, err := s.rooms.FindByIDs(ctx, req.RoomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if missing := missingIDs(req.RoomIDs, roomIDSet(rooms)); missing != "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %s not found", missing))
	}

	assignments, summary, err := s.seating.Plan(eventID, participants, rooms)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var bookings []models.Booking
	bookings, err = s.bookings.ReserveWithTx(ctx, tx, eventID, req.RoomIDs, event.Date, event.StartTime, event.EndTime)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrRoomBooked.Code {
			s.metrics.RecordReservation("conflict")
		} else {
			s.metrics.RecordReservation("error")
		}
		return nil, err
	}

	if err = s.assignments.ReplaceForEventWithTx(ctx, tx, eventID, assignments); err != nil {
		s.metrics.RecordReservation("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignments")
	}

	if err = tx.Commit(); err != nil {
		s.metrics.RecordReservation("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule")
	}
	s.metrics.RecordReservation("committed")

	s.availability.InvalidateDate(ctx, event.Date)

	if s.dispatcher != nil {
		if dispatchErr := s.dispatcher.Dispatch(eventID); dispatchErr != nil {
			s.logger.Warn("convocation dispatch failed",
				zap.String("event_id", eventID),
				zap.Error(dispatchErr))
		}
	}

	return &dto.ScheduleCommitResponse{
		EventID:     eventID,
		Bookings:    bookings,
		Assignments: assignments,
		Summary:     summary,
	}, nil
}

// Cancel releases the event's rooms and discards its seat assignments.
func (s *SchedulingService) Cancel(ctx context.Context, eventID string) error {
	unlock := s.lockEvent(eventID)
	defer unlock()

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.bookings.ReleaseByEventWithTx(ctx, tx, eventID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release bookings")
	}
	if err = s.assignments.ReplaceForEventWithTx(ctx, tx, eventID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear assignments")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancellation")
	}

	s.availability.InvalidateDate(ctx, event.Date)
	return nil
}

// Bookings returns the event's current bookings.
func (s *SchedulingService) Bookings(ctx context.Context, eventID string) ([]models.Booking, error) {
	bookings, err := s.bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, nil
}

// Repartition builds the distribution report for a scheduled event.
func (s *SchedulingService) Repartition(ctx context.Context, eventID string) (*dto.RepartitionReport, error) {
	details, err := s.assignments.ListDetailsByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	report := &dto.RepartitionReport{EventID: eventID, Rows: make([]dto.RepartitionRow, 0, len(details))}
	counts := make(map[string]*models.RoomSummary)
	order := make([]string, 0)
	for _, detail := range details {
		report.Rows = append(report.Rows, dto.RepartitionRow{
			RoomID:      detail.RoomID,
			RoomName:    detail.RoomName,
			SeatNumber:  detail.SeatNumber,
			ExternalRef: detail.ExternalRef,
			LastName:    detail.LastName,
			FirstName:   detail.FirstName,
		})
		summary, ok := counts[detail.RoomID]
		if !ok {
			summary = &models.RoomSummary{
				RoomID:     detail.RoomID,
				RoomName:   detail.RoomName,
				Department: detail.Department,
				Capacity:   detail.Capacity,
			}
			counts[detail.RoomID] = summary
			order = append(order, detail.RoomID)
		}
		summary.Assigned++
	}
	for _, roomID := range order {
		report.Summary = append(report.Summary, *counts[roomID])
	}
	return report, nil
}

func participantIDSet(participants []models.Participant) map[string]struct{} {
	set := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		set[p.ID] = struct{}{}
	}
	return set
}

func roomIDSet(rooms []models.Room) map[string]struct{} {
	set := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		set[r.ID] = struct{}{}
	}
	return set
}

func missingIDs(requested []string, present map[string]struct{}) string {
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			return id
		}
	}
	return ""
}
