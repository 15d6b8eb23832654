package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

type scheduleReleaser interface {
	Cancel(ctx context.Context, eventID string) error
}

// EventService manages the exam and concours session registry.
type EventService struct {
	repo      eventRepository
	scheduler scheduleReleaser
	validator *validator.Validate
}

// NewEventService creates an EventService.
func NewEventService(repo eventRepository, scheduler scheduleReleaser) *EventService {
	return &EventService{repo: repo, scheduler: scheduler, validator: validator.New()}
}

// EventInput carries the mutable fields of an event.
type EventInput struct {
	Kind       string `json:"kind" validate:"required,oneof=EXAM CONCOURS"`
	Title      string `json:"title" validate:"required"`
	ModuleName string `json:"module_name"`
	Department string `json:"department" validate:"required"`
	Date       string `json:"date" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
}

func (s *EventService) validateInput(input EventInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !models.ValidDate(input.Date) {
		return appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	if !models.ValidClock(input.StartTime) || !models.ValidClock(input.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must be formatted HH:MM")
	}
	if input.StartTime >= input.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return nil
}

// List returns events matching the filter with the total count.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, total, nil
}

// Get returns a single event by id.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create registers a new event.
func (s *EventService) Create(ctx context.Context, input EventInput) (*models.Event, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	event := &models.Event{
		ID:         uuid.NewString(),
		Kind:       input.Kind,
		Title:      input.Title,
		ModuleName: input.ModuleName,
		Department: input.Department,
		Date:       input.Date,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update changes an event's descriptive fields. Changing the slot does not
// silently move bookings; the operator re-commits the schedule afterwards and
// the ledger re-checks the new interval then.
func (s *EventService) Update(ctx context.Context, id string, input EventInput) (*models.Event, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Kind = input.Kind
	event.Title = input.Title
	event.ModuleName = input.ModuleName
	event.Department = input.Department
	event.Date = input.Date
	event.StartTime = input.StartTime
	event.EndTime = input.EndTime
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Delete removes an event after releasing its rooms and seat assignments.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.scheduler.Cancel(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}
