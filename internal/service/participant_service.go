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

type participantRepository interface {
	List(ctx context.Context, filter models.ParticipantFilter) ([]models.Participant, int, error)
	FindByID(ctx context.Context, id string) (*models.Participant, error)
	Create(ctx context.Context, participant *models.Participant) error
	Delete(ctx context.Context, id string) error
}

// ParticipantService manages the participant registry.
type ParticipantService struct {
	repo      participantRepository
	validator *validator.Validate
}

// NewParticipantService creates a ParticipantService.
func NewParticipantService(repo participantRepository) *ParticipantService {
	return &ParticipantService{repo: repo, validator: validator.New()}
}

// ParticipantInput carries the mutable fields of a participant.
type ParticipantInput struct {
	ExternalRef string `json:"external_ref" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
}

// List returns participants matching the filter with the total count.
func (s *ParticipantService) List(ctx context.Context, filter models.ParticipantFilter) ([]models.Participant, int, error) {
	participants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	return participants, total, nil
}

// Get returns a single participant by id.
func (s *ParticipantService) Get(ctx context.Context, id string) (*models.Participant, error) {
	participant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participant")
	}
	return participant, nil
}

// Create registers a single participant.
func (s *ParticipantService) Create(ctx context.Context, input ParticipantInput) (*models.Participant, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participant payload")
	}
	participant := &models.Participant{
		ID:          uuid.NewString(),
		ExternalRef: input.ExternalRef,
		LastName:    input.LastName,
		FirstName:   input.FirstName,
		Email:       input.Email,
	}
	if err := s.repo.Create(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create participant")
	}
	return participant, nil
}

// Delete removes a participant from the registry.
func (s *ParticipantService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "participant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete participant")
	}
	return nil
}
