package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListByDepartment(ctx context.Context, department string) ([]models.Room, error)
	ListAmphitheaters(ctx context.Context) ([]models.Room, error)
	ListExcluding(ctx context.Context, excludeIDs []string) ([]models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

type roomBookingCounter interface {
	CountFromDate(ctx context.Context, roomID, fromDate string) (int, error)
}

// CreateRoomRequest describes payload for creating a room.
type CreateRoomRequest struct {
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
	Capacity   int    `json:"capacity" validate:"required,gt=0"`
	Category   string `json:"category" validate:"required,oneof=AMPHITHEATER CLASSROOM"`
}

// UpdateRoomRequest updates an existing room.
type UpdateRoomRequest struct {
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
	Capacity   int    `json:"capacity" validate:"required,gt=0"`
	Category   string `json:"category" validate:"required,oneof=AMPHITHEATER CLASSROOM"`
}

// CatalogService is the room catalog: read paths feed the scheduling core,
// write paths back the admin CRUD screens.
type CatalogService struct {
	rooms     roomRepository
	bookings  roomBookingCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService instantiates CatalogService.
func NewCatalogService(rooms roomRepository, bookings roomBookingCounter, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{rooms: rooms, bookings: bookings, validator: validate, logger: logger}
}

// List returns rooms with pagination metadata.
func (s *CatalogService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rooms, pagination, nil
}

// ListByDepartment returns the department's room pool.
func (s *CatalogService) ListByDepartment(ctx context.Context, department string) ([]models.Room, error) {
	rooms, err := s.rooms.ListByDepartment(ctx, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list department rooms")
	}
	return rooms, nil
}

// ListAmphitheaters returns every amphitheater regardless of department.
func (s *CatalogService) ListAmphitheaters(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.ListAmphitheaters(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list amphitheaters")
	}
	return rooms, nil
}

// ListExcluding returns rooms outside the given id list.
func (s *CatalogService) ListExcluding(ctx context.Context, excludeIDs []string) ([]models.Room, error) {
	rooms, err := s.rooms.ListExcluding(ctx, excludeIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// Get loads a single room.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create inserts a new room.
func (s *CatalogService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := models.Room{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Department: req.Department,
		Capacity:   req.Capacity,
		Category:   req.Category,
	}
	if err := s.rooms.Create(ctx, &room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return &room, nil
}

// Update modifies an existing room.
func (s *CatalogService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	existing, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	updated := models.Room{
		ID:         existing.ID,
		Name:       req.Name,
		Department: req.Department,
		Capacity:   req.Capacity,
		Category:   req.Category,
		CreatedAt:  existing.CreatedAt,
	}
	if err := s.rooms.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return &updated, nil
}

// Delete removes a room unless upcoming bookings still reference it.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	today := time.Now().UTC().Format("2006-01-02")
	count, err := s.bookings.CountFromDate(ctx, id, today)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room bookings")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "room has upcoming bookings")
	}

	if err := s.rooms.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}
