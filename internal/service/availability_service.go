package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type availabilityLedger interface {
	FindOccupiedRoomIDs(ctx context.Context, date, start, end, department string) ([]string, error)
	FindAvailableRooms(ctx context.Context, date, start, end, department string) ([]models.Room, error)
}

// AvailabilityService resolves which rooms are free for a given slot. Reads go
// through a short-TTL cache keyed by slot; every reservation commit or release
// invalidates the affected date.
type AvailabilityService struct {
	ledger    availabilityLedger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(ledger availabilityLedger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{ledger: ledger, cache: cache, validator: validate, logger: logger}
}

func (s *AvailabilityService) validateQuery(query dto.AvailabilityQuery) error {
	if err := s.validator.Struct(query); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	if !models.ValidDate(query.Date) {
		return appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	if !models.ValidClock(query.StartTime) || !models.ValidClock(query.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must be formatted HH:MM")
	}
	if query.StartTime >= query.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "start time must precede end time")
	}
	return nil
}

// Occupied returns ids of rooms already booked in an overlapping interval.
func (s *AvailabilityService) Occupied(ctx context.Context, query dto.AvailabilityQuery) ([]string, error) {
	if err := s.validateQuery(query); err != nil {
		return nil, err
	}

	key := occupiedCacheKey(query)
	var cached []string
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	ids, err := s.ledger.FindOccupiedRoomIDs(ctx, query.Date, query.StartTime, query.EndTime, query.Department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve occupied rooms")
	}
	if ids == nil {
		ids = []string{}
	}

	_ = s.cache.Set(ctx, key, ids, 0)
	return ids, nil
}

// Available returns the slot's free rooms in one step, the storage-level
// anti-join replacing the frontend's occupied-then-subtract round trips.
func (s *AvailabilityService) Available(ctx context.Context, query dto.AvailabilityQuery) ([]models.Room, error) {
	if err := s.validateQuery(query); err != nil {
		return nil, err
	}

	key := availableCacheKey(query)
	var cached []models.Room
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rooms, err := s.ledger.FindAvailableRooms(ctx, query.Date, query.StartTime, query.EndTime, query.Department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve available rooms")
	}
	if rooms == nil {
		rooms = []models.Room{}
	}

	_ = s.cache.Set(ctx, key, rooms, 0)
	return rooms, nil
}

// InvalidateDate drops every cached availability entry touching the date.
func (s *AvailabilityService) InvalidateDate(ctx context.Context, date string) {
	if s == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:*", date)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("date", date), zap.Error(err))
	}
}

func occupiedCacheKey(q dto.AvailabilityQuery) string {
	return fmt.Sprintf("availability:%s:occupied:%s-%s:%s", q.Date, q.StartTime, q.EndTime, q.Department)
}

func availableCacheKey(q dto.AvailabilityQuery) string {
	return fmt.Sprintf("availability:%s:available:%s-%s:%s", q.Date, q.StartTime, q.EndTime, q.Department)
}
