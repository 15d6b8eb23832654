package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examops/examsched-api/internal/models"
)

// RoomRepository provides persistence for examination rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, name, department, capacity, category, created_at, updated_at"

// List returns rooms with optional filtering and pagination.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	base := "FROM rooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"capacity":   true,
		"department": true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", roomColumns, base, sortBy, order, size, offset)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}

	return rooms, total, nil
}

// FindByID loads a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByIDs loads several rooms at once. Missing ids are simply absent from
// the result; callers compare lengths when existence matters.
func (r *RoomRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM rooms WHERE id IN (?)", roomColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build rooms by ids query: %w", err)
	}
	query = r.db.Rebind(query)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("find rooms by ids: %w", err)
	}
	return rooms, nil
}

// ListByDepartment returns the department's room pool ordered by name.
func (r *RoomRepository) ListByDepartment(ctx context.Context, department string) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE department = $1 ORDER BY name ASC", roomColumns)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, department); err != nil {
		return nil, fmt.Errorf("list rooms by department: %w", err)
	}
	return rooms, nil
}

// ListAmphitheaters returns every amphitheater regardless of department.
func (r *RoomRepository) ListAmphitheaters(ctx context.Context) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE category = $1 ORDER BY name ASC", roomColumns)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, models.RoomCategoryAmphitheater); err != nil {
		return nil, fmt.Errorf("list amphitheaters: %w", err)
	}
	return rooms, nil
}

// ListExcluding returns rooms whose id is not in the provided list, mirroring
// the occupied-then-subtract call shape the admin frontend uses.
func (r *RoomRepository) ListExcluding(ctx context.Context, excludeIDs []string) ([]models.Room, error) {
	if len(excludeIDs) == 0 {
		query := fmt.Sprintf("SELECT %s FROM rooms ORDER BY name ASC", roomColumns)
		var rooms []models.Room
		if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		return rooms, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM rooms WHERE id NOT IN (?) ORDER BY name ASC", roomColumns), excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("build rooms excluding query: %w", err)
	}
	query = r.db.Rebind(query)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms excluding: %w", err)
	}
	return rooms, nil
}

// Create stores a new room record.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, name, department, capacity, category, created_at, updated_at) VALUES (:id, :name, :department, :capacity, :category, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update modifies a room record.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms SET name = :name, department = :department, capacity = :capacity, category = :category, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// Delete removes a room by id.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}
