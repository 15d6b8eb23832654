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

// ParticipantRepository provides persistence for students and candidates.
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository creates a new participant repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

const participantColumns = "id, external_ref, last_name, first_name, email, created_at"

// List returns participants with optional search and pagination. Search
// matches external ref, last name and email.
func (r *ParticipantRepository) List(ctx context.Context, filter models.ParticipantFilter) ([]models.Participant, int, error) {
	base := "FROM participants WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (external_ref ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY external_ref ASC LIMIT %d OFFSET %d", participantColumns, base, size, offset)
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list participants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count participants: %w", err)
	}

	return participants, total, nil
}

// FindByID loads a participant by id.
func (r *ParticipantRepository) FindByID(ctx context.Context, id string) (*models.Participant, error) {
	query := fmt.Sprintf("SELECT %s FROM participants WHERE id = $1", participantColumns)
	var participant models.Participant
	if err := r.db.GetContext(ctx, &participant, query, id); err != nil {
		return nil, err
	}
	return &participant, nil
}

// FindByIDs loads several participants at once. Missing ids are absent from the
// result; callers compare lengths when existence matters.
func (r *ParticipantRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Participant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM participants WHERE id IN (?)", participantColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build participants by ids query: %w", err)
	}
	query = r.db.Rebind(query)
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, args...); err != nil {
		return nil, fmt.Errorf("find participants by ids: %w", err)
	}
	return participants, nil
}

// Create stores a new participant record.
func (r *ParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO participants (id, external_ref, last_name, first_name, email, created_at) VALUES (:id, :external_ref, :last_name, :first_name, :email, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, participant); err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// BulkUpsert inserts imported participants in one transaction, updating name
// and email for rows whose external ref already exists. Returns the number of
// rows written.
func (r *ParticipantRepository) BulkUpsert(ctx context.Context, participants []models.Participant) (int, error) {
	if len(participants) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk upsert participants: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	written := 0
	for i := range participants {
		payload := participants[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx,
			`INSERT INTO participants (id, external_ref, last_name, first_name, email, created_at) VALUES (:id, :external_ref, :last_name, :first_name, :email, :created_at)
			ON CONFLICT (external_ref) DO UPDATE SET last_name = EXCLUDED.last_name, first_name = EXCLUDED.first_name, email = EXCLUDED.email`,
			&payload); err != nil {
			return 0, fmt.Errorf("upsert participant %s: %w", payload.ExternalRef, err)
		}
		participants[i] = payload
		written++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk upsert participants: %w", err)
	}
	return written, nil
}

// Delete removes a participant by id.
func (r *ParticipantRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}
