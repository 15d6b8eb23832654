package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type participantWriter interface {
	BulkUpsert(ctx context.Context, participants []models.Participant) (int, error)
}

// ImportService ingests participant rosters from CSV files exported by the
// student records system. Columns are matched by header name, so column order
// does not matter.
type ImportService struct {
	repo    participantWriter
	maxRows int
	logger  *zap.Logger
}

// NewImportService creates an ImportService. maxRows caps the accepted file
// size; zero means no cap.
func NewImportService(repo participantWriter, maxRows int, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, maxRows: maxRows, logger: logger}
}

var importColumns = map[string]string{
	"external_ref": "external_ref",
	"externalref":  "external_ref",
	"cne":          "external_ref",
	"last_name":    "last_name",
	"lastname":     "last_name",
	"nom":          "last_name",
	"first_name":   "first_name",
	"firstname":    "first_name",
	"prenom":       "first_name",
	"email":        "email",
	"mail":         "email",
}

// ImportCSV parses the reader as a participant CSV and upserts every valid
// row, keyed on external_ref. Invalid rows are reported, not fatal.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable CSV file")
	}
	index := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := importColumns[key]; ok {
			index[canonical] = i
		}
	}
	for _, required := range []string{"external_ref", "last_name", "first_name"} {
		if _, ok := index[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required column %q", required))
		}
	}

	result := &dto.ImportResult{}
	seen := make(map[string]struct{})
	batch := make([]models.Participant, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if s.maxRows > 0 && len(batch) >= s.maxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d row limit", s.maxRows))
		}

		participant := models.Participant{
			ID:          uuid.NewString(),
			ExternalRef: strings.TrimSpace(record[index["external_ref"]]),
			LastName:    strings.TrimSpace(record[index["last_name"]]),
			FirstName:   strings.TrimSpace(record[index["first_name"]]),
		}
		if i, ok := index["email"]; ok && i < len(record) {
			participant.Email = strings.TrimSpace(record[i])
		}
		if participant.ExternalRef == "" || participant.LastName == "" || participant.FirstName == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing external_ref or name", line))
			continue
		}
		if _, dup := seen[participant.ExternalRef]; dup {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: duplicate external_ref %s", line, participant.ExternalRef))
			continue
		}
		seen[participant.ExternalRef] = struct{}{}
		batch = append(batch, participant)
	}

	if len(batch) == 0 {
		return result, nil
	}
	imported, err := s.repo.BulkUpsert(ctx, batch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist participants")
	}
	result.Imported = imported
	s.logger.Info("participant import completed",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
