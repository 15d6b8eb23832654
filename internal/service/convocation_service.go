package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/repository"
	appErrors "github.com/examops/examsched-api/pkg/errors"
	"github.com/examops/examsched-api/pkg/export"
	"github.com/examops/examsched-api/pkg/jobs"
	"github.com/examops/examsched-api/pkg/storage"
)

const jobTypeConvocations = "generate_convocations"

type convocationEventSource interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type convocationSeatSource interface {
	ListDetailsByEvent(ctx context.Context, eventID string) ([]repository.SeatDetail, error)
}

// ConvocationService produces summons PDFs and distribution sheets for
// committed schedules. Generation runs on a background queue so a slow PDF
// pass never delays the scheduling response; a failed generation leaves the
// bookings in place and is retried by the queue.
type ConvocationService struct {
	events      convocationEventSource
	seats       convocationSeatSource
	renderer    *export.ConvocationRenderer
	pdfExporter *export.PDFExporter
	csvExporter *export.CSVExporter
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	queue       *jobs.Queue
	logger      *zap.Logger
}

// ConvocationServiceParams groups the service dependencies.
type ConvocationServiceParams struct {
	Events      convocationEventSource
	Seats       convocationSeatSource
	Renderer    *export.ConvocationRenderer
	PDFExporter *export.PDFExporter
	CSVExporter *export.CSVExporter
	Store       *storage.LocalStorage
	Signer      *storage.SignedURLSigner
	QueueConfig jobs.QueueConfig
	Logger      *zap.Logger
}

// NewConvocationService creates the service and its backing queue. Call Start
// before dispatching.
func NewConvocationService(p ConvocationServiceParams) *ConvocationService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	s := &ConvocationService{
		events:      p.Events,
		seats:       p.Seats,
		renderer:    p.Renderer,
		pdfExporter: p.PDFExporter,
		csvExporter: p.CSVExporter,
		store:       p.Store,
		signer:      p.Signer,
		logger:      p.Logger,
	}
	s.queue = jobs.NewQueue("convocations", s.handleJob, p.QueueConfig)
	return s
}

// Start launches the queue workers.
func (s *ConvocationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue.
func (s *ConvocationService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues convocation generation for the event.
func (s *ConvocationService) Dispatch(eventID string) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeConvocations,
		Payload: eventID,
	})
}

func (s *ConvocationService) handleJob(ctx context.Context, job jobs.Job) error {
	eventID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.Generate(ctx, eventID)
}

// Generate renders one convocation PDF per seated participant plus the
// distribution sheet, and stores them under the event's directory.
func (s *ConvocationService) Generate(ctx context.Context, eventID string) error {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	details, err := s.seats.ListDetailsByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load seat details: %w", err)
	}
	if len(details) == 0 {
		s.logger.Info("no assignments to convoke", zap.String("event_id", eventID))
		return nil
	}

	for _, seat := range details {
		conv := export.Convocation{
			EventTitle:      event.Title,
			EventKind:       event.Kind,
			Date:            event.Date,
			StartTime:       event.StartTime,
			EndTime:         event.EndTime,
			RoomName:        seat.RoomName,
			SeatNumber:      seat.SeatNumber,
			ParticipantName: seat.LastName + " " + seat.FirstName,
			ExternalRef:     seat.ExternalRef,
			QRPayload:       fmt.Sprintf("%s|%s|%s|%d", eventID, seat.ExternalRef, seat.RoomID, seat.SeatNumber),
		}
		data, err := s.renderer.Render(conv)
		if err != nil {
			return fmt.Errorf("render convocation for %s: %w", seat.ExternalRef, err)
		}
		if _, err := s.store.Save(convocationFileName(eventID, seat.ExternalRef), data); err != nil {
			return fmt.Errorf("store convocation for %s: %w", seat.ExternalRef, err)
		}
	}

	sheet, err := s.pdfExporter.Render(repartitionDataset(details), event.Title)
	if err != nil {
		return fmt.Errorf("render distribution sheet: %w", err)
	}
	if _, err := s.store.Save(repartitionFileName(eventID, "pdf"), sheet); err != nil {
		return fmt.Errorf("store distribution sheet: %w", err)
	}

	s.logger.Info("convocations generated",
		zap.String("event_id", eventID),
		zap.Int("count", len(details)))
	return nil
}

// Links returns signed download references for the event's generated
// documents. Files that were not generated yet are omitted.
func (s *ConvocationService) Links(ctx context.Context, eventID string) ([]dto.ConvocationLink, error) {
	details, err := s.seats.ListDetailsByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	names := make([]string, 0, len(details)+1)
	for _, seat := range details {
		names = append(names, convocationFileName(eventID, seat.ExternalRef))
	}
	names = append(names, repartitionFileName(eventID, "pdf"))

	links := make([]dto.ConvocationLink, 0, len(names))
	for _, name := range names {
		if _, err := os.Stat(s.store.Path(name)); err != nil {
			continue
		}
		token, expiresAt, err := s.signer.Generate(eventID, name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
		}
		links = append(links, dto.ConvocationLink{
			FileName:  filepath.Base(name),
			Token:     token,
			ExpiresAt: expiresAt.Format(time.RFC3339),
		})
	}
	return links, nil
}

// Open validates a signed token and opens the referenced file.
func (s *ConvocationService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	f, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return f, filepath.Base(relPath), nil
}

// ExportRepartitionCSV renders the distribution report as CSV.
func (s *ConvocationService) ExportRepartitionCSV(ctx context.Context, eventID string) ([]byte, error) {
	details, err := s.seats.ListDetailsByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	data, err := s.csvExporter.Render(repartitionDataset(details))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
	}
	return data, nil
}

// ExportRepartitionPDF renders the distribution report as PDF.
func (s *ConvocationService) ExportRepartitionPDF(ctx context.Context, eventID string) ([]byte, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	details, err := s.seats.ListDetailsByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	data, err := s.pdfExporter.Render(repartitionDataset(details), event.Title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
	}
	return data, nil
}

// StartCleanup periodically removes generated documents older than ttl.
func (s *ConvocationService) StartCleanup(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.store.CleanupOlderThan(ttl)
				if err != nil {
					s.logger.Warn("convocation cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("convocation cleanup", zap.Int("removed", len(removed)))
				}
			}
		}
	}()
}

func convocationFileName(eventID, externalRef string) string {
	return filepath.Join(eventID, "convocation_"+externalRef+".pdf")
}

func repartitionFileName(eventID, ext string) string {
	return filepath.Join(eventID, "repartition."+ext)
}

func repartitionDataset(details []repository.SeatDetail) export.Dataset {
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		rows = append(rows, []string{
			d.RoomName,
			strconv.Itoa(d.SeatNumber),
			d.ExternalRef,
			d.LastName,
			d.FirstName,
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Seat", "Ref", "Last name", "First name"},
		Rows:    rows,
	}
}
