package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/service"
	appErrors "github.com/examops/examsched-api/pkg/errors"
	"github.com/examops/examsched-api/pkg/response"
)

// EventHandler exposes event CRUD and the scheduling endpoints.
type EventHandler struct {
	events       *service.EventService
	scheduler    *service.SchedulingService
	convocations *service.ConvocationService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events *service.EventService, scheduler *service.SchedulingService, convocations *service.ConvocationService) *EventHandler {
	return &EventHandler{events: events, scheduler: scheduler, convocations: convocations}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param kind query string false "Filter by kind (EXAM or CONCOURS)"
// @Param department query string false "Filter by department"
// @Param date query string false "Filter by date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var filter models.EventFilter
	filter.Kind = c.Query("kind")
	filter.Department = c.Query("department")
	filter.Date = c.Query("date")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	events, total, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Get godoc
// @Summary Get event detail
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.EventInput true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var input service.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.EventInput true "Event payload"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var input service.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Delete event and release its rooms
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CommitSchedule godoc
// @Summary Commit room and participant selection for an event
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.ScheduleCommitRequest true "Selected rooms and participants"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events/{id}/assignments [post]
func (h *EventHandler) CommitSchedule(c *gin.Context) {
	var req dto.ScheduleCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.scheduler.Commit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CancelSchedule godoc
// @Summary Release an event's rooms and assignments
// @Tags Scheduling
// @Produce json
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id}/assignments [delete]
func (h *EventHandler) CancelSchedule(c *gin.Context) {
	if err := h.scheduler.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Bookings godoc
// @Summary List an event's bookings
// @Tags Scheduling
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/bookings [get]
func (h *EventHandler) Bookings(c *gin.Context) {
	bookings, err := h.scheduler.Bookings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// Repartition godoc
// @Summary Get the distribution report for an event
// @Tags Scheduling
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/repartition [get]
func (h *EventHandler) Repartition(c *gin.Context) {
	report, err := h.scheduler.Repartition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportRepartition godoc
// @Summary Download the distribution report
// @Tags Scheduling
// @Produce octet-stream
// @Param id path string true "Event ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /events/{id}/repartition/export [get]
func (h *EventHandler) ExportRepartition(c *gin.Context) {
	eventID := c.Param("id")
	format := c.DefaultQuery("format", "csv")

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case "csv":
		data, err = h.convocations.ExportRepartitionCSV(c.Request.Context(), eventID)
		contentType = "text/csv"
	case "pdf":
		data, err = h.convocations.ExportRepartitionPDF(c.Request.Context(), eventID)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("repartition_%s.%s", eventID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// Convocations godoc
// @Summary List signed download links for generated convocations
// @Tags Scheduling
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/convocations [get]
func (h *EventHandler) Convocations(c *gin.Context) {
	links, err := h.convocations.Links(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// RegenerateConvocations godoc
// @Summary Re-queue convocation generation for an event
// @Tags Scheduling
// @Produce json
// @Param id path string true "Event ID"
// @Success 202 {object} response.Envelope
// @Router /events/{id}/convocations [post]
func (h *EventHandler) RegenerateConvocations(c *gin.Context) {
	if err := h.convocations.Dispatch(c.Param("id")); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to queue generation"))
		return
	}
	response.Accepted(c, gin.H{"queued": true})
}
