package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examops/examsched-api/internal/dto"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/service"
	appErrors "github.com/examops/examsched-api/pkg/errors"
	"github.com/examops/examsched-api/pkg/response"
)

// RoomHandler exposes the room catalog and availability endpoints.
type RoomHandler struct {
	catalog      *service.CatalogService
	availability *service.AvailabilityService
}

// NewRoomHandler constructs RoomHandler.
func NewRoomHandler(catalog *service.CatalogService, availability *service.AvailabilityService) *RoomHandler {
	return &RoomHandler{catalog: catalog, availability: availability}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param department query string false "Filter by department"
// @Param category query string false "Filter by category"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	var filter models.RoomFilter
	filter.Department = strings.TrimSpace(c.Query("department"))
	filter.Category = c.Query("category")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rooms, pagination, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}

// ListByDepartment godoc
// @Summary List rooms of a department
// @Tags Rooms
// @Produce json
// @Param department path string true "Department"
// @Success 200 {object} response.Envelope
// @Router /rooms/department/{department} [get]
func (h *RoomHandler) ListByDepartment(c *gin.Context) {
	rooms, err := h.catalog.ListByDepartment(c.Request.Context(), c.Param("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// ListAmphitheaters godoc
// @Summary List amphitheaters
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms/amphitheaters [get]
func (h *RoomHandler) ListAmphitheaters(c *gin.Context) {
	rooms, err := h.catalog.ListAmphitheaters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Occupied godoc
// @Summary List ids of rooms occupied during a slot
// @Tags Rooms
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param department query string false "Restrict to a department"
// @Success 200 {object} response.Envelope
// @Router /rooms/occupied [get]
func (h *RoomHandler) Occupied(c *gin.Context) {
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	ids, err := h.availability.Occupied(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

// Available godoc
// @Summary List rooms free during a slot
// @Tags Rooms
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param department query string false "Restrict to a department"
// @Success 200 {object} response.Envelope
// @Router /rooms/availability [get]
func (h *RoomHandler) Available(c *gin.Context) {
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	rooms, err := h.availability.Available(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Excluding godoc
// @Summary List rooms outside an exclusion set
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body dto.ExcludeRoomsRequest true "Room ids to exclude"
// @Success 200 {object} response.Envelope
// @Router /rooms/available [post]
func (h *RoomHandler) Excluding(c *gin.Context) {
	var req dto.ExcludeRoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rooms, err := h.catalog.ListExcluding(c.Request.Context(), req.ExcludeIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Get godoc
// @Summary Get room detail
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Create godoc
// @Summary Create room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body service.UpdateRoomRequest true "Room payload"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	var req service.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.catalog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 204
// @Router /rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
