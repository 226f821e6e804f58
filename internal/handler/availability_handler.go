package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/talimhub/edu-admin-api/internal/dto"
	"github.com/talimhub/edu-admin-api/internal/models"
	"github.com/talimhub/edu-admin-api/internal/service"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
	"github.com/talimhub/edu-admin-api/pkg/response"
)

// AvailabilityHandler manages availability slot endpoints. Mutations route
// through the approval service so teacher submissions land as pending change
// requests instead of direct writes.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
	approvals    *service.ApprovalService
	bulk         *service.BulkService
	conflicts    *service.ConflictService
	exports      *service.ExportService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(
	availability *service.AvailabilityService,
	approvals *service.ApprovalService,
	bulk *service.BulkService,
	conflicts *service.ConflictService,
	exports *service.ExportService,
) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		approvals:    approvals,
		bulk:         bulk,
		conflicts:    conflicts,
		exports:      exports,
	}
}

// List godoc
// @Summary List availability slots
// @Tags Availability
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param dayOfWeek query int false "Filter by weekday (0-6)"
// @Param isActive query bool false "Filter by activation flag"
// @Param search query string false "Teacher name or email search"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	var filter models.AvailabilityFilter
	filter.TeacherID = c.Query("teacherId")
	filter.Search = c.Query("search")
	if raw := c.Query("dayOfWeek"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be an integer"))
			return
		}
		filter.DayOfWeek = &day
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isActive must be a boolean"))
			return
		}
		filter.IsActive = &active
	}

	views, err := h.availability.ListWithTeachers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Get godoc
// @Summary Get one availability slot
// @Tags Availability
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /availability/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	slot, err := h.availability.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Create an availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateAvailabilityRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.approvals.SubmitCreate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Pending() {
		response.Accepted(c, outcome.Request)
		return
	}
	response.Created(c, outcome.Slot)
}

// Update godoc
// @Summary Update an availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.UpdateAvailabilityRequest true "Partial slot payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /availability/{id} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.approvals.SubmitUpdate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Pending() {
		response.Accepted(c, outcome.Request)
		return
	}
	response.JSON(c, http.StatusOK, outcome.Slot, nil)
}

// Delete godoc
// @Summary Delete an availability slot
// @Tags Availability
// @Produce json
// @Param id path string true "Slot ID"
// @Success 202 {object} response.Envelope
// @Success 204
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	outcome, err := h.approvals.SubmitDelete(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Pending() {
		response.Accepted(c, outcome.Request)
		return
	}
	response.NoContent(c)
}

// BulkSetActive godoc
// @Summary Activate or deactivate many slots
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.BulkSetActiveRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /availability/bulk/active [post]
func (h *AvailabilityHandler) BulkSetActive(c *gin.Context) {
	var req dto.BulkSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.Active == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active is required"))
		return
	}
	result, err := h.bulk.SetActive(c.Request.Context(), claimsFromContext(c), req.IDs, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkDelete godoc
// @Summary Delete many slots
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.BulkDeleteRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /availability/bulk/delete [post]
func (h *AvailabilityHandler) BulkDelete(c *gin.Context) {
	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.bulk.Delete(c.Request.Context(), claimsFromContext(c), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Conflicts godoc
// @Summary Detect overlapping availability slots
// @Tags Availability
// @Produce json
// @Param teacherId query string false "Limit the scan to one teacher"
// @Success 200 {object} response.Envelope
// @Router /availability/conflicts [get]
func (h *AvailabilityHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.conflicts.Detect(c.Request.Context(), c.Query("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// Export godoc
// @Summary Export one teacher's weekly schedule
// @Tags Availability
// @Produce text/csv
// @Produce application/pdf
// @Param teacherId path string true "Teacher ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /availability/export/{teacherId} [get]
func (h *AvailabilityHandler) Export(c *gin.Context) {
	result, err := h.exports.ExportWeekly(c.Request.Context(), c.Param("teacherId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
