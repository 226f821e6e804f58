package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talimhub/edu-admin-api/internal/dto"
	"github.com/talimhub/edu-admin-api/internal/models"
	"github.com/talimhub/edu-admin-api/internal/service"
	appErrors "github.com/talimhub/edu-admin-api/pkg/errors"
	"github.com/talimhub/edu-admin-api/pkg/response"
)

// ChangeRequestHandler manages the availability approval workflow endpoints.
type ChangeRequestHandler struct {
	approvals *service.ApprovalService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(approvals *service.ApprovalService) *ChangeRequestHandler {
	return &ChangeRequestHandler{approvals: approvals}
}

// List godoc
// @Summary List availability change requests
// @Tags ChangeRequests
// @Produce json
// @Param status query string false "Filter by status (repeatable)"
// @Param teacherId query string false "Filter by teacher"
// @Param changeType query string false "Filter by change type"
// @Success 200 {object} response.Envelope
// @Router /availability/requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	query := dto.ChangeRequestQuery{
		TeacherID:  c.Query("teacherId"),
		ChangeType: models.ChangeType(c.Query("changeType")),
	}
	for _, status := range c.QueryArray("status") {
		query.Status = append(query.Status, models.RequestStatus(status))
	}

	requests, err := h.approvals.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get one change request
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /availability/requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	request, err := h.approvals.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve a pending change request
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /availability/requests/{id}/approve [post]
func (h *ChangeRequestHandler) Approve(c *gin.Context) {
	request, err := h.approvals.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a pending change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectChangeRequest false "Rejection notes"
// @Success 200 {object} response.Envelope
// @Router /availability/requests/{id}/reject [post]
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	var req dto.RejectChangeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	request, err := h.approvals.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
