package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadops/course-allocation-api/internal/service"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
	"github.com/acadops/course-allocation-api/pkg/response"
)

// statsCacheKeyPattern matches every cached statistics payload. Mutating
// handlers invalidate it so stale aggregates never outlive an allocation.
const statsCacheKeyPattern = "allocation:stats:*"

// AssignmentHandler exposes faculty allocation endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	cache       *service.CacheService
	metrics     *service.MetricsService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService, cache *service.CacheService, metrics *service.MetricsService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, cache: cache, metrics: metrics}
}

// Assign godoc
// @Summary Assign a faculty member to a course
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.AssignFacultyRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/faculty [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req service.AssignFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload"))
		return
	}

	detail, err := h.assignments.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.metrics.RecordAllocation("assign_faculty", appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}

	h.metrics.RecordAllocation("assign_faculty", "success")
	_ = h.cache.Invalidate(c.Request.Context(), statsCacheKeyPattern)
	response.JSON(c, http.StatusOK, detail)
}

// BulkAssign godoc
// @Summary Assign faculty to courses in bulk
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body service.BulkAssignRequest true "Bulk assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /allocations/faculty/bulk [post]
func (h *AssignmentHandler) BulkAssign(c *gin.Context) {
	var req service.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assignment payload"))
		return
	}

	report, err := h.assignments.BulkAssign(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAllocation("bulk_assign_faculty", appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}

	h.metrics.RecordAllocation("bulk_assign_faculty", "success")
	if report.Summary.Successful > 0 {
		_ = h.cache.Invalidate(c.Request.Context(), statsCacheKeyPattern)
	}
	response.JSON(c, http.StatusOK, report, map[string]interface{}{"summary": report.Summary})
}
