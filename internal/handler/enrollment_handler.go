package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadops/course-allocation-api/internal/service"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
	"github.com/acadops/course-allocation-api/pkg/response"
)

// EnrollmentHandler exposes student enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	cache       *service.CacheService
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, cache *service.CacheService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, cache: cache, metrics: metrics}
}

// Enroll godoc
// @Summary Enroll a student into a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload"))
		return
	}

	detail, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAllocation("enroll_student", appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}

	h.metrics.RecordAllocation("enroll_student", "success")
	_ = h.cache.Invalidate(c.Request.Context(), statsCacheKeyPattern)
	response.Created(c, detail)
}

// BulkEnroll godoc
// @Summary Enroll students into courses in bulk
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.BulkEnrollRequest true "Bulk enrollment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/bulk [post]
func (h *EnrollmentHandler) BulkEnroll(c *gin.Context) {
	var req service.BulkEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk enrollment payload"))
		return
	}

	report, err := h.enrollments.BulkEnroll(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAllocation("bulk_enroll_students", appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}

	h.metrics.RecordAllocation("bulk_enroll_students", "success")
	if report.Summary.Successful > 0 {
		_ = h.cache.Invalidate(c.Request.Context(), statsCacheKeyPattern)
	}
	response.JSON(c, http.StatusOK, report, map[string]interface{}{"summary": report.Summary})
}
