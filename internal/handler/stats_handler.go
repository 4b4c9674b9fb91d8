package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acadops/course-allocation-api/internal/models"
	"github.com/acadops/course-allocation-api/internal/service"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
	"github.com/acadops/course-allocation-api/pkg/response"
)

// StatsHandler exposes allocation statistics endpoints.
type StatsHandler struct {
	stats  *service.StatsService
	export *service.ExportService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService, export *service.ExportService) *StatsHandler {
	return &StatsHandler{stats: stats, export: export}
}

func scopeFromQuery(c *gin.Context) (models.AllocationScope, error) {
	scope := models.AllocationScope{
		AcademicYear: strings.TrimSpace(c.Query("academic_year")),
		Semester:     strings.TrimSpace(c.Query("semester")),
	}
	if scope.AcademicYear == "" || scope.Semester == "" {
		return scope, appErrors.Clone(appErrors.ErrValidation, "academic_year and semester are required")
	}
	return scope, nil
}

// Stats godoc
// @Summary Allocation statistics for an academic term
// @Tags Allocations
// @Produce json
// @Param academic_year query string true "Academic year, e.g. 2026/2027"
// @Param semester query string true "Semester within the year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /allocations/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, cached, err := h.stats.ComputeStats(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, map[string]interface{}{"cached": cached})
}

// Export godoc
// @Summary Download the allocation report
// @Tags Allocations
// @Produce text/csv
// @Produce application/pdf
// @Param academic_year query string true "Academic year"
// @Param semester query string true "Semester within the year"
// @Param format query string false "Report format: csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /allocations/stats/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)

	report, err := h.export.RenderAllocationReport(c.Request.Context(), scope, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
