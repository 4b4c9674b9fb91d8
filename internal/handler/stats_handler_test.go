package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/course-allocation-api/internal/models"
	"github.com/acadops/course-allocation-api/internal/service"
)

type statsRepoStub struct {
	courseTotal    int
	courseAssigned int
}

func (s *statsRepoStub) CourseCounts(ctx context.Context, scope models.AllocationScope) (int, int, int, error) {
	return s.courseTotal, s.courseAssigned, 0, nil
}

func (s *statsRepoStub) SeatsTaken(ctx context.Context, scope models.AllocationScope) (int, error) {
	return 0, nil
}

func (s *statsRepoStub) FacultyCounts(ctx context.Context, scope models.AllocationScope) (int, int, error) {
	return 0, 0, nil
}

func (s *statsRepoStub) StudentCounts(ctx context.Context, scope models.AllocationScope) (int, int, error) {
	return 0, 0, nil
}

func (s *statsRepoStub) Workload(ctx context.Context, scope models.AllocationScope) ([]models.FacultyWorkload, error) {
	return nil, nil
}

func newStatsHandlerFixture(repo service.StatsRepository) *StatsHandler {
	stats := service.NewStatsService(repo, nil, nil, nil)
	export := service.NewExportService(stats, nil)
	return NewStatsHandler(stats, export)
}

func TestStatsHandlerRequiresScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandlerFixture(&statsRepoStub{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/allocations/stats?academic_year=2026/2027", nil)
	c.Request = req

	handler.Stats(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsHandlerReturnsStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandlerFixture(&statsRepoStub{courseTotal: 4, courseAssigned: 3})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/allocations/stats?academic_year=2026/2027&semester=1", nil)
	c.Request = req

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.AllocationStats `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 4, envelope.Data.Courses.Total)
	assert.Equal(t, 75, envelope.Data.Courses.AssignmentRate)
	assert.Equal(t, false, envelope.Meta["cached"])
}

func TestStatsHandlerExportUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandlerFixture(&statsRepoStub{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/allocations/stats/export?academic_year=2026/2027&semester=1&format=xlsx", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandlerFixture(&statsRepoStub{courseTotal: 2, courseAssigned: 2})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/allocations/stats/export?academic_year=2026-2027&semester=1", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "allocation-report-2026-2027-1.csv")
	assert.Contains(t, w.Body.String(), "Faculty,Department,Courses,Share")
}
