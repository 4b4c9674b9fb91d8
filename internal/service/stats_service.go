package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
)

// StatsRepository describes the persistence layer required by StatsService.
type StatsRepository interface {
	CourseCounts(ctx context.Context, scope models.AllocationScope) (total, assigned, totalCapacity int, err error)
	SeatsTaken(ctx context.Context, scope models.AllocationScope) (int, error)
	FacultyCounts(ctx context.Context, scope models.AllocationScope) (total, withAssignments int, err error)
	StudentCounts(ctx context.Context, scope models.AllocationScope) (total, enrolled int, err error)
	Workload(ctx context.Context, scope models.AllocationScope) ([]models.FacultyWorkload, error)
}

// StatsService computes read-only allocation statistics with cache integration.
type StatsService struct {
	repo    StatsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStatsService constructs a stats service.
func NewStatsService(repo StatsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// ComputeStats aggregates allocation statistics for the scope. The boolean
// indicates whether data originated from cache. Empty data sets produce
// zero rates, never an error.
func (s *StatsService) ComputeStats(ctx context.Context, scope models.AllocationScope) (*models.AllocationStats, bool, error) {
	cacheKey := fmt.Sprintf("allocation:stats:%s:%s", scope.AcademicYear, scope.Semester)
	var cached models.AllocationStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()

	courseTotal, courseAssigned, totalCapacity, err := s.repo.CourseCounts(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	seatsTaken, err := s.repo.SeatsTaken(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
	}
	facultyTotal, facultyAssigned, err := s.repo.FacultyCounts(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count faculty")
	}
	studentTotal, studentEnrolled, err := s.repo.StudentCounts(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	workload, err := s.repo.Workload(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty workload")
	}

	if s.metrics != nil {
		s.metrics.ObserveDBQuery("allocation_stats", time.Since(start))
	}

	stats := &models.AllocationStats{
		Scope: scope,
		Courses: models.CourseAllocationStats{
			Total:               courseTotal,
			Assigned:            courseAssigned,
			Unassigned:          courseTotal - courseAssigned,
			AssignmentRate:      percent(courseAssigned, courseTotal),
			TotalCapacity:       totalCapacity,
			SeatsTaken:          seatsTaken,
			CapacityUtilization: percent(seatsTaken, totalCapacity),
		},
		Faculty: models.FacultyUtilizationStats{
			Total:           facultyTotal,
			WithAssignments: facultyAssigned,
			UtilizationRate: percent(facultyAssigned, facultyTotal),
			Workload:        workload,
		},
		Students: models.StudentEnrollmentStats{
			Total:          studentTotal,
			Enrolled:       studentEnrolled,
			EnrollmentRate: percent(studentEnrolled, studentTotal),
		},
		GeneratedAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
			s.logger.Warn("cache allocation stats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// percent rounds to the nearest integer and yields 0 for an empty whole.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
