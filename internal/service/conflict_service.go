package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
)

type conflictCourseReader interface {
	ListByFaculty(ctx context.Context, q sqlx.QueryerContext, facultyID string, scope models.AllocationScope, excludeCourseID string) ([]models.Course, error)
}

// ConflictService detects scheduling collisions for a faculty member.
type ConflictService struct {
	courses conflictCourseReader
	logger  *zap.Logger
}

// NewConflictService constructs a conflict detector.
func NewConflictService(courses conflictCourseReader, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{courses: courses, logger: logger}
}

// FindConflicts compares a candidate schedule against every course the
// faculty member already teaches in the given academic year and semester,
// excluding excludeCourseID. Schedules are small, so the pairwise scan is
// deliberate; no interval index is warranted. The queryer may be a
// transaction when the caller needs the read inside its own session.
// Malformed slots abort the check rather than comparing as free.
func (s *ConflictService) FindConflicts(ctx context.Context, q sqlx.QueryerContext, facultyID string, candidate []models.TimeSlot, excludeCourseID string, scope models.AllocationScope) ([]models.ScheduleConflict, error) {
	for _, slot := range candidate {
		if err := slot.Validate(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrMalformedTimeSlot.Code, appErrors.ErrMalformedTimeSlot.Status, "malformed candidate time slot")
		}
	}
	if len(candidate) == 0 {
		return nil, nil
	}

	existing, err := s.courses.ListByFaculty(ctx, q, facultyID, scope, excludeCourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty schedules")
	}

	var conflicts []models.ScheduleConflict
	for _, course := range existing {
		for _, existingSlot := range course.Schedule {
			for _, candidateSlot := range candidate {
				overlap, err := existingSlot.Overlaps(candidateSlot)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrMalformedTimeSlot.Code, appErrors.ErrMalformedTimeSlot.Status, "malformed stored time slot")
				}
				if overlap {
					conflicts = append(conflicts, models.ScheduleConflict{
						CourseID:      course.ID,
						CourseName:    course.Name,
						ExistingSlot:  existingSlot,
						CandidateSlot: candidateSlot,
					})
				}
			}
		}
	}
	return conflicts, nil
}
