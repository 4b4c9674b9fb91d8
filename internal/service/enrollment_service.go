package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
)

type enrollmentRepository interface {
	ExistsCounted(ctx context.Context, q sqlx.QueryerContext, studentID, courseID string) (bool, error)
	CountCounted(ctx context.Context, q sqlx.QueryerContext, courseID string) (int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollStudentRequest describes a single enrollment.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Force     bool   `json:"force,omitempty"`
}

// BulkEnrollmentItem is one entry in a bulk enrollment batch.
type BulkEnrollmentItem struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// BulkEnrollRequest describes a bulk enrollment batch.
type BulkEnrollRequest struct {
	Enrollments []BulkEnrollmentItem `json:"enrollments" validate:"required,min=1,dive"`
}

// EnrollmentService registers students into courses.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   enrollmentCourseReader
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	maxBatch  int
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses enrollmentCourseReader, tx txProvider, validate *validator.Validate, logger *zap.Logger, maxBatch int) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatch <= 0 {
		maxBatch = 200
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, tx: tx, validator: validate, logger: logger, maxBatch: maxBatch}
}

// Enroll registers a student into a course after the ordered precondition
// checks: student exists, course exists, no duplicate seat, free capacity.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	enrollment, err := s.enroll(ctx, req.StudentID, req.CourseID, req.Force)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// enroll performs the single-item operation. The duplicate and capacity
// checks run in the same serializable transaction as the insert so the
// check-then-act cannot race a concurrent enrollment for the same course.
func (s *EnrollmentService) enroll(ctx context.Context, studentID, courseID string, force bool) (*models.Enrollment, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to start enrollment transaction")
	}

	exists, err := s.repo.ExistsCounted(ctx, tx, studentID, courseID)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "student already enrolled in course")
	}

	if !force {
		taken, err := s.repo.CountCounted(ctx, tx, courseID)
		if err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course enrollments")
		}
		if taken >= course.MaxCapacity {
			_ = tx.Rollback()
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("course is full (%d/%d seats)", taken, course.MaxCapacity))
		}
	}

	enrollment := &models.Enrollment{
		StudentID:    studentID,
		CourseID:     courseID,
		AcademicYear: course.AcademicYear,
		Semester:     course.Semester,
		Status:       models.EnrollmentStatusActive,
		EnrolledAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tx, enrollment); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to commit enrollment")
	}
	return enrollment, nil
}

// BulkEnroll processes each pair independently: one student's duplicate or
// capacity failure never blocks the other items. Atomicity covers only each
// item's own check-then-insert.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, req BulkEnrollRequest) (*models.BulkReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk enrollment payload")
	}
	if len(req.Enrollments) > s.maxBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch exceeds %d items", s.maxBatch))
	}

	results := make([]models.BulkItemResult, len(req.Enrollments))
	for i, item := range req.Enrollments {
		results[i] = models.BulkItemResult{Index: i, StudentID: item.StudentID, CourseID: item.CourseID}

		enrollment, err := s.enroll(ctx, item.StudentID, item.CourseID, false)
		if err != nil {
			appErr := appErrors.FromError(err)
			switch appErr.Code {
			case appErrors.ErrDuplicateEnrollment.Code, appErrors.ErrCapacityExceeded.Code:
				results[i].Status = models.BulkItemConflict
			default:
				results[i].Status = models.BulkItemError
			}
			results[i].Reason = appErr.Message
			continue
		}

		results[i].Status = models.BulkItemSuccess
		results[i].Reason = "enrolled"
		results[i].EnrollmentID = enrollment.ID
	}

	report := &models.BulkReport{Results: results}
	report.Summarize()
	return report, nil
}
