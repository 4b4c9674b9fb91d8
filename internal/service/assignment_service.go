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

// Conflict policies for single assignments and bulk batches.
const (
	PolicyReject = "reject"
	PolicyForce  = "force"

	ResolutionAbort = "abort"
	ResolutionSkip  = "skip"
)

type assignmentCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	UpdateAssignment(ctx context.Context, exec sqlx.ExtContext, courseID, facultyID string, schedule models.TimeSlots, updatedAt time.Time) error
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

type conflictFinder interface {
	FindConflicts(ctx context.Context, q sqlx.QueryerContext, facultyID string, candidate []models.TimeSlot, excludeCourseID string, scope models.AllocationScope) ([]models.ScheduleConflict, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AssignFacultyRequest describes a single faculty assignment.
type AssignFacultyRequest struct {
	FacultyID string           `json:"faculty_id" validate:"required"`
	Schedule  models.TimeSlots `json:"schedule,omitempty"`
	Policy    string           `json:"policy" validate:"omitempty,oneof=reject force"`
}

// BulkAssignmentItem is one entry in a bulk assignment batch.
type BulkAssignmentItem struct {
	CourseID  string           `json:"course_id" validate:"required"`
	FacultyID string           `json:"faculty_id" validate:"required"`
	Schedule  models.TimeSlots `json:"schedule,omitempty"`
}

// BulkAssignRequest describes a bulk assignment batch.
type BulkAssignRequest struct {
	Assignments        []BulkAssignmentItem `json:"assignments" validate:"required,min=1,dive"`
	ConflictResolution string               `json:"conflict_resolution" validate:"omitempty,oneof=abort skip"`
}

// AssignmentService allocates faculty to courses.
type AssignmentService struct {
	courses   assignmentCourseRepo
	faculty   facultyReader
	conflicts conflictFinder
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	maxBatch  int
}

// NewAssignmentService wires assignment dependencies.
func NewAssignmentService(courses assignmentCourseRepo, faculty facultyReader, conflicts conflictFinder, tx txProvider, validate *validator.Validate, logger *zap.Logger, maxBatch int) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatch <= 0 {
		maxBatch = 200
	}
	return &AssignmentService{
		courses:   courses,
		faculty:   faculty,
		conflicts: conflicts,
		tx:        tx,
		validator: validate,
		logger:    logger,
		maxBatch:  maxBatch,
	}
}

// Assign allocates one faculty member to one course. Under the default
// reject policy a non-empty conflict list aborts with no mutation; the
// force policy proceeds regardless.
func (s *AssignmentService) Assign(ctx context.Context, courseID string, req AssignFacultyRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	faculty, err := s.faculty.FindByID(ctx, req.FacultyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if !faculty.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "faculty inactive")
	}

	candidate := course.Schedule
	if req.Schedule != nil {
		candidate = req.Schedule
	}

	conflicts, err := s.conflicts.FindConflicts(ctx, nil, req.FacultyID, candidate, courseID, course.Scope())
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 && req.Policy != PolicyForce {
		detail := &models.ScheduleConflictError{
			Message:   fmt.Sprintf("faculty has %d conflicting slot(s) in %s %s", len(conflicts), course.AcademicYear, course.Semester),
			Conflicts: conflicts,
		}
		return nil, appErrors.Wrap(detail, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflict detected")
	}

	if err := s.courses.UpdateAssignment(ctx, nil, courseID, req.FacultyID, req.Schedule, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign faculty")
	}

	detail, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course detail")
	}
	return detail, nil
}

type pendingAssignment struct {
	index     int
	item      BulkAssignmentItem
	candidate models.TimeSlots
	override  models.TimeSlots
	scope     models.AllocationScope
}

// BulkAssign processes a batch of assignments in three phases: validate
// every item, decide per the conflict resolution, then commit all pending
// mutations in one transactional session. Any storage fault during commit
// rolls back the entire batch.
func (s *AssignmentService) BulkAssign(ctx context.Context, req BulkAssignRequest) (*models.BulkReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assignment payload")
	}
	if len(req.Assignments) > s.maxBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch exceeds %d items", s.maxBatch))
	}
	resolution := req.ConflictResolution
	if resolution == "" {
		resolution = ResolutionAbort
	}

	results := make([]models.BulkItemResult, len(req.Assignments))
	var pending []pendingAssignment
	hasConflict := false

	for i, item := range req.Assignments {
		results[i] = models.BulkItemResult{Index: i, CourseID: item.CourseID, FacultyID: item.FacultyID}

		course, err := s.courses.FindByID(ctx, item.CourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				results[i].Status = models.BulkItemError
				results[i].Reason = "course not found"
			} else {
				results[i].Status = models.BulkItemError
				results[i].Reason = "failed to load course"
			}
			continue
		}

		faculty, err := s.faculty.FindByID(ctx, item.FacultyID)
		if err != nil {
			if err == sql.ErrNoRows {
				results[i].Status = models.BulkItemError
				results[i].Reason = "faculty not found"
			} else {
				results[i].Status = models.BulkItemError
				results[i].Reason = "failed to load faculty"
			}
			continue
		}
		if !faculty.Active {
			results[i].Status = models.BulkItemError
			results[i].Reason = "faculty inactive"
			continue
		}

		candidate := course.Schedule
		if item.Schedule != nil {
			candidate = item.Schedule
		}

		conflicts, err := s.conflicts.FindConflicts(ctx, nil, item.FacultyID, candidate, item.CourseID, course.Scope())
		if err != nil {
			results[i].Status = models.BulkItemError
			results[i].Reason = appErrors.FromError(err).Message
			continue
		}
		if len(conflicts) > 0 {
			results[i].Status = models.BulkItemConflict
			results[i].Reason = fmt.Sprintf("faculty has %d conflicting slot(s)", len(conflicts))
			results[i].Conflicts = conflicts
			hasConflict = true
			continue
		}

		pending = append(pending, pendingAssignment{
			index:     i,
			item:      item,
			candidate: candidate,
			override:  item.Schedule,
			scope:     course.Scope(),
		})
	}

	if resolution == ResolutionAbort && hasConflict {
		for _, p := range pending {
			results[p.index].Status = models.BulkItemError
			results[p.index].Reason = "batch aborted: conflicting assignments present"
		}
		report := &models.BulkReport{Results: results}
		report.Summarize()
		return report, nil
	}

	if len(pending) > 0 {
		s.commitBulk(ctx, resolution, pending, results)
	}

	report := &models.BulkReport{Results: results}
	report.Summarize()
	return report, nil
}

// commitBulk applies every pending assignment inside one serializable
// transaction, re-checking conflicts within the session so the read and the
// write cannot interleave with a concurrent writer.
func (s *AssignmentService) commitBulk(ctx context.Context, resolution string, pending []pendingAssignment, results []models.BulkItemResult) {
	failPending := func(reason string) {
		for _, p := range pending {
			if results[p.index].Status == "" || results[p.index].Status == models.BulkItemSuccess {
				results[p.index].Status = models.BulkItemError
				results[p.index].Reason = reason
			}
		}
	}

	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Error("begin bulk assignment transaction", zap.Error(err))
		failPending("transaction could not be started")
		return
	}

	var commitErr error
	for _, p := range pending {
		conflicts, err := s.conflicts.FindConflicts(ctx, tx, p.item.FacultyID, p.candidate, p.item.CourseID, p.scope)
		if err != nil {
			commitErr = err
			break
		}
		if len(conflicts) > 0 {
			if resolution == ResolutionSkip {
				results[p.index].Status = models.BulkItemConflict
				results[p.index].Reason = fmt.Sprintf("faculty has %d conflicting slot(s)", len(conflicts))
				results[p.index].Conflicts = conflicts
				continue
			}
			commitErr = appErrors.Clone(appErrors.ErrConflict, "conflicting assignment appeared during commit")
			break
		}
		if err := s.courses.UpdateAssignment(ctx, tx, p.item.CourseID, p.item.FacultyID, p.override, time.Now().UTC()); err != nil {
			commitErr = err
			break
		}
		results[p.index].Status = models.BulkItemSuccess
		results[p.index].Reason = "assigned"
	}

	if commitErr == nil {
		commitErr = tx.Commit()
	}
	if commitErr != nil {
		_ = tx.Rollback()
		s.logger.Error("bulk assignment rolled back", zap.Error(commitErr))
		failPending("transaction rolled back: " + appErrors.FromError(commitErr).Message)
	}
}
