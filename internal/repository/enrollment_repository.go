package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadops/course-allocation-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ExistsCounted checks whether the student already holds a seat in the
// course. ACTIVE and COMPLETED enrollments both count; DROPPED does not.
func (r *EnrollmentRepository) ExistsCounted(ctx context.Context, q sqlx.QueryerContext, studentID, courseID string) (bool, error) {
	if q == nil {
		q = r.db
	}
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, query, studentID, courseID, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check counted enrollment: %w", err)
	}
	return true, nil
}

// CountCounted returns the number of seats taken in a course.
func (r *EnrollmentRepository) CountCounted(ctx context.Context, q sqlx.QueryerContext, courseID string) (int, error) {
	if q == nil {
		q = r.db
	}
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status IN ($2, $3)`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, courseID, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment record. The executor may be the
// transaction wrapping the duplicate and capacity checks.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if exec == nil {
		exec = r.db
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, academic_year, semester, status, enrolled_at, created_at)
        VALUES (:id, :student_id, :course_id, :academic_year, :semester, :status, :enrolled_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.academic_year, e.semester, e.status, e.enrolled_at, e.created_at,
        s.full_name AS student_name, c.name AS course_name, c.code AS course_code
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}
