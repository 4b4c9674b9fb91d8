package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/course-allocation-api/internal/models"
)

const courseColumns = `id, name, code, academic_year, semester, class_section, max_capacity, schedule, assigned_faculty_id, created_at, updated_at`

// CourseRepository handles persistence of courses and their assignments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course with assigned faculty info populated.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.code, c.academic_year, c.semester, c.class_section,
        c.max_capacity, c.schedule, c.assigned_faculty_id, c.created_at, c.updated_at,
        f.full_name AS faculty_name, f.department AS faculty_department
        FROM courses c
        LEFT JOIN faculty f ON f.id = c.assigned_faculty_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByFaculty returns the courses assigned to a faculty member within one
// academic year and semester, optionally excluding a course. The queryer may
// be a transaction so the bulk commit phase re-checks inside its own session.
func (r *CourseRepository) ListByFaculty(ctx context.Context, q sqlx.QueryerContext, facultyID string, scope models.AllocationScope, excludeCourseID string) ([]models.Course, error) {
	if q == nil {
		q = r.db
	}
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE assigned_faculty_id = $1 AND academic_year = $2 AND semester = $3`, courseColumns)
	args := []interface{}{facultyID, scope.AcademicYear, scope.Semester}
	if excludeCourseID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeCourseID)
	}
	query += " ORDER BY code ASC"
	var courses []models.Course
	if err := sqlx.SelectContext(ctx, q, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list faculty courses: %w", err)
	}
	return courses, nil
}

// UpdateAssignment sets the assigned faculty and optionally replaces the
// schedule. The executor may be a transaction covering a whole batch.
func (r *CourseRepository) UpdateAssignment(ctx context.Context, exec sqlx.ExtContext, courseID, facultyID string, schedule models.TimeSlots, updatedAt time.Time) error {
	if exec == nil {
		exec = r.db
	}
	var (
		result sql.Result
		err    error
	)
	if schedule != nil {
		const query = `UPDATE courses SET assigned_faculty_id = $2, schedule = $3, updated_at = $4 WHERE id = $1`
		result, err = exec.ExecContext(ctx, query, courseID, facultyID, schedule, updatedAt)
	} else {
		const query = `UPDATE courses SET assigned_faculty_id = $2, updated_at = $3 WHERE id = $1`
		result, err = exec.ExecContext(ctx, query, courseID, facultyID, updatedAt)
	}
	if err != nil {
		return fmt.Errorf("update course assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
