package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadops/course-allocation-api/internal/models"
)

// StatsRepository runs the read-only aggregate queries behind the
// allocation statistics endpoints.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type courseCountsRow struct {
	Total         int `db:"total"`
	Assigned      int `db:"assigned"`
	TotalCapacity int `db:"total_capacity"`
}

// CourseCounts returns total/assigned course counts and summed capacity in scope.
func (r *StatsRepository) CourseCounts(ctx context.Context, scope models.AllocationScope) (total, assigned, totalCapacity int, err error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(assigned_faculty_id) AS assigned,
        COALESCE(SUM(max_capacity), 0) AS total_capacity
        FROM courses WHERE academic_year = $1 AND semester = $2`
	var row courseCountsRow
	if err := r.db.GetContext(ctx, &row, query, scope.AcademicYear, scope.Semester); err != nil {
		return 0, 0, 0, fmt.Errorf("count courses: %w", err)
	}
	return row.Total, row.Assigned, row.TotalCapacity, nil
}

// SeatsTaken counts ACTIVE and COMPLETED enrollments in scope.
func (r *StatsRepository) SeatsTaken(ctx context.Context, scope models.AllocationScope) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments
        WHERE academic_year = $1 AND semester = $2 AND status IN ($3, $4)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scope.AcademicYear, scope.Semester, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted); err != nil {
		return 0, fmt.Errorf("count seats taken: %w", err)
	}
	return count, nil
}

// FacultyCounts returns the active faculty roster size and how many of them
// hold at least one assignment in scope.
func (r *StatsRepository) FacultyCounts(ctx context.Context, scope models.AllocationScope) (total, withAssignments int, err error) {
	const totalQuery = `SELECT COUNT(*) FROM faculty WHERE active = TRUE`
	if err := r.db.GetContext(ctx, &total, totalQuery); err != nil {
		return 0, 0, fmt.Errorf("count faculty: %w", err)
	}
	const assignedQuery = `SELECT COUNT(DISTINCT assigned_faculty_id) FROM courses
        WHERE assigned_faculty_id IS NOT NULL AND academic_year = $1 AND semester = $2`
	if err := r.db.GetContext(ctx, &withAssignments, assignedQuery, scope.AcademicYear, scope.Semester); err != nil {
		return 0, 0, fmt.Errorf("count assigned faculty: %w", err)
	}
	return total, withAssignments, nil
}

// StudentCounts returns the active student roster size and how many students
// hold a counted enrollment in scope.
func (r *StatsRepository) StudentCounts(ctx context.Context, scope models.AllocationScope) (total, enrolled int, err error) {
	const totalQuery = `SELECT COUNT(*) FROM students WHERE active = TRUE`
	if err := r.db.GetContext(ctx, &total, totalQuery); err != nil {
		return 0, 0, fmt.Errorf("count students: %w", err)
	}
	const enrolledQuery = `SELECT COUNT(DISTINCT student_id) FROM enrollments
        WHERE academic_year = $1 AND semester = $2 AND status IN ($3, $4)`
	if err := r.db.GetContext(ctx, &enrolled, enrolledQuery, scope.AcademicYear, scope.Semester, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted); err != nil {
		return 0, 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return total, enrolled, nil
}

// Workload returns the per-faculty course count breakdown, busiest first.
func (r *StatsRepository) Workload(ctx context.Context, scope models.AllocationScope) ([]models.FacultyWorkload, error) {
	const query = `SELECT f.id AS faculty_id, f.full_name AS faculty_name, f.department,
        COUNT(c.id) AS course_count
        FROM courses c
        JOIN faculty f ON f.id = c.assigned_faculty_id
        WHERE c.academic_year = $1 AND c.semester = $2
        GROUP BY f.id, f.full_name, f.department
        ORDER BY course_count DESC, f.full_name ASC`
	var workload []models.FacultyWorkload
	if err := r.db.SelectContext(ctx, &workload, query, scope.AcademicYear, scope.Semester); err != nil {
		return nil, fmt.Errorf("list faculty workload: %w", err)
	}
	return workload, nil
}
