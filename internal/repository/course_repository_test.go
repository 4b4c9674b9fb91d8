package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/course-allocation-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "code", "academic_year", "semester", "class_section", "max_capacity", "schedule", "assigned_faculty_id", "created_at", "updated_at"})
}

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	schedule := []byte(`[{"day":"MONDAY","start_time":"09:00","end_time":"10:30"}]`)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, code, academic_year")).
		WithArgs("c-1").
		WillReturnRows(courseRows().AddRow("c-1", "Algorithms", "CS-201", "2026/2027", "1", "A", 30, schedule, nil, time.Now(), time.Now()))

	course, err := repo.FindByID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "CS-201", course.Code)
	require.Len(t, course.Schedule, 1)
	assert.Equal(t, models.Monday, course.Schedule[0].Day)
	assert.Nil(t, course.FacultyID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, code, academic_year")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByFaculty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery("SELECT id, name, code, academic_year.*assigned_faculty_id = \\$1 AND academic_year = \\$2 AND semester = \\$3 ORDER BY code ASC").
		WithArgs("f-1", "2026/2027", "1").
		WillReturnRows(courseRows().AddRow("c-1", "Algorithms", "CS-201", "2026/2027", "1", "A", 30, []byte(`[]`), "f-1", time.Now(), time.Now()))

	courses, err := repo.ListByFaculty(context.Background(), nil, "f-1", models.AllocationScope{AcademicYear: "2026/2027", Semester: "1"}, "")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "c-1", courses[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByFacultyExcludesCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery("assigned_faculty_id = \\$1 AND academic_year = \\$2 AND semester = \\$3 AND id <> \\$4 ORDER BY code ASC").
		WithArgs("f-1", "2026/2027", "1", "c-1").
		WillReturnRows(courseRows())

	courses, err := repo.ListByFaculty(context.Background(), nil, "f-1", models.AllocationScope{AcademicYear: "2026/2027", Semester: "1"}, "c-1")
	require.NoError(t, err)
	assert.Empty(t, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET assigned_faculty_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("c-1", "f-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAssignment(context.Background(), nil, "c-1", "f-1", nil, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateAssignmentWithSchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	schedule := models.TimeSlots{{Day: models.Monday, StartTime: "09:00", EndTime: "10:30"}}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET assigned_faculty_id = $2, schedule = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("c-1", "f-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAssignment(context.Background(), nil, "c-1", "f-1", schedule, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateAssignmentMissingCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET assigned_faculty_id")).
		WithArgs("missing", "f-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAssignment(context.Background(), nil, "missing", "f-1", nil, time.Now().UTC())
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "code", "academic_year", "semester", "class_section", "max_capacity", "schedule", "assigned_faculty_id", "created_at", "updated_at", "faculty_name", "faculty_department"}).
		AddRow("c-1", "Algorithms", "CS-201", "2026/2027", "1", "A", 30, []byte(`[]`), "f-1", time.Now(), time.Now(), "Ada Lovelace", "CS")
	mock.ExpectQuery("LEFT JOIN faculty f ON f.id = c.assigned_faculty_id").
		WithArgs("c-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, detail.FacultyName)
	assert.Equal(t, "Ada Lovelace", *detail.FacultyName)
	require.NoError(t, mock.ExpectationsWereMet())
}
