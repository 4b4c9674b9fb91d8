package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
)

type mockAssignmentCourseRepo struct {
	courses     map[string]models.Course
	assignments map[string]string
	updateErr   error
}

func (m *mockAssignmentCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		return &models.CourseDetail{Course: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentCourseRepo) UpdateAssignment(ctx context.Context, exec sqlx.ExtContext, courseID, facultyID string, schedule models.TimeSlots, updatedAt time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.courses[courseID]; !ok {
		return sql.ErrNoRows
	}
	if m.assignments == nil {
		m.assignments = make(map[string]string)
	}
	m.assignments[courseID] = facultyID
	return nil
}

type mockFacultyReader struct {
	faculty map[string]models.Faculty
}

func (m *mockFacultyReader) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	if f, ok := m.faculty[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

// mockConflictFinder returns canned conflicts per excluded course ID. Entries
// in onTx apply only when the queryer is non-nil, mimicking conflicts that
// appear between the validation read and the transactional re-check.
type mockConflictFinder struct {
	byCourse map[string][]models.ScheduleConflict
	onTx     map[string][]models.ScheduleConflict
	err      error
}

func (m *mockConflictFinder) FindConflicts(ctx context.Context, q sqlx.QueryerContext, facultyID string, candidate []models.TimeSlot, excludeCourseID string, scope models.AllocationScope) ([]models.ScheduleConflict, error) {
	if m.err != nil {
		return nil, m.err
	}
	if q != nil {
		if conflicts, ok := m.onTx[excludeCourseID]; ok {
			return conflicts, nil
		}
	}
	return m.byCourse[excludeCourseID], nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

func testCourse(id string) models.Course {
	return models.Course{
		ID:           id,
		Name:         "Course " + id,
		Code:         "CS-" + id,
		AcademicYear: "2026/2027",
		Semester:     "1",
		MaxCapacity:  30,
		Schedule:     models.TimeSlots{slot(models.Monday, "09:00", "10:30")},
	}
}

func newAssignmentFixture(t *testing.T, courses *mockAssignmentCourseRepo, conflicts *mockConflictFinder) (*AssignmentService, sqlmock.Sqlmock) {
	faculty := &mockFacultyReader{faculty: map[string]models.Faculty{
		"f-1": {ID: "f-1", FullName: "Ada Lovelace", Department: "CS", Active: true},
		"f-2": {ID: "f-2", FullName: "Alan Turing", Department: "CS", Active: true},
		"f-inactive": {ID: "f-inactive", FullName: "Retired", Active: false},
	}}
	tx, mock := newTxProviderMock(t)
	svc := NewAssignmentService(courses, faculty, conflicts, tx, nil, nil, 10)
	return svc, mock
}

func TestAssignmentServiceAssignSuccess(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{"c-1": testCourse("c-1")}}
	svc, _ := newAssignmentFixture(t, courses, &mockConflictFinder{})

	detail, err := svc.Assign(context.Background(), "c-1", AssignFacultyRequest{FacultyID: "f-1"})
	require.NoError(t, err)
	assert.Equal(t, "c-1", detail.ID)
	assert.Equal(t, "f-1", courses.assignments["c-1"])
}

func TestAssignmentServiceAssignRejectsOnConflict(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{"c-1": testCourse("c-1")}}
	conflicts := &mockConflictFinder{byCourse: map[string][]models.ScheduleConflict{
		"c-1": {{CourseID: "c-9", CourseName: "Other"}},
	}}
	svc, _ := newAssignmentFixture(t, courses, conflicts)

	_, err := svc.Assign(context.Background(), "c-1", AssignFacultyRequest{FacultyID: "f-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, courses.assignments, "a rejected assignment must not mutate anything")

	var detail *models.ScheduleConflictError
	require.True(t, errors.As(err, &detail))
	assert.Len(t, detail.Conflicts, 1)
}

func TestAssignmentServiceAssignForceOverridesConflict(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{"c-1": testCourse("c-1")}}
	conflicts := &mockConflictFinder{byCourse: map[string][]models.ScheduleConflict{
		"c-1": {{CourseID: "c-9"}},
	}}
	svc, _ := newAssignmentFixture(t, courses, conflicts)

	detail, err := svc.Assign(context.Background(), "c-1", AssignFacultyRequest{FacultyID: "f-1", Policy: PolicyForce})
	require.NoError(t, err)
	assert.Equal(t, "f-1", courses.assignments["c-1"])
	assert.Equal(t, "c-1", detail.ID)
}

func TestAssignmentServiceAssignCourseNotFound(t *testing.T) {
	svc, _ := newAssignmentFixture(t, &mockAssignmentCourseRepo{}, &mockConflictFinder{})

	_, err := svc.Assign(context.Background(), "missing", AssignFacultyRequest{FacultyID: "f-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceAssignInactiveFaculty(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{"c-1": testCourse("c-1")}}
	svc, _ := newAssignmentFixture(t, courses, &mockConflictFinder{})

	_, err := svc.Assign(context.Background(), "c-1", AssignFacultyRequest{FacultyID: "f-inactive"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, courses.assignments)
}

func TestAssignmentServiceAssignValidation(t *testing.T) {
	svc, _ := newAssignmentFixture(t, &mockAssignmentCourseRepo{}, &mockConflictFinder{})

	_, err := svc.Assign(context.Background(), "c-1", AssignFacultyRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceBulkAbortMutatesNothing(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{
		"c-1": testCourse("c-1"),
		"c-2": testCourse("c-2"),
	}}
	conflicts := &mockConflictFinder{byCourse: map[string][]models.ScheduleConflict{
		"c-2": {{CourseID: "c-9"}},
	}}
	svc, mock := newAssignmentFixture(t, courses, conflicts)

	report, err := svc.BulkAssign(context.Background(), BulkAssignRequest{
		Assignments: []BulkAssignmentItem{
			{CourseID: "c-1", FacultyID: "f-1"},
			{CourseID: "c-2", FacultyID: "f-2"},
		},
		ConflictResolution: ResolutionAbort,
	})
	require.NoError(t, err)

	assert.Empty(t, courses.assignments, "an aborted batch must mutate zero courses")
	assert.Equal(t, models.BulkItemError, report.Results[0].Status)
	assert.Equal(t, "batch aborted: conflicting assignments present", report.Results[0].Reason)
	assert.Equal(t, models.BulkItemConflict, report.Results[1].Status)
	assert.Equal(t, models.BulkSummary{Total: 2, Successful: 0, Errors: 1, Conflicts: 1}, report.Summary)
	assert.NoError(t, mock.ExpectationsWereMet(), "abort must never open a transaction")
}

func TestAssignmentServiceBulkSkipCommitsCleanItems(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{
		"c-1": testCourse("c-1"),
		"c-2": testCourse("c-2"),
		"c-3": testCourse("c-3"),
	}}
	conflicts := &mockConflictFinder{byCourse: map[string][]models.ScheduleConflict{
		"c-2": {{CourseID: "c-9"}},
	}}
	svc, mock := newAssignmentFixture(t, courses, conflicts)

	mock.ExpectBegin()
	mock.ExpectCommit()

	report, err := svc.BulkAssign(context.Background(), BulkAssignRequest{
		Assignments: []BulkAssignmentItem{
			{CourseID: "c-1", FacultyID: "f-1"},
			{CourseID: "c-2", FacultyID: "f-1"},
			{CourseID: "c-3", FacultyID: "f-2"},
		},
		ConflictResolution: ResolutionSkip,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"c-1": "f-1", "c-3": "f-2"}, courses.assignments)
	assert.Equal(t, models.BulkItemSuccess, report.Results[0].Status)
	assert.Equal(t, models.BulkItemConflict, report.Results[1].Status)
	assert.Equal(t, models.BulkItemSuccess, report.Results[2].Status)
	assert.Equal(t, models.BulkSummary{Total: 3, Successful: 2, Errors: 0, Conflicts: 1}, report.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentServiceBulkReportsInvalidItems(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{"c-1": testCourse("c-1")}}
	svc, mock := newAssignmentFixture(t, courses, &mockConflictFinder{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	report, err := svc.BulkAssign(context.Background(), BulkAssignRequest{
		Assignments: []BulkAssignmentItem{
			{CourseID: "missing", FacultyID: "f-1"},
			{CourseID: "c-1", FacultyID: "ghost"},
			{CourseID: "c-1", FacultyID: "f-inactive"},
			{CourseID: "c-1", FacultyID: "f-1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "course not found", report.Results[0].Reason)
	assert.Equal(t, "faculty not found", report.Results[1].Reason)
	assert.Equal(t, "faculty inactive", report.Results[2].Reason)
	assert.Equal(t, models.BulkItemSuccess, report.Results[3].Status)
	assert.Equal(t, models.BulkSummary{Total: 4, Successful: 1, Errors: 3, Conflicts: 0}, report.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentServiceBulkRollbackFlipsCommittedItems(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{
		"c-1": testCourse("c-1"),
		"c-2": testCourse("c-2"),
	}}
	svc, mock := newAssignmentFixture(t, courses, &mockConflictFinder{})

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	report, err := svc.BulkAssign(context.Background(), BulkAssignRequest{
		Assignments: []BulkAssignmentItem{
			{CourseID: "c-1", FacultyID: "f-1"},
			{CourseID: "c-2", FacultyID: "f-2"},
		},
		ConflictResolution: ResolutionSkip,
	})
	require.NoError(t, err)

	for _, result := range report.Results {
		assert.Equal(t, models.BulkItemError, result.Status)
		assert.Contains(t, result.Reason, "transaction rolled back")
	}
	assert.Equal(t, models.BulkSummary{Total: 2, Successful: 0, Errors: 2, Conflicts: 0}, report.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentServiceBulkRecheckConflictUnderSkip(t *testing.T) {
	courses := &mockAssignmentCourseRepo{courses: map[string]models.Course{
		"c-1": testCourse("c-1"),
		"c-2": testCourse("c-2"),
	}}
	conflicts := &mockConflictFinder{onTx: map[string][]models.ScheduleConflict{
		"c-1": {{CourseID: "c-9"}},
	}}
	svc, mock := newAssignmentFixture(t, courses, conflicts)

	mock.ExpectBegin()
	mock.ExpectCommit()

	report, err := svc.BulkAssign(context.Background(), BulkAssignRequest{
		Assignments: []BulkAssignmentItem{
			{CourseID: "c-1", FacultyID: "f-1"},
			{CourseID: "c-2", FacultyID: "f-2"},
		},
		ConflictResolution: ResolutionSkip,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BulkItemConflict, report.Results[0].Status)
	assert.Equal(t, models.BulkItemSuccess, report.Results[1].Status)
	assert.NotContains(t, courses.assignments, "c-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentServiceBulkBatchTooLarge(t *testing.T) {
	svc, _ := newAssignmentFixture(t, &mockAssignmentCourseRepo{}, &mockConflictFinder{})

	items := make([]BulkAssignmentItem, 11)
	for i := range items {
		items[i] = BulkAssignmentItem{CourseID: "c", FacultyID: "f"}
	}
	_, err := svc.BulkAssign(context.Background(), BulkAssignRequest{Assignments: items})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
