package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
)

type mockConflictCourseReader struct {
	courses     []models.Course
	err         error
	lastExclude string
	lastScope   models.AllocationScope
}

func (m *mockConflictCourseReader) ListByFaculty(ctx context.Context, q sqlx.QueryerContext, facultyID string, scope models.AllocationScope, excludeCourseID string) ([]models.Course, error) {
	m.lastExclude = excludeCourseID
	m.lastScope = scope
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Course
	for _, c := range m.courses {
		if c.ID == excludeCourseID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func slot(day models.Weekday, start, end string) models.TimeSlot {
	return models.TimeSlot{Day: day, StartTime: start, EndTime: end}
}

func TestConflictServiceDetectsOverlap(t *testing.T) {
	repo := &mockConflictCourseReader{courses: []models.Course{
		{ID: "c-1", Name: "Algorithms", Schedule: models.TimeSlots{slot(models.Monday, "09:00", "10:30")}},
	}}
	svc := NewConflictService(repo, nil)

	conflicts, err := svc.FindConflicts(context.Background(), nil, "f-1",
		[]models.TimeSlot{slot(models.Monday, "10:00", "11:00")}, "", models.AllocationScope{AcademicYear: "2026/2027", Semester: "1"})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "c-1", conflicts[0].CourseID)
	assert.Equal(t, "Algorithms", conflicts[0].CourseName)
	assert.Equal(t, "2026/2027", repo.lastScope.AcademicYear)
}

func TestConflictServiceExcludedCourseNeverConflicts(t *testing.T) {
	repo := &mockConflictCourseReader{courses: []models.Course{
		{ID: "c-1", Name: "Algorithms", Schedule: models.TimeSlots{slot(models.Monday, "09:00", "10:30")}},
	}}
	svc := NewConflictService(repo, nil)

	conflicts, err := svc.FindConflicts(context.Background(), nil, "f-1",
		[]models.TimeSlot{slot(models.Monday, "09:00", "10:30")}, "c-1", models.AllocationScope{AcademicYear: "2026/2027", Semester: "1"})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, "c-1", repo.lastExclude)
}

func TestConflictServiceEmptyCandidateSkipsLookup(t *testing.T) {
	repo := &mockConflictCourseReader{err: assert.AnError}
	svc := NewConflictService(repo, nil)

	conflicts, err := svc.FindConflicts(context.Background(), nil, "f-1", nil, "", models.AllocationScope{})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestConflictServiceMalformedCandidateFailsClosed(t *testing.T) {
	repo := &mockConflictCourseReader{}
	svc := NewConflictService(repo, nil)

	_, err := svc.FindConflicts(context.Background(), nil, "f-1",
		[]models.TimeSlot{slot("FUNDAY", "09:00", "10:00")}, "", models.AllocationScope{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedTimeSlot.Code, appErrors.FromError(err).Code)
}

func TestConflictServiceMalformedStoredSlotFailsClosed(t *testing.T) {
	repo := &mockConflictCourseReader{courses: []models.Course{
		{ID: "c-1", Schedule: models.TimeSlots{slot(models.Monday, "10:00", "09:00")}},
	}}
	svc := NewConflictService(repo, nil)

	_, err := svc.FindConflicts(context.Background(), nil, "f-1",
		[]models.TimeSlot{slot(models.Monday, "09:00", "10:00")}, "", models.AllocationScope{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedTimeSlot.Code, appErrors.FromError(err).Code)
}

func TestConflictServiceMultipleOverlapsReported(t *testing.T) {
	repo := &mockConflictCourseReader{courses: []models.Course{
		{ID: "c-1", Name: "Algorithms", Schedule: models.TimeSlots{
			slot(models.Monday, "09:00", "10:30"),
			slot(models.Wednesday, "09:00", "10:30"),
		}},
		{ID: "c-2", Name: "Databases", Schedule: models.TimeSlots{slot(models.Monday, "10:00", "12:00")}},
	}}
	svc := NewConflictService(repo, nil)

	conflicts, err := svc.FindConflicts(context.Background(), nil, "f-1",
		[]models.TimeSlot{slot(models.Monday, "10:00", "11:00")}, "", models.AllocationScope{})
	require.NoError(t, err)
	assert.Len(t, conflicts, 2)
}
