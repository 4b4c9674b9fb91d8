package models

import "time"

// CourseAllocationStats summarises course assignment and seat usage.
type CourseAllocationStats struct {
	Total               int `json:"total"`
	Assigned            int `json:"assigned"`
	Unassigned          int `json:"unassigned"`
	AssignmentRate      int `json:"assignment_rate"`
	TotalCapacity       int `json:"total_capacity"`
	SeatsTaken          int `json:"seats_taken"`
	CapacityUtilization int `json:"capacity_utilization"`
}

// FacultyWorkload is one row of the per-faculty course count breakdown.
type FacultyWorkload struct {
	FacultyID   string `db:"faculty_id" json:"faculty_id"`
	FacultyName string `db:"faculty_name" json:"faculty_name"`
	Department  string `db:"department" json:"department"`
	CourseCount int    `db:"course_count" json:"course_count"`
}

// FacultyUtilizationStats summarises how much of the faculty roster teaches.
type FacultyUtilizationStats struct {
	Total           int               `json:"total"`
	WithAssignments int               `json:"with_assignments"`
	UtilizationRate int               `json:"utilization_rate"`
	Workload        []FacultyWorkload `json:"workload,omitempty"`
}

// StudentEnrollmentStats summarises how much of the student body is enrolled.
type StudentEnrollmentStats struct {
	Total          int `json:"total"`
	Enrolled       int `json:"enrolled"`
	EnrollmentRate int `json:"enrollment_rate"`
}

// AllocationStats is the aggregate dashboard payload.
type AllocationStats struct {
	Scope       AllocationScope         `json:"scope"`
	Courses     CourseAllocationStats   `json:"courses"`
	Faculty     FacultyUtilizationStats `json:"faculty"`
	Students    StudentEnrollmentStats  `json:"students"`
	GeneratedAt time.Time               `json:"generated_at"`
}
