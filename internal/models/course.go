package models

import "time"

// Course represents an offered course section within an academic term.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     string    `db:"semester" json:"semester"`
	ClassSection string    `db:"class_section" json:"class_section"`
	MaxCapacity  int       `db:"max_capacity" json:"max_capacity"`
	Schedule     TimeSlots `db:"schedule" json:"schedule"`
	FacultyID    *string   `db:"assigned_faculty_id" json:"assigned_faculty_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with assigned faculty info.
type CourseDetail struct {
	Course
	FacultyName       *string `db:"faculty_name" json:"faculty_name,omitempty"`
	FacultyDepartment *string `db:"faculty_department" json:"faculty_department,omitempty"`
}

// AllocationScope restricts allocation queries to one academic year and semester.
type AllocationScope struct {
	AcademicYear string `json:"academic_year" form:"academicYear"`
	Semester     string `json:"semester" form:"semester"`
}

// Scope returns the course's owning year/semester pair.
func (c Course) Scope() AllocationScope {
	return AllocationScope{AcademicYear: c.AcademicYear, Semester: c.Semester}
}
